// Package imaging shrinks uploaded photos before they reach storage.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"savora/internal/app"
)

const (
	jpegQuality = 85

	DefaultMaxPixels = 40_000_000
)

// Downscaler resizes JPEG and PNG images whose longest side is above
// maxSide. Images with more than maxPixels pixels are rejected from their
// header alone, before any pixel data is decoded. Bodies that do not decode
// as either format pass through unchanged.
type Downscaler struct {
	maxSide   int
	maxPixels int64
}

// NewDownscaler returns a Downscaler. maxPixels <= 0 means DefaultMaxPixels.
func NewDownscaler(maxSide, maxPixels int) *Downscaler {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Downscaler{maxSide: maxSide, maxPixels: int64(maxPixels)}
}

// Process returns the body to store and its content type.
func (d *Downscaler) Process(contentType string, body io.Reader) (io.Reader, string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read image failed: %w", err)
	}
	if d.maxSide <= 0 {
		return bytes.NewReader(data), contentType, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (format != "jpeg" && format != "png") {
		return bytes.NewReader(data), contentType, nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > d.maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", app.ErrImageRejected, cfg.Width, cfg.Height, d.maxPixels)
	}
	w, h, ok := fit(cfg.Width, cfg.Height, d.maxSide)
	if !ok {
		return bytes.NewReader(data), contentType, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return bytes.NewReader(data), contentType, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if format == "png" {
		if err := png.Encode(&out, dst); err != nil {
			return nil, "", fmt.Errorf("encode png failed: %w", err)
		}
		return &out, "image/png", nil
	}
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg failed: %w", err)
	}
	return &out, "image/jpeg", nil
}

// fit scales w x h so the longest side equals maxSide. ok is false when the
// image already fits.
func fit(w, h, maxSide int) (int, int, bool) {
	if w <= maxSide && h <= maxSide {
		return w, h, false
	}
	if w >= h {
		nh := h * maxSide / w
		return maxSide, max(nh, 1), true
	}
	nw := w * maxSide / h
	return max(nw, 1), maxSide, true
}
