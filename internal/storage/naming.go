// Package storage keeps uploaded images on local disk or in an
// S3-compatible bucket and addresses them by public path.
package storage

import (
	"fmt"
	"math/rand"
	"path"
	"regexp"
	"strings"
	"time"
)

var whitespace = regexp.MustCompile(`\s+`)

// ObjectName builds a unique stored name: <unix ms>-<random>-<original>,
// with whitespace in the original name replaced by dashes.
func ObjectName(original string, now time.Time) string {
	return fmt.Sprintf("%d-%d-%s", now.UnixMilli(), rand.Int63n(1e9), sanitizeName(original))
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "-")
	if name == "" || name == "." || name == "/" || name == ".." {
		return "upload"
	}
	return name
}
