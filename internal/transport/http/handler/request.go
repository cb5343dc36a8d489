package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"savora/internal/app"
)

const (
	msgInvalidPayload = "Invalid request payload"
	msgBodyTooLarge   = "File too large"
)

// StringList accepts a JSON array of strings, or a single string holding a
// JSON array or comma separated values.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("expected a list of strings")
	}
	*l = app.ParseStringList(raw)
	if *l == nil {
		*l = StringList{}
	}
	return nil
}

// FlexInt accepts a JSON number or a numeric string.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		*n = FlexInt(num)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("expected a number")
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("expected a number")
	}
	*n = FlexInt(parsed)
	return nil
}

type RecipeRequest struct {
	Title       *string     `json:"title"`
	Ingredients *StringList `json:"ingredients"`
	FullRecipe  *string     `json:"fullRecipe"`
	Tags        *StringList `json:"tags"`
	Diet        *StringList `json:"diet"`
	Allergens   *StringList `json:"allergens"`
	Difficulty  *string     `json:"difficulty"`
	CookingTime *FlexInt    `json:"cookingTime"`
	Servings    *FlexInt    `json:"servings"`
}

func (r RecipeRequest) createInput() app.RecipeInput {
	return app.RecipeInput{
		Title:       deref(r.Title),
		Ingredients: derefList(r.Ingredients),
		FullRecipe:  deref(r.FullRecipe),
		Tags:        derefList(r.Tags),
		Diet:        derefList(r.Diet),
		Allergens:   derefList(r.Allergens),
		Difficulty:  r.Difficulty,
		CookingTime: intPtr(r.CookingTime),
		Servings:    intPtr(r.Servings),
	}
}

func (r RecipeRequest) updateInput() app.RecipeUpdateInput {
	return app.RecipeUpdateInput{
		Title:       r.Title,
		Ingredients: listPtr(r.Ingredients),
		FullRecipe:  r.FullRecipe,
		Tags:        listPtr(r.Tags),
		Diet:        listPtr(r.Diet),
		Allergens:   listPtr(r.Allergens),
		Difficulty:  r.Difficulty,
		CookingTime: intPtr(r.CookingTime),
		Servings:    intPtr(r.Servings),
	}
}

type ProfileRequest struct {
	Bio *string `json:"bio"`
}

func isMultipart(c *gin.Context) bool {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// bindJSON decodes an optional JSON body into dst. An empty body is not an
// error.
func bindJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func bindRecipeRequest(c *gin.Context) (RecipeRequest, error) {
	var req RecipeRequest
	if !isMultipart(c) {
		return req, bindJSON(c, &req)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, err
	}
	req.Title = formString(form, "title")
	req.FullRecipe = formString(form, "fullRecipe")
	req.Difficulty = formString(form, "difficulty")
	req.Ingredients = formList(form, "ingredients")
	req.Tags = formList(form, "tags")
	req.Diet = formList(form, "diet")
	req.Allergens = formList(form, "allergens")
	if req.CookingTime, err = formInt(form, "cookingTime"); err != nil {
		return req, err
	}
	if req.Servings, err = formInt(form, "servings"); err != nil {
		return req, err
	}
	return req, nil
}

func bindProfileRequest(c *gin.Context) (ProfileRequest, error) {
	var req ProfileRequest
	if !isMultipart(c) {
		return req, bindJSON(c, &req)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return req, err
	}
	req.Bio = formString(form, "bio")
	return req, nil
}

// imageUpload returns the optional file in field. The caller closes it.
func imageUpload(c *gin.Context, field string) (*app.ImageUpload, io.Closer, error) {
	if !isMultipart(c) {
		return nil, nil, nil
	}
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &app.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

func formString(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func formList(form *multipart.Form, key string) *StringList {
	values, ok := form.Value[key]
	if !ok {
		values, ok = form.Value[key+"[]"]
	}
	if !ok {
		return nil
	}
	list := StringList(app.ParseStringList(values...))
	if list == nil {
		list = StringList{}
	}
	return &list
}

func formInt(form *multipart.Form, key string) (*FlexInt, error) {
	raw := formString(form, key)
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil {
		return nil, &fieldError{field: key, message: "must be a number"}
	}
	v := FlexInt(n)
	return &v, nil
}

type fieldError struct {
	field   string
	message string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%q %s", e.field, e.message)
}

// payloadMessage is the client message for a body that failed to decode.
func payloadMessage(err error) string {
	var fe *fieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%q has an invalid type", typeErr.Field)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return msgBodyTooLarge
	}
	return msgInvalidPayload
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefList(l *StringList) []string {
	if l == nil {
		return nil
	}
	return []string(*l)
}

func listPtr(l *StringList) *[]string {
	if l == nil {
		return nil
	}
	out := []string(*l)
	return &out
}

func intPtr(n *FlexInt) *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}
