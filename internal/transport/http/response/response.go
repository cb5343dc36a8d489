package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Success bodies always carry "error": null.
type successBody struct {
	Error any   `json:"error"`
	Data  any   `json:"data"`
	Meta  *Meta `json:"meta,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, successBody{Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, successBody{Data: data})
}

func Page(c *gin.Context, data any, meta Meta) {
	c.JSON(http.StatusOK, successBody{Data: data, Meta: &meta})
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, errorBody{Error: message})
}

// Abort writes an error body and stops the handler chain.
func Abort(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, errorBody{Error: message})
}
