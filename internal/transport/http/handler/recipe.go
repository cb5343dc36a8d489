package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"savora/internal/app"
	"savora/internal/transport/http/middleware"
	"savora/internal/transport/http/response"
)

type RecipeHandler struct {
	recipeService *app.RecipeService
	log           logrus.FieldLogger
}

func NewRecipeHandler(recipeService *app.RecipeService, log logrus.FieldLogger) *RecipeHandler {
	return &RecipeHandler{recipeService: recipeService, log: log}
}

func (h *RecipeHandler) Create(c *gin.Context) {
	req, err := bindRecipeRequest(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, payloadMessage(err))
		return
	}

	image, closer, err := imageUpload(c, "image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, payloadMessage(err))
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	recipe, err := h.recipeService.Create(c.Request.Context(), middleware.UserID(c), req.createInput(), image)
	if err != nil {
		writeError(c, h.log, err, "Error creating recipe entry")
		return
	}
	response.Created(c, recipe)
}

func (h *RecipeHandler) List(c *gin.Context) {
	query, err := app.BuildRecipeQuery(app.RecipeQueryParams{
		Q:          c.Query("q"),
		CreatedBy:  c.Query("createdBy"),
		Tags:       c.QueryArray("tags"),
		Diet:       c.QueryArray("diet"),
		Allergens:  c.QueryArray("allergens"),
		Difficulty: c.Query("difficulty"),
		Page:       c.Query("page"),
		Limit:      c.Query("limit"),
		Sort:       c.Query("sort"),
	})
	if err != nil {
		writeError(c, h.log, err, "Error retrieving recipes")
		return
	}

	page, err := h.recipeService.List(c.Request.Context(), query)
	if err != nil {
		writeError(c, h.log, err, "Error retrieving recipes")
		return
	}
	response.Page(c, page.Items, response.Meta{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (h *RecipeHandler) Get(c *gin.Context) {
	recipe, err := h.recipeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err, "Error retrieving recipe")
		return
	}
	response.OK(c, recipe)
}

// Update checks existence and ownership before the body is read, so a
// non-owner gets 403 whatever the payload.
func (h *RecipeHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	id := c.Param("id")

	if _, err := h.recipeService.AuthorizeUpdate(ctx, userID, id); err != nil {
		writeError(c, h.log, err, "Error updating recipe entry")
		return
	}

	req, err := bindRecipeRequest(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, payloadMessage(err))
		return
	}

	image, closer, err := imageUpload(c, "image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, payloadMessage(err))
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	recipe, err := h.recipeService.Update(ctx, userID, id, req.updateInput(), image)
	if err != nil {
		writeError(c, h.log, err, "Error updating recipe entry")
		return
	}
	response.OK(c, recipe)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	if err := h.recipeService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, h.log, err, "Error deleting recipe entry")
		return
	}
	response.OK(c, app.MsgRecipeDeleted)
}
