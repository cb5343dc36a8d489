package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"savora/internal/app"
	"savora/internal/transport/http/middleware"
	"savora/internal/transport/http/response"
)

const msgUserDeleted = "User and all owned recipes were deleted successfully."

type UserHandler struct {
	userService *app.UserService
	log         logrus.FieldLogger
}

func NewUserHandler(userService *app.UserService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.userService.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, h.log, err, "Error fetching user")
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	req, err := bindProfileRequest(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, payloadMessage(err))
		return
	}

	image, closer, err := imageUpload(c, "profileImage")
	if err != nil {
		response.Error(c, http.StatusBadRequest, payloadMessage(err))
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	user, err := h.userService.UpdateMe(c.Request.Context(), middleware.UserID(c), app.ProfileUpdateInput{Bio: req.Bio}, image)
	if err != nil {
		writeError(c, h.log, err, "Error updating user")
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
	if err := h.userService.DeleteMe(c.Request.Context(), middleware.UserID(c)); err != nil {
		writeError(c, h.log, err, "Error deleting user")
		return
	}
	response.OK(c, msgUserDeleted)
}
