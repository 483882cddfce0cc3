package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	users, err := h.userService.List(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": dto.ToUserDetailList(users)})
}

// CreateUser adds an already verified account
func (h *UserHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Email    string      `json:"email" binding:"required,email"`
		Password string      `json:"password" binding:"required,min=6"`
		Name     string      `json:"name" binding:"required"`
		Role     models.Role `json:"role" binding:"omitempty,oneof=admin manager employee"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), a, services.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": dto.ToUserDetailDTO(*user)})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.ToUserDetailDTO(*user)})
}

// UpdateUser changes the name, or the role when the caller is an admin
func (h *UserHandler) UpdateUser(c *gin.Context) {
	type UpdateUserRequest struct {
		Name *string      `json:"name" binding:"omitempty,min=1"`
		Role *models.Role `json:"role" binding:"omitempty,oneof=admin manager employee"`
	}

	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), a, id, services.UpdateUserInput{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.ToUserDetailDTO(*user)})
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "User and all associated data deleted successfully"})
}
