package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/usecase"
)

// UserManager covers login and account administration.
type UserManager interface {
	Login(ctx context.Context, email, password string) (string, error)
	CreateUser(ctx context.Context, email, password string, role domain.Role) (int64, error)
	DeleteUser(ctx context.Context, id, requesterID int64) error
	FindUsers(ctx context.Context, filter domain.UserFilter, page, pageSize int) (domain.UserPage, error)
}

type userHandlers struct {
	users UserManager
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createUserRequest struct {
	Email    string      `json:"email"    binding:"required"`
	Password string      `json:"password" binding:"required"`
	Role     domain.Role `json:"role"`
}

func (h *userHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *userHandlers) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	id, err := h.users.CreateUser(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *userHandlers) deleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}

	var requester int64
	if claims, ok := claimsFrom(c); ok {
		requester = claims.UserID()
	}

	if err := h.users.DeleteUser(c.Request.Context(), id, requester); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *userHandlers) findUsers(c *gin.Context) {
	var filter domain.UserFilter
	if err := c.ShouldBindJSON(&filter); err != nil && !isEmptyBody(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	result, err := h.users.FindUsers(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *userHandlers) whoAmI(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"id":            claims.UserID(),
		"email":         claims.Email,
		"role":          claims.Role,
	})
}

func (h *userHandlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserExists), errors.Is(err, usecase.ErrInvalidUser):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSelfDelete):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	default:
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
