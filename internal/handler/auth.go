package handler

import (
	"net/http"

	"what-to-do/internal/logger"
	"what-to-do/internal/middleware"
	"what-to-do/internal/model"
	"what-to-do/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth *service.AuthService
	jwt  *middleware.JWT
}

func NewAuthHandler(auth *service.AuthService, jwt *middleware.JWT) *AuthHandler {
	return &AuthHandler{auth: auth, jwt: jwt}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logger.Warn("login.failed", "username", req.Username)
		fail(c, err)
		return
	}
	logger.Info("login.ok", "uid", u.ID, "username", u.Username)
	h.respondToken(c, http.StatusOK, u)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and a password of at least 6 characters are required"})
		return
	}

	u, err := h.auth.Register(c.Request.Context(), model.User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Info("signup.ok", "uid", u.ID, "username", u.Username)
	h.respondToken(c, http.StatusCreated, u)
}

func (h *AuthHandler) respondToken(c *gin.Context, status int, u *model.User) {
	token, err := h.jwt.Issue(u.ID, u.Username)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(status, model.LoginResponse{Token: token, User: *u})
}
