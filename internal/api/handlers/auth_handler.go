// internal/api/handlers/auth_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/LuisEduardoPedra/classificaReforma/internal/api/responses"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/auth"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service auth.Service
}

func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login troca usuário e senha por um token JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Usuário e senha são obrigatórios", err)
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrCredenciaisInvalidas) {
		responses.Error(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao autenticar", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
