// internal/api/middleware/auth.go
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/LuisEduardoPedra/classificaReforma/internal/api/responses"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsKey = "user_claims"

// AuthMiddleware verifica se o token JWT é válido.
func AuthMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			responses.Error(c, http.StatusUnauthorized, "Token de autorização não fornecido")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			responses.Error(c, http.StatusUnauthorized, "Formato do token inválido")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			responses.Error(c, http.StatusUnauthorized, "Token inválido ou expirado", err)
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			c.Set(claimsKey, claims)
		}
		c.Next()
	}
}

// PermissionMiddleware verifica se o usuário tem uma permissão específica.
func PermissionMiddleware(requiredPermission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get(claimsKey)
		if !exists {
			responses.Error(c, http.StatusForbidden, "Claims do usuário não encontrados")
			return
		}

		mapClaims, _ := claims.(jwt.MapClaims)
		roles, ok := mapClaims["roles"].([]any)
		if !ok {
			responses.Error(c, http.StatusForbidden, "Permissões não encontradas no token")
			return
		}

		for _, role := range roles {
			if roleStr, ok := role.(string); ok && roleStr == requiredPermission {
				c.Next()
				return
			}
		}
		responses.Error(c, http.StatusForbidden, "Acesso negado: permissão necessária ausente",
			fmt.Sprintf("permissão %q", requiredPermission))
	}
}

// CORS libera o frontend hospedado em outro domínio.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
