// internal/api/router.go
package api

import (
	"net/http"

	"github.com/LuisEduardoPedra/classificaReforma/internal/api/handlers"
	"github.com/LuisEduardoPedra/classificaReforma/internal/api/middleware"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/auth"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/classification"
	"github.com/gin-gonic/gin"
)

// RouterConfig reúne as dependências das rotas.
type RouterConfig struct {
	AuthService     auth.Service
	Classificacao   classification.Service
	JWTSecret       []byte
	MaxUploadBytes  int64
	BuscaAproximada bool
}

// NewRouter registra as rotas da API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS())
	if cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	classificacaoHandler := handlers.NewClassificacaoHandler(cfg.Classificacao, cfg.BuscaAproximada)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/login", authHandler.Login)

		protected := apiV1.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))
		{
			protected.GET("/anexos", classificacaoHandler.HandleAnexos)
			protected.GET("/anexos/:id", classificacaoHandler.HandleCodigosAnexo)
			protected.GET("/ncm/:codigo", classificacaoHandler.HandleClassificarNCM)
			protected.GET("/relatorios/:id", classificacaoHandler.HandleRelatorio)
			protected.POST("/classificar",
				middleware.PermissionMiddleware(auth.PermissaoClassificacao),
				limitarCorpo(cfg.MaxUploadBytes),
				classificacaoHandler.HandleClassificar)
		}
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	return router
}

func limitarCorpo(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
