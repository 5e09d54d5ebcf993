// cmd/web/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/LuisEduardoPedra/classificaReforma/internal/api"
	"github.com/LuisEduardoPedra/classificaReforma/internal/api/responses"
	"github.com/LuisEduardoPedra/classificaReforma/internal/bootstrap"
	"github.com/LuisEduardoPedra/classificaReforma/internal/config"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/auth"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/classification"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// initFirestoreClient initializes the Firestore client.
func initFirestoreClient(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) *firestore.Client {
	client, err := firestore.NewClientWithDatabase(ctx, cfg.FirestoreProject, cfg.FirestoreDatabase)
	if err != nil {
		logger.Fatal("erro ao inicializar cliente Firestore",
			zap.String("database", cfg.FirestoreDatabase), zap.Error(err))
	}
	logger.Info("conectado ao Firestore", zap.String("database", cfg.FirestoreDatabase))
	return client
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		responses.InitLogger("info").Fatal("configuração inválida", zap.Error(err))
	}
	logger := responses.InitLogger(cfg.LogLevel)
	defer logger.Sync()
	for _, aviso := range cfg.Avisos {
		logger.Warn(aviso)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	motor, err := bootstrap.MontarMotor(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("falha ao montar o motor de classificação", zap.Error(err))
	}

	firestoreClient := initFirestoreClient(ctx, cfg, logger)
	defer firestoreClient.Close()

	authService := auth.NewService(auth.NovoRepositorioFirestore(firestoreClient, "users"),
		[]byte(cfg.JWTSecret), cfg.JWTValidade, logger)
	classificacaoService := classification.NewService(motor.Resolver, motor.Indice, motor.Anexos,
		cfg.RelatorioTTL, logger)

	router := api.NewRouter(api.RouterConfig{
		AuthService:     authService,
		Classificacao:   classificacaoService,
		JWTSecret:       []byte(cfg.JWTSecret),
		MaxUploadBytes:  cfg.MaxUploadBytes,
		BuscaAproximada: cfg.BuscaAproximada,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("servidor iniciado", zap.String("porta", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("falha ao iniciar o servidor", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("erro ao encerrar o servidor", zap.Error(err))
	}
}
