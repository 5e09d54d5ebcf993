// internal/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/LuisEduardoPedra/classificaReforma/internal/config"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/annex"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/classification"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/tables"
	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"go.uber.org/zap"
)

// Motor é o resolvedor pronto e o que foi usado para montá-lo.
type Motor struct {
	Resolver *classification.Resolver
	Indice   *annex.Indice
	Anexos   []domain.RegraAnexo
}

// MontarMotor constrói o índice de anexos e carrega as tabelas auxiliares
// configuradas. Falhas em tabelas opcionais só geram aviso.
func MontarMotor(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Motor, error) {
	regras := annex.AplicarCapitulos(annex.RegrasPadrao(), cfg.Capitulos)

	fontes := []annex.Fonte{annex.TextoBase()}
	if cfg.LegislacaoArquivo != "" {
		fontes = append(fontes, annex.FonteArquivo(cfg.LegislacaoArquivo))
	}
	if cfg.LegislacaoOnline && cfg.LegislacaoURL != "" {
		fontes = append(fontes, annex.NovaLegislacaoOnline(cfg.LegislacaoURL, cfg.LegislacaoTimeout, logger))
	}

	indice, err := annex.Construir(ctx, regras, logger, fontes...)
	if err != nil {
		return nil, fmt.Errorf("erro ao montar índice de anexos: %w", err)
	}

	resolver := classification.NovoResolver(classification.Config{
		Indice:        indice,
		Anexos:        regras,
		Aliquotas:     &classification.Aliquotas{IBS: cfg.AliquotaIBS, CBS: cfg.AliquotaCBS},
		Referencia:    carregarReferencia(ctx, cfg, logger),
		PalavrasChave: carregarPalavrasChave(cfg, logger),
		Logger:        logger,
	})

	logger.Info("motor de classificação pronto",
		zap.Int("codigos_indice", indice.Tamanho()),
		zap.Strings("regras", resolver.Regras()),
		zap.Float64("aliquota_total", resolver.Aliquotas().Total()))
	return &Motor{Resolver: resolver, Indice: indice, Anexos: regras}, nil
}

// A TIPI em arquivo tem precedência sobre o cadastro IBPT.
func carregarReferencia(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) *tables.Referencia {
	if cfg.TIPIPath != "" {
		ref, err := referenciaDeArquivo(cfg.TIPIPath)
		if err == nil {
			logger.Info("tabela TIPI carregada", zap.String("arquivo", cfg.TIPIPath), zap.Int("codigos", ref.Tamanho()))
			return ref
		}
		logger.Warn("tabela TIPI indisponível", zap.String("arquivo", cfg.TIPIPath), zap.Error(err))
	}
	if cfg.IBPTDatabaseURL != "" {
		db, err := tables.AbrirIBPT(ctx, cfg.IBPTDatabaseURL)
		if err != nil {
			logger.Warn("banco IBPT indisponível", zap.Error(err))
			return nil
		}
		defer db.Close()
		ref, err := tables.CarregarReferenciaIBPT(ctx, db)
		if err != nil {
			logger.Warn("tabela IBPT indisponível", zap.Error(err))
			return nil
		}
		logger.Info("tabela IBPT carregada", zap.Int("codigos", ref.Tamanho()))
		return ref
	}
	return nil
}

func referenciaDeArquivo(caminho string) (*tables.Referencia, error) {
	f, err := os.Open(caminho)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tables.CarregarReferencia(f, caminho)
}

func carregarPalavrasChave(cfg *config.AppConfig, logger *zap.Logger) *tables.PalavrasChave {
	if cfg.RegrasJSONPath == "" {
		return nil
	}
	f, err := os.Open(cfg.RegrasJSONPath)
	if err != nil {
		logger.Warn("JSON de classificação indisponível", zap.String("arquivo", cfg.RegrasJSONPath), zap.Error(err))
		return nil
	}
	defer f.Close()
	palavras, err := tables.CarregarPalavrasChave(f, cfg.BuscaAproximada)
	if err != nil {
		logger.Warn("JSON de classificação inválido", zap.String("arquivo", cfg.RegrasJSONPath), zap.Error(err))
		return nil
	}
	logger.Info("JSON de classificação carregado", zap.Int("entradas", palavras.Tamanho()))
	return palavras
}
