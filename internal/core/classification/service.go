// internal/core/classification/service.go
package classification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/LuisEduardoPedra/classificaReforma/internal/core/annex"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/nfe"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/tables"
	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSemArquivos            = errors.New("nenhum arquivo XML enviado")
	ErrRelatorioNaoEncontrado = errors.New("relatório não encontrado ou expirado")
)

// Arquivo é um XML enviado para classificação.
type Arquivo struct {
	Nome     string
	Conteudo io.Reader
}

// Opcoes troca as tabelas auxiliares apenas para uma chamada. Avisos são
// copiados para o relatório.
type Opcoes struct {
	Referencia    *tables.Referencia
	PalavrasChave *tables.PalavrasChave
	Avisos        []string
}

// ResumoAnexo descreve um anexo carregado e quantos códigos o índice tem para ele.
type ResumoAnexo struct {
	domain.RegraAnexo
	Codigos int `json:"codigos"`
}

type Service interface {
	ClassificarArquivos(ctx context.Context, arquivos []Arquivo, opcoes Opcoes) (domain.Relatorio, error)
	ClassificarItem(item domain.ItemFiscal) domain.ResultadoClassificacao
	Relatorio(id string) (domain.Relatorio, error)
	Anexos() []ResumoAnexo
	CodigosDoAnexo(anexoID string) (ResumoAnexo, []string, bool)
}

type service struct {
	resolver   *Resolver
	indice     *annex.Indice
	anexos     []domain.RegraAnexo
	relatorios *cache.Cache
	paralelo   int
	logger     *zap.Logger
}

// NewService cria o serviço de classificação em lote. Relatórios ficam em
// memória por ttl.
func NewService(resolver *Resolver, indice *annex.Indice, anexos []domain.RegraAnexo, ttl time.Duration, logger *zap.Logger) Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		resolver:   resolver,
		indice:     indice,
		anexos:     anexos,
		relatorios: cache.New(ttl, 2*ttl),
		paralelo:   8,
		logger:     logger,
	}
}

func (s *service) ClassificarItem(item domain.ItemFiscal) domain.ResultadoClassificacao {
	return s.resolver.Classificar(item)
}

func (s *service) ClassificarArquivos(ctx context.Context, arquivos []Arquivo, opcoes Opcoes) (domain.Relatorio, error) {
	if len(arquivos) == 0 {
		return domain.Relatorio{}, ErrSemArquivos
	}
	resolver := s.resolver.ComTabelas(opcoes.Referencia, opcoes.PalavrasChave)

	notas := make([]domain.NotaFiscal, len(arquivos))
	status := make([]domain.ArquivoProcessado, len(arquivos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.paralelo)
	for i, arq := range arquivos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status[i] = domain.ArquivoProcessado{Nome: arq.Nome}
			nota, err := nfe.Ler(arq.Conteudo)
			if err != nil {
				s.logger.Warn("XML ignorado", zap.String("arquivo", arq.Nome), zap.Error(err))
				status[i].StatusCode = domain.StatusXMLInvalido
				status[i].Erro = err.Error()
				return nil
			}
			status[i].ChaveNFe = nota.Chave
			status[i].Itens = len(nota.Itens)
			if len(nota.Itens) == 0 {
				status[i].StatusCode = domain.StatusXMLSemItens
			}
			notas[i] = nota
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Relatorio{}, fmt.Errorf("classificação interrompida: %w", err)
	}

	rel := domain.Relatorio{ID: uuid.NewString(), Arquivos: status, Avisos: opcoes.Avisos}
	for _, nota := range notas {
		if rel.Empresa == "" && nota.Emitente != "" {
			rel.Empresa = nota.Emitente
		}
		for _, item := range nota.Itens {
			classificado := domain.ItemClassificado{ItemFiscal: item, Resultado: resolver.Classificar(item)}
			switch tipoOperacao(item.CFOP) {
			case operacaoSaida:
				rel.Vendas = append(rel.Vendas, classificado)
			case operacaoEntrada:
				rel.Compras = append(rel.Compras, classificado)
			default:
				rel.Outros = append(rel.Outros, classificado)
			}
		}
	}
	rel.Resumo = resumir(rel)

	s.relatorios.Set(rel.ID, rel, cache.DefaultExpiration)
	s.logger.Info("relatório gerado",
		zap.String("id", rel.ID),
		zap.Int("arquivos", len(arquivos)),
		zap.Int("vendas", len(rel.Vendas)),
		zap.Int("compras", len(rel.Compras)))
	return rel, nil
}

func (s *service) Relatorio(id string) (domain.Relatorio, error) {
	v, ok := s.relatorios.Get(id)
	if !ok {
		return domain.Relatorio{}, ErrRelatorioNaoEncontrado
	}
	return v.(domain.Relatorio), nil
}

func (s *service) Anexos() []ResumoAnexo {
	porAnexo := s.indice.PorAnexo()
	out := make([]ResumoAnexo, 0, len(s.anexos))
	for _, regra := range s.anexos {
		out = append(out, ResumoAnexo{RegraAnexo: regra, Codigos: porAnexo[regra.AnexoID]})
	}
	return out
}

// CodigosDoAnexo aceita "ANEXO I", "anexo_i" ou "anexo-i".
func (s *service) CodigosDoAnexo(anexoID string) (ResumoAnexo, []string, bool) {
	alvo := strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(anexoID)), " ")
	for _, regra := range s.anexos {
		if strings.EqualFold(regra.AnexoID, alvo) {
			codigos := s.indice.Codigos(regra.AnexoID)
			return ResumoAnexo{RegraAnexo: regra, Codigos: len(codigos)}, codigos, true
		}
	}
	return ResumoAnexo{}, nil, false
}

type operacao int

const (
	operacaoOutra operacao = iota
	operacaoEntrada
	operacaoSaida
)

// O primeiro dígito do CFOP indica o sentido: 1-3 entradas, 5-7 saídas.
func tipoOperacao(cfop string) operacao {
	c := domain.NormalizarCodigo(cfop)
	if c == "" {
		return operacaoOutra
	}
	switch c[0] {
	case '1', '2', '3':
		return operacaoEntrada
	case '5', '6', '7':
		return operacaoSaida
	}
	return operacaoOutra
}

// resumir calcula débitos (IBS/CBS das saídas), créditos (das entradas), saldo
// e quantos produtos distintos (NCM, produto, CFOP) foram lidos.
func resumir(rel domain.Relatorio) domain.ResumoCarga {
	var debitos, creditos, atual, total decimal.Decimal
	resumo := domain.ResumoCarga{ItensPorStatus: make(map[string]int)}
	produtos := make(map[[3]string]bool)

	contar := func(itens []domain.ItemClassificado, acumulado *decimal.Decimal) {
		for _, it := range itens {
			if acumulado != nil {
				*acumulado = acumulado.Add(decimal.NewFromFloat(it.Resultado.CargaProjetada))
			}
			atual = atual.Add(decimal.NewFromFloat(it.Resultado.CargaAtual))
			total = total.Add(decimal.NewFromFloat(finito(it.Valor)))
			resumo.ItensPorStatus[it.Resultado.Status]++
			produtos[[3]string{domain.NormalizarCodigo(it.NCM), it.Produto, domain.NormalizarCodigo(it.CFOP)}] = true
			if precisaRevisao(it.Resultado) {
				resumo.ItensParaRevisar++
			}
		}
	}
	contar(rel.Vendas, &debitos)
	contar(rel.Compras, &creditos)
	contar(rel.Outros, nil)

	resumo.Debitos = debitos.Round(2).InexactFloat64()
	resumo.Creditos = creditos.Round(2).InexactFloat64()
	resumo.Saldo = debitos.Sub(creditos).Round(2).InexactFloat64()
	resumo.CargaAtualTotal = atual.Round(2).InexactFloat64()
	resumo.ValorTotal = total.Round(2).InexactFloat64()
	resumo.ProdutosUnicos = len(produtos)
	return resumo
}

func precisaRevisao(r domain.ResultadoClassificacao) bool {
	return r.Status == StatusImpostoSeletivo ||
		r.CClassTrib == CClassTribVerificar ||
		r.ValidacaoTIPI == tables.ValidacaoNaoEncontrado
}

// StatusOrdenados devolve os status do resumo em ordem alfabética, para saída estável.
func StatusOrdenados(r domain.ResumoCarga) []string {
	out := make([]string, 0, len(r.ItensPorStatus))
	for st := range r.ItensPorStatus {
		out = append(out, st)
	}
	sort.Strings(out)
	return out
}
