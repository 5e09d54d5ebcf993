// internal/core/classification/resolver.go
package classification

import (
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/annex"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/tables"
	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"go.uber.org/zap"
)

// Config reúne tudo que o Resolver precisa. Apenas Indice e Anexos são
// obrigatórios; as tabelas auxiliares podem faltar.
type Config struct {
	Indice            *annex.Indice
	Anexos            []domain.RegraAnexo
	PrefixosRestritos []string
	Referencia        *tables.Referencia
	PalavrasChave     *tables.PalavrasChave
	// Aliquotas nil usa AliquotasPadrao(); zero é uma alíquota válida.
	Aliquotas *Aliquotas
	// Regras substitui a cadeia padrão. Nil usa RegrasPadrao().
	Regras []Regra
	Logger *zap.Logger
}

// Resolver classifica itens. É imutável depois de criado e pode ser usado
// por várias goroutines.
type Resolver struct {
	indice     *annex.Indice
	anexos     map[string]domain.RegraAnexo
	restritos  []string
	aliquotas  Aliquotas
	referencia *tables.Referencia
	palavras   *tables.PalavrasChave
	regras     []Regra
	logger     *zap.Logger
}

// NovoResolver monta o resolvedor.
func NovoResolver(cfg Config) *Resolver {
	r := &Resolver{
		indice:     cfg.Indice,
		anexos:     make(map[string]domain.RegraAnexo, len(cfg.Anexos)),
		restritos:  cfg.PrefixosRestritos,
		aliquotas:  AliquotasPadrao(),
		referencia: cfg.Referencia,
		palavras:   cfg.PalavrasChave,
		regras:     ordenarRegras(cfg.Regras),
		logger:     cfg.Logger,
	}
	for _, regra := range cfg.Anexos {
		r.anexos[regra.AnexoID] = regra
	}
	if r.restritos == nil {
		r.restritos = annex.PrefixosRestritos()
	}
	if cfg.Aliquotas != nil {
		r.aliquotas = *cfg.Aliquotas
	}
	if cfg.Regras == nil {
		r.regras = ordenarRegras(RegrasPadrao())
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// ComTabelas devolve uma cópia que usa outras tabelas auxiliares, por exemplo
// as enviadas junto com uma requisição. Parâmetros nil mantêm as atuais.
func (r *Resolver) ComTabelas(ref *tables.Referencia, palavras *tables.PalavrasChave) *Resolver {
	c := *r
	if ref != nil {
		c.referencia = ref
	}
	if palavras != nil {
		c.palavras = palavras
	}
	return &c
}

// Aliquotas em uso.
func (r *Resolver) Aliquotas() Aliquotas { return r.aliquotas }

// Regras devolve os nomes das regras na ordem de avaliação.
func (r *Resolver) Regras() []string {
	nomes := make([]string, len(r.regras))
	for i, regra := range r.regras {
		nomes[i] = regra.Nome
	}
	return nomes
}

// Classificar aplica a cadeia de regras ao item e calcula a carga projetada.
// Sempre devolve um resultado: entradas malformadas caem na regra padrão.
func (r *Resolver) Classificar(item domain.ItemFiscal) (res domain.ResultadoClassificacao) {
	a := Avaliacao{
		NCM:  domain.NormalizarCodigo(item.NCM),
		CFOP: domain.NormalizarCodigo(item.CFOP),
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("pânico ao classificar item, usando regra padrão",
				zap.String("ncm", item.NCM), zap.String("cfop", item.CFOP), zap.Any("panic", p))
			res = r.montar(item, a, desfechoPadrao())
		}
	}()

	for _, regra := range r.regras {
		if d, ok := regra.Avaliar(r, a); ok {
			r.logger.Debug("item classificado",
				zap.String("ncm", a.NCM), zap.String("cfop", a.CFOP),
				zap.String("regra", regra.Nome), zap.String("cclass_trib", d.CClassTrib))
			return r.montar(item, a, d)
		}
	}
	return r.montar(item, a, desfechoPadrao())
}

func (r *Resolver) montar(item domain.ItemFiscal, a Avaliacao, d Desfecho) domain.ResultadoClassificacao {
	c := calcularCarga(item, r.aliquotas, d.FatorReducao)
	res := domain.ResultadoClassificacao{
		CClassTrib:     d.CClassTrib,
		Descricao:      d.Descricao,
		Status:         d.Status,
		NovoCST:        d.CST,
		Origem:         d.Origem,
		ValidacaoTIPI:  r.referencia.Validar(a.NCM),
		FatorReducao:   d.FatorReducao,
		CargaAtual:     c.atual.InexactFloat64(),
		CargaProjetada: c.projetada.InexactFloat64(),
		VIBS:           c.ibs.InexactFloat64(),
		VCBS:           c.cbs.InexactFloat64(),
	}
	if d.ZerarCargaAtual {
		res.CargaAtual = 0
	}
	if d.ZerarCargaProjetada {
		res.CargaProjetada, res.VIBS, res.VCBS = 0, 0, 0
	}
	return res
}
