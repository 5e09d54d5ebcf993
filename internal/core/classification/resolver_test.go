// internal/core/classification/resolver_test.go
package classification

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/LuisEduardoPedra/classificaReforma/internal/core/annex"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/tables"
	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const jsonClassificacao = `[
  {"Código da Classificação Tributária": "000001", "Descrição do Código da Classificação Tributária": "Situações tributadas integralmente (tributação integral)", "Código da Situação Tributária": "000"},
  {"Código da Classificação Tributária": "200009", "Descrição do Código da Classificação Tributária": "Fornecimento de medicamentos registrados na Anvisa", "Código da Situação Tributária": "200"},
  {"Código da Classificação Tributária": "410004", "Descrição do Código da Classificação Tributária": "Exportação de bens materiais", "Código da Situação Tributária": "410"},
  {"Código da Classificação Tributária": "620001", "Descrição do Código da Classificação Tributária": "Tributação monofásica sobre combustíveis", "Código da Situação Tributária": "620"}
]`

func novoIndice(t *testing.T) *annex.Indice {
	t.Helper()
	idx, err := annex.Construir(context.Background(), annex.RegrasPadrao(), zaptest.NewLogger(t), annex.TextoBase())
	require.NoError(t, err)
	return idx
}

func novoResolver(t *testing.T, comTabelas bool) *Resolver {
	t.Helper()
	cfg := Config{
		Indice: novoIndice(t),
		Anexos: annex.RegrasPadrao(),
		Logger: zaptest.NewLogger(t),
	}
	if comTabelas {
		palavras, err := tables.CarregarPalavrasChave(strings.NewReader(jsonClassificacao), false)
		require.NoError(t, err)
		cfg.PalavrasChave = palavras
		cfg.Referencia = tables.NovaReferencia([]string{"1006.30.21", "2203", "3004.10.00"})
	}
	return NovoResolver(cfg)
}

func item(ncm, cfop string, valor float64) domain.ItemFiscal {
	return domain.ItemFiscal{NCM: ncm, CFOP: cfop, Valor: valor}
}

func TestClassificar_Cenarios(t *testing.T) {
	r := novoResolver(t, false)

	tests := []struct {
		name       string
		item       domain.ItemFiscal
		cclass     string
		status     string
		cst        string
		fator      float64
		atual      float64
		projetada  float64
		origemTem  string
	}{
		{
			name: "arroz no Anexo I", item: item("10063021", "5102", 100),
			cclass: "200003", status: "ZERO (Anexo I)", cst: "200", fator: 1, projetada: 0,
			origemTem: "ANEXO I",
		},
		{
			name: "cerveja no Imposto Seletivo", item: item("22030000", "5102", 100),
			cclass: "000001", status: StatusImpostoSeletivo, cst: "000", fator: 0, projetada: 0,
			origemTem: "2203",
		},
		{
			name: "bonificação", item: item("99999999", "5910", 100),
			cclass: "410999", status: StatusNaoOneroso, cst: "410", fator: 1, projetada: 0,
			origemTem: "5910",
		},
		{
			name: "NCM sem mapeamento", item: item("99999999", "5102", 100),
			cclass: "000001", status: StatusPadrao, cst: "000", fator: 0, projetada: 26.70,
			origemTem: "Regra Geral",
		},
		{
			name: "exportação direta", item: item("99999999", "7101", 100),
			cclass: "410004", status: StatusImune, cst: "410", fator: 1, projetada: 0,
			origemTem: "7101",
		},
		{
			name: "remessa com fim de exportação", item: item("10063021", "5501", 100),
			cclass: "410004", status: StatusImune, cst: "410", fator: 1, projetada: 0,
			origemTem: "5501",
		},
		{
			name: "medicamento no Anexo VI", item: item("30041000", "5102", 100),
			cclass: "200009", status: "REDUZIDA 60% (Anexo VI)", cst: "200", fator: 0.6, projetada: 10.68,
			origemTem: "ANEXO VI",
		},
		{
			name: "medicamento no Anexo XIV", item: item("3004.90.69", "5.102", 100),
			cclass: "200008", status: "ZERO (Anexo XIV)", cst: "200", fator: 1, projetada: 0,
			origemTem: "ANEXO XIV",
		},
		{
			name: "NCM malformado", item: item("10O6", "5102", 100),
			cclass: "000001", status: StatusPadrao, cst: "000", fator: 0, projetada: 26.70,
		},
		{
			name: "tudo vazio", item: domain.ItemFiscal{},
			cclass: "000001", status: StatusPadrao, cst: "000", fator: 0, projetada: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Classificar(tt.item)
			assert.Equal(t, tt.cclass, res.CClassTrib)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.cst, res.NovoCST)
			assert.Equal(t, tt.fator, res.FatorReducao)
			assert.Equal(t, tt.atual, res.CargaAtual)
			assert.InDelta(t, tt.projetada, res.CargaProjetada, 1e-9)
			assert.InDelta(t, res.CargaProjetada, res.VIBS+res.VCBS, 1e-9)
			assert.Contains(t, res.Origem, tt.origemTem)
			assert.Equal(t, tables.ValidacaoIndisponivel, res.ValidacaoTIPI)
		})
	}
}

func TestClassificar_Precedencia(t *testing.T) {
	r := novoResolver(t, false)

	// Produto restrito vence qualquer CFOP.
	assert.Equal(t, StatusImpostoSeletivo, r.Classificar(item("22030000", "5910", 100)).Status)
	assert.Equal(t, StatusImpostoSeletivo, r.Classificar(item("24022000", "7101", 100)).Status)

	// CFOP não oneroso vence o anexo.
	res := r.Classificar(item("10063021", "5910", 100))
	assert.Equal(t, "410999", res.CClassTrib)

	// Exportação vence o anexo.
	assert.Equal(t, StatusImune, r.Classificar(item("30041000", "7102", 100)).Status)
}

func TestClassificar_CargaAtual(t *testing.T) {
	r := novoResolver(t, false)
	it := domain.ItemFiscal{NCM: "99999999", CFOP: "5102", Valor: 100, VICMS: 18, VPIS: 1.65, VCOFINS: 7.6}

	res := r.Classificar(it)
	assert.Equal(t, 27.25, res.CargaAtual)
	// base 72,75: IBS 12,88 + CBS 6,55
	assert.Equal(t, 12.88, res.VIBS)
	assert.Equal(t, 6.55, res.VCBS)
	assert.Equal(t, 19.43, res.CargaProjetada)

	// Operação não onerosa desconsidera os tributos antigos.
	it.CFOP = "5910"
	assert.Zero(t, r.Classificar(it).CargaAtual)

	// Produto restrito mantém a carga atual.
	it.NCM, it.CFOP = "22030000", "5102"
	assert.Equal(t, 27.25, r.Classificar(it).CargaAtual)
}

func TestClassificar_BaseNuncaNegativa(t *testing.T) {
	r := novoResolver(t, false)
	res := r.Classificar(domain.ItemFiscal{NCM: "99999999", CFOP: "5102", Valor: 10, VICMS: 20})
	assert.Zero(t, res.CargaProjetada)
	assert.Equal(t, 20.0, res.CargaAtual)
}

func TestClassificar_PalavraChave(t *testing.T) {
	r := novoResolver(t, true)

	tests := []struct {
		name      string
		ncm       string
		cclass    string
		status    string
		projetada float64
	}{
		{"capítulo 30 fora dos anexos", "30990000", "200009", "REDUZIDA", 10.68},
		{"combustível", "27101259", "620001", "MONOFASICA", 26.70},
		{"sem palpite específico", "84713012", "000001", StatusPadrao, 26.70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Classificar(item(tt.ncm, "5102", 100))
			assert.Equal(t, tt.cclass, res.CClassTrib)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.projetada, res.CargaProjetada)
			assert.Contains(t, res.Origem, "palavra-chave")
		})
	}

	// Termo sem correspondência na tabela cai na regra padrão.
	res := r.Classificar(item("33049910", "5102", 100))
	assert.Equal(t, "Regra Geral", res.Origem)
}

func TestClassificar_ExportacaoUsaTabela(t *testing.T) {
	res := novoResolver(t, true).Classificar(item("99999999", "7101", 100))
	assert.Equal(t, "410004", res.CClassTrib)
	assert.Equal(t, "Exportação de bens materiais", res.Descricao)
	assert.Equal(t, StatusImune, res.Status)
}

func TestClassificar_ValidacaoIndependente(t *testing.T) {
	r := novoResolver(t, true)

	tests := []struct {
		ncm, cfop, esperado string
	}{
		{"10063021", "5102", tables.ValidacaoNCMValido},
		{"22030000", "5102", tables.ValidacaoApenasPrefixo},
		{"99999999", "5102", tables.ValidacaoNaoEncontrado},
		{"10063021", "5910", tables.ValidacaoNCMValido},
		{"99999999", "7101", tables.ValidacaoNaoEncontrado},
	}
	for _, tt := range tests {
		t.Run(tt.ncm+"/"+tt.cfop, func(t *testing.T) {
			com := r.Classificar(item(tt.ncm, tt.cfop, 100))
			assert.Equal(t, tt.esperado, com.ValidacaoTIPI)

			sem := r.ComTabelas(tables.NovaReferencia(nil), nil).Classificar(item(tt.ncm, tt.cfop, 100))
			assert.Equal(t, tables.ValidacaoIndisponivel, sem.ValidacaoTIPI)
			com.ValidacaoTIPI, sem.ValidacaoTIPI = "", ""
			assert.Equal(t, com, sem, "a validação não altera a classificação")
		})
	}
}

func TestClassificar_Idempotente(t *testing.T) {
	r := novoResolver(t, true)
	for _, it := range []domain.ItemFiscal{
		item("10063021", "5102", 100),
		item("22030000", "5102", 59.9),
		item("30041000", "1102", 1234.56),
		{NCM: "99999999", CFOP: "6102", Valor: 200, VICMS: 24, VPIS: 3.3, VCOFINS: 15.2},
	} {
		assert.Equal(t, r.Classificar(it), r.Classificar(it))
	}
}

func TestClassificar_PontosNaoMudamResultado(t *testing.T) {
	r := novoResolver(t, true)
	assert.Equal(t,
		r.Classificar(item("10063021", "5102", 100)),
		r.Classificar(item("1006.30.21", "5.102", 100)))
}

func TestClassificar_EntradasNaoFinitas(t *testing.T) {
	r := novoResolver(t, false)
	var res domain.ResultadoClassificacao
	assert.NotPanics(t, func() {
		res = r.Classificar(domain.ItemFiscal{NCM: "99999999", CFOP: "5102", Valor: math.NaN(), VICMS: math.Inf(1)})
	})
	assert.Equal(t, StatusPadrao, res.Status)
	assert.Zero(t, res.CargaProjetada)
}

func TestClassificar_RegraComPanicoCaiNoPadrao(t *testing.T) {
	r := NovoResolver(Config{
		Indice: novoIndice(t),
		Anexos: annex.RegrasPadrao(),
		Regras: []Regra{{Nome: "quebrada", Prioridade: 1, Avaliar: func(*Resolver, Avaliacao) (Desfecho, bool) {
			panic("falha")
		}}},
		Logger: zaptest.NewLogger(t),
	})
	var res domain.ResultadoClassificacao
	assert.NotPanics(t, func() { res = r.Classificar(item("10063021", "5102", 100)) })
	assert.Equal(t, StatusPadrao, res.Status)
	assert.Equal(t, 26.70, res.CargaProjetada)
}

func TestNovoResolver_RegrasOrdenadasPorPrioridade(t *testing.T) {
	especial := Regra{Nome: "especial", Prioridade: 5, Avaliar: func(_ *Resolver, a Avaliacao) (Desfecho, bool) {
		if a.NCM != "10063021" {
			return Desfecho{}, false
		}
		return Desfecho{CClassTrib: "999999", Status: "ESPECIAL", FatorReducao: 0.5}, true
	}}
	regras := append(RegrasPadrao(), especial)

	r := NovoResolver(Config{Indice: novoIndice(t), Anexos: annex.RegrasPadrao(), Regras: regras})
	assert.Equal(t, "especial", r.Regras()[0])

	res := r.Classificar(item("10063021", "5102", 100))
	assert.Equal(t, "ESPECIAL", res.Status)
	assert.Equal(t, 13.35, res.CargaProjetada)
	assert.Equal(t, "ZERO (Anexo I)", r.Classificar(item("10063099", "5102", 100)).Status)
}

func TestComTabelas_NaoAlteraOriginal(t *testing.T) {
	r := novoResolver(t, false)
	palavras, err := tables.CarregarPalavrasChave(strings.NewReader(jsonClassificacao), false)
	require.NoError(t, err)

	c := r.ComTabelas(tables.NovaReferencia([]string{"30990000"}), palavras)
	assert.Equal(t, "200009", c.Classificar(item("30990000", "5102", 100)).CClassTrib)
	assert.Equal(t, tables.ValidacaoNCMValido, c.Classificar(item("30990000", "5102", 100)).ValidacaoTIPI)

	assert.Equal(t, "000001", r.Classificar(item("30990000", "5102", 100)).CClassTrib)
	assert.Equal(t, tables.ValidacaoIndisponivel, r.Classificar(item("30990000", "5102", 100)).ValidacaoTIPI)
}

func TestNovoResolver_Padroes(t *testing.T) {
	r := NovoResolver(Config{})
	assert.Equal(t, AliquotasPadrao(), r.Aliquotas())
	assert.Equal(t, []string{"produto_restrito", "cfop_nao_oneroso", "cfop_exportacao", "cfop_zona_franca", "anexo", "palavra_chave", "padrao"}, r.Regras())
	assert.Equal(t, 26.70, r.Classificar(item("10063021", "5102", 100)).CargaProjetada)
}

func TestNovoResolver_AliquotasZeradas(t *testing.T) {
	r := NovoResolver(Config{Indice: novoIndice(t), Anexos: annex.RegrasPadrao(), Aliquotas: &Aliquotas{}})
	assert.Equal(t, Aliquotas{}, r.Aliquotas())

	res := r.Classificar(item("99999999", "5102", 100))
	assert.Equal(t, StatusPadrao, res.Status)
	assert.Zero(t, res.CargaProjetada)
	assert.Zero(t, res.VIBS)
	assert.Zero(t, res.VCBS)
}

func TestClassificar_ZonaFranca(t *testing.T) {
	comEntrada, err := tables.CarregarPalavrasChave(strings.NewReader(`[
  {"cClassTrib": "200999", "descricao": "Fornecimento de bens para a Zona Franca de Manaus", "CST": "200"}
]`), false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		palavras *tables.PalavrasChave
		ncm      string
		cfop     string
		cclass   string
		cst      string
	}{
		{"com entrada na tabela", comEntrada, "84713012", "6109", "200999", "200"},
		{"sem tabela", nil, "84713012", "5110", CClassTribVerificar, "?"},
		{"prevalece sobre anexo", comEntrada, "10063021", "6.110", "200999", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NovoResolver(Config{
				Indice:        novoIndice(t),
				Anexos:        annex.RegrasPadrao(),
				PalavrasChave: tt.palavras,
				Logger:        zaptest.NewLogger(t),
			})
			it := domain.ItemFiscal{NCM: tt.ncm, CFOP: tt.cfop, Valor: 100, VICMS: 12}
			res := r.Classificar(it)
			assert.Equal(t, StatusBeneficio, res.Status)
			assert.Equal(t, tt.cclass, res.CClassTrib)
			assert.Equal(t, tt.cst, res.NovoCST)
			assert.Equal(t, 1.0, res.FatorReducao)
			assert.Contains(t, res.Origem, "Zona Franca")
			assert.Zero(t, res.CargaProjetada)
			assert.Equal(t, 12.0, res.CargaAtual)
		})
	}

	r := NovoResolver(Config{Indice: novoIndice(t), Anexos: annex.RegrasPadrao()})
	assert.Equal(t, StatusImpostoSeletivo, r.Classificar(item("22030000", "5109", 100)).Status)
}
