// internal/core/classification/regras.go
package classification

import (
	"fmt"
	"sort"
	"strings"
)

// Avaliacao é o item já normalizado que as regras examinam.
type Avaliacao struct {
	NCM  string
	CFOP string
}

// Desfecho é o que uma regra decide. O cálculo de carga e a validação do NCM
// são aplicados depois, pelo Resolver.
type Desfecho struct {
	CClassTrib   string
	Descricao    string
	Status       string
	CST          string
	Origem       string
	FatorReducao float64
	// ZerarCargaAtual desconsidera ICMS/PIS/COFINS na comparação.
	ZerarCargaAtual bool
	// ZerarCargaProjetada força IBS/CBS a zero, qualquer que seja o fator.
	ZerarCargaProjetada bool
}

// Regra é um predicado com desfecho. As regras são avaliadas em ordem crescente
// de Prioridade e a primeira que casar encerra a avaliação.
type Regra struct {
	Nome       string
	Prioridade int
	Avaliar    func(r *Resolver, a Avaliacao) (Desfecho, bool)
}

// Status usados pelas regras fixas.
const (
	StatusImpostoSeletivo = "ALERTA IMPOSTO SELETIVO"
	StatusNaoOneroso      = "ZERO (ISENTO/IMUNE)"
	StatusImune           = "IMUNE"
	StatusBeneficio       = "BENEFICIO"
	StatusPadrao          = "PADRAO"
)

// cfopsNaoOnerosos: bonificação, doação e brinde (x910), amostra grátis
// (x911, x912), retorno de demonstração (x913), devoluções (x201, x202) e
// remessas sem contraprestação.
var cfopsNaoOnerosos = map[string]bool{
	"1910": true, "2910": true, "5910": true, "6910": true,
	"1911": true, "2911": true, "5911": true, "6911": true,
	"5912": true, "6912": true,
	"5913": true, "6913": true,
	"1201": true, "1202": true, "2201": true, "2202": true,
	"5201": true, "5202": true, "6201": true, "6202": true,
	"5901": true, "5902": true, "6901": true, "6902": true,
	"5949": true,
}

// cfopsFimExportacao: remessas com fim específico de exportação.
var cfopsFimExportacao = map[string]bool{
	"5501": true, "5502": true, "6501": true, "6502": true,
}

// cfopsZonaFranca: vendas de produção ou mercadoria para a Zona Franca de
// Manaus e áreas de livre comércio.
var cfopsZonaFranca = map[string]bool{
	"5109": true, "5110": true, "6109": true, "6110": true,
}

// CClassTribVerificar marca um resultado cuja regra casou mas cujo código não
// foi encontrado na tabela de classificação.
const CClassTribVerificar = "VERIFICAR"

type palpite struct {
	prefixos []string
	termo    string
	status   string
	fator    float64
}

// palpites por capítulo/posição do NCM usados na busca por palavra-chave.
// A ordem importa: o primeiro prefixo que casar define o termo.
var palpites = []palpite{
	{prefixos: []string{"30"}, termo: "medicamentos", status: "REDUZIDA", fator: 0.6},
	{prefixos: []string{"1006", "02", "1101"}, termo: "cesta básica", status: "ZERO", fator: 1.0},
	{prefixos: []string{"3304", "3401"}, termo: "higiene", status: "REDUZIDA", fator: 0.6},
	{prefixos: []string{"2710"}, termo: "combustíveis", status: "MONOFASICA", fator: 0},
}

var palpiteIntegral = palpite{termo: "tributação integral", status: StatusPadrao, fator: 0}

func palpitePorNCM(ncm string) palpite {
	for _, p := range palpites {
		for _, prefixo := range p.prefixos {
			if strings.HasPrefix(ncm, prefixo) {
				return p
			}
		}
	}
	return palpiteIntegral
}

func desfechoPadrao() Desfecho {
	return Desfecho{
		CClassTrib: "000001",
		Descricao:  "Tributação Padrão",
		Status:     StatusPadrao,
		CST:        "000",
		Origem:     "Regra Geral",
	}
}

// RegrasPadrao é a cadeia de decisão, da maior para a menor precedência.
func RegrasPadrao() []Regra {
	return []Regra{
		{Nome: "produto_restrito", Prioridade: 10, Avaliar: regraProdutoRestrito},
		{Nome: "cfop_nao_oneroso", Prioridade: 20, Avaliar: regraCFOPNaoOneroso},
		{Nome: "cfop_exportacao", Prioridade: 30, Avaliar: regraCFOPExportacao},
		{Nome: "cfop_zona_franca", Prioridade: 35, Avaliar: regraCFOPZonaFranca},
		{Nome: "anexo", Prioridade: 40, Avaliar: regraAnexo},
		{Nome: "palavra_chave", Prioridade: 50, Avaliar: regraPalavraChave},
		{Nome: "padrao", Prioridade: 60, Avaliar: regraPadrao},
	}
}

func ordenarRegras(regras []Regra) []Regra {
	out := make([]Regra, len(regras))
	copy(out, regras)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Prioridade < out[j].Prioridade })
	return out
}

// Bebidas alcoólicas, tabaco, veículos e armas não recebem benefício algum,
// mesmo que o prefixo coincida com o de um anexo.
func regraProdutoRestrito(r *Resolver, a Avaliacao) (Desfecho, bool) {
	if a.NCM == "" {
		return Desfecho{}, false
	}
	for _, prefixo := range r.restritos {
		if strings.HasPrefix(a.NCM, prefixo) {
			return Desfecho{
				CClassTrib:          "000001",
				Descricao:           "Produto sujeito ao Imposto Seletivo, sem redução de alíquota",
				Status:              StatusImpostoSeletivo,
				CST:                 "000",
				Origem:              fmt.Sprintf("Imposto Seletivo (prefixo %s)", prefixo),
				FatorReducao:        0,
				ZerarCargaProjetada: true,
			}, true
		}
	}
	return Desfecho{}, false
}

// A natureza da operação prevalece sobre o produto.
func regraCFOPNaoOneroso(_ *Resolver, a Avaliacao) (Desfecho, bool) {
	if !cfopsNaoOnerosos[a.CFOP] {
		return Desfecho{}, false
	}
	return Desfecho{
		CClassTrib:          "410999",
		Descricao:           "Operação Não Onerosa (CFOP)",
		Status:              StatusNaoOneroso,
		CST:                 "410",
		Origem:              fmt.Sprintf("CFOP não oneroso (%s)", a.CFOP),
		FatorReducao:        1,
		ZerarCargaAtual:     true,
		ZerarCargaProjetada: true,
	}, true
}

func regraCFOPExportacao(r *Resolver, a Avaliacao) (Desfecho, bool) {
	if !strings.HasPrefix(a.CFOP, "7") && !cfopsFimExportacao[a.CFOP] {
		return Desfecho{}, false
	}
	d := Desfecho{
		CClassTrib:          "410004",
		Descricao:           "Exportação de bens e serviços (imunidade)",
		Status:              StatusImune,
		CST:                 "410",
		Origem:              fmt.Sprintf("CFOP de exportação (%s)", a.CFOP),
		FatorReducao:        1,
		ZerarCargaProjetada: true,
	}
	if e, ok := r.palavras.Buscar("exportação"); ok {
		d.CClassTrib, d.Descricao, d.CST = e.CClassTrib, e.Descricao, e.CST
	}
	return d, true
}

// Saídas para a ZFM têm IBS/CBS reduzidos a zero; a carga atual é mantida.
func regraCFOPZonaFranca(r *Resolver, a Avaliacao) (Desfecho, bool) {
	if !cfopsZonaFranca[a.CFOP] {
		return Desfecho{}, false
	}
	d := Desfecho{
		CClassTrib:   CClassTribVerificar,
		Descricao:    "Regra definida mas não encontrada: zona franca",
		Status:       StatusBeneficio,
		CST:          "?",
		Origem:       fmt.Sprintf("CFOP Zona Franca de Manaus (%s)", a.CFOP),
		FatorReducao: 1,
	}
	if e, ok := r.palavras.Buscar("zona franca"); ok {
		d.CClassTrib, d.Descricao, d.CST = e.CClassTrib, e.Descricao, e.CST
	}
	return d, true
}

func regraAnexo(r *Resolver, a Avaliacao) (Desfecho, bool) {
	entrada, codigo, ok := r.indice.Buscar(a.NCM)
	if !ok {
		return Desfecho{}, false
	}
	regra, ok := r.anexos[entrada.AnexoID]
	if !ok {
		return Desfecho{}, false
	}
	return Desfecho{
		CClassTrib:   regra.CClassTrib,
		Descricao:    regra.Descricao,
		Status:       regra.Status,
		CST:          regra.CSTPadrao,
		Origem:       fmt.Sprintf("LC 214/2025 %s (NCM %s, fonte %s)", regra.AnexoID, codigo, entrada.Fonte),
		FatorReducao: regra.FatorReducao,
	}, true
}

func regraPalavraChave(r *Resolver, a Avaliacao) (Desfecho, bool) {
	if a.NCM == "" || r.palavras.Tamanho() == 0 {
		return Desfecho{}, false
	}
	p := palpitePorNCM(a.NCM)
	e, ok := r.palavras.Buscar(p.termo)
	if !ok {
		return Desfecho{}, false
	}
	return Desfecho{
		CClassTrib:   e.CClassTrib,
		Descricao:    e.Descricao,
		Status:       p.status,
		CST:          e.CST,
		Origem:       fmt.Sprintf("Busca por palavra-chave: %s", p.termo),
		FatorReducao: p.fator,
	}, true
}

func regraPadrao(*Resolver, Avaliacao) (Desfecho, bool) {
	return desfechoPadrao(), true
}
