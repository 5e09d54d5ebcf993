// internal/core/tables/palavras_chave.go
package tables

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/schollz/closestmatch"
)

// Nomes de coluna aceitos no JSON de classificação tributária. A primeira
// forma de cada grupo é a usada na tabela oficial de cClassTrib.
var (
	colunasCodigo    = []string{"Código da Classificação Tributária", "cClassTrib", "codigo"}
	colunasDescricao = []string{"Descrição do Código da Classificação Tributária", "descricao", "Descrição"}
	colunasCST       = []string{"Código da Situação Tributária", "CST", "cst"}
)

// ErrColunasAusentes indica que o JSON não tem as colunas de código e descrição.
var ErrColunasAusentes = errors.New("colunas de código ou descrição ausentes no JSON de classificação")

// EntradaClassificacao é uma linha da tabela de classificação tributária.
type EntradaClassificacao struct {
	CClassTrib string `json:"cclass_trib"`
	Descricao  string `json:"descricao"`
	CST        string `json:"cst"`
	busca      string
}

// PalavrasChave é a tabela auxiliar usada na busca por termo quando nenhuma
// regra estrutural classificou o item.
type PalavrasChave struct {
	entradas     []EntradaClassificacao
	descricoes   []string
	porDescricao map[string]int
	cm           *closestmatch.ClosestMatch
}

// NovasPalavrasChave monta a tabela a partir de entradas já carregadas.
// Com aproximada=true, termos sem correspondência exata de substring são
// comparados por proximidade (closestmatch) com as descrições.
func NovasPalavrasChave(entradas []EntradaClassificacao, aproximada bool) *PalavrasChave {
	p := &PalavrasChave{
		entradas:     make([]EntradaClassificacao, 0, len(entradas)),
		porDescricao: make(map[string]int),
	}
	for _, e := range entradas {
		e.busca = normalizarTexto(e.Descricao)
		if e.busca == "" {
			continue
		}
		if e.CST == "" {
			e.CST = "?"
		}
		if _, ok := p.porDescricao[e.busca]; !ok {
			p.porDescricao[e.busca] = len(p.entradas)
			p.descricoes = append(p.descricoes, e.busca)
		}
		p.entradas = append(p.entradas, e)
	}
	if aproximada && len(p.descricoes) > 0 {
		p.cm = closestmatch.New(p.descricoes, []int{3, 4})
	}
	return p
}

// CarregarPalavrasChave lê o JSON de classificação (lista de objetos).
func CarregarPalavrasChave(file io.Reader, aproximada bool) (*PalavrasChave, error) {
	var linhas []map[string]any
	if err := json.NewDecoder(file).Decode(&linhas); err != nil {
		return nil, fmt.Errorf("erro ao ler JSON de classificação: %w", err)
	}

	var entradas []EntradaClassificacao
	for _, linha := range linhas {
		codigo, okCodigo := coluna(linha, colunasCodigo)
		desc, okDesc := coluna(linha, colunasDescricao)
		if !okCodigo || !okDesc {
			continue
		}
		cst, _ := coluna(linha, colunasCST)
		entradas = append(entradas, EntradaClassificacao{CClassTrib: codigo, Descricao: desc, CST: cst})
	}
	if len(entradas) == 0 {
		return nil, ErrColunasAusentes
	}
	return NovasPalavrasChave(entradas, aproximada), nil
}

func coluna(linha map[string]any, nomes []string) (string, bool) {
	for _, nome := range nomes {
		if v, ok := linha[nome]; ok && v != nil {
			return valorTexto(v), true
		}
	}
	// Cabeçalhos com acentuação ou caixa diferentes.
	for chave, v := range linha {
		for _, nome := range nomes {
			if v != nil && normalizarTexto(chave) == normalizarTexto(nome) {
				return valorTexto(v), true
			}
		}
	}
	return "", false
}

func valorTexto(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Tamanho é o número de entradas carregadas.
func (p *PalavrasChave) Tamanho() int {
	if p == nil {
		return 0
	}
	return len(p.entradas)
}

// Buscar devolve a primeira entrada cuja descrição contém o termo, sem
// diferenciar maiúsculas nem acentos.
func (p *PalavrasChave) Buscar(termo string) (EntradaClassificacao, bool) {
	if p == nil || len(p.entradas) == 0 {
		return EntradaClassificacao{}, false
	}
	alvo := normalizarTexto(termo)
	if alvo == "" {
		return EntradaClassificacao{}, false
	}
	for _, e := range p.entradas {
		if strings.Contains(e.busca, alvo) {
			return e, true
		}
	}
	if p.cm != nil {
		if match := p.cm.Closest(alvo); match != "" {
			if i, ok := p.porDescricao[match]; ok {
				return p.entradas[i], true
			}
		}
	}
	return EntradaClassificacao{}, false
}
