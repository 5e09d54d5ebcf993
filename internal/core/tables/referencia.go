// internal/core/tables/referencia.go
package tables

import (
	"errors"
	"fmt"
	"io"

	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
)

// Rótulos da validação do NCM contra a tabela de referência (TIPI/IBPT).
const (
	ValidacaoNCMValido     = "NCM Existe na TIPI"
	ValidacaoApenasPrefixo = "Apenas prefixo na TIPI"
	ValidacaoNaoEncontrado = "NCM Não Encontrado (Obsoleto?)"
	ValidacaoIndisponivel  = "N/A"
)

// ErrReferenciaVazia indica que a planilha não tinha nenhum código reconhecível.
var ErrReferenciaVazia = errors.New("tabela de referência sem códigos NCM")

// Referencia é o cadastro oficial de NCMs usado apenas para diagnóstico.
type Referencia struct {
	codigos map[string]bool
}

// NovaReferencia monta a tabela a partir de uma lista de códigos, com ou sem pontos.
func NovaReferencia(codigos []string) *Referencia {
	ref := &Referencia{codigos: make(map[string]bool, len(codigos))}
	for _, c := range codigos {
		d := domain.NormalizarCodigo(c)
		// Células numéricas perdem o zero à esquerda dos capítulos 01 a 09.
		if len(d) == 3 || len(d) == 5 || len(d) == 7 {
			d = "0" + d
		}
		if len(d) >= 4 && len(d) <= 8 {
			ref.codigos[d] = true
		}
	}
	return ref
}

// CarregarReferencia lê a TIPI de uma planilha; a primeira coluna é a de códigos.
// Linhas de cabeçalho e títulos são ignoradas naturalmente por não serem numéricas.
func CarregarReferencia(file io.Reader, nomeArquivo string) (*Referencia, error) {
	linhas, err := lerPlanilha(file, nomeArquivo)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler tabela de referência: %w", err)
	}
	var codigos []string
	for _, linha := range linhas {
		if len(linha) == 0 {
			continue
		}
		codigos = append(codigos, linha[0])
	}
	ref := NovaReferencia(codigos)
	if ref.Tamanho() == 0 {
		return nil, ErrReferenciaVazia
	}
	return ref, nil
}

// Tamanho é o número de códigos carregados.
func (r *Referencia) Tamanho() int {
	if r == nil {
		return 0
	}
	return len(r.codigos)
}

// Validar informa se o NCM existe na tabela, se só a posição (4 dígitos)
// existe, ou se não foi encontrado. Sem tabela carregada devolve "N/A".
func (r *Referencia) Validar(ncm string) string {
	if r == nil || len(r.codigos) == 0 {
		return ValidacaoIndisponivel
	}
	codigo := domain.NormalizarCodigo(ncm)
	if codigo == "" {
		return ValidacaoNaoEncontrado
	}
	if r.codigos[codigo] {
		return ValidacaoNCMValido
	}
	if len(codigo) > 4 && r.codigos[codigo[:4]] {
		return ValidacaoApenasPrefixo
	}
	return ValidacaoNaoEncontrado
}
