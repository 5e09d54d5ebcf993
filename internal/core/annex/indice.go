// internal/core/annex/indice.go
package annex

import (
	"sort"

	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
)

// Entrada associa um código NCM (4, 6 ou 8 dígitos) a um anexo e registra de
// qual fonte a associação veio.
type Entrada struct {
	AnexoID string `json:"anexo_id"`
	Fonte   string `json:"fonte"`
}

// Indice mapeia códigos NCM para anexos. É imutável depois de construído e pode
// ser lido por várias goroutines sem sincronização.
type Indice struct {
	codigos map[string]Entrada
}

// prefixosBusca define a ordem hierárquica da busca: subitem, subposição,
// posição e capítulo.
var prefixosBusca = []int{6, 4, 2}

// Buscar procura o NCM completo e, se não houver, os prefixos de 6, 4 e 2
// dígitos, nessa ordem. Devolve a entrada e o código que casou.
func (i *Indice) Buscar(ncm string) (Entrada, string, bool) {
	codigo := domain.NormalizarCodigo(ncm)
	if i == nil || len(i.codigos) == 0 || codigo == "" {
		return Entrada{}, "", false
	}
	if e, ok := i.codigos[codigo]; ok {
		return e, codigo, true
	}
	for _, n := range prefixosBusca {
		if len(codigo) > n {
			if e, ok := i.codigos[codigo[:n]]; ok {
				return e, codigo[:n], true
			}
		}
	}
	return Entrada{}, "", false
}

// Tamanho é o número de códigos indexados.
func (i *Indice) Tamanho() int {
	if i == nil {
		return 0
	}
	return len(i.codigos)
}

// PorAnexo conta quantos códigos foram associados a cada anexo.
func (i *Indice) PorAnexo() map[string]int {
	contagem := make(map[string]int)
	if i == nil {
		return contagem
	}
	for _, e := range i.codigos {
		contagem[e.AnexoID]++
	}
	return contagem
}

// Codigos devolve os códigos de um anexo em ordem crescente.
func (i *Indice) Codigos(anexoID string) []string {
	var out []string
	if i == nil {
		return out
	}
	for c, e := range i.codigos {
		if e.AnexoID == anexoID {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
