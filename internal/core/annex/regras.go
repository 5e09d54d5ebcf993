// internal/core/annex/regras.go
package annex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
)

// RegrasPadrao devolve a tabela de anexos de produtos da LC 214/2025 usada
// quando nenhuma configuração sobrescreve os capítulos permitidos.
// Os anexos de serviços (II, III, X, XI) não são indexados por NCM e ficam de fora.
func RegrasPadrao() []domain.RegraAnexo {
	return []domain.RegraAnexo{
		{
			AnexoID:             "ANEXO I",
			Descricao:           "Cesta Básica Nacional de Alimentos",
			CClassTrib:          "200003",
			FatorReducao:        1.0,
			CSTPadrao:           "200",
			Status:              "ZERO (Anexo I)",
			CapitulosPermitidos: []string{"02", "03", "04", "07", "08", "09", "10", "11", "12", "15", "16", "17", "19", "21", "25"},
		},
		{
			AnexoID:             "ANEXO IV",
			Descricao:           "Dispositivos médicos com redução de 60%",
			CClassTrib:          "200005",
			FatorReducao:        0.6,
			CSTPadrao:           "200",
			Status:              "REDUZIDA 60% (Anexo IV)",
			CapitulosPermitidos: []string{"30", "39", "40", "48", "63", "84", "90", "94"},
		},
		{
			AnexoID:             "ANEXO V",
			Descricao:           "Dispositivos de acessibilidade para pessoas com deficiência com redução de 60%",
			CClassTrib:          "200007",
			FatorReducao:        0.6,
			CSTPadrao:           "200",
			Status:              "REDUZIDA 60% (Anexo V)",
			CapitulosPermitidos: []string{"84", "85", "87", "90"},
		},
		{
			AnexoID:             "ANEXO VI",
			Descricao:           "Medicamentos com redução de 60%",
			CClassTrib:          "200009",
			FatorReducao:        0.6,
			CSTPadrao:           "200",
			Status:              "REDUZIDA 60% (Anexo VI)",
			CapitulosPermitidos: []string{"30"},
		},
		{
			AnexoID:             "ANEXO VII",
			Descricao:           "Alimentos destinados ao consumo humano com redução de 60%",
			CClassTrib:          "200034",
			FatorReducao:        0.6,
			CSTPadrao:           "200",
			Status:              "REDUZIDA 60% (Anexo VII)",
			CapitulosPermitidos: []string{"03", "04", "10", "11", "16", "19", "20", "21", "22"},
		},
		{
			AnexoID:             "ANEXO VIII",
			Descricao:           "Produtos de higiene pessoal e limpeza com redução de 60%",
			CClassTrib:          "200035",
			FatorReducao:        0.6,
			CSTPadrao:           "200",
			Status:              "REDUZIDA 60% (Anexo VIII)",
			CapitulosPermitidos: []string{"33", "34", "48", "96"},
		},
		{
			AnexoID:             "ANEXO IX",
			Descricao:           "Insumos agropecuários e aquícolas com redução de 60%",
			CClassTrib:          "200038",
			FatorReducao:        0.6,
			CSTPadrao:           "200",
			Status:              "REDUZIDA 60% (Anexo IX)",
			CapitulosPermitidos: []string{"12", "23", "31", "38"},
		},
		{
			AnexoID:             "ANEXO XII",
			Descricao:           "Dispositivos médicos com alíquota zero",
			CClassTrib:          "200004",
			FatorReducao:        1.0,
			CSTPadrao:           "200",
			Status:              "ZERO (Anexo XII)",
			CapitulosPermitidos: []string{"30", "90"},
		},
		{
			AnexoID:             "ANEXO XIII",
			Descricao:           "Dispositivos de acessibilidade com alíquota zero",
			CClassTrib:          "200006",
			FatorReducao:        1.0,
			CSTPadrao:           "200",
			Status:              "ZERO (Anexo XIII)",
			CapitulosPermitidos: []string{"84", "85", "90"},
		},
		{
			AnexoID:             "ANEXO XIV",
			Descricao:           "Medicamentos com alíquota zero",
			CClassTrib:          "200008",
			FatorReducao:        1.0,
			CSTPadrao:           "200",
			Status:              "ZERO (Anexo XIV)",
			CapitulosPermitidos: []string{"30"},
		},
		{
			AnexoID:             "ANEXO XV",
			Descricao:           "Produtos hortícolas, frutas e ovos com alíquota zero",
			CClassTrib:          "200014",
			FatorReducao:        1.0,
			CSTPadrao:           "200",
			Status:              "ZERO (Anexo XV)",
			CapitulosPermitidos: []string{"04", "06", "07", "08"},
		},
	}
}

// PrefixosRestritos são os prefixos de NCM sujeitos ao Imposto Seletivo:
// bebidas alcoólicas, tabaco, veículos e armas. Nenhum benefício de anexo se aplica a eles.
func PrefixosRestritos() []string {
	return []string{
		// bebidas alcoólicas
		"2203", "2204", "2205", "2206", "2208",
		// tabaco
		"24",
		// veículos
		"8703", "8711",
		// armas e munições
		"9301", "9302", "9303", "9304",
	}
}

// ValidarRegras verifica os invariantes da tabela de anexos.
func ValidarRegras(regras []domain.RegraAnexo) error {
	vistos := make(map[string]bool, len(regras))
	for _, r := range regras {
		if strings.TrimSpace(r.AnexoID) == "" {
			return fmt.Errorf("regra sem identificador de anexo")
		}
		if vistos[strings.ToUpper(r.AnexoID)] {
			return fmt.Errorf("anexo duplicado: %s", r.AnexoID)
		}
		vistos[strings.ToUpper(r.AnexoID)] = true
		if r.FatorReducao < 0 || r.FatorReducao > 1 {
			return fmt.Errorf("fator de redução fora do intervalo [0,1] no %s: %v", r.AnexoID, r.FatorReducao)
		}
		for _, p := range r.CapitulosPermitidos {
			if len(p) != 2 || domain.NormalizarCodigo(p) != p {
				return fmt.Errorf("capítulo inválido no %s: %q", r.AnexoID, p)
			}
		}
	}
	return nil
}

// AplicarCapitulos substitui os capítulos permitidos dos anexos presentes em
// overrides. As chaves aceitam "ANEXO VIII", "anexo_viii" ou "viii".
func AplicarCapitulos(regras []domain.RegraAnexo, overrides map[string][]string) []domain.RegraAnexo {
	if len(overrides) == 0 {
		return regras
	}
	normalizados := make(map[string][]string, len(overrides))
	for k, v := range overrides {
		normalizados[chaveAnexo(k)] = v
	}

	out := make([]domain.RegraAnexo, len(regras))
	for i, r := range regras {
		out[i] = r
		if caps, ok := normalizados[chaveAnexo(r.AnexoID)]; ok {
			limpos := make([]string, 0, len(caps))
			for _, c := range caps {
				if c = strings.TrimSpace(c); c != "" {
					limpos = append(limpos, c)
				}
			}
			sort.Strings(limpos)
			out[i].CapitulosPermitidos = limpos
		}
	}
	return out
}

func chaveAnexo(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "ANEXO"))
	return strings.Join(strings.Fields(s), " ")
}
