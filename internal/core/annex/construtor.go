// internal/core/annex/construtor.go
package annex

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"go.uber.org/zap"
)

// codigoNCMRegex casa formas como 12, 12.34, 1234, 1234.56 e 1234.56.78.
var codigoNCMRegex = regexp.MustCompile(`\b\d{2,4}(?:\.\d{2}){0,2}\b`)

// tituloAnexoRegex casa qualquer título de anexo no início da linha. Títulos
// sem regra (anexos de serviços, II, III, X, XI...) só encerram o segmento anterior.
var tituloAnexoRegex = regexp.MustCompile(`(?im)^[ \t]*ANEXO\s+([IVXLCDM]+)\b`)

// Candidato é um código extraído do texto legal, ainda não inserido no índice.
type Candidato struct {
	Codigo  string
	AnexoID string
}

// Construtor extrai códigos NCM de textos legais e monta o Indice.
type Construtor struct {
	regras     map[string]domain.RegraAnexo
	padroes    map[string]*regexp.Regexp
	conhecidos map[string]bool
	logger     *zap.Logger
}

// NovoConstrutor prepara os padrões de localização de cada anexo.
// O identificador precisa abrir a linha e terminar em fronteira de palavra,
// assim "ANEXO I" não casa com "ANEXO IV" nem com citações no meio do texto.
func NovoConstrutor(regras []domain.RegraAnexo, logger *zap.Logger) *Construtor {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Construtor{
		regras:     make(map[string]domain.RegraAnexo, len(regras)),
		padroes:    make(map[string]*regexp.Regexp, len(regras)),
		conhecidos: make(map[string]bool, len(regras)),
		logger:     logger,
	}
	for _, r := range regras {
		partes := strings.Fields(regexp.QuoteMeta(r.AnexoID))
		padrao := `(?im)^[ \t]*` + strings.Join(partes, `\s+`) + `\b`
		c.regras[r.AnexoID] = r
		c.padroes[r.AnexoID] = regexp.MustCompile(padrao)
		c.conhecidos[strings.ToUpper(strings.Join(strings.Fields(r.AnexoID), " "))] = true
	}
	return c
}

type marcador struct {
	anexoID string
	inicio  int
}

// ExtrairCodigos divide o texto em segmentos, um por anexo localizado, e
// devolve os códigos válidos de cada segmento na ordem em que aparecem.
func (c *Construtor) ExtrairCodigos(texto string) []Candidato {
	var marcadores []marcador
	for id, re := range c.padroes {
		if loc := re.FindStringIndex(texto); loc != nil {
			marcadores = append(marcadores, marcador{anexoID: id, inicio: loc[0]})
		}
	}
	// anexoID vazio: título sem regra, apenas delimita.
	for _, m := range tituloAnexoRegex.FindAllStringSubmatchIndex(texto, -1) {
		if !c.conhecidos["ANEXO "+strings.ToUpper(texto[m[2]:m[3]])] {
			marcadores = append(marcadores, marcador{inicio: m[0]})
		}
	}
	sort.Slice(marcadores, func(i, j int) bool {
		if marcadores[i].inicio == marcadores[j].inicio {
			return marcadores[i].anexoID < marcadores[j].anexoID
		}
		return marcadores[i].inicio < marcadores[j].inicio
	})

	var candidatos []Candidato
	for i, m := range marcadores {
		fim := len(texto)
		if i+1 < len(marcadores) {
			fim = marcadores[i+1].inicio
		}
		if m.anexoID == "" {
			continue
		}
		regra := c.regras[m.anexoID]
		for _, bruto := range codigoNCMRegex.FindAllString(texto[m.inicio:fim], -1) {
			codigo := strings.ReplaceAll(bruto, ".", "")
			if len(codigo) != 4 && len(codigo) != 6 && len(codigo) != 8 {
				continue
			}
			if !capituloPermitido(codigo, regra.CapitulosPermitidos) {
				c.logger.Debug("código descartado pelo filtro de capítulos",
					zap.String("anexo", m.anexoID), zap.String("codigo", codigo))
				continue
			}
			candidatos = append(candidatos, Candidato{Codigo: codigo, AnexoID: m.anexoID})
		}
	}
	return candidatos
}

func capituloPermitido(codigo string, capitulos []string) bool {
	if len(capitulos) == 0 {
		return true
	}
	for _, p := range capitulos {
		if strings.HasPrefix(codigo, p) {
			return true
		}
	}
	return false
}

// Construir lê todas as fontes e monta o índice.
//
// Precedência: fontes não autoritativas são processadas primeiro e só inserem
// códigos ainda ausentes (dentro de uma mesma fonte vale a primeira ocorrência);
// fontes autoritativas vêm depois e sempre sobrescrevem. Falha de uma fonte é
// registrada e ignorada.
func (c *Construtor) Construir(ctx context.Context, fontes ...Fonte) *Indice {
	ordenadas := make([]Fonte, 0, len(fontes))
	for _, f := range fontes {
		if f != nil && !f.Autoritativa() {
			ordenadas = append(ordenadas, f)
		}
	}
	for _, f := range fontes {
		if f != nil && f.Autoritativa() {
			ordenadas = append(ordenadas, f)
		}
	}

	idx := &Indice{codigos: make(map[string]Entrada)}
	for _, f := range ordenadas {
		texto, err := f.Texto(ctx)
		if err != nil {
			c.logger.Warn("fonte de anexos indisponível, seguindo sem ela",
				zap.String("fonte", f.Nome()), zap.Error(err))
			continue
		}
		inseridos := c.mesclar(idx, c.ExtrairCodigos(texto), f.Nome(), f.Autoritativa())
		c.logger.Info("fonte de anexos processada",
			zap.String("fonte", f.Nome()),
			zap.Bool("autoritativa", f.Autoritativa()),
			zap.Int("codigos", inseridos))
	}
	return idx
}

func (c *Construtor) mesclar(idx *Indice, candidatos []Candidato, fonte string, autoritativa bool) int {
	inseridos := 0
	vistosNaFonte := make(map[string]bool, len(candidatos))
	for _, cand := range candidatos {
		if vistosNaFonte[cand.Codigo] {
			continue
		}
		vistosNaFonte[cand.Codigo] = true

		atual, existe := idx.codigos[cand.Codigo]
		if existe && !autoritativa {
			continue
		}
		if existe && atual.AnexoID != cand.AnexoID {
			c.logger.Debug("código reatribuído pela fonte autoritativa",
				zap.String("codigo", cand.Codigo),
				zap.String("de", atual.AnexoID),
				zap.String("para", cand.AnexoID))
		}
		idx.codigos[cand.Codigo] = Entrada{AnexoID: cand.AnexoID, Fonte: fonte}
		inseridos++
	}
	return inseridos
}

// Construir é um atalho para NovoConstrutor(regras, logger).Construir(ctx, fontes...).
func Construir(ctx context.Context, regras []domain.RegraAnexo, logger *zap.Logger, fontes ...Fonte) (*Indice, error) {
	if err := ValidarRegras(regras); err != nil {
		return nil, fmt.Errorf("tabela de anexos inválida: %w", err)
	}
	return NovoConstrutor(regras, logger).Construir(ctx, fontes...), nil
}
