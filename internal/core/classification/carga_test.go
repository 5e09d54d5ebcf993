// internal/core/classification/carga_test.go
package classification

import (
	"testing"

	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCalcularCarga(t *testing.T) {
	tests := []struct {
		name      string
		item      domain.ItemFiscal
		aliq      Aliquotas
		fator     float64
		atual     string
		ibs       string
		cbs       string
		projetada string
	}{
		{"alíquota cheia", domain.ItemFiscal{Valor: 100}, AliquotasPadrao(), 0, "0", "17.7", "9", "26.7"},
		{"redução de 60%", domain.ItemFiscal{Valor: 100}, AliquotasPadrao(), 0.6, "0", "7.08", "3.6", "10.68"},
		{"alíquota zero", domain.ItemFiscal{Valor: 100}, AliquotasPadrao(), 1, "0", "0", "0", "0"},
		{"desconta tributos antigos", domain.ItemFiscal{Valor: 200, VICMS: 24, VPIS: 3.3, VCOFINS: 15.2}, AliquotasPadrao(), 0, "42.5", "27.88", "14.18", "42.06"},
		{"alíquotas configuradas", domain.ItemFiscal{Valor: 100}, Aliquotas{IBS: 0.1, CBS: 0.05}, 0, "0", "10", "5", "15"},
		{"fator acima de 1 é limitado", domain.ItemFiscal{Valor: 100}, AliquotasPadrao(), 1.5, "0", "0", "0", "0"},
		{"fator negativo é limitado", domain.ItemFiscal{Valor: 100}, AliquotasPadrao(), -1, "0", "17.7", "9", "26.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := calcularCarga(tt.item, tt.aliq, tt.fator)
			assert.Equal(t, tt.atual, c.atual.String())
			assert.Equal(t, tt.ibs, c.ibs.String())
			assert.Equal(t, tt.cbs, c.cbs.String())
			assert.Equal(t, tt.projetada, c.projetada.String())
		})
	}
}

func TestCalcularCarga_MonotonaNoFator(t *testing.T) {
	it := domain.ItemFiscal{Valor: 100}
	anterior := calcularCarga(it, AliquotasPadrao(), 0).projetada
	for _, f := range []float64{0.25, 0.5, 0.75, 1} {
		atual := calcularCarga(it, AliquotasPadrao(), f).projetada
		assert.True(t, atual.LessThan(anterior), "fator %v: %s não é menor que %s", f, atual, anterior)
		anterior = atual
	}
}

func TestAliquotasTotal(t *testing.T) {
	assert.Equal(t, 0.267, AliquotasPadrao().Total())
}
