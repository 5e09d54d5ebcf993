// internal/core/classification/carga.go
package classification

import (
	"math"

	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"github.com/shopspring/decimal"
)

// Aliquotas são as alíquotas padrão do novo regime.
type Aliquotas struct {
	IBS float64 `json:"ibs"`
	CBS float64 `json:"cbs"`
}

// AliquotasPadrao usa a estimativa de referência de 26,7% (17,7% IBS + 9% CBS).
func AliquotasPadrao() Aliquotas {
	return Aliquotas{IBS: 0.177, CBS: 0.09}
}

// Total é a soma das duas alíquotas.
func (a Aliquotas) Total() float64 {
	return decimal.NewFromFloat(finito(a.IBS)).Add(decimal.NewFromFloat(finito(a.CBS))).InexactFloat64()
}

type carga struct {
	atual     decimal.Decimal
	projetada decimal.Decimal
	ibs       decimal.Decimal
	cbs       decimal.Decimal
}

// calcularCarga compara a carga atual (ICMS+PIS+COFINS) com a projetada.
// A base do novo regime é o valor do item sem os tributos antigos, nunca negativa;
// cada componente é base × alíquota × (1 − fator de redução), arredondado em centavos.
func calcularCarga(item domain.ItemFiscal, aliq Aliquotas, fator float64) carga {
	atual := decimal.NewFromFloat(finito(item.VICMS)).
		Add(decimal.NewFromFloat(finito(item.VPIS))).
		Add(decimal.NewFromFloat(finito(item.VCOFINS)))

	base := decimal.NewFromFloat(finito(item.Valor)).Sub(atual)
	if base.IsNegative() {
		base = decimal.Zero
	}

	fator = math.Min(math.Max(finito(fator), 0), 1)
	devido := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(fator))

	ibs := base.Mul(decimal.NewFromFloat(finito(aliq.IBS))).Mul(devido).Round(2)
	cbs := base.Mul(decimal.NewFromFloat(finito(aliq.CBS))).Mul(devido).Round(2)

	return carga{
		atual:     atual.Round(2),
		projetada: ibs.Add(cbs),
		ibs:       ibs,
		cbs:       cbs,
	}
}

// finito troca NaN e infinitos por zero; decimal.NewFromFloat entra em pânico com eles.
func finito(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
