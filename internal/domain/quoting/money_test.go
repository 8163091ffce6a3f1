package quoting_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// assertDecimal compara por valor (no por representación interna).
func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"esperado %s, obtenido %s", want, got.String()}, msgAndArgs...)...)
}

func TestRoundCurrency_MitadHaciaArriba(t *testing.T) {
	cases := map[string]string{
		"1.005":   "1.01",
		"2.675":   "2.68",
		"1.004":   "1.00",
		"300":     "300",
		"333.333": "333.33",
		"-0.005":  "0",
		"-1.006":  "-1.01",
	}
	for in, want := range cases {
		assertDecimal(t, want, quoting.RoundCurrency(d(in)), "entrada %s", in)
	}
}

func TestRoundPercentage_UnDecimalYEntero(t *testing.T) {
	assertDecimal(t, "33.3", quoting.RoundPercentage(d("33.33336"), 1))
	assertDecimal(t, "70", quoting.RoundPercentage(d("69.96"), 1))
	assertDecimal(t, "13", quoting.RoundPercentage(d("12.5"), 0))
	// decimales fuera de {0,1} se acotan
	assertDecimal(t, "12.3", quoting.RoundPercentage(d("12.345"), 4))
}

func TestFloorPercentage(t *testing.T) {
	assert.Equal(t, 70, quoting.FloorPercentage(d("70.0")))
	assert.Equal(t, 33, quoting.FloorPercentage(d("33.9")))
	assert.Equal(t, 0, quoting.FloorPercentage(d("0.4")))
}

func TestPercentage_TotalCeroNoDivide(t *testing.T) {
	assert.True(t, quoting.Percentage(d("10"), decimal.Zero).IsZero())
	assertDecimal(t, "30", quoting.Percentage(d("300"), d("1000")))
}

func TestSumCurrency(t *testing.T) {
	assertDecimal(t, "666.66", quoting.SumCurrency(d("333.33"), d("333.33")))
	assertDecimal(t, "0.02", quoting.SumCurrency(d("0.005"), d("0.005")))
}
