package models

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(q, price, rate string) *DocumentLine {
	return &DocumentLine{Description: "item", Quantity: dec(q), UnitPriceHT: dec(price), TVARate: dec(rate)}
}

func TestComputeLineAmounts(t *testing.T) {
	tests := []struct {
		name                 string
		qty, price, rate     string
		wantHT, wantTVA, ttc string
	}{
		{"simple", "2", "100", "20", "200", "40", "240"},
		{"zero rate", "3", "19.99", "0", "59.97", "0", "59.97"},
		{"negative price", "1", "-50", "20", "-50", "-10", "-60"},
		{"fractional", "1.5", "0.333", "5.5", "0.4995", "0.0274725", "0.5269725"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ComputeLineAmounts(dec(tt.qty), dec(tt.price), dec(tt.rate))
			assert.True(t, a.HT.Equal(dec(tt.wantHT)), "ht = %s", a.HT)
			assert.True(t, a.TVA.Equal(dec(tt.wantTVA)), "tva = %s", a.TVA)
			assert.True(t, a.TTC.Equal(dec(tt.ttc)), "ttc = %s", a.TTC)
		})
	}
}

func TestComputeTotals_TwoLineInvoice(t *testing.T) {
	totals := ComputeTotals([]*DocumentLine{
		line("2", "100", "20"),
		line("1", "50", "10"),
	})

	assert.Equal(t, "250.00", totals.HT.StringFixed(2))
	assert.Equal(t, "45.00", totals.TVA.StringFixed(2))
	assert.Equal(t, "295.00", totals.TTC.StringFixed(2))
}

func TestComputeTotals_EmptyIsZero(t *testing.T) {
	totals := ComputeTotals(nil)
	assert.True(t, totals.HT.IsZero())
	assert.True(t, totals.TVA.IsZero())
	assert.True(t, totals.TTC.IsZero())
}

func TestComputeTotals_RoundsOnceAtTheEnd(t *testing.T) {
	// rounding each line first would give 0.99
	totals := ComputeTotals([]*DocumentLine{
		line("1", "0.3333", "0"),
		line("1", "0.3333", "0"),
		line("1", "0.3334", "0"),
	})
	assert.Equal(t, "1.00", totals.HT.StringFixed(2))

	half := ComputeTotals([]*DocumentLine{line("1", "0.005", "0")})
	assert.Equal(t, "0.01", half.HT.StringFixed(2))

	negHalf := ComputeTotals([]*DocumentLine{line("1", "-0.005", "0")})
	assert.Equal(t, "-0.01", negHalf.HT.StringFixed(2))
}

func TestComputeTotals_SumProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tolerance := dec("0.01")

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(8)
		lines := make([]*DocumentLine, 0, n)
		for j := 0; j < n; j++ {
			q := decimal.New(int64(rng.Intn(10000)), -2)
			p := decimal.New(int64(rng.Intn(2000000)-1000000), -3)
			r := decimal.New(int64(rng.Intn(2500)), -2)
			lines = append(lines, &DocumentLine{Quantity: q, UnitPriceHT: p, TVARate: r})
		}

		totals := ComputeTotals(lines)
		diff := totals.HT.Add(totals.TVA).Sub(totals.TTC).Abs()
		require.True(t, diff.LessThanOrEqual(tolerance), "iteration %d: %s + %s != %s", i, totals.HT, totals.TVA, totals.TTC)
	}
}

func TestRecomputeTotals_Idempotent(t *testing.T) {
	pct := dec("30")
	doc := &Document{
		Type:              DocumentTypeInvoice,
		IsAcompteRequired: true,
		AcomptePercentage: &pct,
		Lines: []*DocumentLine{
			line("3", "33.333", "20"),
			line("0.5", "12.5", "5.5"),
		},
	}

	first := doc.RecomputeTotals()
	firstDeposit := *doc.AcompteAmount
	second := doc.RecomputeTotals()

	assert.True(t, first.HT.Equal(second.HT))
	assert.True(t, first.TVA.Equal(second.TVA))
	assert.True(t, first.TTC.Equal(second.TTC))
	assert.True(t, firstDeposit.Equal(*doc.AcompteAmount))
	assert.Equal(t, 1, doc.Lines[0].Position)
	assert.Equal(t, 2, doc.Lines[1].Position)
	assert.Equal(t, "100.00", doc.Lines[0].TotalHT.StringFixed(2))
}

func TestRecomputeTotals_DepositClearedWhenNotRequired(t *testing.T) {
	amount := dec("10")
	doc := &Document{AcompteAmount: &amount, Lines: []*DocumentLine{line("1", "100", "20")}}
	doc.RecomputeTotals()
	assert.Nil(t, doc.AcompteAmount)
}

func TestComputeDeposit(t *testing.T) {
	assert.Equal(t, "88.50", ComputeDeposit(dec("295"), dec("30")).StringFixed(2))
	assert.Equal(t, "0.00", ComputeDeposit(decimal.Zero, dec("50")).StringFixed(2))
}
