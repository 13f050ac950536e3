package models

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineAmounts holds the unrounded amounts of a single line
type LineAmounts struct {
	HT  decimal.Decimal
	TVA decimal.Decimal
	TTC decimal.Decimal
}

// DocumentTotals holds the document level amounts, rounded to cents
type DocumentTotals struct {
	HT  decimal.Decimal `json:"total_ht"`
	TVA decimal.Decimal `json:"total_tva"`
	TTC decimal.Decimal `json:"total_ttc"`
}

// Round2 rounds half away from zero to two decimal places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeLineAmounts applies the flat tax rate (a percentage) to quantity x unit price.
// Nothing is rounded and no range check is made.
func ComputeLineAmounts(quantity, unitPrice, tvaRate decimal.Decimal) LineAmounts {
	ht := quantity.Mul(unitPrice)
	tva := ht.Mul(tvaRate).Div(hundred)
	return LineAmounts{HT: ht, TVA: tva, TTC: ht.Add(tva)}
}

// ComputeTotals sums unrounded line components and rounds once at the end.
// An empty line set yields zero totals.
func ComputeTotals(lines []*DocumentLine) DocumentTotals {
	sumHT, sumTVA := decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l == nil {
			continue
		}
		a := ComputeLineAmounts(l.Quantity, l.UnitPriceHT, l.TVARate)
		sumHT = sumHT.Add(a.HT)
		sumTVA = sumTVA.Add(a.TVA)
	}
	return DocumentTotals{
		HT:  Round2(sumHT),
		TVA: Round2(sumTVA),
		TTC: Round2(sumHT.Add(sumTVA)),
	}
}

// ComputeDeposit returns the deposit amount for a percentage of the tax inclusive total
func ComputeDeposit(totalTTC, percentage decimal.Decimal) decimal.Decimal {
	return Round2(totalTTC.Mul(percentage).Div(hundred))
}

// RecomputeTotals refreshes per line display amounts, positions, document totals and deposit.
// Calling it twice on unchanged lines yields identical results.
func (d *Document) RecomputeTotals() DocumentTotals {
	for i, l := range d.Lines {
		if l == nil {
			continue
		}
		a := ComputeLineAmounts(l.Quantity, l.UnitPriceHT, l.TVARate)
		l.Position = i + 1
		l.TotalHT = Round2(a.HT)
		l.TotalTVA = Round2(a.TVA)
		l.TotalTTC = Round2(a.TTC)
	}

	totals := ComputeTotals(d.Lines)
	d.TotalHT = totals.HT
	d.TotalTVA = totals.TVA
	d.TotalTTC = totals.TTC

	if d.IsAcompteRequired && d.AcomptePercentage != nil {
		amount := ComputeDeposit(totals.TTC, *d.AcomptePercentage)
		d.AcompteAmount = &amount
	} else {
		d.AcompteAmount = nil
	}
	return totals
}
