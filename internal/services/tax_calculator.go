package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	domain "github.com/cityprint/api/internal/domain"
)

// ErrTaxInvalidInput signals an unusable tax calculation request.
var ErrTaxInvalidInput = errors.New("tax: invalid input")

// GSTCalculator splits an order's tax into CGST/SGST for intrastate supply or
// IGST for interstate supply.
type GSTCalculator struct {
	rate decimal.Decimal
}

// NewGSTCalculator constructs a calculator for the given fractional rate
// (0.18 for 18% GST).
func NewGSTCalculator(rate float64) (*GSTCalculator, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("%w: rate %v out of range", ErrTaxInvalidInput, rate)
	}
	return &GSTCalculator{rate: decimal.NewFromFloat(rate)}, nil
}

// ComputeTax derives the GST breakdown for a taxable amount in paise.
//
// The total is rounded once before the half-split so CGST and SGST cannot
// disagree by a paise; an odd total leaves the extra paise on CGST.
func (c *GSTCalculator) ComputeTax(taxable int64, interstate bool) (domain.GSTBreakdown, error) {
	if c == nil {
		return domain.GSTBreakdown{}, errors.New("tax calculator not initialised")
	}
	if taxable < 0 {
		return domain.GSTBreakdown{}, fmt.Errorf("%w: taxable amount %d is negative", ErrTaxInvalidInput, taxable)
	}

	totalTax := decimal.NewFromInt(taxable).Mul(c.rate).Round(0).IntPart()

	breakdown := domain.GSTBreakdown{TotalTax: totalTax}
	if interstate {
		breakdown.IGST = totalTax
		return breakdown, nil
	}

	breakdown.SGST = totalTax / 2
	breakdown.CGST = totalTax - breakdown.SGST
	return breakdown, nil
}
