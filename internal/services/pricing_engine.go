package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/cityprint/api/internal/domain"
)

var (
	// ErrPricingInvalidInput signals bad request data such as a missing product or malformed selection.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrInvalidQuantity is returned when the quantity is below one.
	ErrInvalidQuantity = errors.New("pricing: invalid quantity")
	// ErrUnknownVariant is returned when the selected variant does not exist on the product.
	ErrUnknownVariant = errors.New("pricing: unknown variant")
	// ErrOutOfStockVariant is returned when the selected variant is not in stock.
	ErrOutOfStockVariant = errors.New("pricing: variant out of stock")
	// ErrMissingRequiredOption is returned when a required option has no selection.
	ErrMissingRequiredOption = errors.New("pricing: missing required option")
	// ErrMissingDimensions is returned when an area-priced product lacks dimensions.
	ErrMissingDimensions = errors.New("pricing: dimensions required for area pricing")
)

// PricingEngine turns a product definition plus customer selections into a
// priced line. All monetary outputs are paise.
type PricingEngine struct {
	logger func(context.Context, string, map[string]any)
}

// PricingEngineDeps bundles collaborators for the pricing engine.
type PricingEngineDeps struct {
	Logger func(context.Context, string, map[string]any)
}

// NewPricingEngine constructs a PricingEngine.
func NewPricingEngine(deps PricingEngineDeps) (*PricingEngine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &PricingEngine{logger: logger}, nil
}

// PriceLineCommand describes one line to price.
type PriceLineCommand struct {
	Product    domain.Product
	VariantID  string
	Quantity   int
	Selections []domain.Specification
}

// PricedLine is the pricing engine output consumed by the order composer.
type PricedLine struct {
	UnitPrice    int64
	LineTotal    int64
	VariantLabel string
}

// PriceLine computes the unit and line price for a single product line.
//
// The base unit price comes from the product's pricing method, then option
// deltas apply in option-declaration order: flat deltas add to the running
// unit price, percent deltas scale it by (1 + delta/100). Declaration order
// is significant because percent deltas compound.
func (e *PricingEngine) PriceLine(ctx context.Context, cmd PriceLineCommand) (PricedLine, error) {
	if e == nil {
		return PricedLine{}, errors.New("pricing engine not initialised")
	}
	if cmd.Quantity < 1 {
		return PricedLine{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, cmd.Quantity)
	}

	product := cmd.Product
	variant, err := resolveVariant(product, cmd.VariantID)
	if err != nil {
		return PricedLine{}, err
	}

	unit, err := e.baseUnitPrice(product, variant, cmd.Quantity, cmd.Selections)
	if err != nil {
		return PricedLine{}, err
	}

	unit, err = applyOptionDeltas(product, cmd.Selections, unit)
	if err != nil {
		return PricedLine{}, err
	}

	if unit.IsNegative() {
		e.logger(ctx, "pricing.unit_clamped", map[string]any{
			"productId": product.ID,
			"unit":      unit.String(),
		})
		unit = decimal.Zero
	}

	unitPaise := unit.Round(0).IntPart()
	lineTotal := unitPaise * int64(cmd.Quantity)

	return PricedLine{
		UnitPrice:    unitPaise,
		LineTotal:    lineTotal,
		VariantLabel: variantLabel(variant),
	}, nil
}

func (e *PricingEngine) baseUnitPrice(product domain.Product, variant *domain.ProductVariant, quantity int, selections []domain.Specification) (decimal.Decimal, error) {
	switch product.PricingMethod {
	case domain.PricingMethodFlat, "":
		price := product.BasePrice
		if variant != nil {
			price = variant.Price
		}
		return decimal.NewFromInt(price), nil

	case domain.PricingMethodTier:
		// Highest tier whose MinQty is met; below the lowest tier the base
		// price applies.
		price := product.BasePrice
		for _, tier := range product.PricingTiers {
			if tier.MinQty <= quantity {
				price = tier.UnitPrice
			}
		}
		return decimal.NewFromInt(price), nil

	case domain.PricingMethodArea:
		if product.AreaPricing == nil {
			return decimal.Decimal{}, fmt.Errorf("%w: product %s has no area pricing parameters", ErrPricingInvalidInput, product.ID)
		}
		dims := dimensionsFromSelections(selections)
		if dims == nil {
			return decimal.Decimal{}, fmt.Errorf("%w: product %s", ErrMissingDimensions, product.ID)
		}
		area := decimal.NewFromFloat(dims.SquareFeet())
		if area.Sign() <= 0 {
			return decimal.Decimal{}, fmt.Errorf("%w: dimensions must be positive", ErrPricingInvalidInput)
		}
		price := decimal.NewFromInt(product.AreaPricing.PricePerSqFt).Mul(area)
		minCharge := decimal.NewFromInt(product.AreaPricing.MinCharge)
		if price.LessThan(minCharge) {
			price = minCharge
		}
		return price, nil

	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unknown pricing method %q", ErrPricingInvalidInput, product.PricingMethod)
	}
}

func applyOptionDeltas(product domain.Product, selections []domain.Specification, unit decimal.Decimal) (decimal.Decimal, error) {
	for _, option := range product.Options {
		selection, found := findSelection(selections, option.Name)
		if !found {
			if option.Required {
				return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrMissingRequiredOption, option.Name)
			}
			continue
		}

		switch option.Type {
		case domain.OptionTypeSelect:
			value, ok := findOptionValue(option, selection.Choice)
			if !ok {
				return decimal.Decimal{}, fmt.Errorf("%w: option %s has no value %q", ErrPricingInvalidInput, option.Name, selection.Choice)
			}
			unit = applyDelta(unit, value, decimal.NewFromInt(1))

		case domain.OptionTypeBoolean:
			if selection.Enabled == nil || !*selection.Enabled {
				continue
			}
			if len(option.Values) == 0 {
				continue
			}
			unit = applyDelta(unit, option.Values[0], decimal.NewFromInt(1))

		case domain.OptionTypeNumeric:
			if selection.Number == nil {
				if option.Required {
					return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrMissingRequiredOption, option.Name)
				}
				continue
			}
			if *selection.Number < 0 {
				return decimal.Decimal{}, fmt.Errorf("%w: option %s must be non-negative", ErrPricingInvalidInput, option.Name)
			}
			if len(option.Values) == 0 {
				continue
			}
			// Flat deltas on numeric options scale with the supplied count
			// (e.g. per extra page); percent deltas apply once.
			unit = applyDelta(unit, option.Values[0], decimal.NewFromFloat(*selection.Number))

		case domain.OptionTypeDim2:
			// Dimensions feed area pricing; no delta of their own.
			continue

		default:
			return decimal.Decimal{}, fmt.Errorf("%w: option %s has unknown type %q", ErrPricingInvalidInput, option.Name, option.Type)
		}
	}
	return unit, nil
}

func applyDelta(unit decimal.Decimal, value domain.OptionValue, multiplier decimal.Decimal) decimal.Decimal {
	delta := decimal.NewFromFloat(value.PriceDelta)
	switch value.DeltaType {
	case domain.DeltaPercent:
		factor := decimal.NewFromInt(1).Add(delta.Div(decimal.NewFromInt(100)))
		return unit.Mul(factor)
	default:
		return unit.Add(delta.Mul(multiplier))
	}
}

func resolveVariant(product domain.Product, variantID string) (*domain.ProductVariant, error) {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		if len(product.Variants) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: product %s requires a variant selection", ErrUnknownVariant, product.ID)
	}
	for idx := range product.Variants {
		variant := &product.Variants[idx]
		if variant.ID == variantID {
			if !variant.InStock {
				return nil, fmt.Errorf("%w: %s", ErrOutOfStockVariant, variantID)
			}
			return variant, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, variantID)
}

func findSelection(selections []domain.Specification, optionName string) (domain.Specification, bool) {
	for _, selection := range selections {
		if strings.EqualFold(selection.Option, optionName) {
			return selection, true
		}
	}
	return domain.Specification{}, false
}

func findOptionValue(option domain.ProductOption, choice string) (domain.OptionValue, bool) {
	for _, value := range option.Values {
		if strings.EqualFold(value.Value, choice) {
			return value, true
		}
	}
	return domain.OptionValue{}, false
}

func dimensionsFromSelections(selections []domain.Specification) *domain.Dimensions {
	for _, selection := range selections {
		if selection.Dimensions != nil {
			return selection.Dimensions
		}
	}
	return nil
}

func variantLabel(variant *domain.ProductVariant) string {
	if variant == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, part := range []string{variant.Size, variant.Material, variant.Finish} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return variant.ID
	}
	return strings.Join(parts, " / ")
}
