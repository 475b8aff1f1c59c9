package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// CursorPage wraps a page of results together with the token for the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Address is a postal address captured at checkout or on a quote request.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// PricingMethod selects how a product's line total is derived.
type PricingMethod string

const (
	// PricingMethodFlat prices each unit at the selected variant price.
	PricingMethodFlat PricingMethod = "flat"
	// PricingMethodTier prices units from a quantity breakpoint table.
	PricingMethodTier PricingMethod = "tier"
	// PricingMethodArea prices the line from customer-supplied dimensions.
	PricingMethodArea PricingMethod = "area"
)

// OptionType enumerates the supported product option input kinds.
type OptionType string

const (
	// OptionTypeSelect is a single choice from a declared value list.
	OptionTypeSelect OptionType = "select"
	// OptionTypeBoolean is an on/off add-on such as lamination.
	OptionTypeBoolean OptionType = "boolean"
	// OptionTypeNumeric is a customer-supplied number such as page count.
	OptionTypeNumeric OptionType = "numeric"
	// OptionTypeDim2 is a customer-supplied width x height pair in feet.
	OptionTypeDim2 OptionType = "dim2"
)

// PriceDeltaType distinguishes additive from multiplicative option adjustments.
type PriceDeltaType string

const (
	// DeltaFlat adds a fixed paise amount to the unit price.
	DeltaFlat PriceDeltaType = "flat"
	// DeltaPercent scales the running unit price by (1 + delta/100).
	DeltaPercent PriceDeltaType = "percent"
)

// DeliverySpeed classifies how quickly a line can be turned around.
type DeliverySpeed string

const (
	// DeliverySameDay means the order was placed before the product cutoff.
	DeliverySameDay DeliverySpeed = "same_day"
	// DeliveryNextDay means the product is same-day capable but the cutoff passed.
	DeliveryNextDay DeliverySpeed = "next_day"
	// DeliveryStandard is the default turnaround.
	DeliveryStandard DeliverySpeed = "standard"
)

// Product is a catalog entry. All monetary fields are in paise.
type Product struct {
	ID              string
	Slug            string
	Name            string
	Description     string
	Category        string
	BasePrice       int64
	PricingMethod   PricingMethod
	Variants        []ProductVariant
	Options         []ProductOption
	PricingTiers    []PricingTier
	AreaPricing     *AreaPricing
	SameDayEligible bool
	SameDayCutoff   string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProductVariant is one orderable configuration of a product.
type ProductVariant struct {
	ID       string
	Size     string
	Material string
	Finish   string
	SKU      *string
	Price    int64
	InStock  bool
}

// ProductOption is a named, ordered customisation declared on a product.
// Declaration order matters: percent deltas compound in this order.
type ProductOption struct {
	Name     string
	Type     OptionType
	Required bool
	Values   []OptionValue
}

// OptionValue carries the price adjustment for one option choice.
// PriceDelta is paise for flat deltas and percentage points for percent deltas.
type OptionValue struct {
	Value      string
	PriceDelta float64
	DeltaType  PriceDeltaType
}

// PricingTier maps a minimum quantity to a unit price. Tiers are declared
// with strictly increasing MinQty.
type PricingTier struct {
	MinQty    int
	UnitPrice int64
}

// AreaPricing parameterises dimension-based pricing, present only when
// PricingMethod is area.
type AreaPricing struct {
	PricePerSqFt int64
	MinCharge    int64
}

// Dimensions is a customer-supplied width x height pair in feet.
type Dimensions struct {
	WidthFt  float64
	HeightFt float64
}

// SquareFeet returns the area covered by the dimensions.
func (d Dimensions) SquareFeet() float64 {
	return d.WidthFt * d.HeightFt
}
