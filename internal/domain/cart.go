package domain

import "math"

// ProductType is the purchasable variant of a photo.
type ProductType string

const (
	ProductSocial   ProductType = "social"
	ProductPrint    ProductType = "print"
	ProductOriginal ProductType = "original"
	ProductRemix    ProductType = "remix"
)

// MaxItemPrice is the largest accepted price for a single cart item.
const MaxItemPrice = 999999.99

// CartItem is one selection in a visitor's cart. Price is a decimal currency amount.
type CartItem struct {
	ID           string      `json:"id"`
	PhotoID      string      `json:"photoId"`
	Type         ProductType `json:"type"`
	Label        string      `json:"label"`
	Price        float64     `json:"price"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
}

// UnitAmount returns the price in minor currency units.
func (c CartItem) UnitAmount() int64 {
	return ToMinorUnits(c.Price)
}

// ToMinorUnits converts a decimal amount to cents, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts cents back to a decimal amount.
func FromMinorUnits(cents int64) float64 {
	return float64(cents) / 100
}
