package draft

import (
	"errors"

	"eventpos/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownButton    = errors.New("unknown button")
	ErrInvalidOperation = errors.New("operation not allowed for price policy")
	ErrStaleCheck       = errors.New("check result is stale")
	ErrNotChecked       = errors.New("draft has no current check result")
	ErrIncomplete       = errors.New("not all tags scanned")
)

// Catalog resolves a button id to its configured pricing policy.
type Catalog interface {
	Button(id int) (domain.Button, bool)
}

// Line is one chosen entry of a draft. The set of implementations is closed:
// FixedPrice, FreePrice, Returnable and Voucher.
type Line interface {
	isLine()
}

type FixedPrice struct {
	Quantity int `json:"quantity"`
}

type FreePrice struct {
	Price decimal.Decimal `json:"price"`
}

// Returnable may hold a negative quantity, a pending deposit return.
type Returnable struct {
	Quantity int `json:"quantity"`
}

type Voucher struct {
	Count int `json:"count"`
}

func (FixedPrice) isLine() {}
func (FreePrice) isLine()  {}
func (Returnable) isLine() {}
func (Voucher) isLine()    {}

// PriceInput is the value entered for a free-price button.
type PriceInput struct {
	cents int64
	set   bool
}

func Unset() PriceInput {
	return PriceInput{}
}

// Set builds a price from minor currency units. Zero normalizes to Unset.
func Set(cents int64) PriceInput {
	if cents == 0 {
		return PriceInput{}
	}
	return PriceInput{cents: cents, set: true}
}

func (p PriceInput) IsSet() bool {
	return p.set
}

func (p PriceInput) Amount() decimal.Decimal {
	return domain.FromCents(p.cents)
}

// KindOf names the variant of a line.
func KindOf(line Line) string {
	switch line.(type) {
	case FixedPrice:
		return "fixed_price"
	case FreePrice:
		return "free_price"
	case Returnable:
		return "returnable"
	case Voucher:
		return "voucher"
	default:
		return "unknown"
	}
}
