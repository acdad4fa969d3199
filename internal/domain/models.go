package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput marks a backend rejection caused by the submitted draft
	// itself (unknown product, insufficient balance, blocked tag, ...).
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("terminal unauthorized")
)

type PricePolicy string

const (
	PolicyFixedPrice PricePolicy = "fixed_price"
	PolicyFreePrice  PricePolicy = "free_price"
	PolicyReturnable PricePolicy = "returnable"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

type Button struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Policy   PricePolicy     `json:"price_policy"`
	Price    decimal.Decimal `json:"price"`
	MaxPrice decimal.Decimal `json:"max_price,omitempty"`
}

type TerminalConfig struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Ready         bool     `json:"ready"`
	CashierName   string   `json:"cashier_name,omitempty"`
	Currency      string   `json:"currency"`
	AllowVouchers bool     `json:"allow_vouchers"`
	Buttons       []Button `json:"buttons"`
	TicketButtons []Button `json:"ticket_buttons"`
}

// Catalog is a read-only button lookup built from the terminal config.
type Catalog map[int]Button

func NewCatalog(buttons []Button) Catalog {
	catalog := make(Catalog, len(buttons))
	for _, button := range buttons {
		catalog[button.ID] = button
	}
	return catalog
}

func (c Catalog) Button(id int) (Button, bool) {
	button, ok := c[id]
	return button, ok
}

type CustomerTag struct {
	UID uint64 `json:"uid"`
}

// SaleLine carries either Quantity or Price, never both.
type SaleLine struct {
	ButtonID int              `json:"button_id"`
	Quantity *int             `json:"quantity,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

type NewSale struct {
	UUID           string        `json:"uuid"`
	Buttons        []SaleLine    `json:"buttons"`
	CustomerTagUID uint64        `json:"customer_tag_uid"`
	UsedVouchers   *int          `json:"used_vouchers,omitempty"`
	PaymentMethod  PaymentMethod `json:"payment_method,omitempty"`
}

type CheckedLine struct {
	ButtonID   int             `json:"button_id"`
	Name       string          `json:"name"`
	Policy     PricePolicy     `json:"price_policy"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TaxName    string          `json:"tax_name,omitempty"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
}

type TaxEntry struct {
	Name  string          `json:"tax_name"`
	Rate  decimal.Decimal `json:"tax_rate"`
	Net   decimal.Decimal `json:"total_no_tax"`
	Tax   decimal.Decimal `json:"total_tax"`
	Total decimal.Decimal `json:"total_price"`
}

type CheckedSale struct {
	UUID              string          `json:"uuid"`
	Lines             []CheckedLine   `json:"line_items"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Taxes             []TaxEntry      `json:"taxes,omitempty"`
	UsedVouchers      int             `json:"used_vouchers"`
	OldVoucherBalance int             `json:"old_voucher_balance"`
	NewVoucherBalance int             `json:"new_voucher_balance"`
	OldBalance        decimal.Decimal `json:"old_balance"`
	NewBalance        decimal.Decimal `json:"new_balance"`
	CustomerTagUID    uint64          `json:"customer_tag_uid"`
}

type CompletedSale struct {
	ID            int           `json:"id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	BookedAt      time.Time     `json:"booked_at"`
	CheckedSale
}

type TicketInfo struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type NewTicketSale struct {
	UUID            string        `json:"uuid"`
	Buttons         []SaleLine    `json:"buttons"`
	CustomerTagUIDs []uint64      `json:"customer_tag_uids"`
	PaymentMethod   PaymentMethod `json:"payment_method,omitempty"`
}

type CheckedTicket struct {
	CustomerTagUID uint64     `json:"customer_tag_uid"`
	Ticket         TicketInfo `json:"ticket"`
}

type CheckedTicketSale struct {
	UUID          string          `json:"uuid"`
	Tickets       []CheckedTicket `json:"scanned_tickets"`
	Lines         []CheckedLine   `json:"line_items,omitempty"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Taxes         []TaxEntry      `json:"taxes,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
}

type CompletedTicketSale struct {
	ID       int       `json:"id"`
	BookedAt time.Time `json:"booked_at"`
	CheckedTicketSale
}

type PaymentConfirmation struct {
	AttemptID string          `json:"id"`
	Reference string          `json:"transaction_code"`
	Amount    decimal.Decimal `json:"amount"`
}

// FromCents converts an amount in minor currency units to major units.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
