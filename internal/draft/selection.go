package draft

import (
	"encoding/json"
	"fmt"
	"sort"

	"eventpos/internal/domain"

	"github.com/shopspring/decimal"
)

// SelectionSet maps button ids to lines. It is persistent: every mutation
// returns a new set and leaves the receiver untouched.
type SelectionSet struct {
	lines map[int]Line
}

// Entry is a read-only view of one selection.
type Entry struct {
	ButtonID int  `json:"button_id"`
	Line     Line `json:"line"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ButtonID int    `json:"button_id"`
		Kind     string `json:"kind"`
		Line     Line   `json:"line"`
	}{e.ButtonID, KindOf(e.Line), e.Line})
}

func (s SelectionSet) Len() int {
	return len(s.lines)
}

func (s SelectionSet) Get(buttonID int) (Line, bool) {
	line, ok := s.lines[buttonID]
	return line, ok
}

// Entries returns the selections ordered by button id.
func (s SelectionSet) Entries() []Entry {
	entries := make([]Entry, 0, len(s.lines))
	for id, line := range s.lines {
		entries = append(entries, Entry{ButtonID: id, Line: line})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ButtonID < entries[j].ButtonID
	})
	return entries
}

func (s SelectionSet) Increment(buttonID int, catalog Catalog) (SelectionSet, error) {
	button, ok := catalog.Button(buttonID)
	if !ok {
		return s, fmt.Errorf("%w: %d", ErrUnknownButton, buttonID)
	}

	quantity := s.quantity(buttonID) + 1
	switch button.Policy {
	case domain.PolicyFixedPrice:
		return s.with(buttonID, FixedPrice{Quantity: quantity}), nil
	case domain.PolicyReturnable:
		if quantity == 0 {
			return s.without(buttonID), nil
		}
		return s.with(buttonID, Returnable{Quantity: quantity}), nil
	default:
		return s, fmt.Errorf("%w: increment on %s button %d", ErrInvalidOperation, button.Policy, buttonID)
	}
}

func (s SelectionSet) Decrement(buttonID int, catalog Catalog) (SelectionSet, error) {
	button, ok := catalog.Button(buttonID)
	if !ok {
		return s, fmt.Errorf("%w: %d", ErrUnknownButton, buttonID)
	}

	switch button.Policy {
	case domain.PolicyFixedPrice:
		quantity := s.quantity(buttonID) - 1
		if quantity <= 0 {
			return s.without(buttonID), nil
		}
		return s.with(buttonID, FixedPrice{Quantity: quantity}), nil
	case domain.PolicyReturnable:
		quantity := s.quantity(buttonID) - 1
		if quantity == 0 {
			return s.without(buttonID), nil
		}
		return s.with(buttonID, Returnable{Quantity: quantity}), nil
	default:
		return s, fmt.Errorf("%w: decrement on %s button %d", ErrInvalidOperation, button.Policy, buttonID)
	}
}

func (s SelectionSet) AdjustPrice(buttonID int, price PriceInput, catalog Catalog) (SelectionSet, error) {
	button, ok := catalog.Button(buttonID)
	if !ok {
		return s, fmt.Errorf("%w: %d", ErrUnknownButton, buttonID)
	}
	if button.Policy != domain.PolicyFreePrice {
		return s, fmt.Errorf("%w: price on %s button %d", ErrInvalidOperation, button.Policy, buttonID)
	}
	if !price.IsSet() {
		return s.without(buttonID), nil
	}

	amount := price.Amount()
	if amount.IsNegative() {
		return s, fmt.Errorf("%w: negative price for button %d", ErrInvalidOperation, buttonID)
	}
	if button.MaxPrice.IsPositive() && amount.GreaterThan(button.MaxPrice) {
		return s, fmt.Errorf("%w: price %s above maximum %s for button %d", ErrInvalidOperation, amount, button.MaxPrice, buttonID)
	}
	return s.with(buttonID, FreePrice{Price: amount}), nil
}

// TrackableUnits sums the quantities of fixed-price lines, the number of
// individually handed out units (for tickets: the tags to scan).
func (s SelectionSet) TrackableUnits() int {
	total := 0
	for _, line := range s.lines {
		switch l := line.(type) {
		case FixedPrice:
			total += l.Quantity
		case FreePrice, Returnable, Voucher:
		}
	}
	return total
}

// ToRequestPayload projects the selection into backend sale lines.
func (s SelectionSet) ToRequestPayload(payer *domain.CustomerTag) domain.NewSale {
	sale := domain.NewSale{Buttons: s.lineItems()}
	if payer != nil {
		sale.CustomerTagUID = payer.UID
	}
	return sale
}

func (s SelectionSet) lineItems() []domain.SaleLine {
	items := make([]domain.SaleLine, 0, len(s.lines))
	for _, entry := range s.Entries() {
		switch l := entry.Line.(type) {
		case FixedPrice:
			items = append(items, quantityLine(entry.ButtonID, l.Quantity))
		case Returnable:
			items = append(items, quantityLine(entry.ButtonID, l.Quantity))
		case FreePrice:
			price := l.Price
			items = append(items, domain.SaleLine{ButtonID: entry.ButtonID, Price: &price})
		case Voucher:
		}
	}
	return items
}

// fromCheckedLines rebuilds a selection from server-confirmed lines.
func fromCheckedLines(lines []domain.CheckedLine) SelectionSet {
	next := make(map[int]Line, len(lines))
	for _, line := range lines {
		switch line.Policy {
		case domain.PolicyFreePrice:
			if line.Price.IsPositive() {
				next[line.ButtonID] = FreePrice{Price: line.Price}
			}
		case domain.PolicyReturnable:
			if line.Quantity != 0 {
				next[line.ButtonID] = Returnable{Quantity: line.Quantity}
			}
		default:
			if line.Quantity > 0 {
				next[line.ButtonID] = FixedPrice{Quantity: line.Quantity}
			}
		}
	}
	return SelectionSet{lines: next}
}

func quantityLine(buttonID, quantity int) domain.SaleLine {
	q := quantity
	return domain.SaleLine{ButtonID: buttonID, Quantity: &q}
}

func (s SelectionSet) quantity(buttonID int) int {
	switch l := s.lines[buttonID].(type) {
	case FixedPrice:
		return l.Quantity
	case Returnable:
		return l.Quantity
	default:
		return 0
	}
}

func (s SelectionSet) with(buttonID int, line Line) SelectionSet {
	next := make(map[int]Line, len(s.lines)+1)
	for id, existing := range s.lines {
		next[id] = existing
	}
	next[buttonID] = line
	return SelectionSet{lines: next}
}

func (s SelectionSet) without(buttonID int) SelectionSet {
	if _, ok := s.lines[buttonID]; !ok {
		return s
	}
	next := make(map[int]Line, len(s.lines))
	for id, existing := range s.lines {
		if id != buttonID {
			next[id] = existing
		}
	}
	return SelectionSet{lines: next}
}

// Total sums the selection at catalog prices, for display before a check.
func (s SelectionSet) Total(catalog Catalog) decimal.Decimal {
	total := decimal.Zero
	for id, line := range s.lines {
		switch l := line.(type) {
		case FixedPrice:
			if button, ok := catalog.Button(id); ok {
				total = total.Add(button.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
			}
		case Returnable:
			if button, ok := catalog.Button(id); ok {
				total = total.Add(button.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
			}
		case FreePrice:
			total = total.Add(l.Price)
		case Voucher:
		}
	}
	return total
}
