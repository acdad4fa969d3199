package checkout

import (
	"context"
	"sync"
	"testing"

	"eventpos/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConfig struct {
	cfg domain.TerminalConfig
	err error
}

func (f *fakeConfig) TerminalConfig(context.Context) (domain.TerminalConfig, error) {
	return f.cfg, f.err
}

type fakeBackend struct {
	mu sync.Mutex

	checkSale       func(domain.NewSale) (domain.CheckedSale, error)
	bookSale        func(domain.NewSale) (domain.CompletedSale, error)
	checkTicketScan func([]uint64) (map[uint64]domain.TicketInfo, error)
	checkTicketSale func(domain.NewTicketSale) (domain.CheckedTicketSale, error)
	bookTicketSale  func(domain.NewTicketSale) (domain.CompletedTicketSale, error)

	checked       []domain.NewSale
	booked        []domain.NewSale
	ticketChecked []domain.NewTicketSale
	ticketBooked  []domain.NewTicketSale
}

func (f *fakeBackend) CheckSale(_ context.Context, sale domain.NewSale) (domain.CheckedSale, error) {
	f.mu.Lock()
	f.checked = append(f.checked, sale)
	fn := f.checkSale
	f.mu.Unlock()
	if fn == nil {
		return echoCheck(sale), nil
	}
	return fn(sale)
}

func (f *fakeBackend) BookSale(_ context.Context, sale domain.NewSale) (domain.CompletedSale, error) {
	f.mu.Lock()
	f.booked = append(f.booked, sale)
	fn := f.bookSale
	f.mu.Unlock()
	if fn == nil {
		return domain.CompletedSale{ID: 1, PaymentMethod: sale.PaymentMethod, CheckedSale: echoCheck(sale)}, nil
	}
	return fn(sale)
}

func (f *fakeBackend) CheckTicketScan(_ context.Context, uids []uint64) (map[uint64]domain.TicketInfo, error) {
	if f.checkTicketScan != nil {
		return f.checkTicketScan(uids)
	}
	out := make(map[uint64]domain.TicketInfo, len(uids))
	for _, uid := range uids {
		out[uid] = domain.TicketInfo{ID: 8, Name: "Weekend ticket", Price: decimal.RequireFromString("40")}
	}
	return out, nil
}

func (f *fakeBackend) CheckTicketSale(_ context.Context, sale domain.NewTicketSale) (domain.CheckedTicketSale, error) {
	f.mu.Lock()
	f.ticketChecked = append(f.ticketChecked, sale)
	f.mu.Unlock()
	if f.checkTicketSale != nil {
		return f.checkTicketSale(sale)
	}
	return echoTicketCheck(sale), nil
}

func (f *fakeBackend) BookTicketSale(_ context.Context, sale domain.NewTicketSale) (domain.CompletedTicketSale, error) {
	f.mu.Lock()
	f.ticketBooked = append(f.ticketBooked, sale)
	f.mu.Unlock()
	if f.bookTicketSale != nil {
		return f.bookTicketSale(sale)
	}
	checked := echoTicketCheck(sale)
	checked.PaymentMethod = sale.PaymentMethod
	return domain.CompletedTicketSale{ID: 2, CheckedTicketSale: checked}, nil
}

func echoCheck(sale domain.NewSale) domain.CheckedSale {
	result := domain.CheckedSale{
		UUID:              "u1",
		TotalPrice:        decimal.RequireFromString("5.00"),
		OldVoucherBalance: 2,
		CustomerTagUID:    sale.CustomerTagUID,
	}
	for _, line := range sale.Buttons {
		checked := domain.CheckedLine{ButtonID: line.ButtonID}
		if line.Quantity != nil {
			checked.Policy = domain.PolicyFixedPrice
			checked.Quantity = *line.Quantity
		} else {
			checked.Policy = domain.PolicyFreePrice
			checked.Quantity = 1
			checked.Price = *line.Price
		}
		result.Lines = append(result.Lines, checked)
	}
	if sale.UsedVouchers != nil {
		result.UsedVouchers = *sale.UsedVouchers
	}
	return result
}

func echoTicketCheck(sale domain.NewTicketSale) domain.CheckedTicketSale {
	result := domain.CheckedTicketSale{UUID: "t1", TotalPrice: decimal.RequireFromString("80")}
	for _, uid := range sale.CustomerTagUIDs {
		result.Tickets = append(result.Tickets, domain.CheckedTicket{CustomerTagUID: uid, Ticket: domain.TicketInfo{ID: 8}})
	}
	return result
}

type fakePayments struct {
	mu       sync.Mutex
	attempts []string
	results  []error
}

func (f *fakePayments) Pay(_ context.Context, amount decimal.Decimal, attemptID string, _ *domain.CustomerTag) (domain.PaymentConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attemptID)
	if len(f.results) > 0 {
		err := f.results[0]
		f.results = f.results[1:]
		if err != nil {
			return domain.PaymentConfirmation{}, err
		}
	}
	return domain.PaymentConfirmation{AttemptID: attemptID, Reference: "ref-" + attemptID, Amount: amount}, nil
}

type fakeScanner struct {
	mu    sync.Mutex
	owner string
	sink  func(context.Context, uint64)
}

func (f *fakeScanner) Enable(owner string, sink func(context.Context, uint64)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner = owner
	f.sink = sink
	return nil
}

func (f *fakeScanner) Disable(owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owner == owner {
		f.owner = ""
		f.sink = nil
	}
}

func (f *fakeScanner) enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sink != nil
}

func (f *fakeScanner) scan(t *testing.T, uid uint64) {
	t.Helper()
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	require.NotNil(t, sink, "tag reader is not enabled")
	sink(context.Background(), uid)
}

func terminalConfig() domain.TerminalConfig {
	return domain.TerminalConfig{
		ID:            1,
		Name:          "Bar 1",
		Ready:         true,
		Currency:      "EUR",
		AllowVouchers: true,
		Buttons: []domain.Button{
			{ID: 5, Name: "Beer", Policy: domain.PolicyFixedPrice, Price: decimal.RequireFromString("2.50")},
			{ID: 6, Name: "Cup", Policy: domain.PolicyReturnable, Price: decimal.RequireFromString("2")},
			{ID: 7, Name: "Tip", Policy: domain.PolicyFreePrice},
		},
		TicketButtons: []domain.Button{
			{ID: 8, Name: "Weekend ticket", Policy: domain.PolicyFixedPrice, Price: decimal.RequireFromString("40")},
		},
	}
}

type fixture struct {
	backend  *fakeBackend
	config   *fakeConfig
	payments *fakePayments
	scanner  *fakeScanner
}

func newFixture() *fixture {
	return &fixture{
		backend:  &fakeBackend{},
		config:   &fakeConfig{cfg: terminalConfig()},
		payments: &fakePayments{},
		scanner:  &fakeScanner{},
	}
}

func (f *fixture) sale(t *testing.T) *SaleMachine {
	t.Helper()
	m := NewSaleMachine(f.backend, f.config, f.payments, f.scanner, zap.NewNop())
	require.NoError(t, m.Refresh(context.Background()))
	return m
}

func (f *fixture) ticket(t *testing.T) *TicketMachine {
	t.Helper()
	m := NewTicketMachine(f.backend, f.config, f.payments, f.scanner, zap.NewNop())
	require.NoError(t, m.Refresh(context.Background()))
	return m
}
