package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"eventpos/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrBusy              = errors.New("another checkout operation is in progress")
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrNotReady          = errors.New("terminal is not ready")
	ErrEmptyDraft        = errors.New("nothing selected")
	ErrNoScanner         = errors.New("no tag reader available")
	ErrVouchersDisabled  = errors.New("vouchers are disabled for this terminal")
)

type State int

const (
	StateSelecting State = iota
	StateScanning
	StateConfirming
	StatePaying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSelecting:
		return "selecting"
	case StateScanning:
		return "scanning"
	case StateConfirming:
		return "confirming"
	case StatePaying:
		return "paying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type ConfigSource interface {
	TerminalConfig(ctx context.Context) (domain.TerminalConfig, error)
}

type SaleBackend interface {
	CheckSale(ctx context.Context, sale domain.NewSale) (domain.CheckedSale, error)
	BookSale(ctx context.Context, sale domain.NewSale) (domain.CompletedSale, error)
}

type TicketBackend interface {
	CheckTicketScan(ctx context.Context, uids []uint64) (map[uint64]domain.TicketInfo, error)
	CheckTicketSale(ctx context.Context, sale domain.NewTicketSale) (domain.CheckedTicketSale, error)
	BookTicketSale(ctx context.Context, sale domain.NewTicketSale) (domain.CompletedTicketSale, error)
}

type PaymentProvider interface {
	Pay(ctx context.Context, amount decimal.Decimal, attemptID string, tag *domain.CustomerTag) (domain.PaymentConfirmation, error)
}

// Scanner is the exclusive tag reader. While enabled for an owner, every
// scanned uid is handed to sink.
type Scanner interface {
	Enable(owner string, sink func(ctx context.Context, uid uint64)) error
	Disable(owner string)
}

// base holds what both flows share. All fields are guarded by mu, which is
// released while a backend or payment call is in flight.
type base struct {
	mu          sync.Mutex
	owner       string
	logger      *zap.Logger
	configs     ConfigSource
	payments    PaymentProvider
	scanner     Scanner
	terminal    domain.TerminalConfig
	catalog     domain.Catalog
	state       State
	status      string
	busy        bool
	scanEnabled bool
}

func newBase(owner string, configs ConfigSource, payments PaymentProvider, scanner Scanner, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		owner:    owner,
		logger:   logger.Named(owner),
		configs:  configs,
		payments: payments,
		scanner:  scanner,
		catalog:  domain.Catalog{},
	}
}

func (b *base) enableScan(sink func(ctx context.Context, uid uint64)) error {
	if b.scanner == nil {
		return ErrNoScanner
	}
	if err := b.scanner.Enable(b.owner, sink); err != nil {
		return err
	}
	b.scanEnabled = true
	return nil
}

func (b *base) disableScan() {
	if !b.scanEnabled {
		return
	}
	b.scanner.Disable(b.owner)
	b.scanEnabled = false
}

// guardPayment checks the common preconditions of both pay actions.
func (b *base) guardPayment() error {
	switch {
	case b.state != StateConfirming:
		return fmt.Errorf("%w: pay in %s", ErrInvalidTransition, b.state)
	case b.busy:
		return ErrBusy
	case !b.terminal.Ready:
		b.status = "terminal is not ready for payments"
		return ErrNotReady
	}
	return nil
}

func (b *base) loadConfig(ctx context.Context) (domain.TerminalConfig, error) {
	if b.configs == nil {
		return domain.TerminalConfig{}, errors.New("no terminal config source")
	}
	return b.configs.TerminalConfig(ctx)
}

// userMessager is implemented by backend errors that carry a message meant
// for the cashier.
type userMessager interface {
	UserMessage() string
}

func statusFromError(err error) string {
	var um userMessager
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return err.Error()
}

func formatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	return fmt.Sprintf("%s %s", amount.StringFixed(2), currency)
}
