package checkout

import (
	"context"
	"errors"
	"fmt"

	"eventpos/internal/domain"
	"eventpos/internal/draft"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TicketView struct {
	State       State                       `json:"state"`
	Status      string                      `json:"status"`
	Busy        bool                        `json:"busy"`
	Ready       bool                        `json:"ready"`
	ScanEnabled bool                        `json:"scan_enabled"`
	ScanStatus  draft.ScanStatus            `json:"scan_status"`
	Selection   []draft.Entry               `json:"selection"`
	Estimate    decimal.Decimal             `json:"estimate"`
	Scans       []draft.ScannedTag          `json:"scans"`
	Required    int                         `json:"required"`
	Checked     *domain.CheckedTicketSale   `json:"checked,omitempty"`
	Completed   *domain.CompletedTicketSale `json:"completed,omitempty"`
	Revision    uint64                      `json:"revision"`
}

// TicketMachine drives a ticket sale. It adds a mandatory Scanning state
// between Selecting and Confirming in which one distinct tag per ticket is
// scanned and validated.
type TicketMachine struct {
	base
	backend   TicketBackend
	draft     *draft.TicketDraft
	duplicate bool
	completed *domain.CompletedTicketSale
	listeners []func(TicketView)
}

func NewTicketMachine(backend TicketBackend, configs ConfigSource, payments PaymentProvider, scanner Scanner, logger *zap.Logger) *TicketMachine {
	return &TicketMachine{
		base:    newBase("ticket", configs, payments, scanner, logger),
		backend: backend,
		draft:   draft.NewTicketDraft(),
	}
}

func (m *TicketMachine) Subscribe(fn func(TicketView)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *TicketMachine) View() TicketView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *TicketMachine) Buttons() []domain.Button {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Button(nil), m.terminal.TicketButtons...)
}

func (m *TicketMachine) viewLocked() TicketView {
	scan := draft.ScanStatus{Kind: draft.NoScan}
	if m.state == StateScanning {
		scan = m.draft.ScanStatus(m.duplicate)
	}
	return TicketView{
		State:       m.state,
		Status:      m.status,
		Busy:        m.busy,
		Ready:       m.terminal.Ready,
		ScanEnabled: m.scanEnabled,
		ScanStatus:  scan,
		Selection:   m.draft.Selection().Entries(),
		Estimate:    m.draft.Selection().Total(m.catalog),
		Scans:       m.draft.Scans(),
		Required:    m.draft.RequiredCount(),
		Checked:     m.draft.Checked(),
		Completed:   m.completed,
		Revision:    m.draft.Revision(),
	}
}

func (m *TicketMachine) release() {
	view := m.viewLocked()
	listeners := append(([]func(TicketView))(nil), m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(view)
	}
}

func (m *TicketMachine) Refresh(ctx context.Context) error {
	cfg, err := m.loadConfig(ctx)

	m.mu.Lock()
	if err != nil {
		m.status = fmt.Sprintf("loading terminal config failed: %s", statusFromError(err))
		m.logger.Warn("terminal config refresh failed", zap.Error(err))
		m.release()
		return err
	}
	m.terminal = cfg
	m.catalog = domain.NewCatalog(cfg.TicketButtons)
	m.logger.Info("terminal config loaded",
		zap.String("terminal", cfg.Name),
		zap.Bool("ready", cfg.Ready),
		zap.Int("ticket_buttons", len(cfg.TicketButtons)),
	)
	m.release()
	return nil
}

func (m *TicketMachine) Increment(buttonID int) error {
	return m.edit("increment", buttonID, func(catalog draft.Catalog) error {
		return m.draft.Increment(buttonID, catalog)
	})
}

func (m *TicketMachine) Decrement(buttonID int) error {
	return m.edit("decrement", buttonID, func(catalog draft.Catalog) error {
		return m.draft.Decrement(buttonID, catalog)
	})
}

func (m *TicketMachine) edit(op string, buttonID int, fn func(draft.Catalog) error) error {
	m.mu.Lock()
	if m.state != StateSelecting {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, op, state)
	}
	if err := fn(m.catalog); err != nil {
		m.logger.Warn("ticket selection change rejected",
			zap.String("op", op),
			zap.Int("button_id", buttonID),
			zap.Error(err),
		)
		m.mu.Unlock()
		return err
	}
	m.release()
	return nil
}

// Submit moves to Scanning until every ticket has a tag, or checks right
// away when all tags are already known.
func (m *TicketMachine) Submit(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.state != StateSelecting:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: submit in %s", ErrInvalidTransition, state)
	case m.busy:
		m.mu.Unlock()
		return ErrBusy
	case m.draft.RequiredCount() == 0:
		m.status = "no tickets selected"
		m.release()
		return ErrEmptyDraft
	}

	if m.draft.IsComplete() {
		m.check(ctx)
		return nil
	}
	if err := m.enableScan(m.onTagScanned); err != nil {
		m.status = fmt.Sprintf("cannot scan tags: %v", err)
		m.release()
		return err
	}
	m.state = StateScanning
	m.duplicate = false
	m.status = m.draft.ScanStatus(false).String()
	m.release()
	return nil
}

func (m *TicketMachine) onTagScanned(ctx context.Context, uid uint64) {
	m.mu.Lock()
	switch {
	case m.state != StateScanning:
		m.mu.Unlock()
		m.logger.Debug("ignoring tag scan", zap.Uint64("uid", uid))
		return
	case m.busy:
		m.status = "still validating the previous tag"
		m.release()
		return
	case m.draft.IsKnown(uid):
		m.duplicate = true
		m.status = m.draft.ScanStatus(true).String()
		m.release()
		return
	}
	id := m.draft.ID()
	m.busy = true
	m.status = fmt.Sprintf("validating tag %X", uid)
	m.release()

	tickets, err := m.backend.CheckTicketScan(ctx, []uint64{uid})

	m.mu.Lock()
	m.busy = false
	if m.draft.ID() != id || m.state != StateScanning {
		m.logger.Info("discarding ticket scan result", zap.String("draft_id", id), zap.Uint64("uid", uid))
		m.release()
		return
	}
	if err != nil {
		m.logger.Warn("ticket scan rejected", zap.Uint64("uid", uid), zap.Error(err))
		m.duplicate = false
		m.status = fmt.Sprintf("tag %X rejected: %s", uid, statusFromError(err))
		m.release()
		return
	}
	ticket, ok := tickets[uid]
	if !ok {
		m.duplicate = false
		m.status = fmt.Sprintf("no ticket available for tag %X", uid)
		m.release()
		return
	}
	if !m.draft.TryAdd(draft.ScannedTag{UID: uid, Ticket: ticket}) {
		m.duplicate = true
		m.status = m.draft.ScanStatus(true).String()
		m.release()
		return
	}
	m.duplicate = false
	if !m.draft.IsComplete() {
		m.status = m.draft.ScanStatus(false).String()
		m.release()
		return
	}
	m.disableScan()
	m.check(ctx)
}

// check must be called with mu held; it releases it.
func (m *TicketMachine) check(ctx context.Context) {
	req := m.draft.ToNewTicketSaleRequest("")
	id, revision, from := m.draft.ID(), m.draft.Revision(), m.state
	m.busy = true
	m.status = "checking tickets"
	m.release()

	checked, err := m.backend.CheckTicketSale(ctx, req)

	m.mu.Lock()
	m.busy = false
	if m.draft.ID() != id || m.state != from {
		m.logger.Info("discarding ticket check for abandoned draft", zap.String("draft_id", id))
		m.release()
		return
	}
	if err != nil {
		m.logger.Warn("ticket check failed", zap.String("draft_id", id), zap.Error(err))
		m.status = statusFromError(err)
		if errors.Is(err, domain.ErrInvalidInput) {
			m.state = StateSelecting
		} else {
			m.state = StateFailed
		}
		m.release()
		return
	}
	if err := m.draft.ApplyServerCheck(checked, revision); err != nil {
		m.logger.Info("discarding stale ticket check", zap.Uint64("revision", revision))
		m.state = StateSelecting
		m.status = "tickets changed during check, submit again"
		m.release()
		return
	}
	m.state = StateConfirming
	m.status = fmt.Sprintf("total %s", formatMoney(checked.TotalPrice, m.terminal.Currency))
	m.release()
}

// Back returns to Selecting from Scanning or Confirming. Scans are kept.
func (m *TicketMachine) Back() error {
	m.mu.Lock()
	switch m.state {
	case StateScanning:
		m.disableScan()
		m.duplicate = false
	case StateConfirming:
	default:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: back in %s", ErrInvalidTransition, state)
	}
	m.state = StateSelecting
	m.status = ""
	m.release()
	return nil
}

func (m *TicketMachine) Abort() error {
	m.mu.Lock()
	switch m.state {
	case StateSelecting, StateScanning, StateConfirming:
	default:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: abort in %s", ErrInvalidTransition, state)
	}
	m.disableScan()
	m.logger.Info("ticket sale aborted", zap.String("draft_id", m.draft.ID()))
	m.draft.Reset()
	m.duplicate = false
	m.state = StateSelecting
	m.status = "ticket sale aborted"
	m.release()
	return nil
}

func (m *TicketMachine) PayCash(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guardPayment(); err != nil {
		m.release()
		return err
	}
	req, err := m.draft.ToBookTicketSaleRequest(domain.PaymentCash)
	if err != nil {
		m.status = "tickets changed since check, submit again"
		m.release()
		return err
	}
	m.state = StatePaying
	m.busy = true
	m.status = "booking tickets"
	m.release()

	m.book(ctx, req)
	return nil
}

func (m *TicketMachine) PayCard(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guardPayment(); err != nil {
		m.release()
		return err
	}
	attemptID, err := m.draft.NextPaymentAttemptID()
	if err != nil || !m.draft.ReadyToBook() {
		m.status = "tickets changed since check, submit again"
		m.release()
		return draft.ErrNotChecked
	}
	if m.payments == nil {
		m.status = "card payments are not available"
		m.release()
		return ErrNotReady
	}
	amount := m.draft.Checked().TotalPrice
	m.state = StatePaying
	m.busy = true
	m.status = fmt.Sprintf("waiting for card payment of %s", formatMoney(amount, m.terminal.Currency))
	m.release()

	confirmation, err := m.payments.Pay(ctx, amount, attemptID, nil)

	m.mu.Lock()
	if err != nil {
		m.draft.RecordPaymentFailure()
		m.busy = false
		m.state = StateConfirming
		m.status = fmt.Sprintf("card payment failed: %s", statusFromError(err))
		m.logger.Warn("card payment failed", zap.String("attempt_id", attemptID), zap.Error(err))
		m.release()
		return nil
	}
	m.logger.Info("card payment confirmed",
		zap.String("attempt_id", attemptID),
		zap.String("reference", confirmation.Reference),
	)
	req, err := m.draft.ToBookTicketSaleRequest(domain.PaymentCard)
	if err != nil {
		m.busy = false
		m.state = StateFailed
		m.status = "card was charged but the tickets could not be booked"
		m.logger.Error("booking after card payment impossible", zap.String("attempt_id", attemptID), zap.Error(err))
		m.release()
		return nil
	}
	m.status = "booking tickets"
	m.release()

	m.book(ctx, req)
	return nil
}

func (m *TicketMachine) book(ctx context.Context, req domain.NewTicketSale) {
	completed, err := m.backend.BookTicketSale(ctx, req)

	m.mu.Lock()
	m.busy = false
	if err != nil {
		m.state = StateFailed
		m.status = statusFromError(err)
		m.logger.Error("ticket booking failed", zap.String("uuid", req.UUID), zap.Error(err))
		m.release()
		return
	}
	m.completed = &completed
	m.state = StateDone
	m.status = fmt.Sprintf("%d tickets booked", len(completed.Tickets))
	m.logger.Info("tickets booked",
		zap.Int("sale_id", completed.ID),
		zap.String("uuid", completed.UUID),
		zap.Int("tickets", len(completed.Tickets)),
		zap.String("total", completed.TotalPrice.String()),
	)
	m.release()
}

func (m *TicketMachine) Acknowledge() error {
	m.mu.Lock()
	if m.state != StateDone {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: acknowledge in %s", ErrInvalidTransition, state)
	}
	m.draft.Reset()
	m.completed = nil
	m.state = StateSelecting
	m.status = ""
	m.release()
	return nil
}

// Dismiss leaves the error page. The selection is kept but every tag has to
// be scanned again.
func (m *TicketMachine) Dismiss() error {
	m.mu.Lock()
	if m.state != StateFailed {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: dismiss in %s", ErrInvalidTransition, state)
	}
	m.draft.ClearScans()
	m.duplicate = false
	m.state = StateSelecting
	m.status = ""
	m.release()
	return nil
}
