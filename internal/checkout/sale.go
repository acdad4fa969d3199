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

type SaleView struct {
	State       State                 `json:"state"`
	Status      string                `json:"status"`
	Busy        bool                  `json:"busy"`
	Ready       bool                  `json:"ready"`
	ScanEnabled bool                  `json:"scan_enabled"`
	Selection   []draft.Entry         `json:"selection"`
	Estimate    decimal.Decimal       `json:"estimate"`
	Vouchers    int                   `json:"vouchers"`
	Tag         *domain.CustomerTag   `json:"tag,omitempty"`
	Checked     *domain.CheckedSale   `json:"checked,omitempty"`
	Completed   *domain.CompletedSale `json:"completed,omitempty"`
	Revision    uint64                `json:"revision"`
}

// SaleMachine drives a product sale paid from a customer tag, in cash or by
// card: Selecting -> Confirming -> Paying -> Done | Failed.
type SaleMachine struct {
	base
	backend      SaleBackend
	draft        *draft.SaleDraft
	pendingCheck bool
	completed    *domain.CompletedSale
	listeners    []func(SaleView)
}

func NewSaleMachine(backend SaleBackend, configs ConfigSource, payments PaymentProvider, scanner Scanner, logger *zap.Logger) *SaleMachine {
	return &SaleMachine{
		base:    newBase("sale", configs, payments, scanner, logger),
		backend: backend,
		draft:   draft.NewSaleDraft(),
	}
}

// Subscribe registers fn to receive a view after every state change.
func (m *SaleMachine) Subscribe(fn func(SaleView)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *SaleMachine) View() SaleView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *SaleMachine) Buttons() []domain.Button {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Button(nil), m.terminal.Buttons...)
}

func (m *SaleMachine) viewLocked() SaleView {
	return SaleView{
		State:       m.state,
		Status:      m.status,
		Busy:        m.busy,
		Ready:       m.terminal.Ready,
		ScanEnabled: m.scanEnabled,
		Selection:   m.draft.Selection().Entries(),
		Estimate:    m.draft.Selection().Total(m.catalog),
		Vouchers:    m.draft.Vouchers(),
		Tag:         m.draft.Tag(),
		Checked:     m.draft.Checked(),
		Completed:   m.completed,
		Revision:    m.draft.Revision(),
	}
}

// release unlocks mu and notifies listeners with the state it left behind.
func (m *SaleMachine) release() {
	view := m.viewLocked()
	listeners := append(([]func(SaleView))(nil), m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(view)
	}
}

func (m *SaleMachine) Refresh(ctx context.Context) error {
	cfg, err := m.loadConfig(ctx)

	m.mu.Lock()
	if err != nil {
		m.status = fmt.Sprintf("loading terminal config failed: %s", statusFromError(err))
		m.logger.Warn("terminal config refresh failed", zap.Error(err))
		m.release()
		return err
	}
	m.terminal = cfg
	m.catalog = domain.NewCatalog(cfg.Buttons)
	m.logger.Info("terminal config loaded",
		zap.String("terminal", cfg.Name),
		zap.Bool("ready", cfg.Ready),
		zap.Int("buttons", len(cfg.Buttons)),
	)
	m.release()
	return nil
}

func (m *SaleMachine) Increment(buttonID int) error {
	return m.edit("increment", buttonID, func(catalog draft.Catalog) error {
		return m.draft.Increment(buttonID, catalog)
	})
}

func (m *SaleMachine) Decrement(buttonID int) error {
	return m.edit("decrement", buttonID, func(catalog draft.Catalog) error {
		return m.draft.Decrement(buttonID, catalog)
	})
}

func (m *SaleMachine) AdjustPrice(buttonID int, price draft.PriceInput) error {
	return m.edit("adjust_price", buttonID, func(catalog draft.Catalog) error {
		return m.draft.AdjustPrice(buttonID, price, catalog)
	})
}

func (m *SaleMachine) edit(op string, buttonID int, fn func(draft.Catalog) error) error {
	m.mu.Lock()
	if m.state != StateSelecting {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, op, state)
	}
	if err := fn(m.catalog); err != nil {
		m.logger.Warn("selection change rejected",
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

// Submit checks the draft with the backend. Without a payer tag it first
// enables the tag reader and resumes once a tag is scanned.
func (m *SaleMachine) Submit(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.state != StateSelecting:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: submit in %s", ErrInvalidTransition, state)
	case m.busy || m.pendingCheck:
		m.mu.Unlock()
		return ErrBusy
	case m.draft.Selection().Len() == 0:
		m.status = "nothing selected"
		m.release()
		return ErrEmptyDraft
	}

	if m.draft.Tag() == nil {
		if err := m.enableScan(m.onTagScanned); err != nil {
			m.status = fmt.Sprintf("cannot scan tag: %v", err)
			m.release()
			return err
		}
		m.pendingCheck = true
		m.status = "scan customer tag"
		m.release()
		return nil
	}
	m.check(ctx)
	return nil
}

func (m *SaleMachine) onTagScanned(ctx context.Context, uid uint64) {
	m.mu.Lock()
	if !m.pendingCheck || m.state != StateSelecting {
		m.mu.Unlock()
		m.logger.Debug("ignoring tag scan", zap.Uint64("uid", uid))
		return
	}
	m.pendingCheck = false
	m.disableScan()
	m.draft.SetTag(domain.CustomerTag{UID: uid})
	m.logger.Info("customer tag scanned", zap.Uint64("uid", uid))
	m.check(ctx)
}

// check must be called with mu held; it releases it.
func (m *SaleMachine) check(ctx context.Context) {
	req := m.draft.ToNewSaleRequest()
	id, revision, from := m.draft.ID(), m.draft.Revision(), m.state
	m.busy = true
	m.status = "checking sale"
	m.release()

	checked, err := m.backend.CheckSale(ctx, req)

	m.mu.Lock()
	m.busy = false
	if m.draft.ID() != id || m.state != from {
		m.logger.Info("discarding check result for abandoned draft", zap.String("draft_id", id))
		m.release()
		return
	}
	if err != nil {
		m.logger.Warn("sale check failed", zap.String("draft_id", id), zap.Error(err))
		m.status = statusFromError(err)
		if !errors.Is(err, domain.ErrInvalidInput) {
			m.state = StateFailed
		}
		m.release()
		return
	}
	if err := m.draft.ApplyServerCheck(checked, revision); err != nil {
		m.logger.Info("discarding stale check result",
			zap.Uint64("revision", revision),
			zap.Uint64("current", m.draft.Revision()),
		)
		m.status = "sale changed during check, submit again"
		m.release()
		return
	}
	m.state = StateConfirming
	m.status = fmt.Sprintf("total %s", formatMoney(checked.TotalPrice, m.terminal.Currency))
	m.release()
}

func (m *SaleMachine) IncrementVouchers(ctx context.Context) error {
	return m.adjustVouchers(ctx, m.draft.IncrementVoucherCount)
}

func (m *SaleMachine) DecrementVouchers(ctx context.Context) error {
	return m.adjustVouchers(ctx, m.draft.DecrementVoucherCount)
}

// adjustVouchers changes the voucher count on the confirm page and re-checks.
func (m *SaleMachine) adjustVouchers(ctx context.Context, fn func() bool) error {
	m.mu.Lock()
	switch {
	case m.state != StateConfirming:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: vouchers in %s", ErrInvalidTransition, state)
	case m.busy:
		m.mu.Unlock()
		return ErrBusy
	case !m.terminal.AllowVouchers:
		m.status = "vouchers are not accepted at this terminal"
		m.release()
		return ErrVouchersDisabled
	}
	if !fn() {
		m.mu.Unlock()
		return nil
	}
	m.check(ctx)
	return nil
}

// Back leaves the confirm page, or cancels a pending tag scan, without
// touching the draft.
func (m *SaleMachine) Back() error {
	m.mu.Lock()
	switch {
	case m.state == StateConfirming:
		m.state = StateSelecting
		m.status = ""
	case m.state == StateSelecting && m.pendingCheck:
		m.pendingCheck = false
		m.disableScan()
		m.status = "tag scan cancelled"
	default:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: back in %s", ErrInvalidTransition, state)
	}
	m.release()
	return nil
}

// Abort discards the draft. A call still in flight for it is ignored when it
// returns.
func (m *SaleMachine) Abort() error {
	m.mu.Lock()
	if m.state != StateSelecting && m.state != StateConfirming {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: abort in %s", ErrInvalidTransition, state)
	}
	m.pendingCheck = false
	m.disableScan()
	m.logger.Info("sale aborted", zap.String("draft_id", m.draft.ID()))
	m.draft.Reset()
	m.state = StateSelecting
	m.status = "sale aborted"
	m.release()
	return nil
}

func (m *SaleMachine) PayCash(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guardPayment(); err != nil {
		m.release()
		return err
	}
	req, err := m.draft.ToBookSaleRequest(domain.PaymentCash)
	if err != nil {
		m.status = "sale changed since check, submit again"
		m.release()
		return err
	}
	m.state = StatePaying
	m.busy = true
	m.status = "booking sale"
	m.release()

	m.book(ctx, req)
	return nil
}

// PayCard charges the checked total through the payment provider and books
// the sale on success. A failed payment keeps the confirm page and advances
// the attempt id.
func (m *SaleMachine) PayCard(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guardPayment(); err != nil {
		m.release()
		return err
	}
	attemptID, err := m.draft.NextPaymentAttemptID()
	if err != nil || !m.draft.ReadyToBook() {
		m.status = "sale changed since check, submit again"
		m.release()
		return draft.ErrNotChecked
	}
	if m.payments == nil {
		m.status = "card payments are not available"
		m.release()
		return ErrNotReady
	}
	amount := m.draft.Checked().TotalPrice
	tag := m.draft.Tag()
	m.state = StatePaying
	m.busy = true
	m.status = fmt.Sprintf("waiting for card payment of %s", formatMoney(amount, m.terminal.Currency))
	m.release()

	confirmation, err := m.payments.Pay(ctx, amount, attemptID, tag)

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
	req, err := m.draft.ToBookSaleRequest(domain.PaymentCard)
	if err != nil {
		m.busy = false
		m.state = StateFailed
		m.status = "card was charged but the sale could not be booked"
		m.logger.Error("booking after card payment impossible", zap.String("attempt_id", attemptID), zap.Error(err))
		m.release()
		return nil
	}
	m.status = "booking sale"
	m.release()

	m.book(ctx, req)
	return nil
}

func (m *SaleMachine) book(ctx context.Context, req domain.NewSale) {
	completed, err := m.backend.BookSale(ctx, req)

	m.mu.Lock()
	m.busy = false
	if err != nil {
		m.state = StateFailed
		m.status = statusFromError(err)
		m.logger.Error("sale booking failed", zap.String("uuid", req.UUID), zap.Error(err))
		m.release()
		return
	}
	m.completed = &completed
	m.state = StateDone
	m.status = fmt.Sprintf("sale booked, new balance %s", formatMoney(completed.NewBalance, m.terminal.Currency))
	m.logger.Info("sale booked",
		zap.Int("sale_id", completed.ID),
		zap.String("uuid", completed.UUID),
		zap.String("payment_method", string(completed.PaymentMethod)),
		zap.String("total", completed.TotalPrice.String()),
	)
	m.release()
}

// Acknowledge closes the success page and starts a new draft.
func (m *SaleMachine) Acknowledge() error {
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

// Dismiss closes the error page. The payer tag is dropped so the next
// submit asks for a fresh scan; the selection is kept.
func (m *SaleMachine) Dismiss() error {
	m.mu.Lock()
	if m.state != StateFailed {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: dismiss in %s", ErrInvalidTransition, state)
	}
	m.draft.ClearTag()
	m.state = StateSelecting
	m.status = ""
	m.release()
	return nil
}
