package draft

import (
	"eventpos/internal/domain"
)

// TicketDraft is an in-progress ticket sale. Every ticket unit in the
// selection must be matched by one distinct scanned tag before checkout.
type TicketDraft struct {
	header
	selection SelectionSet
	tracker   Tracker
	checked   *domain.CheckedTicketSale
}

func NewTicketDraft(opts ...Option) *TicketDraft {
	o := buildOptions(opts)
	return &TicketDraft{header: newHeader(o)}
}

func (d *TicketDraft) Selection() SelectionSet {
	return d.selection
}

func (d *TicketDraft) Scans() []ScannedTag {
	return d.tracker.Tags()
}

func (d *TicketDraft) Checked() *domain.CheckedTicketSale {
	return d.checked
}

func (d *TicketDraft) Increment(buttonID int, catalog Catalog) error {
	next, err := d.selection.Increment(buttonID, catalog)
	if err != nil {
		return err
	}
	d.selection = next
	d.touch()
	return nil
}

// Decrement drops every recorded scan once fewer tickets are wanted than
// tags were scanned, which forces a full re-scan.
func (d *TicketDraft) Decrement(buttonID int, catalog Catalog) error {
	next, err := d.selection.Decrement(buttonID, catalog)
	if err != nil {
		return err
	}
	d.selection = next
	if d.tracker.ScannedCount() > d.RequiredCount() {
		d.tracker = Tracker{}
	}
	d.touch()
	return nil
}

func (d *TicketDraft) IsKnown(uid uint64) bool {
	return d.tracker.IsKnown(uid)
}

// TryAdd records a scan. It returns false, leaving the draft unchanged, for
// a tag that was already scanned.
func (d *TicketDraft) TryAdd(tag ScannedTag) bool {
	next, ok := d.tracker.TryAdd(tag)
	if !ok {
		return false
	}
	d.tracker = next
	d.touch()
	return true
}

func (d *TicketDraft) ClearScans() {
	if d.tracker.ScannedCount() == 0 {
		return
	}
	d.tracker = Tracker{}
	d.touch()
}

func (d *TicketDraft) RequiredCount() int {
	return d.selection.TrackableUnits()
}

func (d *TicketDraft) ScannedCount() int {
	return d.tracker.ScannedCount()
}

func (d *TicketDraft) IsComplete() bool {
	return d.tracker.ScannedCount() == d.RequiredCount()
}

// ScanStatus derives the indicator; duplicate is the one-shot signal raised
// by the last rejected scan.
func (d *TicketDraft) ScanStatus(duplicate bool) ScanStatus {
	return scanStatus(d.ScannedCount(), d.RequiredCount(), duplicate)
}

// ApplyServerCheck stores the result without touching the scan list.
func (d *TicketDraft) ApplyServerCheck(result domain.CheckedTicketSale, revision uint64) error {
	if revision != d.revision {
		return ErrStaleCheck
	}
	d.checked = &result
	d.markChecked()
	return nil
}

func (d *TicketDraft) ReadyToBook() bool {
	return d.checkCurrent(d.checked != nil) && d.IsComplete()
}

func (d *TicketDraft) ToNewTicketSaleRequest(method domain.PaymentMethod) domain.NewTicketSale {
	return domain.NewTicketSale{
		UUID:            d.requestUUID(d.checkedUUID()),
		Buttons:         d.selection.lineItems(),
		CustomerTagUIDs: d.tracker.UIDs(),
		PaymentMethod:   method,
	}
}

func (d *TicketDraft) ToBookTicketSaleRequest(method domain.PaymentMethod) (domain.NewTicketSale, error) {
	if !d.IsComplete() {
		return domain.NewTicketSale{}, ErrIncomplete
	}
	if !d.ReadyToBook() {
		return domain.NewTicketSale{}, ErrNotChecked
	}
	return d.ToNewTicketSaleRequest(method), nil
}

func (d *TicketDraft) NextPaymentAttemptID() (string, error) {
	return d.paymentAttemptID(d.checkedUUID())
}

func (d *TicketDraft) Reset() {
	*d = TicketDraft{header: newHeader(d.opts)}
}

func (d *TicketDraft) checkedUUID() string {
	if d.checked == nil {
		return ""
	}
	return d.checked.UUID
}
