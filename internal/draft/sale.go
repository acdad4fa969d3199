package draft

import (
	"eventpos/internal/domain"
)

// SaleDraft is the in-progress sale of products to a tag-paying customer.
type SaleDraft struct {
	header
	selection SelectionSet
	vouchers  Voucher
	tag       *domain.CustomerTag
	checked   *domain.CheckedSale
}

func NewSaleDraft(opts ...Option) *SaleDraft {
	o := buildOptions(opts)
	return &SaleDraft{header: newHeader(o)}
}

func (d *SaleDraft) Selection() SelectionSet {
	return d.selection
}

func (d *SaleDraft) Vouchers() int {
	return d.vouchers.Count
}

func (d *SaleDraft) Tag() *domain.CustomerTag {
	if d.tag == nil {
		return nil
	}
	tag := *d.tag
	return &tag
}

func (d *SaleDraft) Checked() *domain.CheckedSale {
	return d.checked
}

func (d *SaleDraft) Increment(buttonID int, catalog Catalog) error {
	return d.mutate(d.selection.Increment(buttonID, catalog))
}

func (d *SaleDraft) Decrement(buttonID int, catalog Catalog) error {
	return d.mutate(d.selection.Decrement(buttonID, catalog))
}

func (d *SaleDraft) AdjustPrice(buttonID int, price PriceInput, catalog Catalog) error {
	return d.mutate(d.selection.AdjustPrice(buttonID, price, catalog))
}

func (d *SaleDraft) mutate(next SelectionSet, err error) error {
	if err != nil {
		return err
	}
	d.selection = next
	d.touch()
	return nil
}

func (d *SaleDraft) SetTag(tag domain.CustomerTag) {
	d.tag = &tag
	d.touch()
}

func (d *SaleDraft) ClearTag() {
	if d.tag == nil {
		return
	}
	d.tag = nil
	d.touch()
}

// IncrementVoucherCount reports whether the count changed. Without a check
// result the available balance is unknown and nothing happens.
func (d *SaleDraft) IncrementVoucherCount() bool {
	if d.checked == nil || d.vouchers.Count >= d.checked.OldVoucherBalance {
		return false
	}
	d.vouchers = Voucher{Count: d.vouchers.Count + 1}
	d.touch()
	return true
}

func (d *SaleDraft) DecrementVoucherCount() bool {
	if d.checked == nil || d.vouchers.Count <= 0 {
		return false
	}
	d.vouchers = Voucher{Count: d.vouchers.Count - 1}
	d.touch()
	return true
}

// ApplyServerCheck replaces the local selection with the server's
// authoritative one. revision is the draft revision the request was built at;
// a result for an older revision is rejected with ErrStaleCheck.
func (d *SaleDraft) ApplyServerCheck(result domain.CheckedSale, revision uint64) error {
	if revision != d.revision {
		return ErrStaleCheck
	}
	d.checked = &result
	d.selection = fromCheckedLines(result.Lines)
	d.vouchers = Voucher{Count: result.UsedVouchers}
	d.markChecked()
	return nil
}

// ReadyToBook reports whether the last check still describes the draft.
func (d *SaleDraft) ReadyToBook() bool {
	return d.checkCurrent(d.checked != nil)
}

func (d *SaleDraft) ToNewSaleRequest() domain.NewSale {
	sale := d.selection.ToRequestPayload(d.tag)
	sale.UUID = d.requestUUID(d.checkedUUID())
	if d.checked != nil {
		vouchers := d.vouchers.Count
		sale.UsedVouchers = &vouchers
	}
	return sale
}

func (d *SaleDraft) ToBookSaleRequest(method domain.PaymentMethod) (domain.NewSale, error) {
	if !d.ReadyToBook() {
		return domain.NewSale{}, ErrNotChecked
	}
	sale := d.ToNewSaleRequest()
	sale.PaymentMethod = method
	return sale, nil
}

func (d *SaleDraft) NextPaymentAttemptID() (string, error) {
	return d.paymentAttemptID(d.checkedUUID())
}

func (d *SaleDraft) Reset() {
	*d = SaleDraft{header: newHeader(d.opts)}
}

func (d *SaleDraft) checkedUUID() string {
	if d.checked == nil {
		return ""
	}
	return d.checked.UUID
}
