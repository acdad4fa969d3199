package draft

import (
	"fmt"

	"github.com/google/uuid"
)

type Option func(*options)

type options struct {
	newUUID func() string
}

// WithUUIDSource replaces the random uuid generator.
func WithUUIDSource(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newUUID = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{newUUID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// header holds what both draft variants share: identity, revision,
// the revision the last check was applied at, and the payment retry counter.
type header struct {
	opts            options
	id              string
	revision        uint64
	checkedRevision uint64
	retries         int
}

func newHeader(opts options) header {
	return header{opts: opts, id: opts.newUUID()}
}

func (h *header) ID() string {
	return h.id
}

func (h *header) Revision() uint64 {
	return h.revision
}

func (h *header) touch() {
	h.revision++
}

func (h *header) markChecked() {
	h.touch()
	h.checkedRevision = h.revision
}

func (h *header) checkCurrent(hasCheck bool) bool {
	return hasCheck && h.checkedRevision == h.revision
}

// requestUUID reuses the uuid of the last check so the backend can treat
// repeated checks of one draft idempotently.
func (h *header) requestUUID(checkedUUID string) string {
	if checkedUUID != "" {
		return checkedUUID
	}
	return h.opts.newUUID()
}

func (h *header) paymentAttemptID(checkedUUID string) (string, error) {
	if checkedUUID == "" {
		return "", ErrNotChecked
	}
	return fmt.Sprintf("%s_%d", checkedUUID, h.retries), nil
}

// RecordPaymentFailure must be called after a failed electronic payment and
// before the next attempt, so the processor never sees an id twice.
func (h *header) RecordPaymentFailure() {
	h.retries++
}

func (h *header) Retries() int {
	return h.retries
}
