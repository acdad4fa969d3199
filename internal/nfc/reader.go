package nfc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var ErrBusy = errors.New("tag reader is in use")

// Reader is the terminal's single tag reader. At most one owner holds it at a
// time; scans arriving while nobody holds it are dropped.
type Reader struct {
	mu     sync.Mutex
	owner  string
	sink   func(ctx context.Context, uid uint64)
	logger *zap.Logger
}

func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger.Named("nfc")}
}

// Enable hands the reader to owner. Enabling again for the current owner
// replaces its sink.
func (r *Reader) Enable(owner string, sink func(ctx context.Context, uid uint64)) error {
	if sink == nil {
		return errors.New("tag sink is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owner != "" && r.owner != owner {
		return fmt.Errorf("%w: held by %s", ErrBusy, r.owner)
	}
	r.owner = owner
	r.sink = sink
	r.logger.Debug("tag reader enabled", zap.String("owner", owner))
	return nil
}

func (r *Reader) Disable(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owner != owner {
		return
	}
	r.owner = ""
	r.sink = nil
	r.logger.Debug("tag reader disabled", zap.String("owner", owner))
}

func (r *Reader) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink != nil
}

func (r *Reader) Owner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

// Inject delivers a scanned uid to the current owner and reports whether
// anyone received it. The sink runs on the caller's goroutine without the
// reader lock, so it may disable the reader.
func (r *Reader) Inject(ctx context.Context, uid uint64) bool {
	r.mu.Lock()
	sink, owner := r.sink, r.owner
	r.mu.Unlock()

	if sink == nil {
		r.logger.Debug("tag scan ignored, reader disabled", zap.Uint64("uid", uid))
		return false
	}
	r.logger.Debug("tag scanned", zap.Uint64("uid", uid), zap.String("owner", owner))
	sink(ctx, uid)
	return true
}
