package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"eventpos/internal/domain"
	"eventpos/internal/draft"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketScanningFlow(t *testing.T) {
	f := newFixture()
	m := f.ticket(t)
	ctx := context.Background()

	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Submit(ctx))

	view := m.View()
	assert.Equal(t, StateScanning, view.State)
	assert.Equal(t, draft.ScanStatus{Kind: draft.Scanning, Step: 1, Wanted: 2}, view.ScanStatus)
	assert.True(t, f.scanner.enabled())

	f.scanner.scan(t, 0xA1)
	view = m.View()
	assert.Equal(t, StateScanning, view.State)
	assert.Equal(t, draft.ScanStatus{Kind: draft.ScanningNext, Step: 2, Wanted: 2}, view.ScanStatus)

	f.scanner.scan(t, 0xA1)
	view = m.View()
	assert.Equal(t, draft.ScanStatus{Kind: draft.Duplicate, Step: 2, Wanted: 2}, view.ScanStatus)
	assert.Len(t, view.Scans, 1)

	f.scanner.scan(t, 0xB2)
	view = m.View()
	assert.Equal(t, StateConfirming, view.State)
	assert.Equal(t, draft.ScanStatus{Kind: draft.NoScan}, view.ScanStatus)
	assert.False(t, f.scanner.enabled())
	require.Len(t, f.backend.ticketChecked, 1)
	assert.Equal(t, []uint64{0xA1, 0xB2}, f.backend.ticketChecked[0].CustomerTagUIDs)

	require.NoError(t, m.PayCash(ctx))
	view = m.View()
	assert.Equal(t, StateDone, view.State)
	require.Len(t, f.backend.ticketBooked, 1)
	booked := f.backend.ticketBooked[0]
	assert.Equal(t, domain.PaymentCash, booked.PaymentMethod)
	assert.Equal(t, "t1", booked.UUID)
	assert.Equal(t, []uint64{0xA1, 0xB2}, booked.CustomerTagUIDs)

	require.NoError(t, m.Acknowledge())
	view = m.View()
	assert.Equal(t, StateSelecting, view.State)
	assert.Empty(t, view.Scans)
	assert.Zero(t, view.Required)
}

func TestTicketRejectedScanKeepsScanning(t *testing.T) {
	f := newFixture()
	f.backend.checkTicketScan = func(uids []uint64) (map[uint64]domain.TicketInfo, error) {
		if uids[0] == 0xBAD {
			return nil, fmt.Errorf("%w: tag already has a ticket", domain.ErrInvalidInput)
		}
		return map[uint64]domain.TicketInfo{}, nil
	}
	m := f.ticket(t)
	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Submit(context.Background()))

	f.scanner.scan(t, 0xBAD)
	view := m.View()
	assert.Equal(t, StateScanning, view.State)
	assert.Contains(t, view.Status, "tag already has a ticket")
	assert.Empty(t, view.Scans)

	f.scanner.scan(t, 0xC3)
	view = m.View()
	assert.Equal(t, StateScanning, view.State)
	assert.Contains(t, view.Status, "no ticket available")
	assert.Empty(t, view.Scans)
	assert.True(t, f.scanner.enabled())
}

func TestTicketRejectedScanClearsDuplicateMark(t *testing.T) {
	tests := []struct {
		name   string
		lookup func(uid uint64) (map[uint64]domain.TicketInfo, error)
		status string
	}{
		{
			name: "backend rejects the tag",
			lookup: func(uint64) (map[uint64]domain.TicketInfo, error) {
				return nil, fmt.Errorf("%w: tag blocked", domain.ErrInvalidInput)
			},
			status: "tag blocked",
		},
		{
			name: "no ticket for the tag",
			lookup: func(uint64) (map[uint64]domain.TicketInfo, error) {
				return map[uint64]domain.TicketInfo{}, nil
			},
			status: "no ticket available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.backend.checkTicketScan = func(uids []uint64) (map[uint64]domain.TicketInfo, error) {
				if uids[0] == 0xBAD {
					return tt.lookup(uids[0])
				}
				return map[uint64]domain.TicketInfo{uids[0]: {ID: 8, Name: "Weekend ticket"}}, nil
			}
			m := f.ticket(t)
			require.NoError(t, m.Increment(8))
			require.NoError(t, m.Increment(8))
			require.NoError(t, m.Submit(context.Background()))

			f.scanner.scan(t, 0xA1)
			f.scanner.scan(t, 0xA1)
			require.Equal(t, draft.Duplicate, m.View().ScanStatus.Kind)

			f.scanner.scan(t, 0xBAD)
			view := m.View()
			assert.Equal(t, StateScanning, view.State)
			assert.Equal(t, draft.ScanStatus{Kind: draft.ScanningNext, Step: 2, Wanted: 2}, view.ScanStatus)
			assert.Contains(t, view.Status, tt.status)
			assert.Len(t, view.Scans, 1)
		})
	}
}

func TestTicketBackKeepsScansAndDecrementClearsThem(t *testing.T) {
	f := newFixture()
	m := f.ticket(t)
	ctx := context.Background()

	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Submit(ctx))
	f.scanner.scan(t, 0xA1)

	require.NoError(t, m.Back())
	view := m.View()
	assert.Equal(t, StateSelecting, view.State)
	assert.Len(t, view.Scans, 1)
	assert.False(t, f.scanner.enabled())

	require.NoError(t, m.Decrement(8))
	assert.Len(t, m.View().Scans, 1, "one ticket still matches one scan")

	require.NoError(t, m.Decrement(8))
	assert.Empty(t, m.View().Scans)
}

func TestTicketSubmitChecksWhenAlreadyComplete(t *testing.T) {
	f := newFixture()
	m := f.ticket(t)
	ctx := context.Background()

	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Submit(ctx))
	f.scanner.scan(t, 0xA1)
	require.Equal(t, StateConfirming, m.View().State)

	require.NoError(t, m.Back())
	require.NoError(t, m.Submit(ctx))
	assert.Equal(t, StateConfirming, m.View().State)
	assert.Len(t, f.backend.ticketChecked, 2)
	assert.Equal(t, "t1", f.backend.ticketChecked[1].UUID)
}

func TestTicketCheckErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		state State
	}{
		{"input problem returns to selection", fmt.Errorf("%w: sold out", domain.ErrInvalidInput), StateSelecting},
		{"service failure goes to error page", errors.New("backend unavailable"), StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.backend.checkTicketSale = func(domain.NewTicketSale) (domain.CheckedTicketSale, error) {
				return domain.CheckedTicketSale{}, tt.err
			}
			m := f.ticket(t)
			require.NoError(t, m.Increment(8))
			require.NoError(t, m.Submit(context.Background()))
			f.scanner.scan(t, 0xA1)

			view := m.View()
			assert.Equal(t, tt.state, view.State)
			assert.Equal(t, tt.err.Error(), view.Status)
			assert.Len(t, view.Scans, 1)
		})
	}
}

func TestTicketDismissRequiresRescan(t *testing.T) {
	f := newFixture()
	f.backend.bookTicketSale = func(domain.NewTicketSale) (domain.CompletedTicketSale, error) {
		return domain.CompletedTicketSale{}, errors.New("booking rejected")
	}
	m := f.ticket(t)
	ctx := context.Background()

	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Submit(ctx))
	f.scanner.scan(t, 0xA1)
	require.NoError(t, m.PayCash(ctx))
	view := m.View()
	require.Equal(t, StateFailed, view.State)
	assert.Len(t, view.Scans, 1)

	require.NoError(t, m.Dismiss())
	view = m.View()
	assert.Equal(t, StateSelecting, view.State)
	assert.Empty(t, view.Scans)
	assert.Len(t, view.Selection, 1)
	assert.Equal(t, 1, view.Required)

	require.NoError(t, m.Submit(ctx))
	assert.Equal(t, StateScanning, m.View().State)
	assert.True(t, f.scanner.enabled())
}

func TestTicketCardPaymentPassesNoTag(t *testing.T) {
	f := newFixture()
	f.payments.results = []error{errors.New("terminal timeout")}
	m := f.ticket(t)
	ctx := context.Background()

	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Submit(ctx))
	f.scanner.scan(t, 0xA1)

	require.NoError(t, m.PayCard(ctx))
	assert.Equal(t, StateConfirming, m.View().State)
	require.NoError(t, m.PayCard(ctx))
	assert.Equal(t, StateDone, m.View().State)
	assert.Equal(t, []string{"t1_0", "t1_1"}, f.payments.attempts)
	require.Len(t, f.backend.ticketBooked, 1)
	assert.Equal(t, domain.PaymentCard, f.backend.ticketBooked[0].PaymentMethod)
}

func TestTicketAbortFromScanning(t *testing.T) {
	f := newFixture()
	m := f.ticket(t)

	require.NoError(t, m.Increment(8))
	require.NoError(t, m.Submit(context.Background()))
	f.scanner.scan(t, 0xA1)
	require.NoError(t, m.Abort())

	view := m.View()
	assert.Equal(t, StateSelecting, view.State)
	assert.Empty(t, view.Selection)
	assert.Empty(t, view.Scans)
	assert.False(t, f.scanner.enabled())
}

func TestTicketSubmitWithoutTickets(t *testing.T) {
	f := newFixture()
	m := f.ticket(t)
	assert.ErrorIs(t, m.Submit(context.Background()), ErrEmptyDraft)
	assert.ErrorIs(t, m.Back(), ErrInvalidTransition)
}
