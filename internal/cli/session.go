package cli

import (
	"context"
	"fmt"
	"io"

	"eventpos/internal/checkout"
	"eventpos/internal/domain"
	"eventpos/internal/draft"
	"eventpos/internal/nfc"

	"go.uber.org/zap"
)

// flow is the part of the checkout API both machines share.
type flow interface {
	Refresh(ctx context.Context) error
	Buttons() []domain.Button
	Increment(buttonID int) error
	Decrement(buttonID int) error
	Submit(ctx context.Context) error
	PayCash(ctx context.Context) error
	PayCard(ctx context.Context) error
	Back() error
	Abort() error
	Acknowledge() error
	Dismiss() error
}

// session is one cashier at the terminal, switching between the sale and
// the ticket flow.
type session struct {
	sale   *checkout.SaleMachine
	ticket *checkout.TicketMachine
	reader *nfc.Reader
	out    io.Writer
	opts   Options
	logger *zap.Logger
	active string
}

func newSession(sale *checkout.SaleMachine, ticket *checkout.TicketMachine, reader *nfc.Reader, out io.Writer, opts Options, logger *zap.Logger) *session {
	active := opts.Flow
	if active != flowTicket {
		active = flowSale
	}
	s := &session{
		sale:   sale,
		ticket: ticket,
		reader: reader,
		out:    out,
		opts:   opts,
		logger: logger,
		active: active,
	}

	lastSale := checkout.StateSelecting
	sale.Subscribe(func(v checkout.SaleView) {
		if v.State != lastSale {
			logger.Info("sale state changed", zap.Stringer("from", lastSale), zap.Stringer("to", v.State), zap.String("status", v.Status))
			lastSale = v.State
		}
	})
	lastTicket := checkout.StateSelecting
	ticket.Subscribe(func(v checkout.TicketView) {
		if v.State != lastTicket {
			logger.Info("ticket state changed", zap.Stringer("from", lastTicket), zap.Stringer("to", v.State), zap.String("status", v.Status))
			lastTicket = v.State
		}
	})
	return s
}

func (s *session) current() flow {
	if s.active == flowTicket {
		return s.ticket
	}
	return s.sale
}

// handle runs one command and prints the resulting view. It reports false
// once the cashier asked to leave.
func (s *session) handle(ctx context.Context, line string) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		fmt.Fprintln(s.out, friendlyError(err))
		return true
	}
	switch cmd.Name {
	case "":
		return true
	case "exit":
		return false
	case "help":
		writeHelp(s.out)
		return true
	}

	err = trackCommand(s.logger, s.active, cmd.Name, func() error {
		return s.dispatch(ctx, cmd)
	})
	if err != nil {
		fmt.Fprintln(s.out, friendlyError(err))
	}
	if cmd.Name != "buttons" {
		if err := s.show(); err != nil {
			s.logger.Warn("writing view failed", zap.Error(err))
		}
	}
	return true
}

func (s *session) dispatch(ctx context.Context, cmd command) error {
	f := s.current()
	switch cmd.Name {
	case "sale", "ticket":
		return s.switchFlow(cmd.Name)
	case "+":
		return f.Increment(cmd.ButtonID)
	case "-":
		return f.Decrement(cmd.ButtonID)
	case "price", "unset":
		if s.active != flowSale {
			return fmt.Errorf("%w: prices are set in the sale flow", checkout.ErrInvalidTransition)
		}
		price := draft.Unset()
		if cmd.Name == "price" {
			price = draft.Set(cmd.Cents)
		}
		return s.sale.AdjustPrice(cmd.ButtonID, price)
	case "voucher":
		if s.active != flowSale {
			return fmt.Errorf("%w: vouchers are used in the sale flow", checkout.ErrInvalidTransition)
		}
		if cmd.Delta > 0 {
			return s.sale.IncrementVouchers(ctx)
		}
		return s.sale.DecrementVouchers(ctx)
	case "tag":
		if !s.reader.Inject(ctx, cmd.UID) {
			fmt.Fprintf(s.out, "Tag %s ignored: the reader is off.\n", formatUID(cmd.UID))
		}
		return nil
	case "submit":
		return f.Submit(ctx)
	case "cash":
		return f.PayCash(ctx)
	case "card":
		return f.PayCard(ctx)
	case "back":
		return f.Back()
	case "abort":
		return f.Abort()
	case "ok":
		return f.Acknowledge()
	case "dismiss":
		return f.Dismiss()
	case "refresh":
		return f.Refresh(ctx)
	case "buttons":
		return writeButtons(s.out, f.Buttons(), s.opts.JSON)
	case "show":
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd.Name)
	}
}

// switchFlow changes the active flow. The reader is exclusive, so a flow
// still waiting for scans keeps the other one out until it is backed out of.
func (s *session) switchFlow(name string) error {
	if name == s.active {
		return nil
	}
	if owner := s.reader.Owner(); owner != "" && owner == s.active {
		return fmt.Errorf("%w: %s flow is waiting for a tag, use back or abort first", checkout.ErrInvalidTransition, owner)
	}
	s.active = name
	return nil
}

func (s *session) show() error {
	if s.active == flowTicket {
		return writeTicketView(s.out, s.ticket.View(), s.opts.JSON)
	}
	return writeSaleView(s.out, s.sale.View(), s.opts.JSON)
}
