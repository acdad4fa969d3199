package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eventpos/internal/checkout"
	"eventpos/internal/domain"
	"eventpos/internal/draft"
	"eventpos/internal/nfc"
	"eventpos/internal/payment"
	"eventpos/internal/terminal"

	"go.uber.org/zap"
)

var errUnknownCommand = errors.New("unknown command")

type command struct {
	Name     string
	ButtonID int
	Cents    int64
	UID      uint64
	Delta    int
}

// parseCommand reads one REPL line. Button ids are decimal, tag uids hex
// with an optional 0x prefix, prices in cents.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return command{}, nil
	}

	cmd := command{Name: fields[0]}
	args := fields[1:]

	switch cmd.Name {
	case "quit":
		cmd.Name = "exit"
		return cmd, expectArgs(cmd.Name, args, 0)
	case "sale", "ticket", "submit", "cash", "card", "back", "abort", "ok",
		"dismiss", "show", "buttons", "refresh", "help", "exit":
		return cmd, expectArgs(cmd.Name, args, 0)
	case "+", "-", "unset":
		if err := expectArgs(cmd.Name, args, 1); err != nil {
			return command{}, err
		}
		id, err := parseButtonID(args[0])
		if err != nil {
			return command{}, err
		}
		cmd.ButtonID = id
		return cmd, nil
	case "price":
		if err := expectArgs(cmd.Name, args, 2); err != nil {
			return command{}, err
		}
		id, err := parseButtonID(args[0])
		if err != nil {
			return command{}, err
		}
		cents, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return command{}, fmt.Errorf("invalid price %q: want cents", args[1])
		}
		cmd.ButtonID = id
		cmd.Cents = cents
		return cmd, nil
	case "tag":
		if err := expectArgs(cmd.Name, args, 1); err != nil {
			return command{}, err
		}
		uid, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
		if err != nil {
			return command{}, fmt.Errorf("invalid tag uid %q: want hex", args[0])
		}
		cmd.UID = uid
		return cmd, nil
	case "voucher":
		if err := expectArgs(cmd.Name, args, 1); err != nil {
			return command{}, err
		}
		switch args[0] {
		case "+":
			cmd.Delta = 1
		case "-":
			cmd.Delta = -1
		default:
			return command{}, fmt.Errorf("voucher wants + or -, got %q", args[0])
		}
		return cmd, nil
	default:
		return command{}, fmt.Errorf("%w: %s", errUnknownCommand, cmd.Name)
	}
}

func expectArgs(name string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s takes %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func parseButtonID(value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid button id %q", value)
	}
	return id, nil
}

func trackCommand(logger *zap.Logger, flow, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	fields := []zap.Field{
		zap.String("flow", flow),
		zap.String("command", name),
		zap.Int64("ms", time.Since(start).Milliseconds()),
		zap.Bool("ok", err == nil),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Info("command", fields...)
	return err
}

func friendlyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, checkout.ErrBusy):
		return "Busy: wait for the current operation to finish."
	case errors.Is(err, checkout.ErrNotReady):
		return "The terminal is not ready for payments."
	case errors.Is(err, checkout.ErrEmptyDraft):
		return "Nothing selected."
	case errors.Is(err, checkout.ErrVouchersDisabled):
		return "Vouchers are not accepted at this terminal."
	case errors.Is(err, checkout.ErrInvalidTransition):
		return fmt.Sprintf("Not possible right now (%v).", err)
	case errors.Is(err, nfc.ErrBusy):
		return "The tag reader is used by the other flow."
	case errors.Is(err, draft.ErrUnknownButton):
		return "No such button. Type 'buttons' for the list."
	case errors.Is(err, draft.ErrInvalidOperation):
		return fmt.Sprintf("Not allowed for this button (%v).", err)
	case errors.Is(err, draft.ErrNotChecked), errors.Is(err, draft.ErrIncomplete):
		return "The order changed since it was checked. Submit again."
	case errors.Is(err, terminal.ErrMissingURL):
		return "No backend configured: set CORE_URL."
	case errors.Is(err, terminal.ErrMissingToken), errors.Is(err, domain.ErrUnauthorized):
		return "No access: missing or invalid terminal token."
	case errors.Is(err, terminal.ErrRateLimited):
		return "Too many requests. Try again later."
	case errors.Is(err, payment.ErrNotConfigured):
		return "Card payments are not configured."
	default:
		return err.Error()
	}
}

func formatUID(uid uint64) string {
	return strings.ToUpper(strconv.FormatUint(uid, 16))
}
