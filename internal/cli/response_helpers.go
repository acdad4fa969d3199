package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"eventpos/internal/checkout"
	"eventpos/internal/domain"
	"eventpos/internal/draft"
)

const helpText = `Commands:
  sale | ticket          switch flow
  + <id> | - <id>        change a button's quantity
  price <id> <cents>     set a free price (0 removes it)
  unset <id>             remove a free price
  tag <uid>              scan a tag (hex uid)
  submit                 check the order with the backend
  voucher + | voucher -  use one voucher more or less
  cash | card            pay the checked order
  back | abort           leave the current page, discard the order
  ok | dismiss           close the success or error page
  show | buttons         print the order or the button list
  refresh                reload the terminal config
  exit                   quit`

func writeHelp(out io.Writer) {
	fmt.Fprintln(out, helpText)
}

func writeJSON(out io.Writer, v any) error {
	return json.NewEncoder(out).Encode(v)
}

func writeSaleView(out io.Writer, v checkout.SaleView, asJSON bool) error {
	if asJSON {
		return writeJSON(out, v)
	}

	writeHeader(out, "sale", v.State, v.Status, v.Busy)
	writeSelection(out, v.Selection)
	if v.Tag != nil {
		fmt.Fprintf(out, "  tag: %s\n", formatUID(v.Tag.UID))
	}
	if v.Checked != nil {
		fmt.Fprintf(out, "  total: %s, vouchers: %d of %d, balance: %s -> %s\n",
			v.Checked.TotalPrice.StringFixed(2),
			v.Vouchers, v.Checked.OldVoucherBalance,
			v.Checked.OldBalance.StringFixed(2), v.Checked.NewBalance.StringFixed(2),
		)
	} else if len(v.Selection) > 0 {
		fmt.Fprintf(out, "  estimate: %s\n", v.Estimate.StringFixed(2))
	}
	if v.Completed != nil {
		fmt.Fprintf(out, "  booked sale #%d (%s)\n", v.Completed.ID, v.Completed.PaymentMethod)
	}
	return nil
}

func writeTicketView(out io.Writer, v checkout.TicketView, asJSON bool) error {
	if asJSON {
		return writeJSON(out, v)
	}

	writeHeader(out, "ticket", v.State, v.Status, v.Busy)
	writeSelection(out, v.Selection)
	if v.Required > 0 {
		fmt.Fprintf(out, "  scanned: %d of %d\n", len(v.Scans), v.Required)
	}
	for i, scan := range v.Scans {
		fmt.Fprintf(out, "  %d) %s %s\n", i+1, formatUID(scan.UID), scan.Ticket.Name)
	}
	if v.ScanStatus.Kind != draft.NoScan {
		fmt.Fprintf(out, "  > %s\n", v.ScanStatus)
	}
	if v.Checked != nil {
		fmt.Fprintf(out, "  total: %s\n", v.Checked.TotalPrice.StringFixed(2))
	} else if len(v.Selection) > 0 {
		fmt.Fprintf(out, "  estimate: %s\n", v.Estimate.StringFixed(2))
	}
	if v.Completed != nil {
		fmt.Fprintf(out, "  booked ticket sale #%d\n", v.Completed.ID)
	}
	return nil
}

func writeHeader(out io.Writer, flow string, state checkout.State, status string, busy bool) {
	line := fmt.Sprintf("[%s] %s", flow, state)
	if busy {
		line += " (busy)"
	}
	if strings.TrimSpace(status) != "" {
		line += ": " + status
	}
	fmt.Fprintln(out, line)
}

func writeSelection(out io.Writer, entries []draft.Entry) {
	for _, entry := range entries {
		switch line := entry.Line.(type) {
		case draft.FixedPrice:
			fmt.Fprintf(out, "  #%d x%d\n", entry.ButtonID, line.Quantity)
		case draft.Returnable:
			fmt.Fprintf(out, "  #%d x%d (returnable)\n", entry.ButtonID, line.Quantity)
		case draft.FreePrice:
			fmt.Fprintf(out, "  #%d %s\n", entry.ButtonID, line.Price.StringFixed(2))
		case draft.Voucher:
			fmt.Fprintf(out, "  #%d %d vouchers\n", entry.ButtonID, line.Count)
		}
	}
}

func writeButtons(out io.Writer, buttons []domain.Button, asJSON bool) error {
	if asJSON {
		return writeJSON(out, buttons)
	}
	if len(buttons) == 0 {
		fmt.Fprintln(out, "- (no buttons, try refresh)")
		return nil
	}
	for _, b := range buttons {
		fmt.Fprintf(out, "%d) %s [%s]", b.ID, b.Name, b.Policy)
		switch {
		case b.Policy != domain.PolicyFreePrice:
			fmt.Fprintf(out, " %s", b.Price.StringFixed(2))
		case b.MaxPrice.IsPositive():
			fmt.Fprintf(out, " up to %s", b.MaxPrice.StringFixed(2))
		}
		fmt.Fprintln(out)
	}
	return nil
}
