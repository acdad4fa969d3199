package cli

type Options struct {
	Flow  string
	JSON  bool
	Debug bool
}

const (
	flowSale   = "sale"
	flowTicket = "ticket"
)
