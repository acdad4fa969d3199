package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"eventpos/internal/checkout"
	"eventpos/internal/config"
	"eventpos/internal/nfc"

	"go.uber.org/zap"
)

type Runner struct {
	options Options
	logger  *zap.Logger
	sale    *checkout.SaleMachine
	ticket  *checkout.TicketMachine
	reader  *nfc.Reader
}

func NewRunner(cfg config.Config, logger *zap.Logger, sale *checkout.SaleMachine, ticket *checkout.TicketMachine, reader *nfc.Reader) *Runner {
	return &Runner{
		options: Options{
			Flow:  flowSale,
			Debug: cfg.Debug,
		},
		logger: logger.Named("cli"),
		sale:   sale,
		ticket: ticket,
		reader: reader,
	}
}

func (r *Runner) Execute() error {
	return r.runCLI(os.Args[1:], os.Stdin, os.Stdout)
}

func (r *Runner) runCLI(args []string, in io.Reader, out io.Writer) error {
	opts := r.options

	fs := flag.NewFlagSet("eventpos", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", fs.Name())
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.Flow, "flow", opts.Flow, "Flow to start in: sale or ticket")
	fs.BoolVar(&opts.JSON, "json", false, "Print views as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.Flow != flowSale && opts.Flow != flowTicket {
		return fmt.Errorf("unknown flow %q", opts.Flow)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	r.logger.Info("terminal session started",
		zap.String("flow", opts.Flow),
		zap.Bool("json", opts.JSON),
		zap.Bool("debug", opts.Debug),
	)
	return runREPL(ctx, newSession(r.sale, r.ticket, r.reader, out, opts, r.logger), in, out)
}

func runREPL(ctx context.Context, s *session, in io.Reader, out io.Writer) error {
	reader := bufio.NewScanner(in)
	fmt.Fprintln(out, "eventpos terminal (type 'help' for commands, 'exit' to quit)")
	if err := s.show(); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
		if !reader.Scan() {
			return reader.Err()
		}
		if !s.handle(ctx, reader.Text()) {
			return nil
		}
	}
}
