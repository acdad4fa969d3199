package internal

import (
	"context"

	"eventpos/internal/checkout"
	"eventpos/internal/cli"
	"eventpos/internal/config"
	"eventpos/internal/logging"
	"eventpos/internal/nfc"
	"eventpos/internal/payment"
	"eventpos/internal/terminal"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run() error {
	var runner *cli.Runner

	app := fx.New(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		logging.Module(),
		terminal.Module(),
		payment.Module(),
		nfc.Module(),
		fx.Provide(
			func(c *terminal.Client) checkout.ConfigSource { return c },
			func(c *terminal.Client) checkout.SaleBackend { return c },
			func(c *terminal.Client) checkout.TicketBackend { return c },
			func(c *payment.Client) checkout.PaymentProvider { return c },
			func(r *nfc.Reader) checkout.Scanner { return r },
		),
		checkout.Module(),
		cli.Module(),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	return runner.Execute()
}
