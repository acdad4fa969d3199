package checkout

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"checkout",
		fx.Provide(NewSaleMachine, NewTicketMachine),
		fx.Invoke(func(lc fx.Lifecycle, sale *SaleMachine, ticket *TicketMachine, logger *zap.Logger) {
			lc.Append(fx.Hook{
				// Config load failures only show up in the status line.
				OnStart: func(ctx context.Context) error {
					if err := sale.Refresh(ctx); err != nil {
						logger.Warn("initial sale config load failed", zap.Error(err))
					}
					if err := ticket.Refresh(ctx); err != nil {
						logger.Warn("initial ticket config load failed", zap.Error(err))
					}
					return nil
				},
				OnStop: func(_ context.Context) error {
					_ = sale.Abort()
					_ = ticket.Abort()
					return nil
				},
			})
		}),
	)
}
