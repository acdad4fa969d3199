package logging

import (
	"context"

	"eventpos/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module opens the log file sink and tees it into the application logger.
// The decorator sits outside fx.Module so every other module sees it.
func Module() fx.Option {
	return fx.Options(
		fx.Module(
			"logging",
			fx.Provide(func(cfg config.Config) (*FileSink, error) {
				return OpenFileSink(cfg.LogFile)
			}),
			fx.Invoke(func(lc fx.Lifecycle, sink *FileSink) {
				if sink == nil {
					return
				}
				lc.Append(fx.Hook{
					OnStop: func(_ context.Context) error {
						return sink.Close()
					},
				})
			}),
		),
		fx.Decorate(func(base *zap.Logger, cfg config.Config, sink *FileSink) *zap.Logger {
			return sink.Attach(base, cfg.Debug)
		}),
	)
}
