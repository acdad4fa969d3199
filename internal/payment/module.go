package payment

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"payment",
		fx.Provide(NewClient),
	)
}
