package nfc

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"nfc",
		fx.Provide(NewReader),
	)
}
