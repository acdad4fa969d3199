package logging

import (
	"os"
	"path/filepath"
	"testing"

	"eventpos/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestModuleFileSinkReachesOtherModules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventpos.log")

	app := fxtest.New(t,
		fx.Supply(config.Config{LogFile: path}),
		fx.Provide(func() *zap.Logger { return zap.NewNop() }),
		Module(),
		fx.Module("checkout",
			fx.Invoke(func(logger *zap.Logger) {
				logger.Named("sale").Info("sale booked", zap.String("uuid", "u1"))
			}),
		),
	)
	app.RequireStart()
	app.RequireStop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sale booked")
	assert.Contains(t, string(data), `"uuid":"u1"`)
}

func TestModuleWithoutLogFile(t *testing.T) {
	var logger *zap.Logger
	app := fxtest.New(t,
		fx.Supply(config.Config{}),
		fx.Provide(func() *zap.Logger { return zap.NewNop() }),
		Module(),
		fx.Populate(&logger),
	)
	app.RequireStart()
	app.RequireStop()

	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))
}
