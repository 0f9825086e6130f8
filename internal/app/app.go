package app

import (
	"context"

	"go.uber.org/zap"

	"parkpay/internal/config"
	"parkpay/internal/device"
	"parkpay/internal/ledger"
	"parkpay/internal/service"
)

// App wires exit terminal dependencies.
type App struct {
	service *service.ExitService
	link    *device.SerialLink
	pg      *ledger.PostgresStore
	logger  *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	link, err := device.OpenSerialLink(device.SerialLinkConfig{
		Port:        cfg.Serial.Port,
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.ReadTimeout(),
		SettleDelay: cfg.SettleDelay(),
	})
	if err != nil {
		return nil, err
	}

	a := &App{link: link, logger: logger}

	var store ledger.Store
	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		pg, err := ledger.NewPostgresStore(cfg.Ledger.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pg = pg
		store = pg
	default:
		csvStore, err := ledger.OpenCSVStore(cfg.Ledger.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		store = csvStore
	}

	a.service = service.NewExitService(link, store, cfg.RatePerHour(), cfg.Tariff.Currency, logger)
	return a, nil
}

// Run starts the transaction loop.
func (a *App) Run(ctx context.Context) error {
	return a.service.Run(ctx)
}

// Close releases the port and the store.
func (a *App) Close() {
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.logger.Warn("failed to close ledger store", zap.Error(err))
		}
	}
	if a.link != nil {
		if err := a.link.Close(); err != nil {
			a.logger.Warn("failed to close serial link", zap.Error(err))
		}
	}
}
