//go:build wireinject
// +build wireinject

package di

import (
	"github.com/layiku/data-simulator/pkg/config"
	"github.com/layiku/data-simulator/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Egress
		ProvideSink,
		ProvidePipeline,

		// Engine
		ProvideRegistry,

		// Read facade
		ProvideCache,
		ProvideStreamHub,
		ProvideHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
