package app

import (
	"context"

	"sigrank/internal/config"

	"github.com/google/wire"
)

var appSet = wire.NewSet(provideAppBuilder, provideAppFromBuilder)

func provideAppBuilder(cfg *config.Config, opts []AppBuilderOption) *AppBuilder {
	return NewAppBuilder(cfg, opts...)
}

func provideAppFromBuilder(b *AppBuilder, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}
