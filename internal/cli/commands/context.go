// Package commands implements the pbiplens subcommands.
package commands

import (
	"context"
	"os"

	"github.com/pbiplens/pbiplens/internal/cli/output"
	"github.com/pbiplens/pbiplens/internal/config"
)

// configKey is used to store config in context.
type configKey struct{}

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// WithConfig stores the loaded config in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithRenderer stores the output renderer in the context.
func WithRenderer(ctx context.Context, r *output.Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, r)
}

// ConfigFrom retrieves the config from the context, falling back to
// defaults when a command runs outside the root command's setup.
func ConfigFrom(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	c := &config.Config{}
	c.ApplyDefaults()
	return c
}

// RendererFrom retrieves the renderer from the context.
func RendererFrom(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}
