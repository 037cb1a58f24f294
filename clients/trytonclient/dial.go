package trytonclient

import (
	"context"
	"log/slog"

	"github.com/nomis52/demoseed/config"
)

// rateBurst is the burst allowed on top of the configured request rate.
const rateBurst = 5

// Dial creates a client for the configured target and logs in.
func Dial(ctx context.Context, target config.TargetConfig, logger *slog.Logger) (*Client, error) {
	c := New(target.URL, target.Database,
		WithLogger(logger),
		WithTimeout(target.Timeout),
		WithRateLimit(target.RequestsPerSecond, rateBurst),
	)
	if err := c.Login(ctx, target.Username, target.Password); err != nil {
		return nil, err
	}
	return c, nil
}
