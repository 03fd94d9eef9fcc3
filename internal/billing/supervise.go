package billing

import (
	"context"
	"time"

	"leadledger_backend/internal/bootstrap"
	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"
)

// Supervise keeps a consumer attached to the broker until ctx ends,
// reconnecting when the connection drops.
func Supervise(ctx context.Context, cfg config.BillingConfig, handler Handler, log *logger.Logger) error {
	for ctx.Err() == nil {
		var consumer *Consumer
		err := bootstrap.WithRetry(ctx, log, "billing consumer connect", 5, 2*time.Second, func() error {
			c, err := NewConsumer(cfg, handler, log)
			if err != nil {
				return err
			}
			consumer = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = consumer.Run(ctx)
		_ = consumer.Close()
		if err != nil && ctx.Err() == nil {
			log.Warn("billing consumer stopped, reconnecting", "error", err)
		}
	}
	return nil
}
