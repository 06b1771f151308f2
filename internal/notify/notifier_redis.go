package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	alertmodels "yatra/internal/alert/models"
	"yatra/internal/platform/redis"
)

// AlertChannel is the Redis pub/sub channel carrying alert change events for
// operator dashboards.
const AlertChannel = "yatra.alerts"

const publishTimeout = 5 * time.Second

// RedisNotifier fans alert changes out over Redis pub/sub. It satisfies the
// alert service's Notifier contract: AlertChanged never blocks the caller.
type RedisNotifier struct {
	client  *redis.Client
	logger  *slog.Logger
	metrics *Metrics
}

func NewRedisNotifier(client *redis.Client, logger *slog.Logger, metrics *Metrics) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger, metrics: metrics}
}

// AlertChanged publishes the alert snapshot asynchronously. Delivery is best
// effort; a dropped event only degrades dashboard liveness, never alert state.
func (n *RedisNotifier) AlertChanged(ctx context.Context, alert *alertmodels.Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to encode alert event", "error", err.Error())
		return
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := n.client.Publish(pubCtx, AlertChannel, payload).Err(); err != nil {
			n.logger.Error("failed to publish alert event",
				"alert_id", alert.ID.String(),
				"error", err.Error(),
			)
			return
		}
		if n.metrics != nil {
			n.metrics.IncrementAlertEventsPublished()
		}
	}()
}
