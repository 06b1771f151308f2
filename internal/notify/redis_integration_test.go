//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alertmodels "yatra/internal/alert/models"
	"yatra/internal/geofence"
	"yatra/internal/platform/config"
	platformredis "yatra/internal/platform/redis"
	id "yatra/pkg/domain"
	"yatra/pkg/testutil/containers"
)

func TestRedisNotifierPublishesAlertChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	client, err := platformredis.New(config.RedisConfig{URL: rc.URL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sub := rc.Client.Subscribe(ctx, AlertChannel)
	t.Cleanup(func() { _ = sub.Close() })
	// Wait for the subscription to be established before publishing.
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := NewRedisNotifier(client, logger, nil)

	alert, err := alertmodels.New(
		id.AlertID(uuid.New()),
		id.TouristToken("TID-0123456789abcdef01234567"),
		alertmodels.TypeDistress,
		alertmodels.PriorityCritical,
		geofence.Point{Lat: 26.9, Lng: 75.8},
		"distress signal received",
		time.Now().UTC(),
	)
	require.NoError(t, err)

	notifier.AlertChanged(ctx, alert)

	recvCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, AlertChannel, msg.Channel)

	var received alertmodels.Alert
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &received))
	assert.Equal(t, alert.ID, received.ID)
	assert.Equal(t, alertmodels.TypeDistress, received.Type)
	assert.Equal(t, alertmodels.StatusActive, received.Status)
}
