package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shop-service/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	event := domain.OrderStatusChangedEvent{
		OrderID: "o-1",
		From:    domain.StatusPending,
		To:      domain.StatusPaid,
	}

	msg, body, err := encode(domain.EventOrderStatusChanged, event, now)
	require.NoError(t, err)

	_, err = uuid.Parse(msg.ID)
	assert.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "order.status_changed", decoded["pattern"])
	assert.Equal(t, msg.ID, decoded["id"])
	assert.Equal(t, "2024-05-01T10:00:00Z", decoded["occurredAt"])

	data, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "o-1", data["orderId"])
	assert.Equal(t, "paid", data["to"])
}

func TestEncode_UniqueIDs(t *testing.T) {
	a, _, err := encode("x", nil, time.Now())
	require.NoError(t, err)
	b, _, err := encode("x", nil, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEncode_Unmarshalable(t *testing.T) {
	_, _, err := encode("x", make(chan int), time.Now())
	assert.ErrorContains(t, err, "failed to marshal message")
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NewNopPublisher(nil).Publish(context.Background(), "order.created", struct{}{}))
}
