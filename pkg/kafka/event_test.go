package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartClearedPayload struct {
	SessionID string `json:"session_id"`
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("storefront.cart.cleared", "sess-1", "cart", "storefront", cartClearedPayload{SessionID: "sess-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "storefront.cart.cleared", ev.EventType)
	assert.Equal(t, "sess-1", ev.AggregateID)
	assert.Equal(t, "cart", ev.AggregateType)
	assert.Equal(t, 1, ev.Version)
	assert.NotZero(t, ev.Timestamp)
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	ev, err := NewEvent("storefront.cart.updated", "sess-2", "cart", "storefront", cartClearedPayload{SessionID: "sess-2"})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-9").WithMetadata("region", "eu")

	data, err := ev.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, "corr-9", got.CorrelationID)
	assert.Equal(t, "eu", got.Metadata["region"])

	var payload cartClearedPayload
	require.NoError(t, got.UnmarshalData(&payload))
	assert.Equal(t, "sess-2", payload.SessionID)
}
