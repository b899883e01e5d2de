package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageStampsVersionAndTime(t *testing.T) {
	now := time.Date(2026, 1, 30, 22, 0, 0, 0, time.FixedZone("x", 3600))
	msg := NewMessage("order-123", "request-456", now)

	assert.Equal(t, "order-123", msg.OrderID)
	assert.Equal(t, "request-456", msg.RequestID)
	assert.Equal(t, "2026-01-30T21:00:00Z", msg.EnqueuedAt)
	assert.Equal(t, MessageVersion, msg.Version)
}

func TestDecodeMessageWireFormat(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"orderId":"o-1","requestId":"r-1","enqueuedAt":"2026-01-30T22:00:00Z","version":1}`))
	require.NoError(t, err)
	assert.Equal(t, Message{OrderID: "o-1", RequestID: "r-1", EnqueuedAt: "2026-01-30T22:00:00Z", Version: 1}, msg)

	_, err = DecodeMessage([]byte(`{"orderId":`))
	assert.Error(t, err)
}
