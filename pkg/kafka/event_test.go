package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	fixed := time.Date(2026, time.October, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	e, err := NewEvent("ecommerce.address.saved", "42", "address", "address-service", map[string]int{"id": 42})
	require.NoError(t, err)

	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, EnvelopeVersion, e.Version)
	assert.Equal(t, fixed.UTC(), e.Timestamp)
	assert.JSONEq(t, `{"id":42}`, string(e.Data))
	assert.NotNil(t, e.Metadata)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("x", "1", "address", "address-service", make(chan int))
	assert.Error(t, err)
}

func TestEvent_RoundTripEnvelope(t *testing.T) {
	e, err := NewEvent("ecommerce.address.deleted", "11", "address", "address-service", map[string]string{"city": "Springfield"})
	require.NoError(t, err)
	e.WithCorrelationID("corr-1").WithMetadata("store_id", "1")

	raw, err := e.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, got.EventID)
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, "1", got.Metadata["store_id"])

	var data map[string]string
	require.NoError(t, got.UnmarshalData(&data))
	assert.Equal(t, "Springfield", data["city"])
}

func TestWithMetadata_NilMap(t *testing.T) {
	e := &Event{}
	e.WithMetadata("k", "v")
	assert.Equal(t, "v", e.Metadata["k"])
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{"))
	assert.Error(t, err)
}
