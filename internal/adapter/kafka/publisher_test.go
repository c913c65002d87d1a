package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/farm-survey-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	cell := domain.MeanCell{
		Station:     "4",
		Measurement: "Temperature",
		Mean:        24.0,
	}

	msg, err := serializeToMessage(cell, now.Format(time.RFC3339))
	require.NoError(t, err)

	assert.Equal(t, []byte("4"), msg.Key)
	assert.JSONEq(t, `{"station":"4","measurement":"Temperature","mean":24}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "measurement", msg.Headers[0].Key)
	assert.Equal(t, []byte("Temperature"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-08-25T12:00:00Z"), msg.Headers[1].Value)
}
