package memory

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestQdrantConfig_Defaults(t *testing.T) {
	var c QdrantConfig
	c.ApplyDefaults()
	assert.Equal(t, "localhost", c.Host)
	assert.Equal(t, 6334, c.Port)
	assert.Equal(t, 3, c.MaxRetries)
	assert.Equal(t, 5, c.CircuitBreakerThreshold)
	require.NoError(t, c.Validate())

	c.Port = 70000
	require.ErrorIs(t, c.Validate(), ErrInvalidConfig)
}

func TestIsTransientError(t *testing.T) {
	assert.False(t, IsTransientError(nil))
	assert.False(t, IsTransientError(errors.New("plain")))
	assert.True(t, IsTransientError(status.Error(grpccodes.Unavailable, "down")))
	assert.True(t, IsTransientError(status.Error(grpccodes.DeadlineExceeded, "slow")))
	assert.False(t, IsTransientError(status.Error(grpccodes.NotFound, "gone")))
	assert.False(t, IsTransientError(status.Error(grpccodes.InvalidArgument, "bad")))
}

func TestPointID(t *testing.T) {
	id := uuid.NewString()
	assert.Equal(t, id, pointID(id).GetUuid())

	a := pointID("not-a-uuid").GetUuid()
	b := pointID("not-a-uuid").GetUuid()
	assert.Equal(t, a, b, "non-uuid ids map to a stable uuid")
	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestPayloadRoundTrip(t *testing.T) {
	doc := Document{
		ID:      "r1",
		Content: `{"transcript":"hi"}`,
		Metadata: map[string]interface{}{
			"user_id": "alice",
			"n":       3,
			"score":   0.5,
			"flag":    true,
		},
	}

	got := resultFromPayload(payloadFromDocument(doc))
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, "alice", got.Metadata["user_id"])
	assert.Equal(t, int64(3), got.Metadata["n"])
	assert.Equal(t, 0.5, got.Metadata["score"])
	assert.Equal(t, true, got.Metadata["flag"])
	assert.NotContains(t, got.Metadata, "content")
}

func TestNewQdrantStore_NilEmbedder(t *testing.T) {
	_, err := NewQdrantStore(QdrantConfig{}, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
