package pubsub

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "postal_code.resolved", map[string]string{"k": "v"})
	require.ErrorContains(t, err, "not configured")

	var nilPub *Publisher
	_, err = nilPub.Publish(context.Background(), "t", nil)
	require.Error(t, err)
	nilPub.Close()
}

func TestCarrier(t *testing.T) {
	t.Parallel()

	c := &carrier{attrs: map[string]string{}}
	c.Set("traceparent", "00-abc-def-01")
	c.Set("tracestate", "x=1")
	require.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	keys := c.Keys()
	sort.Strings(keys)
	require.Equal(t, []string{"traceparent", "tracestate"}, keys)
}
