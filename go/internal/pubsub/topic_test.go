package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopicPublishReachesAllSubscribers(t *testing.T) {
	var topic Topic[int]

	var a, b []int
	topic.Subscribe(func(v int) { a = append(a, v) })
	topic.Subscribe(func(v int) { b = append(b, v) })

	topic.Publish(1)
	topic.Publish(2)

	require.Equal(t, []int{1, 2}, a)
	require.Equal(t, []int{1, 2}, b)
}

func TestTopicCancelStopsDelivery(t *testing.T) {
	var topic Topic[string]

	var got []string
	cancel := topic.Subscribe(func(v string) { got = append(got, v) })

	topic.Publish("one")
	cancel()
	topic.Publish("two")

	require.Equal(t, []string{"one"}, got)
	require.Zero(t, topic.Len())

	// Cancelling twice is harmless.
	cancel()
}

func TestTopicPublishWithoutSubscribers(t *testing.T) {
	var topic Topic[struct{}]
	topic.Publish(struct{}{})
	require.Zero(t, topic.Len())
}
