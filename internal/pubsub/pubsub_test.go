package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubscribePublishDelivers(t *testing.T) {
	r := NewRegistry()
	sub := r.NewSubscriber()
	r.Subscribe(sub, "news")

	n := r.Publish("news", []byte("hello"))
	require.Equal(t, 1, n)

	msg := <-sub.Inbox
	require.Equal(t, "news", msg.Channel)
	require.Equal(t, "", msg.Pattern)
	require.Equal(t, []byte("hello"), msg.Payload)
}

func TestPublishNoSubscribersReturnsZero(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, 0, r.Publish("nobody-listening", []byte("x")))
}

func TestPSubscribeMatchesPattern(t *testing.T) {
	r := NewRegistry()
	sub := r.NewSubscriber()
	r.PSubscribe(sub, "news.*")

	n := r.Publish("news.sports", []byte("score"))
	require.Equal(t, 1, n)

	msg := <-sub.Inbox
	require.Equal(t, "news.sports", msg.Channel)
	require.Equal(t, "news.*", msg.Pattern)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := NewRegistry()
	sub := r.NewSubscriber()
	r.Subscribe(sub, "ch")
	r.Unsubscribe(sub, "ch")

	require.Equal(t, 0, r.Publish("ch", []byte("x")))
}

func TestUnsubscribeAllClearsEverything(t *testing.T) {
	r := NewRegistry()
	sub := r.NewSubscriber()
	r.Subscribe(sub, "a")
	r.Subscribe(sub, "b")
	r.PSubscribe(sub, "c.*")

	r.UnsubscribeAll(sub)

	require.Equal(t, 0, r.ChannelCount("a"))
	require.Equal(t, 0, r.ChannelCount("b"))
	require.Equal(t, 0, r.PatternCount())
}

func TestChannelCountAndActiveChannels(t *testing.T) {
	r := NewRegistry()
	sub1 := r.NewSubscriber()
	sub2 := r.NewSubscriber()
	r.Subscribe(sub1, "ch")
	r.Subscribe(sub2, "ch")
	r.Subscribe(sub1, "other")

	require.Equal(t, 2, r.ChannelCount("ch"))
	require.ElementsMatch(t, []string{"ch", "other"}, r.ActiveChannels(""))
	require.Equal(t, []string{"ch"}, r.ActiveChannels("c*"))
}

func TestSubscriberOverflowClosesDropped(t *testing.T) {
	r := NewRegistry()
	sub := r.NewSubscriber()
	r.Subscribe(sub, "ch")

	for i := 0; i < subscriberBufSize+1; i++ {
		r.Publish("ch", []byte("x"))
	}

	select {
	case <-sub.Dropped:
	default:
		t.Fatal("expected Dropped channel to be closed after overflow")
	}
}
