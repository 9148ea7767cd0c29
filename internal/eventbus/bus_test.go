package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(4)
	c, unsubC := b.Subscribe(4)
	defer unsubA()
	defer unsubC()

	b.Publish(Event{Type: RunStarted, Data: RunInfo{RunID: "r1"}})

	for _, ch := range []<-chan Event{a, c} {
		select {
		case e := <-ch:
			assert.Equal(t, RunStarted, e.Type)
			assert.False(t, e.Time.IsZero())
			assert.Equal(t, "r1", e.Data.(RunInfo).RunID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: GroupDelivered})
	b.Publish(Event{Type: GroupFailed})

	require.Len(t, ch, 1)
	assert.Equal(t, uint64(1), Dropped(b))
}

func TestUnsubscribeClosesAndIsIdempotent(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	_, open := <-ch
	assert.False(t, open)

	assert.NotPanics(t, func() { b.Publish(Event{Type: RunFinished}) })
}

func TestNopBus(t *testing.T) {
	b := Nop()
	b.Publish(Event{Type: RunAborted})
	ch, unsub := b.Subscribe(1)
	defer unsub()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, Dropped(b))
}
