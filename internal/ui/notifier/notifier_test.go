package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe("folds")
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Len())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	_, open := <-ch
	assert.False(t, open)
}

func TestNotifier_BroadcastTopics(t *testing.T) {
	tests := []struct {
		name      string
		broadcast string
		folds     bool
		intro     bool
		all       bool
	}{
		{name: "single lesson", broadcast: "folds", folds: true, intro: false, all: true},
		{name: "every lesson", broadcast: All, folds: true, intro: true, all: true},
		{name: "unknown lesson", broadcast: "other", folds: false, intro: false, all: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New()
			folds := n.Subscribe("folds")
			intro := n.Subscribe("intro")
			all := n.Subscribe(All)
			defer n.Unsubscribe(folds)
			defer n.Unsubscribe(intro)
			defer n.Unsubscribe(all)

			n.Broadcast(tt.broadcast)

			assert.Equal(t, tt.folds, received(folds), "folds")
			assert.Equal(t, tt.intro, received(intro), "intro")
			assert.Equal(t, tt.all, received(all), "all")
		})
	}
}

func TestNotifier_BroadcastNonBlocking(t *testing.T) {
	n := New()
	ch := n.Subscribe("folds")
	defer n.Unsubscribe(ch)

	ch <- struct{}{}

	done := make(chan struct{})
	go func() {
		n.Broadcast("folds")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast blocked on full channel")
	}
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topic := All
			if i%2 == 0 {
				topic = "folds"
			}
			ch := n.Subscribe(topic)
			n.Broadcast("folds")
			n.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.Len())
}
