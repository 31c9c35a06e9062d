package progress

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToAllObservers(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	got := map[string][]int{}
	for _, name := range []string{"a", "b"} {
		name := name
		require.NoError(t, bus.Subscribe(func(e Event) {
			mu.Lock()
			defer mu.Unlock()
			got[name] = append(got[name], e.Seq)
		}))
	}

	for i := 0; i < 5; i++ {
		bus.Publish(Event{RunID: "r1", Seq: i, Progress: float64(i * 20)})
	}
	bus.Wait()

	for _, name := range []string{"a", "b"} {
		seqs := got[name]
		sort.Ints(seqs)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, seqs, "observer %s", name)
	}
}

func TestBus_PanickingObserverIsIsolated(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.Subscribe(func(Event) { panic("boom") }))
	require.NoError(t, bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}))

	assert.NotPanics(t, func() {
		bus.Publish(Event{RunID: "r1"})
		bus.Wait()
	})
	assert.Equal(t, 1, count)
}

func TestBus_ChannelDropsWhenFull(t *testing.T) {
	bus := NewBus(nil)
	ch, err := bus.Channel(2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		bus.Publish(Event{Seq: i})
	}
	bus.Wait()

	assert.Len(t, ch, 2)
}

func TestBus_PublishWithoutObservers(t *testing.T) {
	bus := NewBus(nil)
	assert.NotPanics(t, func() {
		bus.Publish(Event{RunID: "r1"})
		bus.Wait()
	})
}
