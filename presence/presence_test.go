package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterCountsConnections(t *testing.T) {
	tr := NewTracker()

	first, online := tr.Register(7)
	assert.True(t, first)
	assert.Equal(t, []uint{7}, online)

	first, online = tr.Register(7)
	assert.False(t, first)
	assert.Equal(t, []uint{7}, online)
	assert.Equal(t, 2, tr.Connections(7))

	first, online = tr.Register(3)
	assert.True(t, first)
	assert.Equal(t, []uint{3, 7}, online)
}

func TestUnregisterOnlyReportsLastConnection(t *testing.T) {
	tr := NewTracker()
	tr.Register(7)
	tr.Register(7)

	assert.False(t, tr.Unregister(7))
	assert.True(t, tr.IsOnline(7))

	assert.True(t, tr.Unregister(7))
	assert.False(t, tr.IsOnline(7))
	assert.Empty(t, tr.Snapshot())

	assert.False(t, tr.Unregister(7))
	assert.False(t, tr.Unregister(99))
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts, lasts := 0, 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, _ := tr.Register(1)
			last := tr.Unregister(1)
			mu.Lock()
			if first {
				firsts++
			}
			if last {
				lasts++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.False(t, tr.IsOnline(1))
	assert.Equal(t, firsts, lasts)
	assert.GreaterOrEqual(t, firsts, 1)
}
