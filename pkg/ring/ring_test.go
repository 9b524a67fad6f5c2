package ring

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, capacity int) *Buffer {
	b, err := NewExact(capacity)
	require.NoError(t, err)
	return b
}

func TestNewCapacity(t *testing.T) {
	testCases := []struct {
		name     string
		capacity int
		expect   int
		exactErr bool
	}{
		{name: "one", capacity: 1, expect: 1},
		{name: "power of two", capacity: 128, expect: 128},
		{name: "round up", capacity: 5, expect: 8, exactErr: true},
		{name: "round up large", capacity: 1000, expect: 1024, exactErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := New(tc.capacity)
			require.NoError(t, err)
			require.Equal(t, tc.expect, b.Cap())
			_, err = NewExact(tc.capacity)
			if tc.exactErr {
				require.Equal(t, ErrCapacity, err)
			} else {
				require.NoError(t, err)
			}
		})
	}

	for _, c := range []int{0, -1, MaxCapacity + 1} {
		_, err := New(c)
		require.Equalf(t, ErrCapacity, err, "capacity %d", c)
	}
}

func TestFreshBuffer(t *testing.T) {
	for _, c := range []int{1, 2, 4, 128} {
		b := mustNew(t, c)
		assert.True(t, b.IsEmpty())
		assert.False(t, b.IsFull())
		assert.Equal(t, 0, b.Len())
	}
}

func TestScenarioCapacityFour(t *testing.T) {
	b := mustNew(t, 4)
	b.Insert('A')
	b.Insert('B')
	b.Insert('C')
	require.False(t, b.IsFull())
	require.Equal(t, 3, b.Len())

	require.Equal(t, byte('A'), b.Remove())
	require.Equal(t, 2, b.Len())

	b.Insert('D')
	b.Insert('E')
	require.Equal(t, 4, b.Len())
	require.True(t, b.IsFull())

	require.Equal(t, byte('B'), b.Remove())
	require.Equal(t, byte('C'), b.Remove())
	require.Equal(t, 2, b.Len())
}

func TestScenarioCapacityOne(t *testing.T) {
	b := mustNew(t, 1)
	b.Insert('X')
	require.True(t, b.IsFull())
	require.Equal(t, byte('X'), b.Remove())
	require.True(t, b.IsEmpty())
}

func TestRoundTrip(t *testing.T) {
	const capacity = 16
	for n := 0; n <= capacity; n++ {
		b := mustNew(t, capacity)
		seq := make([]byte, n)
		for i := range seq {
			seq[i] = byte(i*7 + 3)
			b.Insert(seq[i])
		}
		require.Equal(t, n == capacity, b.IsFull())
		got := make([]byte, 0, n)
		for range seq {
			got = append(got, b.Remove())
		}
		require.Equal(t, seq, got)
		require.True(t, b.IsEmpty())
	}
}

func TestRejectWhenFull(t *testing.T) {
	b := mustNew(t, 4)
	for i := byte(1); i <= 4; i++ {
		require.True(t, b.TryInsert(i))
	}
	require.True(t, b.IsFull())
	require.False(t, b.TryInsert(5))
	require.Equal(t, 4, b.Len())
	require.Equal(t, byte(1), b.Remove())
}

func TestMisusePanics(t *testing.T) {
	b := mustNew(t, 2)
	require.PanicsWithValue(t, ErrEmpty, func() { b.Remove() })
	b.Insert(1)
	b.Insert(2)
	require.PanicsWithValue(t, ErrFull, func() { b.Insert(3) })
	require.Equal(t, byte(1), b.Remove())
	_, ok := mustNew(t, 2).TryRemove()
	require.False(t, ok)
}

func TestInterleaved(t *testing.T) {
	const capacity = 8
	b := mustNew(t, capacity)
	var next, expect byte
	// pattern of inserts/removes per step, wrapping the counters several times.
	for step := 0; step < 1000; step++ {
		ins, rem := step%5, (step+2)%4
		for i := 0; i < ins && !b.IsFull(); i++ {
			b.Insert(next)
			next++
		}
		l := b.Len()
		require.True(t, l >= 0 && l <= capacity)
		for i := 0; i < rem && !b.IsEmpty(); i++ {
			require.Equal(t, expect, b.Remove())
			expect++
		}
	}
	for !b.IsEmpty() {
		require.Equal(t, expect, b.Remove())
		expect++
	}
	require.Equal(t, next, expect)
}

func TestInitResets(t *testing.T) {
	b := mustNew(t, 4)
	b.Insert(1)
	b.Insert(2)
	b.Init()
	require.True(t, b.IsEmpty())
	b.Insert(9)
	require.Equal(t, byte(9), b.Remove())
}

func TestRoleViews(t *testing.T) {
	b := mustNew(t, 2)
	p, c := b.Producer(), b.Consumer()
	require.True(t, c.IsEmpty())
	p.Insert(1)
	require.True(t, p.TryInsert(2))
	require.True(t, p.IsFull())
	require.False(t, p.TryInsert(3))
	require.Equal(t, byte(1), c.Remove())
	v, ok := c.TryRemove()
	require.True(t, ok)
	require.Equal(t, byte(2), v)
	require.True(t, c.IsEmpty())
}

// TestConcurrentProducerConsumer runs the producer on its own goroutine the
// way an interrupt preempts the loop. Run with -race.
func TestConcurrentProducerConsumer(t *testing.T) {
	const (
		capacity = 16
		total    = 200000
	)
	b := mustNew(t, capacity)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if b.IsFull() {
				runtime.Gosched()
				continue
			}
			b.Insert(byte(i * 31))
			i++
		}
	}()

	var observerErr bool
	stop := make(chan struct{})
	observed := make(chan struct{})
	go func() {
		defer close(observed)
		for {
			select {
			case <-stop:
				return
			default:
				if l := b.Len(); l < 0 || l > capacity {
					observerErr = true
				}
				runtime.Gosched()
			}
		}
	}()

	for i := 0; i < total; {
		if b.IsEmpty() {
			runtime.Gosched()
			continue
		}
		v := b.Remove()
		if v != byte(i*31) {
			t.Fatalf("byte %d: got %d want %d", i, v, byte(i*31))
		}
		i++
	}
	wg.Wait()
	close(stop)
	<-observed
	require.False(t, observerErr, "Len out of range")
	require.True(t, b.IsEmpty())
}
