package dialog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPhoneLocksSerializeSamePhone(t *testing.T) {
	locks := newPhoneLocks()

	const workers = 8
	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Acquire("59179680616")
			defer release()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, max)
	require.Empty(t, locks.locks)
}

func TestPhoneLocksDifferentPhonesProceed(t *testing.T) {
	locks := newPhoneLocks()
	release := locks.Acquire("59170000001")
	defer release()

	done := make(chan struct{})
	go func() {
		r := locks.Acquire("59170000002")
		r()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("independent phone blocked on another phone's lock")
	}
}

func TestReplayGuardExpires(t *testing.T) {
	guard := newReplayGuard(time.Minute)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.False(t, guard.Seen("wamid.1", base))
	require.True(t, guard.Seen("wamid.1", base.Add(time.Second)))

	// Past the retention window the id is forgotten.
	require.False(t, guard.Seen("wamid.1", base.Add(2*time.Minute)))

	// Empty ids never count as replays.
	require.False(t, guard.Seen("", base))
	require.False(t, guard.Seen("", base))
}
