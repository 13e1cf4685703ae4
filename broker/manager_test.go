package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/programme-lv/ojcore/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRetriesThenSucceeds(t *testing.T) {
	d := &fakeDialer{failures: 3}
	m := NewManager(d, WithRetry(10, time.Millisecond))
	defer m.Shutdown()

	conn, err := m.Connect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.EqualValues(t, 4, d.dials.Load())

	again, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.EqualValues(t, 4, d.dials.Load())
}

func TestConnectGivesUpAfterBound(t *testing.T) {
	d := &fakeDialer{failures: 1000}
	m := NewManager(d, WithRetry(10, time.Millisecond))
	defer m.Shutdown()

	_, err := m.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, srvcerror.IsBrokerUnavailable(err))
	assert.ErrorIs(t, err, errRefused)
	assert.EqualValues(t, 10, d.dials.Load())
}

func TestConcurrentConnectIsSingleFlight(t *testing.T) {
	d := &fakeDialer{dialDelay: 20 * time.Millisecond}
	m := NewManager(d, WithRetry(3, time.Millisecond))
	defer m.Shutdown()

	var wg sync.WaitGroup
	conns := make([]Conn, 16)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := m.Connect(context.Background())
			require.NoError(t, err)
			conns[i] = c
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, d.dials.Load())
	for _, c := range conns {
		assert.Same(t, conns[0], c)
	}
}

func TestConcurrentConnectSharesFailure(t *testing.T) {
	d := &fakeDialer{failures: 1000, dialDelay: 5 * time.Millisecond}
	m := NewManager(d, WithRetry(2, time.Millisecond))
	defer m.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Connect(context.Background())
			assert.True(t, srvcerror.IsBrokerUnavailable(err))
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, d.dials.Load(), int32(4))
}

func TestReconnectAfterConnectionLost(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, WithRetry(3, time.Millisecond))
	defer m.Shutdown()

	first, err := m.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	require.Eventually(t, func() bool {
		c, err := m.Connect(context.Background())
		return err == nil && c != first
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, d.dials.Load())
}

func TestKeyedChannelIsCachedAndSingleFlight(t *testing.T) {
	d := &fakeDialer{openDelay: 20 * time.Millisecond}
	m := NewManager(d, WithRetry(3, time.Millisecond))
	defer m.Shutdown()

	var wg sync.WaitGroup
	chans := make([]Channel, 10)
	for i := range chans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, err := m.Channel(context.Background(), "bus")
			require.NoError(t, err)
			chans[i] = ch
		}(i)
	}
	wg.Wait()

	for _, ch := range chans {
		assert.Same(t, chans[0], ch)
	}
	require.Len(t, d.conns, 1)
	assert.EqualValues(t, 1, d.conns[0].opened.Load())

	other, err := m.Channel(context.Background(), "other")
	require.NoError(t, err)
	assert.NotSame(t, chans[0], other)
}

func TestUnkeyedChannelIsFresh(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, WithRetry(3, time.Millisecond))
	defer m.Shutdown()

	a, err := m.Channel(context.Background(), "")
	require.NoError(t, err)
	b, err := m.Channel(context.Background(), "")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.EqualValues(t, 2, d.conns[0].opened.Load())
}

func TestClosedChannelIsEvicted(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, WithRetry(3, time.Millisecond))
	defer m.Shutdown()

	first, err := m.Channel(context.Background(), "bus")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	require.Eventually(t, func() bool {
		ch, err := m.Channel(context.Background(), "bus")
		return err == nil && ch != first
	}, time.Second, 5*time.Millisecond)
}

func TestShutdownClosesEverything(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, WithRetry(3, time.Millisecond))

	ch, err := m.Channel(context.Background(), "bus")
	require.NoError(t, err)
	require.NoError(t, m.Shutdown())

	select {
	case <-ch.Done():
	default:
		t.Fatal("cached channel not closed")
	}
	select {
	case <-d.conns[0].Done():
	default:
		t.Fatal("connection not closed")
	}

	_, err = m.Connect(context.Background())
	require.ErrorIs(t, err, ErrManagerClosed())
	_, err = m.Channel(context.Background(), "bus")
	require.ErrorIs(t, err, ErrManagerClosed())
}

func TestCallerContextCancelsWait(t *testing.T) {
	d := &fakeDialer{failures: 1000}
	m := NewManager(d, WithRetry(10, 50*time.Millisecond))
	defer m.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Connect(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
