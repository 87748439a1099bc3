package ports

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

func occupied(ports ...int) Prober {
	set := make(map[int]bool, len(ports))
	for _, p := range ports {
		set[p] = true
	}
	return ProberFunc(func(_ context.Context, port int) bool {
		return set[port]
	})
}

func newTestSelector(t *testing.T, prober Prober) *Selector {
	s := NewSelector(8000, 8001, 8010, zaptest.NewLogger(t).Sugar())
	s.Prober = prober
	return s
}

func TestSelectPortPreferredFree(t *testing.T) {
	s := newTestSelector(t, occupied())
	assert.Equal(t, 8000, s.SelectPort(context.Background()))
}

func TestSelectPortPreferredOccupied(t *testing.T) {
	s := newTestSelector(t, occupied(8000))
	assert.Equal(t, 8001, s.SelectPort(context.Background()))
}

func TestSelectPortSkipsOccupiedRangePorts(t *testing.T) {
	s := newTestSelector(t, occupied(8000, 8001, 8002, 8004))
	assert.Equal(t, 8003, s.SelectPort(context.Background()))
}

func TestSelectPortExhaustedFallsBackToPreferred(t *testing.T) {
	s := newTestSelector(t, ProberFunc(func(context.Context, int) bool { return true }))
	assert.Equal(t, 8000, s.SelectPort(context.Background()))
}

func TestSelectPortScansAscending(t *testing.T) {
	var probed []int
	s := newTestSelector(t, ProberFunc(func(_ context.Context, port int) bool {
		probed = append(probed, port)
		return port < 8005
	}))

	assert.Equal(t, 8005, s.SelectPort(context.Background()))
	assert.Equal(t, []int{8000, 8001, 8002, 8003, 8004, 8005}, probed)
}

func TestSelectPortProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := rapid.IntRange(1024, 60000).Draw(rt, "start")
		width := rapid.IntRange(0, 50).Draw(rt, "width")
		end := start + width
		preferred := rapid.IntRange(1, 1023).Draw(rt, "preferred")
		busy := rapid.SliceOfDistinct(rapid.IntRange(start, end), rapid.ID[int]).Draw(rt, "busy")

		busySet := map[int]bool{preferred: true}
		for _, p := range busy {
			busySet[p] = true
		}

		s := NewSelector(preferred, start, end, nil)
		s.Prober = ProberFunc(func(_ context.Context, port int) bool { return busySet[port] })

		want := preferred
		for p := start; p <= end; p++ {
			if !busySet[p] {
				want = p
				break
			}
		}

		if got := s.SelectPort(context.Background()); got != want {
			rt.Fatalf("SelectPort() = %d, want %d", got, want)
		}
	})
}

func TestDialProberDetectsListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	prober := DialProber{Host: "127.0.0.1"}
	assert.True(t, prober.InUse(context.Background(), port))

	require.NoError(t, ln.Close())
	assert.False(t, prober.InUse(context.Background(), port))
}

func TestSelectPortWithRealListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	s := NewSelector(busy, busy, busy+20, zaptest.NewLogger(t).Sugar())
	got := s.SelectPort(context.Background())

	assert.NotEqual(t, busy, got)
	assert.Greater(t, got, busy)
}
