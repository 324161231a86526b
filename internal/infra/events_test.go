package infra

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// fakeFrontmost is a settable frontmost-pid source.
type fakeFrontmost struct {
	mu  sync.Mutex
	pid int
	ok  bool
}

func (f *fakeFrontmost) set(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pid, f.ok = pid, true
}

func (f *fakeFrontmost) get() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pid, f.ok
}

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []domain.AppEvent
}

func (r *recorder) handle(ev domain.AppEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, ev := range r.events {
		out = append(out, ev.App.Name)
	}
	return out
}

func newTestEventSource() (*PollingEventSource, *mockProcessManager, *fakeFrontmost) {
	pm := newMockProcessManager()
	front := &fakeFrontmost{}
	src := NewPollingEventSource(time.Millisecond, pm, front.get, zap.NewNop())
	return src, pm, front
}

func TestPollingEventSource_SubscribeValidation(t *testing.T) {
	src, _, _ := newTestEventSource()

	_, err := src.Subscribe(domain.EventKind("terminated"), func(domain.AppEvent) {})
	assert.Error(t, err)

	_, err = src.Subscribe(domain.EventActivated, nil)
	assert.Error(t, err)
}

func TestPollingEventSource_Activated(t *testing.T) {
	src, pm, front := newTestEventSource()
	pm.addApp(100, "Safari")
	pm.addApp(200, "Xcode")
	rec := &recorder{}

	_, err := src.Subscribe(domain.EventActivated, rec.handle)
	require.NoError(t, err)

	front.set(100)
	src.poll() // primes
	assert.Empty(t, rec.names())

	src.poll()
	assert.Empty(t, rec.names(), "unchanged frontmost emits nothing")

	front.set(200)
	src.poll()
	assert.Equal(t, []string{"Xcode"}, rec.names())

	front.set(100)
	src.poll()
	assert.Equal(t, []string{"Xcode", "Safari"}, rec.names())
	assert.Equal(t, domain.EventActivated, rec.events[1].Kind)
	assert.Equal(t, 100, rec.events[1].App.PID)
}

func TestPollingEventSource_ActivatedUnnamedSkipped(t *testing.T) {
	src, _, front := newTestEventSource()
	rec := &recorder{}
	_, err := src.Subscribe(domain.EventActivated, rec.handle)
	require.NoError(t, err)

	front.set(1)
	src.poll()
	front.set(999) // unknown to the process manager
	src.poll()

	assert.Empty(t, rec.names())
}

func TestPollingEventSource_Launched(t *testing.T) {
	src, pm, _ := newTestEventSource()
	pm.addApp(100, "Safari")
	pm.addProcess(101, "launchd")
	rec := &recorder{}

	_, err := src.Subscribe(domain.EventLaunched, rec.handle)
	require.NoError(t, err)

	src.poll() // primes with the existing table
	assert.Empty(t, rec.names(), "already running apps are not launches")

	pm.addApp(300, "Zoom")
	pm.addProcess(301, "mdworker")
	src.poll()
	assert.Equal(t, []string{"Zoom"}, rec.names())

	src.poll()
	assert.Equal(t, []string{"Zoom"}, rec.names(), "each pid is reported once")
}

func TestPollingEventSource_ListError(t *testing.T) {
	src, pm, _ := newTestEventSource()
	rec := &recorder{}
	_, err := src.Subscribe(domain.EventLaunched, rec.handle)
	require.NoError(t, err)

	pm.listErr = errors.New("sysctl failed")
	assert.NotPanics(t, src.poll)
	assert.Empty(t, rec.names())
}

func TestPollingEventSource_UnsubscribeStopsDeliveryAndReprimes(t *testing.T) {
	src, pm, front := newTestEventSource()
	pm.addApp(100, "Safari")
	pm.addApp(200, "Xcode")
	rec := &recorder{}

	sub, err := src.Subscribe(domain.EventActivated, rec.handle)
	require.NoError(t, err)
	front.set(100)
	src.poll()

	sub.Unsubscribe()
	sub.Unsubscribe()
	front.set(200)
	src.poll()
	assert.Empty(t, rec.names())

	// A fresh subscription primes again instead of replaying the change
	_, err = src.Subscribe(domain.EventActivated, rec.handle)
	require.NoError(t, err)
	src.poll()
	assert.Empty(t, rec.names())
}

func TestPollingEventSource_Run(t *testing.T) {
	src, pm, front := newTestEventSource()
	pm.addApp(100, "Safari")
	pm.addApp(200, "Xcode")
	front.set(100)
	rec := &recorder{}
	_, err := src.Subscribe(domain.EventActivated, rec.handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	// Give the poller a chance to prime before switching apps
	time.Sleep(20 * time.Millisecond)
	front.set(200)

	require.Eventually(t, func() bool {
		return len(rec.names()) > 0
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, "Xcode", rec.names()[0])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
