package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
)

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&globalOptions{})

	assert.Equal(t, "watch", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("lint-only"))

	flag := cmd.Flags().Lookup("debounce")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "500ms", flag.DefValue)
	}
}

func TestWatchLoop_Debounce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan fsnotify.Event)
	errs := make(chan error)
	var rebuilds atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, events, errs, "/cfg/redash.yaml", 20*time.Millisecond, func() {
			rebuilds.Add(1)
		})
	}()

	events <- fsnotify.Event{Name: "/cfg/other.yaml", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/cfg/redash.yaml", Op: fsnotify.Chmod}
	for i := 0; i < 3; i++ {
		events <- fsnotify.Event{Name: "/cfg/redash.yaml", Op: fsnotify.Write}
	}

	assert.Eventually(t, func() bool { return rebuilds.Load() == 1 }, time.Second, 5*time.Millisecond)

	events <- fsnotify.Event{Name: "/cfg/redash.yaml", Op: fsnotify.Create}
	assert.Eventually(t, func() bool { return rebuilds.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchLoop_ClosedEvents(t *testing.T) {
	events := make(chan fsnotify.Event)
	close(events)

	err := watchLoop(context.Background(), events, make(chan error), "/cfg/redash.yaml", time.Millisecond, func() {})
	assert.NoError(t, err)
}
