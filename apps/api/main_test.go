package main

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/trezcool/darasa/tests"
)

type fakeSubscriber struct {
	paths []string
	err   error
}

func (s fakeSubscriber) Subscribe(ctx context.Context, fn func(path string)) error {
	for _, p := range s.paths {
		fn(p)
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func stopWithin(t *testing.T, stop func()) {
	t.Helper()
	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop")
	}
}

func TestWatchInvalidations(t *testing.T) {
	t.Run("stops on demand", func(t *testing.T) {
		logger := new(testutil.Logger)
		stop := watchInvalidations(fakeSubscriber{paths: []string{"/list/teachers"}}, logger)
		stopWithin(t, stop)

		entries := logger.Entries("DEBUG")
		require.Len(t, entries, 1)
		assert.Equal(t, "listing invalidated: /list/teachers", entries[0].Msg)
		assert.Empty(t, logger.Entries("ERROR"))
	})

	t.Run("subscription failure is logged", func(t *testing.T) {
		logger := new(testutil.Logger)
		stop := watchInvalidations(fakeSubscriber{err: errors.New("connection refused")}, logger)
		stopWithin(t, stop)
		assert.Len(t, logger.Entries("ERROR"), 1)
	})
}
