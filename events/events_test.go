package events

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEventPublishingAndSubscribing creates EventEmitter objects, subscribes EventHandler callbacks to them, and
// ensures that the events are received by emitter-local and global handlers.
func TestEventPublishingAndSubscribing(t *testing.T) {
	type unitStartedEvent struct{ path string }
	type unitFinishedEvent struct{ path string }

	startedEmitter := EventEmitter[unitStartedEvent]{}
	finishedEmitter := EventEmitter[unitFinishedEvent]{}

	var started, finished, globalStarted, globalFinished int
	var lastPath string
	startedEmitter.Subscribe(func(event unitStartedEvent) error {
		started++
		lastPath = event.path
		return nil
	})
	finishedEmitter.Subscribe(func(event unitFinishedEvent) error {
		finished++
		return nil
	})
	SubscribeAny(func(event unitStartedEvent) error {
		globalStarted++
		return nil
	})
	SubscribeAny(func(event unitFinishedEvent) error {
		globalFinished++
		return nil
	})

	for i := 0; i < 3; i++ {
		assert.NoError(t, startedEmitter.Publish(unitStartedEvent{path: "a.sol:A"}))
	}
	for i := 0; i < 7; i++ {
		assert.NoError(t, finishedEmitter.Publish(unitFinishedEvent{path: "a.sol:A"}))
	}

	assert.EqualValues(t, 3, started)
	assert.EqualValues(t, 3, globalStarted)
	assert.EqualValues(t, 7, finished)
	assert.EqualValues(t, 7, globalFinished)
	assert.Equal(t, "a.sol:A", lastPath)
}

// TestEventHandlerError ensures the first handler error is returned and stops later handlers.
func TestEventHandlerError(t *testing.T) {
	type failingEvent struct{}

	emitter := EventEmitter[failingEvent]{}
	handlerErr := errors.New("handler failed")
	called := false
	emitter.Subscribe(func(event failingEvent) error {
		return handlerErr
	})
	emitter.Subscribe(func(event failingEvent) error {
		called = true
		return nil
	})

	err := emitter.Publish(failingEvent{})
	assert.ErrorIs(t, err, handlerErr)
	assert.False(t, called)
}

// TestConcurrentPublishing ensures an emitter can be published to from many goroutines at once.
func TestConcurrentPublishing(t *testing.T) {
	type concurrentEvent struct{}

	emitter := EventEmitter[concurrentEvent]{}
	var count atomic.Int64
	emitter.Subscribe(func(event concurrentEvent) error {
		count.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, emitter.Publish(concurrentEvent{}))
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 32, count.Load())
}
