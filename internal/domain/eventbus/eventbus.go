package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

var (
	instance evbus.Bus
	once     sync.Once
)

// Get returns the process-wide event bus instance.
func Get() evbus.Bus {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates a standalone event bus, mainly for tests that want isolation
// from the process-wide instance.
func New() evbus.Bus {
	return evbus.New()
}

// Publish publishes an event on the process-wide bus.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// Subscribe subscribes a handler on the process-wide bus.
func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}

// SubscribeAsync subscribes a handler that runs on its own goroutine, so slow
// consumers never block the pipeline. Progress delivery is fire-and-forget.
func SubscribeAsync(topic string, fn interface{}) error {
	return Get().SubscribeAsync(topic, fn, false)
}

// Unsubscribe removes a previously registered handler.
func Unsubscribe(topic string, fn interface{}) error {
	return Get().Unsubscribe(topic, fn)
}
