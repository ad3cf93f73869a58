package ws

import (
	"github.com/bytedance/sonic"

	"storyvoice-server-go/internal/domain/eventbus"
	"storyvoice-server-go/internal/platform/logging"
)

// envelope is the outbound wire frame.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Relay forwards generation events from the event bus to the hub. One relay
// per process.
type Relay struct {
	hub    *Hub
	logger *logging.Logger

	onProgress func(eventbus.ProgressEventData)
	onComplete func(eventbus.CompleteEventData)
	onError    func(eventbus.ProgressEventData)
	onFallback func(eventbus.FallbackEventData)
}

func NewRelay(hub *Hub, logger *logging.Logger) *Relay {
	return &Relay{hub: hub, logger: logger}
}

// Start subscribes the relay to the run lifecycle topics.
func (r *Relay) Start() error {
	r.onProgress = func(e eventbus.ProgressEventData) { r.send("progress", e.RunID, e) }
	r.onComplete = func(e eventbus.CompleteEventData) { r.send("complete", e.RunID, e) }
	r.onError = func(e eventbus.ProgressEventData) { r.send("error", e.RunID, e) }
	r.onFallback = func(e eventbus.FallbackEventData) { r.send("fallback", e.RunID, e) }

	subscriptions := []struct {
		topic   string
		handler interface{}
	}{
		{eventbus.EventGenerationProgress, r.onProgress},
		{eventbus.EventGenerationComplete, r.onComplete},
		{eventbus.EventGenerationError, r.onError},
		{eventbus.EventSynthesisFallback, r.onFallback},
	}
	for _, sub := range subscriptions {
		if err := eventbus.SubscribeAsync(sub.topic, sub.handler); err != nil {
			return err
		}
	}
	return nil
}

// Stop detaches the relay from the bus and closes all sessions.
func (r *Relay) Stop() {
	eventbus.Unsubscribe(eventbus.EventGenerationProgress, r.onProgress)
	eventbus.Unsubscribe(eventbus.EventGenerationComplete, r.onComplete)
	eventbus.Unsubscribe(eventbus.EventGenerationError, r.onError)
	eventbus.Unsubscribe(eventbus.EventSynthesisFallback, r.onFallback)
	r.hub.CloseAll()
}

func (r *Relay) send(kind, runID string, data interface{}) {
	message, err := sonic.Marshal(envelope{Type: kind, Data: data})
	if err != nil {
		r.logger.WarnTag("WS", "failed to encode %s event: %v", kind, err)
		return
	}
	r.hub.Broadcast(runID, message)
}
