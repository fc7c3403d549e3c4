package events

import (
	"context"

	"go.uber.org/zap"
)

var realtimeTypes = []EventType{EventTicketChanged, EventCommentsChanged, EventNotificationsChanged}

// RegisterRealtime forwards realtime events from the dispatcher to the local hub
// and, when remote is non-nil, to the other instances.
func RegisterRealtime(dispatcher Dispatcher, hub *Hub, remote Publisher, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, eventType := range realtimeTypes {
		dispatcher.Subscribe(eventType, func(ctx context.Context, event Event) error {
			hub.Broadcast(event)
			if remote == nil {
				return nil
			}
			return remote.Publish(ctx, event)
		})
	}
	logger.Debug("realtime forwarding registered", zap.Int("event_types", len(realtimeTypes)))
}
