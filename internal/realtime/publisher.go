package realtime

import "context"

// Publisher is the narrow surface other services need to emit realtime
// events; the full Bus implements it. Kept separate so packages like
// registration, ingest, and health depend on an interface, not the
// websocket/Redis machinery.
type Publisher interface {
	Publish(ctx context.Context, room, event string, payload any) error
}
