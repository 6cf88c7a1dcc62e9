package event

// Handler reacts to the telemetry it knows and ignores every other event type.
type Handler interface {
	Handle(event Event)
}

// Handlers offers each event to every handler, in registration order.
type Handlers []Handler

func (hs Handlers) Handle(event Event) {
	for _, h := range hs {
		h.Handle(event)
	}
}
