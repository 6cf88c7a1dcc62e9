package event

import (
	"log/slog"
	"swear-jar/errors"
	"sync"
)

// LexiconHitHandler counts lexicon matches per word and per source.
type LexiconHitHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter uint64
	hit     map[string]uint64
	sources map[Source]uint64
}

func NewLexiconHitHandler(log *slog.Logger) *LexiconHitHandler {
	return &LexiconHitHandler{
		log:     log,
		counter: 0,
		hit:     make(map[string]uint64),
		sources: make(map[Source]uint64),
	}
}

func (h *LexiconHitHandler) Handle(event Event) {
	switch event.Type {
	case LexiconHitType:
		payload, ok := event.Payload.(LexiconHit)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, w := range payload.Words {
			h.counter++
			h.hit[w]++
			h.sources[payload.Source]++
		}
	}
}

func (h *LexiconHitHandler) Hits(word string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hit[word]
}

func (h *LexiconHitHandler) Total() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counter
}

func (h *LexiconHitHandler) BySource(source Source) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sources[source]
}
