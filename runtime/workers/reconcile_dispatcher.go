package workers

import (
	"context"
	"fmt"
	"log/slog"
	"swear-jar/contract"
	"swear-jar/domain"
	"swear-jar/domain/event"
	"swear-jar/errors"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// ReconcileDispatcher turns presence events into reconciliations.
// Each community owns a FIFO queue drained by a single goroutine, so
// reconciliations of one community never overlap and run in event order,
// while different communities progress in parallel.
type ReconcileDispatcher struct {
	log          *slog.Logger
	reconciler   contract.Reconciler
	presenceChan chan event.Event
	queueSize    int
	queues       *xsync.MapOf[domain.CommunityID, chan struct{}]
	wg           sync.WaitGroup
}

func NewReconcileDispatcher(log *slog.Logger,
	reconciler contract.Reconciler,
	presenceChan chan event.Event,
	queueSize int) *ReconcileDispatcher {
	return &ReconcileDispatcher{
		log:          log,
		reconciler:   reconciler,
		presenceChan: presenceChan,
		queueSize:    queueSize,
		queues:       xsync.NewMapOf[domain.CommunityID, chan struct{}](),
	}
}

func (d *ReconcileDispatcher) Run(ctx context.Context) error {
	defer d.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("Stopping reconcile dispatcher")
			return nil
		case e, ok := <-d.presenceChan:
			if !ok {
				d.log.Debug("Channel is closed")
				return nil
			}
			switch evt := e.Payload.(type) {
			case event.PresenceChanged:
				if !Relevant(evt) {
					continue
				}
				d.enqueue(ctx, evt.Community)
			case event.ConnectionReady:
				for _, community := range evt.Communities {
					d.enqueue(ctx, community)
				}
			default:
				d.log.Error(errors.ErrInvalidPayload.Error(), "type", e.Type)
			}
		}
	}
}

// Relevant filters out other bots and state changes that keep the room unchanged.
func Relevant(evt event.PresenceChanged) bool {
	if evt.Automated && !evt.Self {
		return false
	}
	return evt.Before != evt.After
}

// enqueue never blocks the dispatch loop. A full queue already holds
// reconciliations that will observe the latest membership, so the request is dropped.
func (d *ReconcileDispatcher) enqueue(ctx context.Context, community domain.CommunityID) {
	queue, loaded := d.queues.LoadOrCompute(community, func() chan struct{} {
		return make(chan struct{}, d.queueSize)
	})
	if !loaded {
		d.wg.Add(1)
		go d.drain(ctx, community, queue)
	}
	select {
	case queue <- struct{}{}:
	default:
		d.log.Debug("Reconcile queue full, request coalesced", "community", community)
	}
}

func (d *ReconcileDispatcher) drain(ctx context.Context, community domain.CommunityID, queue chan struct{}) {
	defer d.wg.Done()
	defer d.queues.Delete(community)
	for {
		select {
		case <-ctx.Done():
			return
		case <-queue:
			if err := d.reconcile(ctx, community); err != nil {
				d.log.Warn("Reconcile failed", "community", community, "error", err)
			}
		}
	}
}

func (d *ReconcileDispatcher) reconcile(ctx context.Context, community domain.CommunityID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return d.reconciler.Reconcile(ctx, community)
}
