package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"swear-jar/contract"
	"swear-jar/domain"
	"swear-jar/errors"
	"swear-jar/observability"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

var _ contract.Reconciler = (*OccupancyTracker)(nil)

// presence is never mutated once stored, a new value replaces it.
type presence struct {
	community domain.CommunityID
	room      domain.RoomID
	session   contract.VoiceSession
	sink      contract.AudioSink
	joinedAt  time.Time
}

// OccupancyTracker owns the agent presences, at most one per community.
// Reconciliations of one community are serialized; communities are independent.
type OccupancyTracker struct {
	log             *slog.Logger
	directory       contract.RoomDirectory
	gateway         contract.VoiceGateway
	sinks           contract.SinkFactory
	platformTimeout time.Duration
	presences       *xsync.MapOf[domain.CommunityID, *presence]
	locks           *xsync.MapOf[domain.CommunityID, *sync.Mutex]
}

func NewOccupancyTracker(log *slog.Logger,
	directory contract.RoomDirectory,
	gateway contract.VoiceGateway,
	sinks contract.SinkFactory,
	platformTimeout time.Duration) *OccupancyTracker {
	return &OccupancyTracker{
		log:             log,
		directory:       directory,
		gateway:         gateway,
		sinks:           sinks,
		platformTimeout: platformTimeout,
		presences:       xsync.NewMapOf[domain.CommunityID, *presence](),
		locks:           xsync.NewMapOf[domain.CommunityID, *sync.Mutex](),
	}
}

// Reconcile moves the agent presence of a community to the room holding the
// most human participants, or removes it when every room is empty.
// It performs at most one room transition.
func (t *OccupancyTracker) Reconcile(ctx context.Context, community domain.CommunityID) error {
	lock := t.lockOf(community)
	lock.Lock()
	defer lock.Unlock()

	t.dropStale(ctx, community)

	occupancy, err := t.occupancy(ctx, community)
	if err != nil {
		observability.Reconciliations.WithLabelValues("failed").Inc()
		return err
	}
	room, humans, ok := domain.SelectRoom(occupancy)
	current, exists := t.presences.Load(community)

	if !ok {
		if !exists {
			observability.Reconciliations.WithLabelValues("noop").Inc()
			return nil
		}
		t.log.Info("Every audio room is empty, leaving", "community", community, "room", current.room)
		if err := t.leave(ctx, current); err != nil {
			observability.Reconciliations.WithLabelValues("failed").Inc()
			return err
		}
		observability.Reconciliations.WithLabelValues("left").Inc()
		return nil
	}

	if exists && current.room == room.ID {
		t.ensureSink(current)
		observability.Reconciliations.WithLabelValues("noop").Inc()
		return nil
	}

	outcome := "joined"
	if exists {
		t.log.Info("Switching audio room", "community", community, "from", current.room, "to", room.ID, "humans", humans)
		if err := t.leave(ctx, current); err != nil {
			observability.Reconciliations.WithLabelValues("failed").Inc()
			return err
		}
		outcome = "switched"
	}

	if err := t.join(ctx, community, room.ID); err != nil {
		observability.Reconciliations.WithLabelValues("failed").Inc()
		return err
	}
	t.log.Info("Audio room joined", "community", community, "room", room.ID, "name", room.Name, "humans", humans)
	observability.Reconciliations.WithLabelValues(outcome).Inc()
	return nil
}

// Presences returns a snapshot ordered by community.
func (t *OccupancyTracker) Presences() []domain.PresenceInfo {
	var infos []domain.PresenceInfo
	t.presences.Range(func(_ domain.CommunityID, p *presence) bool {
		infos = append(infos, domain.PresenceInfo{
			Community:    p.community,
			Room:         p.room,
			JoinedAt:     p.joinedAt,
			Transcribing: p.sink.Attached(),
		})
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Community < infos[j].Community })
	return infos
}

// Close leaves every audio room.
func (t *OccupancyTracker) Close(ctx context.Context) error {
	var communities []domain.CommunityID
	t.presences.Range(func(c domain.CommunityID, _ *presence) bool {
		communities = append(communities, c)
		return true
	})

	var errs []error
	for _, community := range communities {
		lock := t.lockOf(community)
		lock.Lock()
		if p, ok := t.presences.Load(community); ok {
			if err := t.leave(ctx, p); err != nil {
				errs = append(errs, err)
			}
		}
		lock.Unlock()
	}
	return errors.Join(errs...)
}

func (t *OccupancyTracker) lockOf(community domain.CommunityID) *sync.Mutex {
	lock, _ := t.locks.LoadOrCompute(community, func() *sync.Mutex { return &sync.Mutex{} })
	return lock
}

// dropStale forgets a presence the platform already ended or moved.
func (t *OccupancyTracker) dropStale(ctx context.Context, community domain.CommunityID) {
	p, ok := t.presences.Load(community)
	if !ok {
		return
	}
	if p.session.Connected() && p.session.Room() == p.room {
		return
	}
	t.log.Warn("Stale audio presence, tearing down", "community", community, "room", p.room)
	p.sink.Detach()
	callCtx, cancel := context.WithTimeout(ctx, t.platformTimeout)
	defer cancel()
	if err := p.session.Leave(callCtx); err != nil {
		t.log.Debug("Leaving stale session failed", "community", community, "error", err)
	}
	t.presences.Delete(community)
	observability.ActivePresences.Set(float64(t.presences.Size()))
}

func (t *OccupancyTracker) occupancy(ctx context.Context, community domain.CommunityID) ([]domain.RoomOccupancy, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.platformTimeout)
	defer cancel()

	rooms, err := t.directory.ListRooms(callCtx, community)
	if err != nil {
		return nil, fmt.Errorf("%w: list rooms of %s: %v", errors.ErrPlatform, community, err)
	}
	occupancy := make([]domain.RoomOccupancy, 0, len(rooms))
	for _, room := range rooms {
		occupants, err := t.directory.ListOccupants(callCtx, community, room.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: list occupants of %s: %v", errors.ErrPlatform, room.ID, err)
		}
		occupancy = append(occupancy, domain.RoomOccupancy{Room: room, Humans: domain.CountHumans(occupants)})
	}
	return occupancy, nil
}

// ensureSink replaces a sink whose consumer is gone while the session is still up.
func (t *OccupancyTracker) ensureSink(p *presence) {
	if p.sink.Attached() {
		return
	}
	p.sink.Detach()
	sink := t.sinks.NewSink(p.community, p.room)
	if err := sink.Attach(p.session); err != nil {
		t.log.Error("Unable to attach transcription sink", "community", p.community, "room", p.room, "error", err)
	}
	t.presences.Store(p.community, &presence{
		community: p.community,
		room:      p.room,
		session:   p.session,
		sink:      sink,
		joinedAt:  p.joinedAt,
	})
}

// leave detaches the sink before the session goes away. When leaving fails the
// record is kept so no other room is joined until a later reconciliation succeeds.
func (t *OccupancyTracker) leave(ctx context.Context, p *presence) error {
	p.sink.Detach()

	callCtx, cancel := context.WithTimeout(ctx, t.platformTimeout)
	defer cancel()
	if err := p.session.Leave(callCtx); err != nil {
		observability.PlatformErrors.WithLabelValues("leave").Inc()
		return fmt.Errorf("%w: %s: %v", errors.ErrLeaveRoom, p.room, err)
	}
	t.presences.Delete(p.community)
	observability.ActivePresences.Set(float64(t.presences.Size()))
	return nil
}

func (t *OccupancyTracker) join(ctx context.Context, community domain.CommunityID, room domain.RoomID) error {
	callCtx, cancel := context.WithTimeout(ctx, t.platformTimeout)
	defer cancel()

	session, err := t.gateway.JoinRoom(callCtx, community, room)
	if err != nil {
		observability.PlatformErrors.WithLabelValues("join").Inc()
		return fmt.Errorf("%w: %s: %v", errors.ErrJoinRoom, room, err)
	}
	sink := t.sinks.NewSink(community, room)
	if err := sink.Attach(session); err != nil {
		t.log.Error("Unable to attach transcription sink", "community", community, "room", room, "error", err)
	}
	t.presences.Store(community, &presence{
		community: community,
		room:      room,
		session:   session,
		sink:      sink,
		joinedAt:  time.Now().UTC(),
	})
	observability.ActivePresences.Set(float64(t.presences.Size()))
	return nil
}
