// Package discord binds the moderation agent to the Discord gateway and REST API.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"swear-jar/contract"
	"swear-jar/domain"
	"swear-jar/domain/event"
	"swear-jar/errors"
	"swear-jar/observability"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const publishTimeout = 2 * time.Second

var (
	_ contract.RoomDirectory       = (*Adapter)(nil)
	_ contract.VoiceGateway        = (*Adapter)(nil)
	_ contract.Messenger           = (*Adapter)(nil)
	_ contract.ParticipantResolver = (*Adapter)(nil)
)

// Streams are the internal channels fed by gateway events.
type Streams struct {
	Messages  chan event.Event
	Presences chan event.Event
}

type Adapter struct {
	log        *slog.Logger
	session    *discordgo.Session
	streams    Streams
	silenceGap time.Duration

	mu  sync.RWMutex
	ctx context.Context
}

func NewAdapter(log *slog.Logger, token string, streams Streams, silenceGap time.Duration) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", errors.ErrPlatform, err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent
	session.StateEnabled = true
	// Handlers run on the gateway goroutine so events reach the streams in gateway order.
	session.SyncEvents = true

	a := &Adapter{
		log:        log,
		session:    session,
		streams:    streams,
		silenceGap: silenceGap,
		ctx:        context.Background(),
	}
	session.AddHandler(a.onReady)
	session.AddHandler(a.onMessageCreate)
	session.AddHandler(a.onVoiceStateUpdate)
	return a, nil
}

// Open connects to the gateway. Events are published until ctx is done.
func (a *Adapter) Open(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("%w: open gateway: %v", errors.ErrPlatform, err)
	}
	a.log.Info("Connected to the platform gateway")
	return nil
}

func (a *Adapter) Close() error {
	return a.session.Close()
}

func (a *Adapter) onReady(s *discordgo.Session, r *discordgo.Ready) {
	a.log.Info("Gateway ready", "user", r.User.ID, "communities", len(r.Guilds))
	a.publish(a.streams.Presences, event.New(event.ConnectionReadyType, readyEvent(r)))
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.GuildID == "" {
		return
	}
	a.publish(a.streams.Messages, event.New(event.MessageSentType, messageEvent(m)))
}

func (a *Adapter) onVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.VoiceState == nil {
		return
	}
	var automated bool
	if vs.Member != nil && vs.Member.User != nil {
		automated = vs.Member.User.Bot
	} else {
		automated = a.isBot(domain.CommunityID(vs.GuildID))(vs.UserID)
	}
	a.publish(a.streams.Presences, event.New(event.PresenceChangedType, presenceEvent(a.selfID(), vs, automated)))
}

// publish waits a bounded time for room in the stream, then drops the event.
func (a *Adapter) publish(ch chan event.Event, evt event.Event) {
	a.mu.RLock()
	ctx := a.ctx
	a.mu.RUnlock()

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case ch <- evt:
	case <-ctx.Done():
	case <-timer.C:
		observability.PlatformErrors.WithLabelValues("publish").Inc()
		a.log.Warn("Stream full, gateway event dropped", "type", evt.Type)
	}
}

func (a *Adapter) selfID() string {
	if a.session.State == nil || a.session.State.User == nil {
		return ""
	}
	return a.session.State.User.ID
}

// ListRooms returns the voice channels of the community by position, then ID.
func (a *Adapter) ListRooms(ctx context.Context, community domain.CommunityID) ([]domain.AudioRoom, error) {
	channels, err := a.session.GuildChannels(string(community), discordgo.WithContext(ctx))
	if err != nil {
		observability.PlatformErrors.WithLabelValues("list_rooms").Inc()
		return nil, fmt.Errorf("%w: list rooms of %s: %v", errors.ErrPlatform, community, err)
	}
	return voiceRooms(community, channels), nil
}

// ListOccupants reads the voice states tracked by the session state cache.
func (a *Adapter) ListOccupants(ctx context.Context, community domain.CommunityID, room domain.RoomID) ([]domain.Participant, error) {
	guild, err := a.session.State.Guild(string(community))
	if err != nil {
		observability.PlatformErrors.WithLabelValues("list_occupants").Inc()
		return nil, fmt.Errorf("%w: guild %s not in state: %v", errors.ErrPlatform, community, err)
	}
	return occupants(guild.VoiceStates, room, a.isBotWithContext(ctx, community)), nil
}

func (a *Adapter) isBot(community domain.CommunityID) func(string) bool {
	a.mu.RLock()
	ctx := a.ctx
	a.mu.RUnlock()
	return a.isBotWithContext(ctx, community)
}

// isBotWithContext checks the member cache first, then falls back to the REST API.
func (a *Adapter) isBotWithContext(ctx context.Context, community domain.CommunityID) func(string) bool {
	return func(userID string) bool {
		if m, err := a.session.State.Member(string(community), userID); err == nil && m.User != nil {
			return m.User.Bot
		}
		m, err := a.session.GuildMember(string(community), userID, discordgo.WithContext(ctx))
		if err != nil || m.User == nil {
			a.log.Debug("Unable to resolve member, considered human", "user", userID, "error", err)
			return false
		}
		return m.User.Bot
	}
}

// JoinRoom connects muted. Joining a room of a community where the agent is
// already connected moves the existing connection.
func (a *Adapter) JoinRoom(ctx context.Context, community domain.CommunityID, room domain.RoomID) (contract.VoiceSession, error) {
	vc, err := a.session.ChannelVoiceJoin(string(community), string(room), true, false)
	if err != nil {
		return nil, fmt.Errorf("%w: join %s/%s: %v", errors.ErrPlatform, community, room, err)
	}
	return newVoiceSession(a.log, vc, room, NewDemux(a.silenceGap), a.isBot(community)), nil
}

func (a *Adapter) SendMessage(ctx context.Context, channel string, text string) error {
	if _, err := a.session.ChannelMessageSend(channel, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: send to %s: %v", errors.ErrPlatform, channel, err)
	}
	return nil
}

func (a *Adapter) AddReaction(ctx context.Context, channel string, messageID string, symbol string) error {
	if err := a.session.MessageReactionAdd(channel, messageID, symbol, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: react on %s: %v", errors.ErrPlatform, messageID, err)
	}
	return nil
}

func (a *Adapter) DisplayName(ctx context.Context, participant domain.ParticipantID) (string, error) {
	u, err := a.session.User(string(participant), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errors.ErrUnknownParticipant, participant, err)
	}
	return displayName(u), nil
}
