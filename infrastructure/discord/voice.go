package discord

import (
	"context"
	"log/slog"
	"swear-jar/domain"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// voiceSession pumps the Opus packets of one connection through a Demux.
type voiceSession struct {
	log   *slog.Logger
	vc    *discordgo.VoiceConnection
	room  domain.RoomID
	demux *Demux
	audio chan domain.AudioPacket

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

func newVoiceSession(log *slog.Logger, vc *discordgo.VoiceConnection, room domain.RoomID, demux *Demux, isBot func(string) bool) *voiceSession {
	s := &voiceSession{
		log:   log.With("room", room),
		vc:    vc,
		room:  room,
		demux: demux,
		audio: make(chan domain.AudioPacket, 256),
		done:  make(chan struct{}),
	}
	vc.AddHandler(func(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
		demux.Bind(uint32(su.SSRC), domain.ParticipantID(su.UserID), isBot(su.UserID))
	})
	s.wg.Add(1)
	go s.pump()
	return s
}

func (s *voiceSession) Room() domain.RoomID { return s.room }

func (s *voiceSession) Audio() <-chan domain.AudioPacket { return s.audio }

func (s *voiceSession) Connected() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	s.vc.RLock()
	defer s.vc.RUnlock()
	return s.vc.Ready && domain.RoomID(s.vc.ChannelID) == s.room
}

// Leave disconnects once. Audio is closed after the pump has returned.
func (s *voiceSession) Leave(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.vc.Disconnect()
		s.wg.Wait()
		close(s.audio)
	})
	return err
}

func (s *voiceSession) pump() {
	defer s.wg.Done()
	interval := s.demux.gap / 2
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case p, ok := <-s.vc.OpusRecv:
			if !ok {
				s.log.Debug("Voice receive channel closed")
				return
			}
			if p == nil {
				continue
			}
			raw := RawPacket{SSRC: p.SSRC, Sequence: p.Sequence, Timestamp: p.Timestamp, Opus: p.Opus}
			if !s.forward(s.demux.Packet(raw, time.Now())) {
				return
			}
		case now := <-ticker.C:
			if !s.forward(s.demux.Expire(now)) {
				return
			}
		}
	}
}

func (s *voiceSession) forward(packets []domain.AudioPacket) bool {
	for _, p := range packets {
		select {
		case s.audio <- p:
		case <-s.done:
			return false
		}
	}
	return true
}
