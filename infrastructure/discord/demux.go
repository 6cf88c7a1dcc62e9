package discord

import (
	"sort"
	"swear-jar/domain"
	"sync"
	"time"
)

// opusSilence is the frame the platform sends when a speaker stops talking.
var opusSilence = []byte{0xF8, 0xFF, 0xFE}

// RawPacket is one Opus packet as received on the voice connection.
type RawPacket struct {
	SSRC      uint32
	Sequence  uint16
	Timestamp uint32
	Opus      []byte
}

type speaker struct {
	participant domain.ParticipantID
	automated   bool
}

type stream struct {
	speaker
	lastSeen time.Time
	open     bool
}

// Demux splits the mixed packet flow of a voice connection into per participant
// packets. Packets from an SSRC not yet bound to a participant are dropped.
type Demux struct {
	mu      sync.Mutex
	gap     time.Duration
	streams map[uint32]*stream
}

func NewDemux(silenceGap time.Duration) *Demux {
	return &Demux{gap: silenceGap, streams: make(map[uint32]*stream)}
}

// Bind records which participant speaks on ssrc.
func (d *Demux) Bind(ssrc uint32, participant domain.ParticipantID, automated bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.streams[ssrc]
	if !ok {
		d.streams[ssrc] = &stream{speaker: speaker{participant: participant, automated: automated}}
		return
	}
	s.speaker = speaker{participant: participant, automated: automated}
}

// Packet converts a raw packet. A silence frame closes the open utterance of its speaker.
func (d *Demux) Packet(p RawPacket, now time.Time) []domain.AudioPacket {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.streams[p.SSRC]
	if !ok {
		return nil
	}
	if isSilence(p.Opus) {
		if !s.open {
			return nil
		}
		s.open = false
		return []domain.AudioPacket{s.boundary()}
	}
	s.open = true
	s.lastSeen = now
	return []domain.AudioPacket{{
		Kind:        domain.PacketFrame,
		Participant: s.participant,
		Automated:   s.automated,
		Frame: domain.AudioFrame{
			Data:       append([]byte(nil), p.Opus...),
			Sequence:   p.Sequence,
			Timestamp:  p.Timestamp,
			ReceivedAt: now,
		},
	}}
}

// Expire closes every utterance that received no packet for the silence gap.
// Boundaries are ordered by participant.
func (d *Demux) Expire(now time.Time) []domain.AudioPacket {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.AudioPacket
	for _, s := range d.streams {
		if s.open && now.Sub(s.lastSeen) >= d.gap {
			s.open = false
			out = append(out, s.boundary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Participant < out[j].Participant })
	return out
}

func (s *stream) boundary() domain.AudioPacket {
	return domain.AudioPacket{
		Kind:        domain.PacketEndOfUtterance,
		Participant: s.participant,
		Automated:   s.automated,
	}
}

func isSilence(opus []byte) bool {
	if len(opus) != len(opusSilence) {
		return len(opus) == 0
	}
	for i := range opus {
		if opus[i] != opusSilence[i] {
			return false
		}
	}
	return true
}
