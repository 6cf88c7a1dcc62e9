// Package domain contains core concepts of the moderation agent.
// This file defines audio frames, demultiplexed packets and utterance segments.
package domain

import "time"

const (
	OpusCodec       = "opus"
	OpusSampleRate  = 48000
	OpusChannelSize = 2
)

// AudioFrame is one encoded frame received from a single participant.
type AudioFrame struct {
	Data       []byte
	Sequence   uint16
	Timestamp  uint32
	ReceivedAt time.Time
}

type PacketKind int

const (
	// PacketFrame carries audio for one participant.
	PacketFrame PacketKind = iota
	// PacketEndOfUtterance is the voice-activity boundary signalled by the platform.
	PacketEndOfUtterance
)

// AudioPacket is the unit produced by the per-participant audio demux.
type AudioPacket struct {
	Kind        PacketKind
	Participant ParticipantID
	Automated   bool
	Frame       AudioFrame
}

// Segment is the buffered audio of one utterance, submitted to the speech engine.
type Segment struct {
	Community   CommunityID
	Room        RoomID
	Speaker     ParticipantID
	Codec       string
	SampleRate  int
	Channels    int
	Frames      []AudioFrame
	StartedAt   time.Time
	FinalizedAt time.Time
}

// Duration is the wall clock span covered by the segment frames.
func (s Segment) Duration() time.Duration {
	if len(s.Frames) == 0 {
		return 0
	}
	return s.Frames[len(s.Frames)-1].ReceivedAt.Sub(s.Frames[0].ReceivedAt)
}

// UtteranceState is the segmentation state of one speaking participant.
type UtteranceState int

const (
	Idle UtteranceState = iota
	Buffering
	Finalizing
)

func (s UtteranceState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Buffering:
		return "BUFFERING"
	case Finalizing:
		return "FINALIZING"
	default:
		return "UNKNOWN"
	}
}
