package event

import (
	"swear-jar/domain"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	MessageSentType         Type = "MESSAGE_SENT"
	PresenceChangedType     Type = "PRESENCE_CHANGED"
	ConnectionReadyType     Type = "CONNECTION_READY"
	UtteranceRecognizedType Type = "UTTERANCE_RECOGNIZED"
	OffenseRecordedType     Type = "OFFENSE_RECORDED"
	LexiconHitType          Type = "LEXICON_HIT"
	RecognitionDroppedType  Type = "RECOGNITION_DROPPED"
)

// Event is the envelope carried by every internal stream.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

// MessageSent is a typed message observed in a community text channel.
type MessageSent struct {
	ID              string
	Community       domain.CommunityID
	Channel         string
	Author          domain.ParticipantID
	AuthorAutomated bool
	Content         string
	At              time.Time
}

// PresenceChanged reports a participant moving between audio rooms.
// Self is set when the participant is the agent itself.
type PresenceChanged struct {
	Community   domain.CommunityID
	Participant domain.ParticipantID
	Automated   bool
	Self        bool
	Before      domain.RoomID
	After       domain.RoomID
}

// ConnectionReady lists the communities the agent already belongs to once connected.
type ConnectionReady struct {
	Communities []domain.CommunityID
}

// UtteranceRecognized is one unit of recognized speech attributed to one participant.
type UtteranceRecognized struct {
	ID        uuid.UUID
	Community domain.CommunityID
	Room      domain.RoomID
	Speaker   domain.ParticipantID
	Text      string
	At        time.Time
}

type Source string

const (
	TextSource  Source = "text"
	VoiceSource Source = "voice"
)

type OffenseRecorded struct {
	Participant domain.ParticipantID
	Source      Source
	Delta       uint64
	Total       uint64
}

type LexiconHit struct {
	Source Source
	Words  []string
}

type RecognitionDropped struct {
	Community domain.CommunityID
	Room      domain.RoomID
	Speaker   domain.ParticipantID
	Reason    string
}
