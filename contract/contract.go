//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"swear-jar/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// RoomDirectory lists the audio rooms of a community and who occupies them.
// Rooms are returned in the community listing order.
type RoomDirectory interface {
	ListRooms(ctx context.Context, community domain.CommunityID) ([]domain.AudioRoom, error)
	ListOccupants(ctx context.Context, community domain.CommunityID, room domain.RoomID) ([]domain.Participant, error)
}

// VoiceGateway connects the agent to an audio room.
type VoiceGateway interface {
	JoinRoom(ctx context.Context, community domain.CommunityID, room domain.RoomID) (VoiceSession, error)
}

// VoiceSession is the agent presence inside one audio room.
// Audio yields packets already demultiplexed per participant; the channel is
// closed once the session is left.
type VoiceSession interface {
	Room() domain.RoomID
	Connected() bool
	Audio() <-chan domain.AudioPacket
	Leave(ctx context.Context) error
}

type Messenger interface {
	SendMessage(ctx context.Context, channel string, text string) error
	AddReaction(ctx context.Context, channel string, messageID string, symbol string) error
}

type ParticipantResolver interface {
	DisplayName(ctx context.Context, participant domain.ParticipantID) (string, error)
}

// Recognizer is the speech-to-text engine. Calls for different speakers may run concurrently.
type Recognizer interface {
	Recognize(ctx context.Context, segment domain.Segment) (string, error)
}

// LedgerRepository is the storage substrate of the offense ledger.
// Increment must be atomic per participant; TopK must never observe a partially applied increment.
type LedgerRepository interface {
	Increment(ctx context.Context, participant domain.ParticipantID, delta uint64) (uint64, error)
	Get(ctx context.Context, participant domain.ParticipantID) (uint64, error)
	TopK(ctx context.Context, k int) ([]domain.LedgerEntry, error)
}

// Reconciler decides where the agent audio presence belongs in a community.
type Reconciler interface {
	Reconcile(ctx context.Context, community domain.CommunityID) error
}

// AudioSink consumes the audio of one voice session until detached.
type AudioSink interface {
	Attach(session VoiceSession) error
	Detach()
	Attached() bool
}

// SinkFactory creates the sink bound to a new presence.
type SinkFactory interface {
	NewSink(community domain.CommunityID, room domain.RoomID) AudioSink
}
