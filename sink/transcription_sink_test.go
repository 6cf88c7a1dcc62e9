package sink

import (
	"context"
	"fmt"
	"log/slog"
	"swear-jar/domain"
	"swear-jar/domain/event"
	"swear-jar/errors"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	audio chan domain.AudioPacket
}

func newFakeSession() *fakeSession {
	return &fakeSession{audio: make(chan domain.AudioPacket, 100)}
}

func (s *fakeSession) Room() domain.RoomID { return "r1" }
func (s *fakeSession) Connected() bool { return true }
func (s *fakeSession) Audio() <-chan domain.AudioPacket { return s.audio }
func (s *fakeSession) Leave(_ context.Context) error { return nil }

func (s *fakeSession) frames(participant domain.ParticipantID, n int) {
	for i := 0; i < n; i++ {
		s.audio <- domain.AudioPacket{
			Kind:        domain.PacketFrame,
			Participant: participant,
			Frame:       domain.AudioFrame{Data: []byte{0xF8, byte(i)}, Sequence: uint16(i)},
		}
	}
}

func (s *fakeSession) boundary(participant domain.ParticipantID) {
	s.audio <- domain.AudioPacket{Kind: domain.PacketEndOfUtterance, Participant: participant}
}

// fakeRecognizer records every segment and answers with respond.
type fakeRecognizer struct {
	mu       sync.Mutex
	segments []domain.Segment
	respond  func(ctx context.Context, segment domain.Segment) (string, error)
}

func (r *fakeRecognizer) Recognize(ctx context.Context, segment domain.Segment) (string, error) {
	r.mu.Lock()
	r.segments = append(r.segments, segment)
	r.mu.Unlock()
	return r.respond(ctx, segment)
}

func (r *fakeRecognizer) calls() []domain.Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Segment(nil), r.segments...)
}

func newSink(t *testing.T, recognizer *fakeRecognizer, timeout time.Duration, maxFrames int) (*TranscriptionSink, chan event.Event, chan event.Event) {
	utterances := make(chan event.Event, 10)
	telemetry := make(chan event.Event, 10)
	s := NewTranscriptionSink(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug),
		recognizer, utterances, telemetry, "g1", "r1", timeout, maxFrames)
	t.Cleanup(s.Detach)
	return s, utterances, telemetry
}

func TestTranscriptionSink_RecognizesUtterance(t *testing.T) {
	req := require.New(t)
	recognizer := &fakeRecognizer{respond: func(_ context.Context, s domain.Segment) (string, error) {
		return "oh damn", nil
	}}
	s, utterances, _ := newSink(t, recognizer, time.Second, 100)
	session := newFakeSession()
	req.NoError(s.Attach(session))
	req.True(s.Attached())

	// Given three frames and a boundary from alice
	session.frames("alice", 3)
	session.boundary("alice")

	// Then one utterance attributed to alice is emitted
	var evt event.Event
	req.Eventually(func() bool {
		select {
		case evt = <-utterances:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	payload := evt.Payload.(event.UtteranceRecognized)
	req.Equal(domain.ParticipantID("alice"), payload.Speaker)
	req.Equal(domain.CommunityID("g1"), payload.Community)
	req.Equal("oh damn", payload.Text)

	segments := recognizer.calls()
	req.Len(segments, 1)
	req.Len(segments[0].Frames, 3)
	req.Equal(domain.OpusCodec, segments[0].Codec)
	req.Eventually(func() bool { return s.State("alice") == domain.Idle }, time.Second, 5*time.Millisecond)
}

func TestTranscriptionSink_BuffersDuringFinalizing(t *testing.T) {
	req := require.New(t)
	release := make(chan struct{})
	recognizer := &fakeRecognizer{}
	recognizer.respond = func(_ context.Context, s domain.Segment) (string, error) {
		if len(recognizer.calls()) == 1 {
			<-release
		}
		return fmt.Sprintf("%d frames", len(s.Frames)), nil
	}
	s, utterances, _ := newSink(t, recognizer, time.Second, 100)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	// Given a first utterance whose recognition is still in flight
	session.frames("alice", 2)
	session.boundary("alice")
	req.Eventually(func() bool { return s.State("alice") == domain.Finalizing }, time.Second, 5*time.Millisecond)

	// When alice keeps talking and stops again
	session.frames("alice", 4)
	session.boundary("alice")
	req.Eventually(func() bool { return len(session.audio) == 0 }, time.Second, 5*time.Millisecond)
	req.Len(recognizer.calls(), 1)

	// Then the second utterance is submitted once the first one returns
	close(release)
	req.Eventually(func() bool { return len(recognizer.calls()) == 2 }, time.Second, 5*time.Millisecond)
	req.Len(recognizer.calls()[1].Frames, 4)
	req.Eventually(func() bool { return len(utterances) == 2 }, time.Second, 5*time.Millisecond)
	req.Equal("2 frames", (<-utterances).Payload.(event.UtteranceRecognized).Text)
	req.Equal("4 frames", (<-utterances).Payload.(event.UtteranceRecognized).Text)
}

func TestTranscriptionSink_RecognitionTimeout(t *testing.T) {
	req := require.New(t)
	hang := make(chan struct{})
	defer close(hang)
	recognizer := &fakeRecognizer{respond: func(_ context.Context, _ domain.Segment) (string, error) {
		// Ignores its context on purpose
		<-hang
		return "too late", nil
	}}
	s, utterances, telemetry := newSink(t, recognizer, 50*time.Millisecond, 100)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	session.frames("alice", 2)
	session.boundary("alice")

	// The wait is bounded and the utterance is dropped
	var evt event.Event
	req.Eventually(func() bool {
		select {
		case evt = <-telemetry:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	req.Equal(event.RecognitionDroppedType, evt.Type)
	req.Equal("timeout", evt.Payload.(event.RecognitionDropped).Reason)
	req.Equal(domain.Idle, s.State("alice"))
	req.Empty(utterances)
}

func TestTranscriptionSink_RecognitionFailureIsDropped(t *testing.T) {
	req := require.New(t)
	recognizer := &fakeRecognizer{respond: func(_ context.Context, _ domain.Segment) (string, error) {
		return "", fmt.Errorf("%w: 503", errors.ErrRecognitionFailed)
	}}
	s, utterances, telemetry := newSink(t, recognizer, time.Second, 100)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	session.frames("alice", 1)
	session.boundary("alice")

	req.Eventually(func() bool { return len(telemetry) == 1 }, time.Second, 5*time.Millisecond)
	req.Equal("failed", (<-telemetry).Payload.(event.RecognitionDropped).Reason)
	req.Empty(utterances)
	req.True(s.Attached())
}

func TestTranscriptionSink_IgnoresAutomatedParticipants(t *testing.T) {
	req := require.New(t)
	recognizer := &fakeRecognizer{respond: func(_ context.Context, _ domain.Segment) (string, error) {
		return "beep", nil
	}}
	s, _, _ := newSink(t, recognizer, time.Second, 2)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	for i := 0; i < 5; i++ {
		session.audio <- domain.AudioPacket{Kind: domain.PacketFrame, Participant: "bot", Automated: true}
	}
	session.audio <- domain.AudioPacket{Kind: domain.PacketEndOfUtterance, Participant: "bot", Automated: true}

	req.Eventually(func() bool { return len(session.audio) == 0 }, time.Second, 5*time.Millisecond)
	req.Empty(recognizer.calls())
	req.Equal(domain.Idle, s.State("bot"))
}

func TestTranscriptionSink_MaxFramesForcesFinalize(t *testing.T) {
	req := require.New(t)
	recognizer := &fakeRecognizer{respond: func(_ context.Context, _ domain.Segment) (string, error) {
		return "long speech", nil
	}}
	s, utterances, _ := newSink(t, recognizer, time.Second, 3)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	// No boundary ever arrives
	session.frames("alice", 3)

	req.Eventually(func() bool { return len(utterances) == 1 }, time.Second, 5*time.Millisecond)
	req.Len(recognizer.calls()[0].Frames, 3)
}

func TestTranscriptionSink_SpeakersAreIndependent(t *testing.T) {
	req := require.New(t)
	hang := make(chan struct{})
	defer close(hang)
	recognizer := &fakeRecognizer{respond: func(ctx context.Context, s domain.Segment) (string, error) {
		if s.Speaker == "alice" {
			select {
			case <-hang:
			case <-ctx.Done():
			}
			return "", ctx.Err()
		}
		return "hello", nil
	}}
	s, utterances, _ := newSink(t, recognizer, 5*time.Second, 100)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	session.frames("alice", 2)
	session.boundary("alice")
	session.frames("bob", 2)
	session.boundary("bob")

	// Bob is recognized while alice is still finalizing
	req.Eventually(func() bool { return len(utterances) == 1 }, time.Second, 5*time.Millisecond)
	req.Equal(domain.ParticipantID("bob"), (<-utterances).Payload.(event.UtteranceRecognized).Speaker)
	req.Equal(domain.Finalizing, s.State("alice"))
}

func TestTranscriptionSink_DetachDropsLateResults(t *testing.T) {
	req := require.New(t)
	release := make(chan struct{})
	recognizer := &fakeRecognizer{respond: func(_ context.Context, _ domain.Segment) (string, error) {
		<-release
		return "damn", nil
	}}
	s, utterances, _ := newSink(t, recognizer, 5*time.Second, 100)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	session.frames("alice", 2)
	session.boundary("alice")
	req.Eventually(func() bool { return len(recognizer.calls()) == 1 }, time.Second, 5*time.Millisecond)

	// When detaching while the recognition is in flight
	s.Detach()
	close(release)

	// Then the late result never reaches the utterance stream
	time.Sleep(50 * time.Millisecond)
	req.Empty(utterances)
	req.False(s.Attached())
	req.ErrorIs(s.Attach(session), errors.ErrSinkClosed)

	// Detach is idempotent
	s.Detach()
}

func TestTranscriptionSink_ClosedAudioStream(t *testing.T) {
	req := require.New(t)
	recognizer := &fakeRecognizer{respond: func(_ context.Context, _ domain.Segment) (string, error) {
		return "", nil
	}}
	s, _, _ := newSink(t, recognizer, time.Second, 100)
	session := newFakeSession()
	req.NoError(s.Attach(session))
	req.NoError(s.Attach(session))

	close(session.audio)
	req.Eventually(func() bool { return !s.Attached() }, time.Second, 5*time.Millisecond)
}

func TestTranscriptionSink_StalledUtteranceStreamKeepsOthersBuffering(t *testing.T) {
	req := require.New(t)
	recognizer := &fakeRecognizer{respond: func(_ context.Context, _ domain.Segment) (string, error) {
		return "hello", nil
	}}
	// Given an utterance stream nobody reads
	utterances := make(chan event.Event)
	s := NewTranscriptionSink(context.Background(), logs.GetLoggerFromLevel(slog.LevelDebug),
		recognizer, utterances, nil, "g1", "r1", time.Second, 100)
	t.Cleanup(s.Detach)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	// When alice's recognized utterance waits on the stream
	session.frames("alice", 2)
	session.boundary("alice")
	req.Eventually(func() bool { return len(recognizer.calls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// Then bob still buffers and alice stays Finalizing
	session.frames("bob", 3)
	req.Eventually(func() bool { return s.State("bob") == domain.Buffering }, 500*time.Millisecond, 5*time.Millisecond)
	req.Equal(domain.Finalizing, s.State("alice"))
	req.True(s.Attached())

	// And the event is delivered once the stream is drained
	evt := <-utterances
	req.Equal("hello", evt.Payload.(event.UtteranceRecognized).Text)
	req.Eventually(func() bool { return s.State("alice") == domain.Idle }, time.Second, 5*time.Millisecond)
}

func TestTranscriptionSink_BoundaryForIdleSpeakerKeepsNoState(t *testing.T) {
	req := require.New(t)
	recognizer := &fakeRecognizer{respond: func(_ context.Context, _ domain.Segment) (string, error) {
		return "", nil
	}}
	s, _, _ := newSink(t, recognizer, time.Second, 100)
	session := newFakeSession()
	req.NoError(s.Attach(session))

	// Given boundaries for a participant that never spoke
	session.boundary("carol")
	session.boundary("carol")
	session.frames("bob", 1)

	// Then only the speaking participant is tracked
	req.Eventually(func() bool { return s.State("bob") == domain.Buffering }, time.Second, 5*time.Millisecond)
	s.mu.Lock()
	_, tracked := s.states["carol"]
	count := len(s.states)
	s.mu.Unlock()
	req.False(tracked)
	req.Equal(1, count)
	req.Empty(recognizer.calls())
}
