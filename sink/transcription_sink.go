package sink

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

	"github.com/google/uuid"
)

var _ contract.AudioSink = (*TranscriptionSink)(nil)

// utterance is the segmentation state of one speaking participant.
// frames only grows while Buffering, or while Finalizing for the next utterance.
type utterance struct {
	state           domain.UtteranceState
	frames          []domain.AudioFrame
	startedAt       time.Time
	pendingBoundary bool
}

type recognition struct {
	text string
	err  error
}

// TranscriptionSink turns the demultiplexed audio of one presence into
// UtteranceRecognized events, one utterance state machine per participant.
type TranscriptionSink struct {
	mu                 sync.Mutex
	log                *slog.Logger
	recognizer         contract.Recognizer
	utteranceChan      chan event.Event
	telemetryChan      chan event.Event
	community          domain.CommunityID
	room               domain.RoomID
	recognitionTimeout time.Duration
	maxFrames          int

	ctx       context.Context
	cancel    context.CancelFunc
	states    map[domain.ParticipantID]*utterance
	attached  bool
	detached  bool
	consuming bool
	consumer  sync.WaitGroup
	inFlight  sync.WaitGroup
}

func NewTranscriptionSink(
	ctx context.Context,
	log *slog.Logger,
	recognizer contract.Recognizer,
	utteranceChan chan event.Event,
	telemetryChan chan event.Event,
	community domain.CommunityID,
	room domain.RoomID,
	recognitionTimeout time.Duration,
	maxFrames int,
) *TranscriptionSink {
	sinkCtx, cancel := context.WithCancel(ctx)
	return &TranscriptionSink{
		log:                log.With("community", community, "room", room),
		recognizer:         recognizer,
		utteranceChan:      utteranceChan,
		telemetryChan:      telemetryChan,
		community:          community,
		room:               room,
		recognitionTimeout: recognitionTimeout,
		maxFrames:          maxFrames,
		ctx:                sinkCtx,
		cancel:             cancel,
		states:             make(map[domain.ParticipantID]*utterance),
	}
}

// Attach starts consuming the session audio. Attaching twice is a no-op,
// attaching a detached sink is ErrSinkClosed.
func (s *TranscriptionSink) Attach(session contract.VoiceSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return errors.ErrSinkClosed
	}
	if s.attached {
		return nil
	}
	s.attached = true
	s.consuming = true
	s.consumer.Add(1)
	go s.consume(session.Audio())
	s.log.Debug("Transcription sink attached")
	return nil
}

// Detach cancels every in-flight recognition and discards all buffered audio.
// Once it returns, no UtteranceRecognized event is emitted by this sink.
func (s *TranscriptionSink) Detach() {
	s.cancel()

	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	s.states = make(map[domain.ParticipantID]*utterance)
	s.mu.Unlock()

	s.consumer.Wait()
	s.inFlight.Wait()
	s.log.Debug("Transcription sink detached")
}

func (s *TranscriptionSink) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached && !s.detached && s.consuming
}

// State reports the segmentation state of one participant.
func (s *TranscriptionSink) State(participant domain.ParticipantID) domain.UtteranceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.states[participant]; ok {
		return u.state
	}
	return domain.Idle
}

func (s *TranscriptionSink) consume(audio <-chan domain.AudioPacket) {
	defer s.consumer.Done()
	defer func() {
		s.mu.Lock()
		s.consuming = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case packet, ok := <-audio:
			if !ok {
				s.log.Debug("Audio stream closed")
				return
			}
			s.handle(packet)
		}
	}
}

func (s *TranscriptionSink) handle(packet domain.AudioPacket) {
	if packet.Automated {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}

	u, ok := s.states[packet.Participant]
	switch packet.Kind {
	case domain.PacketFrame:
		if !ok {
			u = &utterance{}
			s.states[packet.Participant] = u
		}
		s.appendFrame(packet.Participant, u, packet.Frame)
	case domain.PacketEndOfUtterance:
		if !ok {
			return
		}
		switch u.state {
		case domain.Buffering:
			s.finalize(packet.Participant, u)
		case domain.Finalizing:
			if len(u.frames) > 0 {
				u.pendingBoundary = true
			}
		}
	}
}

func (s *TranscriptionSink) appendFrame(participant domain.ParticipantID, u *utterance, frame domain.AudioFrame) {
	if frame.ReceivedAt.IsZero() {
		frame.ReceivedAt = time.Now().UTC()
	}
	switch u.state {
	case domain.Idle:
		u.state = domain.Buffering
		u.startedAt = frame.ReceivedAt
		u.frames = append(u.frames, frame)
	case domain.Buffering:
		u.frames = append(u.frames, frame)
	case domain.Finalizing:
		if len(u.frames) == 0 {
			u.startedAt = frame.ReceivedAt
		}
		if len(u.frames) >= s.maxFrames {
			// The next utterance is already full, it is cut when the call returns.
			u.pendingBoundary = true
			return
		}
		u.frames = append(u.frames, frame)
		return
	}
	if len(u.frames) >= s.maxFrames {
		s.finalize(participant, u)
	}
}

// finalize must be called with the lock held.
func (s *TranscriptionSink) finalize(participant domain.ParticipantID, u *utterance) {
	segment := domain.Segment{
		Community:   s.community,
		Room:        s.room,
		Speaker:     participant,
		Codec:       domain.OpusCodec,
		SampleRate:  domain.OpusSampleRate,
		Channels:    domain.OpusChannelSize,
		Frames:      u.frames,
		StartedAt:   u.startedAt,
		FinalizedAt: time.Now().UTC(),
	}
	u.frames = nil
	u.pendingBoundary = false
	u.state = domain.Finalizing

	s.inFlight.Add(1)
	go s.recognize(segment)
}

func (s *TranscriptionSink) recognize(segment domain.Segment) {
	defer s.inFlight.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.recognitionTimeout)
	defer cancel()

	started := time.Now()
	results := make(chan recognition, 1)
	go func() {
		text, err := s.recognizer.Recognize(ctx, segment)
		results <- recognition{text: text, err: err}
	}()

	var result recognition
	select {
	case result = <-results:
	case <-ctx.Done():
		result.err = ctx.Err()
	}
	observability.RecognitionDuration.Observe(time.Since(started).Seconds())

	if result.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && s.ctx.Err() == nil {
		result.err = fmt.Errorf("%w: after %s", errors.ErrRecognitionTimeout, s.recognitionTimeout)
	}
	s.complete(segment, result)
}

func (s *TranscriptionSink) complete(segment domain.Segment, result recognition) {
	s.mu.Lock()
	if s.detached || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	var evt *event.Event
	switch {
	case result.err != nil:
		s.drop(segment, dropReason(result.err))
		s.log.Warn("Utterance dropped", "speaker", segment.Speaker, "frames", len(segment.Frames), "error", result.err)
	case result.text == "":
		s.drop(segment, "empty")
	default:
		recognized := event.New(event.UtteranceRecognizedType, event.UtteranceRecognized{
			ID:        uuid.New(),
			Community: segment.Community,
			Room:      segment.Room,
			Speaker:   segment.Speaker,
			Text:      result.text,
			At:        segment.FinalizedAt,
		})
		evt = &recognized
	}
	s.mu.Unlock()

	// The speaker stays Finalizing until the event is accepted, so its
	// utterances keep their order while other speakers keep buffering.
	if evt != nil {
		select {
		case s.utteranceChan <- *evt:
			observability.UtterancesRecognized.Inc()
		case <-s.ctx.Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.advance(segment.Speaker)
}

// advance moves a speaker out of Finalizing, must be called with the lock held.
func (s *TranscriptionSink) advance(speaker domain.ParticipantID) {
	u, ok := s.states[speaker]
	if !ok {
		return
	}
	if len(u.frames) == 0 {
		delete(s.states, speaker)
		return
	}
	u.state = domain.Buffering
	if u.pendingBoundary || len(u.frames) >= s.maxFrames {
		s.finalize(speaker, u)
	}
}

func (s *TranscriptionSink) drop(segment domain.Segment, reason string) {
	observability.RecognitionsDropped.WithLabelValues(reason).Inc()
	if s.telemetryChan == nil {
		return
	}
	select {
	case s.telemetryChan <- event.New(event.RecognitionDroppedType, event.RecognitionDropped{
		Community: segment.Community,
		Room:      segment.Room,
		Speaker:   segment.Speaker,
		Reason:    reason,
	}):
	default:
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrRecognitionTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrEmptySegment):
		return "empty"
	default:
		return "failed"
	}
}
