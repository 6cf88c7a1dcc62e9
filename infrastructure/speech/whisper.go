package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"swear-jar/contract"
	"swear-jar/domain"
	"swear-jar/errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var _ contract.Recognizer = (*WhisperRecognizer)(nil)

// WhisperRecognizer sends each segment to the OpenAI transcription endpoint.
type WhisperRecognizer struct {
	log      *slog.Logger
	client   openai.Client
	model    string
	language string
}

func NewWhisperRecognizer(log *slog.Logger, apiKey, model, language string, opts ...option.RequestOption) *WhisperRecognizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &WhisperRecognizer{
		log:      log,
		client:   openai.NewClient(opts...),
		model:    model,
		language: language,
	}
}

func (r *WhisperRecognizer) Recognize(ctx context.Context, segment domain.Segment) (string, error) {
	audio, err := EncodeOgg(segment)
	if err != nil {
		return "", err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "utterance.ogg", "audio/ogg"),
		Model: openai.AudioModel(r.model),
	}
	if r.language != "" {
		params.Language = openai.String(r.language)
	}

	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrRecognitionFailed, err)
	}
	text := strings.TrimSpace(resp.Text)
	r.log.Debug("Segment transcribed",
		"speaker", segment.Speaker,
		"frames", len(segment.Frames),
		"duration", segment.Duration(),
		"chars", len(text))
	return text, nil
}
