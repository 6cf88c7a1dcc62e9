// Package speech turns buffered Opus utterances into text.
package speech

import (
	"bytes"
	"fmt"
	"swear-jar/domain"
	"swear-jar/errors"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

const opusPayloadType = 111

// EncodeOgg wraps the Opus frames of a segment into an Ogg container.
// Frame sequence numbers and timestamps are kept as received.
func EncodeOgg(segment domain.Segment) ([]byte, error) {
	if len(segment.Frames) == 0 {
		return nil, errors.ErrEmptySegment
	}
	sampleRate, channels := segment.SampleRate, segment.Channels
	if sampleRate == 0 {
		sampleRate = domain.OpusSampleRate
	}
	if channels == 0 {
		channels = domain.OpusChannelSize
	}

	var buf bytes.Buffer
	w, err := oggwriter.NewWith(&buf, uint32(sampleRate), uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("ogg header: %w", err)
	}
	for _, f := range segment.Frames {
		packet := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    opusPayloadType,
				SequenceNumber: f.Sequence,
				Timestamp:      f.Timestamp,
			},
			Payload: f.Data,
		}
		if err := w.WriteRTP(packet); err != nil {
			return nil, fmt.Errorf("ogg page: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("ogg close: %w", err)
	}
	return buf.Bytes(), nil
}
