package discord

import (
	"swear-jar/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func frame(ssrc uint32, seq uint16) RawPacket {
	return RawPacket{SSRC: ssrc, Sequence: seq, Timestamp: uint32(seq) * 960, Opus: []byte{0x78, byte(seq)}}
}

func TestDemux_UnboundSSRCIsDropped(t *testing.T) {
	req := require.New(t)
	d := NewDemux(time.Second)

	req.Empty(d.Packet(frame(7, 1), time.Now()))
}

func TestDemux_FramesAreAttributed(t *testing.T) {
	req := require.New(t)
	now := time.Now()

	// Given two speakers bound to their SSRC
	d := NewDemux(time.Second)
	d.Bind(1, "alice", false)
	d.Bind(2, "music-bot", true)

	// When each sends a frame
	a := d.Packet(frame(1, 10), now)
	b := d.Packet(frame(2, 11), now)

	// Then frames carry the participant and the automated flag
	req.Len(a, 1)
	req.Equal(domain.PacketFrame, a[0].Kind)
	req.Equal(domain.ParticipantID("alice"), a[0].Participant)
	req.False(a[0].Automated)
	req.Equal(uint16(10), a[0].Frame.Sequence)
	req.Equal(uint32(9600), a[0].Frame.Timestamp)
	req.Len(b, 1)
	req.True(b[0].Automated)
}

func TestDemux_FrameDataIsCopied(t *testing.T) {
	req := require.New(t)
	d := NewDemux(time.Second)
	d.Bind(1, "alice", false)

	p := frame(1, 1)
	out := d.Packet(p, time.Now())
	p.Opus[0] = 0x00

	req.Equal(byte(0x78), out[0].Frame.Data[0])
}

func TestDemux_SilenceClosesUtteranceOnce(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	d := NewDemux(time.Second)
	d.Bind(1, "alice", false)

	// Given alice was speaking
	d.Packet(frame(1, 1), now)

	// When two silence frames arrive
	silence := RawPacket{SSRC: 1, Opus: []byte{0xF8, 0xFF, 0xFE}}
	first := d.Packet(silence, now)
	second := d.Packet(silence, now)

	// Then a single boundary is produced
	req.Equal([]domain.AudioPacket{{Kind: domain.PacketEndOfUtterance, Participant: "alice"}}, first)
	req.Empty(second)
}

func TestDemux_ExpireAfterSilenceGap(t *testing.T) {
	req := require.New(t)
	start := time.Now()
	d := NewDemux(500 * time.Millisecond)
	d.Bind(1, "bob", false)
	d.Bind(2, "alice", false)
	d.Bind(3, "carol", false)

	d.Packet(frame(1, 1), start)
	d.Packet(frame(2, 1), start)
	d.Packet(frame(3, 1), start.Add(400*time.Millisecond))

	// Before the gap nothing expires
	req.Empty(d.Expire(start.Add(300 * time.Millisecond)))

	// After the gap the two quiet speakers get a boundary, ordered by participant
	out := d.Expire(start.Add(600 * time.Millisecond))
	req.Len(out, 2)
	req.Equal(domain.ParticipantID("alice"), out[0].Participant)
	req.Equal(domain.ParticipantID("bob"), out[1].Participant)

	// A closed utterance never expires twice
	out = d.Expire(start.Add(2 * time.Second))
	req.Len(out, 1)
	req.Equal(domain.ParticipantID("carol"), out[0].Participant)
	req.Empty(d.Expire(start.Add(3 * time.Second)))
}

func TestDemux_RebindKeepsStream(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	d := NewDemux(time.Second)
	d.Bind(1, "alice", false)
	d.Packet(frame(1, 1), now)

	d.Bind(1, "alice", false)
	out := d.Expire(now.Add(2 * time.Second))

	req.Len(out, 1)
}
