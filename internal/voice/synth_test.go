package voice

import (
	"bytes"
	"context"
	"net"
	"testing"

	"farmhand/internal/config"
)

// fakeWyomingServer answers one synthesize request with a canned PCM
// payload and closes the connection.
func fakeWyomingServer(t *testing.T, pcm []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := readEvent(conn); err != nil {
			return
		}

		writeEvent(conn, wyomingEvent{
			Type: "audio-start",
			Data: map[string]any{"rate": float64(16000), "channels": float64(1), "width": float64(2)},
		}, nil)
		writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, pcm)
		writeEvent(conn, wyomingEvent{Type: "audio-stop"}, nil)
	}()

	return ln.Addr().String()
}

func TestSynthesizer_Synthesize(t *testing.T) {
	t.Run("wraps streamed PCM in a WAV container", func(t *testing.T) {
		pcm := []byte{0x01, 0x02, 0x03, 0x04}
		addr := fakeWyomingServer(t, pcm)

		s := NewSynthesizer(config.VoiceConfig{SynthEndpoint: addr}, voiceTestLogger())
		audio, err := s.Synthesize(context.Background(), "namaste", "hi-IN")
		if err != nil {
			t.Fatalf("synthesize: %v", err)
		}

		if !bytes.HasPrefix(audio, []byte("RIFF")) {
			t.Error("expected RIFF header")
		}
		if !bytes.Contains(audio, []byte("WAVE")) {
			t.Error("expected WAVE marker")
		}
		if !bytes.HasSuffix(audio, pcm) {
			t.Error("expected PCM data at the end of the container")
		}
		if len(audio) != 44+len(pcm) {
			t.Errorf("expected %d bytes, got %d", 44+len(pcm), len(audio))
		}
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		s := NewSynthesizer(config.VoiceConfig{SynthEndpoint: "127.0.0.1:1"}, voiceTestLogger())
		if _, err := s.Synthesize(context.Background(), "", "en-IN"); err == nil {
			t.Error("expected error for empty text")
		}
	})

	t.Run("unreachable server errors", func(t *testing.T) {
		s := NewSynthesizer(config.VoiceConfig{SynthEndpoint: "127.0.0.1:1"}, voiceTestLogger())
		if _, err := s.Synthesize(context.Background(), "hello", "en-IN"); err == nil {
			t.Error("expected connection error")
		}
	})

	t.Run("no endpoint means no synthesizer", func(t *testing.T) {
		if s := NewSynthesizer(config.VoiceConfig{}, voiceTestLogger()); s != nil {
			t.Error("expected nil without an endpoint")
		}
	})
}

func TestPCMToWAV(t *testing.T) {
	wav := pcmToWAV([]byte{0xAA, 0xBB}, 22050, 1, 2)
	if len(wav) != 46 {
		t.Fatalf("expected 46 bytes, got %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("malformed container header")
	}
	if string(wav[36:40]) != "data" {
		t.Error("missing data subchunk")
	}
}
