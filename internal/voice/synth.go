package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"farmhand/internal/config"
	"farmhand/internal/logging"
)

// Voice is one installed synthesis voice
type Voice struct {
	Name   string
	Locale string
}

// builtinVoices is the catalog of local synthesis voices. Per-locale
// "natural" variants are preferred when available.
var builtinVoices = []Voice{
	{Name: "en_IN-kaveri-natural-medium", Locale: "en-IN"},
	{Name: "en_IN-ravi-medium", Locale: "en-IN"},
	{Name: "en_US-lessac-medium", Locale: "en-US"},
	{Name: "hi_IN-madhur-natural-medium", Locale: "hi-IN"},
	{Name: "hi_IN-pratham-medium", Locale: "hi-IN"},
	{Name: "ta_IN-valluvar-medium", Locale: "ta-IN"},
	{Name: "te_IN-chaitanya-medium", Locale: "te-IN"},
	{Name: "bn_IN-arindam-medium", Locale: "bn-IN"},
	{Name: "ur_PK-asad-medium", Locale: "ur-PK"},
}

// selectVoice picks a voice for the locale by a fixed preference order:
// exact locale with a natural/regional name hint, exact locale, same
// language family, then any voice at all.
func selectVoice(voices []Voice, locale string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	region := ""
	if idx := strings.Index(locale, "-"); idx > 0 {
		region = locale[idx+1:]
	}

	for _, v := range voices {
		if v.Locale == locale && hasVoiceHint(v.Name, region) {
			return v, true
		}
	}
	for _, v := range voices {
		if v.Locale == locale {
			return v, true
		}
	}
	family := languageFromLocale(locale)
	for _, v := range voices {
		if languageFromLocale(v.Locale) == family {
			return v, true
		}
	}
	return voices[0], true
}

// regionNames maps region codes to the spelled-out names that quality
// voice packs tend to carry in their display names.
var regionNames = map[string]string{
	"IN": "india",
	"PK": "pakistan",
	"US": "united states",
	"GB": "united kingdom",
}

func hasVoiceHint(name, region string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "natural") {
		return true
	}
	regionName := regionNames[strings.ToUpper(region)]
	return regionName != "" && strings.Contains(lower, regionName)
}

// Synthesizer is a client for a local Wyoming-protocol speech server.
//
// Wyoming protocol format (per event):
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
type Synthesizer struct {
	endpoint string
	voices   []Voice
	logger   *logging.Logger
}

// NewSynthesizer creates a Synthesizer from config. Returns nil when no
// local synthesis endpoint is configured.
func NewSynthesizer(cfg config.VoiceConfig, logger *logging.Logger) *Synthesizer {
	if cfg.SynthEndpoint == "" {
		return nil
	}

	endpoint := strings.TrimPrefix(cfg.SynthEndpoint, "tcp://")
	return &Synthesizer{
		endpoint: endpoint,
		voices:   builtinVoices,
		logger:   logger,
	}
}

// Synthesize sends text to the speech server and returns WAV audio
func (s *Synthesizer) Synthesize(ctx context.Context, text, locale string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	voice, ok := selectVoice(s.voices, locale)
	if !ok {
		return nil, fmt.Errorf("no synthesis voice available")
	}

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to speech server: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	synthEvent := wyomingEvent{
		Type: "synthesize",
		Data: map[string]any{
			"text": text,
			"voice": map[string]any{
				"name": voice.Name,
			},
		},
	}
	if err := writeEvent(conn, synthEvent, nil); err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	// Response events: audio-start, audio-chunk*, audio-stop.
	var (
		pcmBuf     bytes.Buffer
		sampleRate = 22050
		channels   = 1
		width      = 2
	)

	for {
		evt, payload, err := readEvent(conn)
		if err != nil {
			return nil, fmt.Errorf("reading speech event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			if rate, ok := evt.Data["rate"].(float64); ok {
				sampleRate = int(rate)
			}
			if ch, ok := evt.Data["channels"].(float64); ok {
				channels = int(ch)
			}
			if w, ok := evt.Data["width"].(float64); ok {
				width = int(w)
			}

		case "audio-chunk":
			if len(payload) > 0 {
				pcmBuf.Write(payload)
			}

		case "audio-stop":
			s.logger.WithFields(map[string]interface{}{
				"voice":     voice.Name,
				"pcm_bytes": pcmBuf.Len(),
			}).Debug("synthesis complete")
			return pcmToWAV(pcmBuf.Bytes(), sampleRate, channels, width), nil

		case "error":
			msg := "unknown error"
			if text, ok := evt.Data["text"].(string); ok {
				msg = text
			}
			return nil, fmt.Errorf("speech server error: %s", msg)
		}
	}
}

type wyomingEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeEvent(w io.Writer, evt wyomingEvent, payload []byte) error {
	jsonBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	header := fmt.Sprintf("%d %d\n", len(jsonBytes), len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(jsonBytes); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func readEvent(r io.Reader) (*wyomingEvent, []byte, error) {
	headerBuf := make([]byte, 0, 64)
	oneByte := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, oneByte); err != nil {
			return nil, nil, fmt.Errorf("reading header: %w", err)
		}
		if oneByte[0] == '\n' {
			break
		}
		headerBuf = append(headerBuf, oneByte[0])
	}

	parts := strings.SplitN(string(headerBuf), " ", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid event header: %q", string(headerBuf))
	}

	jsonLen, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json length: %w", err)
	}
	payloadLen, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload length: %w", err)
	}

	jsonBuf := make([]byte, jsonLen+1) // +1 for the trailing \n
	if _, err := io.ReadFull(r, jsonBuf); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}
	jsonBuf = jsonBuf[:jsonLen]

	var evt wyomingEvent
	if err := json.Unmarshal(jsonBuf, &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}

	return &evt, payload, nil
}

// pcmToWAV wraps raw PCM data in a WAV container
func pcmToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	dataLen := len(pcm)

	buf := &bytes.Buffer{}
	buf.Grow(44 + dataLen)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bytesPerSample))
	binary.Write(buf, binary.LittleEndian, uint16(channels*bytesPerSample))
	binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}
