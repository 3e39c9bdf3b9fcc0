package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"farmhand/internal/config"
	"farmhand/internal/logging"
)

// premiumVoices maps speech locales to hosted voice ids
var premiumVoices = map[string]string{
	"en-IN": "pNInz6obpgDQGcFmaJgB",
	"hi-IN": "zT03pEAEi0VHKciJODfn",
}

// premiumTTS is a hosted high-quality synthesis client
type premiumTTS struct {
	apiKey string
	url    string
	client *http.Client
}

// Speak synthesizes text through the hosted voice API
func (p *premiumTTS) Speak(ctx context.Context, text, locale string) ([]byte, error) {
	voiceID, ok := premiumVoices[locale]
	if !ok {
		voiceID = premiumVoices["en-IN"]
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", p.url, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("synthesis failed (status %d): %s", resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return audio, nil
}

// Speaker produces spoken audio for assistant replies. The premium
// hosted voice is tried first, the local synthesizer is the fallback.
type Speaker struct {
	premium *premiumTTS
	local   *Synthesizer
	logger  *logging.Logger
}

// NewSpeaker creates a Speaker from config. Either backend may be
// absent; with neither configured every Speak call fails.
func NewSpeaker(cfg config.VoiceConfig, logger *logging.Logger) *Speaker {
	s := &Speaker{
		local:  NewSynthesizer(cfg, logger),
		logger: logger,
	}

	if cfg.PremiumTTSKey != "" {
		s.premium = &premiumTTS{
			apiKey: cfg.PremiumTTSKey,
			url:    cfg.PremiumTTSURL,
			client: &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
		}
	}
	return s
}

// Speak returns synthesized audio for the text in the app language
func (s *Speaker) Speak(ctx context.Context, text, language string) ([]byte, error) {
	locale := LocaleFor(language)

	if s.premium != nil {
		audio, err := s.premium.Speak(ctx, text, locale)
		if err == nil {
			return audio, nil
		}
		s.logger.WithContext("error", err.Error()).Warn("premium synthesis failed, falling back")
	}

	if s.local != nil {
		return s.local.Synthesize(ctx, text, locale)
	}

	return nil, fmt.Errorf("voice: no synthesis backend available")
}
