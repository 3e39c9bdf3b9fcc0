package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"farmhand/internal/logging"
)

var (
	// ErrUnsupported is returned when no speech backend is configured
	ErrUnsupported = errors.New("voice: speech recognition not supported")
	// ErrAlreadyActive is returned when a capture session is already running
	ErrAlreadyActive = errors.New("voice: already listening")
	// ErrRecognitionFailed wraps transcription backend failures
	ErrRecognitionFailed = errors.New("voice: recognition failed")
)

// State is the voice session state
type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// locales maps app language codes to speech locale tags
var locales = map[string]string{
	"en": "en-IN",
	"hi": "hi-IN",
	"ta": "ta-IN",
	"te": "te-IN",
	"bn": "bn-IN",
	"ur": "ur-PK",
}

// LocaleFor returns the speech locale tag for an app language code
func LocaleFor(language string) string {
	if locale, ok := locales[strings.ToLower(language)]; ok {
		return locale
	}
	return locales["en"]
}

// Recognizer converts captured audio into text
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, locale string) (string, error)
}

// Session drives one capture/playback cycle at a time. A session moves
// idle -> listening -> processing -> speaking and back to idle, or back
// to listening when continuous mode is on. Stop cancels from any state.
type Session struct {
	recognizer Recognizer
	speaker    *Speaker
	continuous bool
	logger     *logging.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// NewSession creates an idle voice session
func NewSession(recognizer Recognizer, speaker *Speaker, continuous bool, logger *logging.Logger) *Session {
	return &Session{
		recognizer: recognizer,
		speaker:    speaker,
		continuous: continuous,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a capture session. Returns ErrUnsupported when no
// recognizer is configured and ErrAlreadyActive when the session is not
// idle.
func (s *Session) Start() error {
	if s.recognizer == nil {
		return ErrUnsupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrAlreadyActive
	}

	s.state = StateListening
	s.logger.Debug("voice session listening")
	return nil
}

// Finalize transcribes the captured audio and moves to processing.
// A session stopped before finalization emits nothing.
func (s *Session) Finalize(ctx context.Context, audio []byte, language string) (string, error) {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return "", fmt.Errorf("voice: not listening (state %s)", s.state)
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	locale := LocaleFor(language)
	transcript, err := s.recognizer.Transcribe(ctx, audio, locale)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil

	// Stopped mid-transcription: swallow the result, emit nothing.
	if s.state == StateIdle || ctx.Err() != nil {
		return "", ctx.Err()
	}

	if err != nil {
		s.state = StateIdle
		s.logger.WithContext("error", err.Error()).Warn("transcription failed")
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}

	s.state = StateProcessing
	s.logger.WithContext("transcript_size", len(transcript)).Debug("voice session processing")
	return transcript, nil
}

// Speak synthesizes the assistant's reply and completes the cycle. The
// session returns to listening in continuous mode, idle otherwise.
func (s *Session) Speak(ctx context.Context, text, language string) ([]byte, error) {
	s.mu.Lock()
	if s.state != StateProcessing {
		s.mu.Unlock()
		return nil, fmt.Errorf("voice: nothing to speak (state %s)", s.state)
	}
	s.state = StateSpeaking
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	audio, err := s.speaker.Speak(ctx, text, language)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil

	if s.state == StateIdle || ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if s.continuous {
		s.state = StateListening
	} else {
		s.state = StateIdle
	}

	if err != nil {
		s.logger.WithContext("error", err.Error()).Warn("synthesis failed")
		return nil, err
	}
	return audio, nil
}

// Stop cancels any active capture or playback and returns to idle
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.state != StateIdle {
		s.logger.WithContext("state", s.state.String()).Debug("voice session stopped")
	}
	s.state = StateIdle
}
