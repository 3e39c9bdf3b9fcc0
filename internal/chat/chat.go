package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"farmhand/internal/i18n"
	"farmhand/internal/logging"
	"farmhand/internal/plant"
	"farmhand/internal/prefs"
	"farmhand/internal/weather"
)

var (
	// ErrEmptyMessage is returned when a submission carries no text
	ErrEmptyMessage = errors.New("chat: message is required")
	// ErrEmptyImage is returned when an image submission carries no bytes
	ErrEmptyImage = errors.New("chat: image is required")
	// ErrEmptyRegion is returned when a weather request names no region
	ErrEmptyRegion = errors.New("chat: region is required")
)

// Turn kinds
const (
	KindText    = "text"
	KindImage   = "image"
	KindWeather = "weather"
	KindPlant   = "plant"
)

// Turn is one entry in a conversation. Turns are append-only: once
// created they are never mutated or removed.
type Turn struct {
	ID        string                `json:"id"`
	Author    string                `json:"author"` // "user" or "assistant"
	Text      string                `json:"text"`
	Kind      string                `json:"kind"`
	Timestamp time.Time             `json:"timestamp"`
	Weather   *weather.Report       `json:"weather,omitempty"`
	Plant     *plant.Identification `json:"plant,omitempty"`
}

// Assistant produces conversational replies
type Assistant interface {
	Reply(ctx context.Context, message, context_ string, p prefs.Preferences) string
	VoiceReply(ctx context.Context, transcript string, p prefs.Preferences) string
}

// WeatherClient fetches a normalized weather report
type WeatherClient interface {
	Current(ctx context.Context, region string) weather.Report
}

// PlantClient identifies a plant from image bytes
type PlantClient interface {
	Identify(ctx context.Context, image []byte) plant.Identification
}

// ContextProvider supplies optional background text for the assistant
// prompt, typically from the knowledge base.
type ContextProvider interface {
	Context(ctx context.Context, query string) string
}

// Recorder persists turns. Persistence is best effort: failures are
// logged and never block the conversation.
type Recorder interface {
	Record(ctx context.Context, sessionID string, turn Turn)
}

// SpeakFunc voices an assistant reply when voice mode is active
type SpeakFunc func(ctx context.Context, text, language string)

// Orchestrator manages conversations keyed by session id
type Orchestrator struct {
	assistant Assistant
	weather   WeatherClient
	plant     PlantClient
	context_  ContextProvider
	recorder  Recorder
	prefs     *prefs.Store
	logger    *logging.Logger

	mu            sync.Mutex
	conversations map[string][]Turn

	// Voice-mode follow-up prompt after a period of no input.
	speak           SpeakFunc
	inactivity      time.Duration
	inactivityTimer *time.Timer
	voiceSession    string
}

// Option configures optional orchestrator collaborators
type Option func(*Orchestrator)

// WithContextProvider wires knowledge-base context into prompts
func WithContextProvider(cp ContextProvider) Option {
	return func(o *Orchestrator) { o.context_ = cp }
}

// WithRecorder wires best-effort turn persistence
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithInactivityPrompt enables the voice follow-up prompt after the
// given period of silence.
func WithInactivityPrompt(d time.Duration, speak SpeakFunc) Option {
	return func(o *Orchestrator) {
		o.inactivity = d
		o.speak = speak
	}
}

// NewOrchestrator creates a chat orchestrator
func NewOrchestrator(assistant Assistant, weatherClient WeatherClient, plantClient PlantClient, prefStore *prefs.Store, logger *logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		assistant:     assistant,
		weather:       weatherClient,
		plant:         plantClient,
		prefs:         prefStore,
		logger:        logger,
		conversations: make(map[string][]Turn),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit appends a user turn, asks the assistant, and appends the reply
func (o *Orchestrator) Submit(ctx context.Context, sessionID, message string) (Turn, error) {
	if strings.TrimSpace(message) == "" {
		return Turn{}, ErrEmptyMessage
	}

	p := o.prefs.Get()
	o.append(ctx, sessionID, newTurn("user", message, KindText))
	o.resetInactivity()

	var background string
	if o.context_ != nil {
		background = o.context_.Context(ctx, message)
	}

	reply := o.assistant.Reply(ctx, message, background, p)
	turn := newTurn("assistant", reply, KindText)
	o.append(ctx, sessionID, turn)

	o.speakIfActive(ctx, sessionID, reply, p.Language)
	return turn, nil
}

// SubmitImage appends an image turn and replies with the identification
func (o *Orchestrator) SubmitImage(ctx context.Context, sessionID string, image []byte) (Turn, error) {
	if len(image) == 0 {
		return Turn{}, ErrEmptyImage
	}

	p := o.prefs.Get()
	o.append(ctx, sessionID, newTurn("user", i18n.Translate(p.Language, "plant_heading"), KindImage))
	o.resetInactivity()

	result := o.plant.Identify(ctx, image)
	turn := newTurn("assistant", result.Name, KindPlant)
	turn.Plant = &result
	o.append(ctx, sessionID, turn)
	return turn, nil
}

// RequestWeather fetches a report and appends a weather turn
func (o *Orchestrator) RequestWeather(ctx context.Context, sessionID, region string) (Turn, error) {
	if strings.TrimSpace(region) == "" {
		return Turn{}, ErrEmptyRegion
	}

	o.resetInactivity()
	report := o.weather.Current(ctx, region)
	turn := newTurn("assistant", report.Location, KindWeather)
	turn.Weather = &report
	o.append(ctx, sessionID, turn)
	return turn, nil
}

// History returns a copy of the session's turns in order
func (o *Orchestrator) History(sessionID string) []Turn {
	o.mu.Lock()
	defer o.mu.Unlock()

	turns := o.conversations[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// SetVoiceSession marks a session as voice-active. Replies to that
// session are spoken and the inactivity prompt timer runs while set.
// An empty id clears voice mode.
func (o *Orchestrator) SetVoiceSession(sessionID string) {
	o.mu.Lock()
	o.voiceSession = sessionID
	o.mu.Unlock()

	if sessionID == "" {
		o.stopInactivity()
	} else {
		o.resetInactivity()
	}
}

// Close stops background timers
func (o *Orchestrator) Close() {
	o.stopInactivity()
}

func newTurn(author, text, kind string) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Author:    author,
		Text:      text,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

func (o *Orchestrator) append(ctx context.Context, sessionID string, turn Turn) {
	o.mu.Lock()
	o.conversations[sessionID] = append(o.conversations[sessionID], turn)
	o.mu.Unlock()

	if o.recorder != nil {
		o.recorder.Record(ctx, sessionID, turn)
	}
}

func (o *Orchestrator) speakIfActive(ctx context.Context, sessionID, text, language string) {
	o.mu.Lock()
	active := o.speak != nil && o.voiceSession == sessionID && sessionID != ""
	o.mu.Unlock()

	if active {
		o.speak(ctx, text, language)
	}
}

func (o *Orchestrator) resetInactivity() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.speak == nil || o.inactivity <= 0 || o.voiceSession == "" {
		return
	}

	if o.inactivityTimer != nil {
		o.inactivityTimer.Stop()
	}
	o.inactivityTimer = time.AfterFunc(o.inactivity, o.promptFollowUp)
}

func (o *Orchestrator) stopInactivity() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inactivityTimer != nil {
		o.inactivityTimer.Stop()
		o.inactivityTimer = nil
	}
}

// promptFollowUp speaks a localized nudge after a quiet spell in voice
// mode and appends it to the conversation.
func (o *Orchestrator) promptFollowUp() {
	o.mu.Lock()
	sessionID := o.voiceSession
	o.mu.Unlock()
	if sessionID == "" {
		return
	}

	p := o.prefs.Get()
	text := i18n.Translate(p.Language, "follow_up")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	o.append(ctx, sessionID, newTurn("assistant", text, KindText))
	o.logger.WithContext("session_id", sessionID).Debug("inactivity follow-up prompted")
	o.speak(ctx, text, p.Language)
}
