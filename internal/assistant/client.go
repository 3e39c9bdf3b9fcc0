// Package assistant answers farming questions through a provider chain: a
// keyed generative-text API, then a hosted dialogue model, then a canned
// keyword responder. Replies always arrive; the caller never sees a
// provider error.
package assistant

import (
	"context"
	"strings"
	"time"

	"farmhand/internal/config"
	"farmhand/internal/fallback"
	"farmhand/internal/logging"
	"farmhand/internal/prefs"
)

// Client resolves assistant replies through the provider chain
type Client struct {
	chain  *fallback.Chain[Query, string]
	logger *logging.Logger
}

// NewClient builds the provider chain from config. Keyed providers are
// included only when their credentials are present; the canned responder
// needs none and is the guaranteed last resort.
func NewClient(cfg config.AssistantConfig, logger *logging.Logger) *Client {
	var providers []fallback.Provider[Query, string]

	if cfg.GenerativeKey != "" {
		gen := newGenerativeProvider(cfg.GenerativeKey, cfg.GenerativeEndpoint, cfg.GenerativeModel, logger)
		providers = append(providers, fallback.Provider[Query, string]{
			Name: "generative",
			Call: gen.Generate,
		})
	}

	if cfg.DialogueKey != "" {
		dia := newDialogueProvider(cfg.DialogueKey, cfg.DialogueURL, logger)
		providers = append(providers, fallback.Provider[Query, string]{
			Name: "dialogue",
			Call: dia.Generate,
		})
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	return &Client{
		chain:  fallback.NewChain(logger, timeout, cannedResponse, providers...),
		logger: logger,
	}
}

// Reply answers a user message. Context may carry knowledge-base excerpts.
// Never returns an error.
func (c *Client) Reply(ctx context.Context, message, context_ string, p prefs.Preferences) string {
	q := Query{Message: message, Context: context_, Prefs: p}
	reply, source := c.chain.Fetch(ctx, q)
	c.logger.WithFields(map[string]interface{}{
		"source":       source,
		"reply_length": len(reply),
	}).Info("assistant reply served")
	return strings.TrimSpace(reply)
}

// VoiceReply answers a spoken transcript; the context keeps replies short
// enough to speak aloud.
func (c *Client) VoiceReply(ctx context.Context, transcript string, p prefs.Preferences) string {
	return c.Reply(ctx, transcript, voiceContext, p)
}

// EmpathyReply answers with the empathy framing the backend's empathy
// endpoint uses
func (c *Client) EmpathyReply(ctx context.Context, message string, p prefs.Preferences) string {
	return c.Reply(ctx, message, empathyContext, p)
}
