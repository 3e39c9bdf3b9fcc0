package assistant

import (
	"fmt"
	"strings"

	"farmhand/internal/prefs"
)

// Query is the input to the assistant chain
type Query struct {
	Message string
	Context string
	Prefs   prefs.Preferences
}

// buildPrompt concatenates the fixed persona preamble, the optional
// context paragraph and the user's message into a single prompt string
func buildPrompt(q Query) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are FarmHand, an expert agricultural assistant helping %s who farms in %s.\n\n", q.Prefs.Name, q.Prefs.Region)
	sb.WriteString("You should provide practical, actionable farming advice that's specific to their region when possible. Be friendly, knowledgeable, and concise.\n\n")

	if q.Context != "" {
		fmt.Fprintf(&sb, "Context: %s\n\n", q.Context)
	}

	fmt.Fprintf(&sb, "IMPORTANT: Always reply in the user's selected language: %s.\n\n", q.Prefs.Language)
	fmt.Fprintf(&sb, "User Question: %s\n\n", q.Message)
	sb.WriteString("Please provide a helpful response about farming, agriculture, plant care, or related topics:")

	return sb.String()
}

// voiceContext is prepended to spoken queries so replies stay short enough
// to speak aloud
const voiceContext = "Keep this response very short, concise, and empathetic. Respond in a warm, caring, and supportive tone. Acknowledge the user's feelings or concerns. Limit to 2-3 sentences maximum."

// empathyContext is the system framing for the empathy endpoint
const empathyContext = "Keep the response short, concise, and empathetic. Respond in a warm, caring, and supportive tone. Acknowledge the user's feelings or concerns."
