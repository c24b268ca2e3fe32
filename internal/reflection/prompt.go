// Package reflection implements the reflection generator on top of the
// Gemini API (google.golang.org/genai).
package reflection

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-journal/internal/services"
)

// FallbackText is returned when the model answers with no text.
const FallbackText = "I couldn't generate a reflection at this moment."

// BuildPrompt renders the coaching prompt for one entry.
func BuildPrompt(req services.ReflectionRequest) string {
	var b strings.Builder
	b.WriteString("Act as a supportive, mindful therapist and life coach.\n")
	b.WriteString("Read the following journal entry and provide a brief, warm, and insightful reflection (max 100 words).\n")
	fmt.Fprintf(&b, "Validate the user's feelings (Mood: %s) and offer a gentle perspective or a question for self-discovery.\n\n", req.Mood)
	fmt.Fprintf(&b, "Journal Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Content: %s\n", req.Content)
	return b.String()
}
