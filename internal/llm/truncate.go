package llm

import (
	"strings"
	"unicode"
)

// DefaultEmbedTokenBudget is the token budget applied to artist bios before
// embedding. Embedding models truncate silently past their context window;
// truncating on a sentence boundary here keeps the tail from being cut
// mid-thought.
const DefaultEmbedTokenBudget = 3000

// TruncateToTokens shortens text to approximately maxTokens, cutting on
// sentence boundaries where possible. Text that already fits is returned
// unchanged. A single oversized sentence is hard-cut at the character budget.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if len(strings.TrimSpace(text)) == 0 {
		return ""
	}
	if EstimateTokens(text) <= maxTokens {
		return text
	}

	sentences := splitSentences(text)

	var out strings.Builder
	var used int
	for _, sentence := range sentences {
		tokens := EstimateTokens(sentence)
		if used+tokens > maxTokens {
			break
		}
		out.WriteString(sentence)
		used += tokens
	}

	// First sentence alone blew the budget: hard-cut at the character
	// equivalent, respecting rune boundaries.
	if out.Len() == 0 {
		limit := maxTokens * 4
		runes := []rune(text)
		if len(runes) > limit {
			runes = runes[:limit]
		}
		return strings.TrimSpace(string(runes))
	}

	return strings.TrimSpace(out.String())
}

// EstimateTokens estimates the number of tokens in the given text.
// Uses a simple heuristic of approximately 4 characters per token,
// which is a reasonable approximation for English text with GPT-style tokenizers.
func EstimateTokens(text string) int {
	chars := len(text)
	// Use ceiling division: (chars + 3) / 4 rounds up
	return (chars + 3) / 4
}

// splitSentences splits text into sentences using common sentence terminators.
// It attempts to preserve sentence boundaries while handling common edge cases
// like abbreviations. Returns a slice of sentences with their terminators included.
func splitSentences(text string) []string {
	if len(text) == 0 {
		return []string{}
	}

	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		// Check for sentence terminators
		if r == '.' || r == '!' || r == '?' {
			// Look ahead to see if this is really the end of a sentence
			if i+1 < len(runes) {
				next := runes[i+1]

				// If followed by whitespace and then an uppercase letter or number,
				// it's likely a sentence boundary
				if unicode.IsSpace(next) {
					// Include the whitespace
					current.WriteRune(next)
					i++

					// Check if there's more content
					if i+1 < len(runes) {
						nextChar := runes[i+1]
						// Start new sentence if next char is uppercase or this is end
						if unicode.IsUpper(nextChar) || i+1 == len(runes)-1 {
							sentence := current.String()
							if len(strings.TrimSpace(sentence)) > 0 {
								sentences = append(sentences, sentence)
							}
							current.Reset()
						}
					} else {
						// End of text
						sentence := current.String()
						if len(strings.TrimSpace(sentence)) > 0 {
							sentences = append(sentences, sentence)
						}
						current.Reset()
					}
				}
			} else {
				// End of text after terminator
				sentence := current.String()
				if len(strings.TrimSpace(sentence)) > 0 {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}

	// Add any remaining content as a final sentence
	if current.Len() > 0 {
		sentence := current.String()
		if len(strings.TrimSpace(sentence)) > 0 {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}
