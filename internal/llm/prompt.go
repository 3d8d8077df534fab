package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// TitleTemperature keeps generated titles stable.
	TitleTemperature = 0.2
	// MaxTitleLength is the cap applied to generated titles, in characters.
	MaxTitleLength = 80
)

// BuildTitlePrompt asks for a short title summarizing the opening exchange.
func BuildTitlePrompt(firstUser, assistant string) string {
	return fmt.Sprintf(
		"Create a short, descriptive chat title (max 6 words). "+
			"No quotes, no trailing punctuation, concise.\n\n"+
			"User: %s\nAssistant: %s\n\nTitle:",
		strings.TrimSpace(firstUser), strings.TrimSpace(assistant),
	)
}

// SanitizeTitle cleans a raw model response into a title. An empty result
// means the response was unusable.
func SanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(title)
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"`)
	title = strings.Trim(title, "'")
	title = strings.TrimRight(title, ".?!")
	title = strings.TrimSpace(title)

	if utf8.RuneCountInString(title) > MaxTitleLength {
		title = truncateAtBoundary(title, MaxTitleLength)
	}
	return title
}

func truncateAtBoundary(s string, limit int) string {
	runes := []rune(s)
	cut := string(runes[:limit])
	// prefer cutting between words when the limit lands inside one
	if !strings.ContainsRune(" \t", runes[limit]) {
		if i := strings.LastIndexAny(cut, " \t"); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " \t")
}
