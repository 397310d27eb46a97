package publisher

import (
	"strings"
	"unicode/utf8"

	"github.com/maheshrc27/postcast/internal/models"
)

const (
	FacebookMaxChars  = 63206
	InstagramMaxChars = 2200
	XMaxChars         = 280
)

// NormalizeHashtags prefixes every tag with '#', drops blanks and duplicates
// (case-insensitive) and keeps the first-seen order.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		if tag == "" || strings.ContainsAny(tag, " \t\n") {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, "#"+tag)
	}
	return out
}

// ComposeText appends the post's hashtags to its content, separated by a
// blank line.
func ComposeText(post *models.Post) string {
	text := strings.TrimSpace(post.Content)
	tags := NormalizeHashtags(post.Hashtags)
	if len(tags) == 0 {
		return text
	}
	if text == "" {
		return strings.Join(tags, " ")
	}
	return text + "\n\n" + strings.Join(tags, " ")
}

func checkLength(p models.Platform, text string, limit int) error {
	if n := utf8.RuneCountInString(text); n > limit {
		return validationError(p, "content exceeds %d characters", limit)
	}
	return nil
}
