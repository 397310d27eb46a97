package publisher

import (
	"strings"
	"testing"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeHashtags(t *testing.T) {
	got := NormalizeHashtags([]string{"go", "#Go", " ", "##cloud", "two words", "GO", "news"})
	assert.Equal(t, []string{"#go", "#cloud", "#news"}, got)
	assert.Empty(t, NormalizeHashtags(nil))
}

func TestComposeText(t *testing.T) {
	tests := []struct {
		name string
		post models.Post
		want string
	}{
		{"content only", models.Post{Content: "Hello"}, "Hello"},
		{"with hashtags", models.Post{Content: "Hello ", Hashtags: []string{"go", "dev"}}, "Hello\n\n#go #dev"},
		{"hashtags only", models.Post{Hashtags: []string{"go"}}, "#go"},
		{"empty", models.Post{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeText(&tt.post))
		})
	}
}

func TestCheckLength(t *testing.T) {
	assert.NoError(t, checkLength(models.PlatformX, strings.Repeat("a", XMaxChars), XMaxChars))
	// Limits count characters, not bytes.
	assert.NoError(t, checkLength(models.PlatformX, strings.Repeat("é", XMaxChars), XMaxChars))

	err := checkLength(models.PlatformX, strings.Repeat("a", XMaxChars+1), XMaxChars)
	assert.EqualError(t, err, "content exceeds 280 characters")
	assert.Equal(t, KindValidation, KindOf(err))
}
