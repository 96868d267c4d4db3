package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractYouTubeID(t *testing.T) {
	assert.Equal(t, "dQw4w9WgXcQ", ExtractYouTubeID("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.Equal(t, "dQw4w9WgXcQ", ExtractYouTubeID("https://youtu.be/dQw4w9WgXcQ"))
	assert.Equal(t, "dQw4w9WgXcQ", ExtractYouTubeID("https://youtu.be/dQw4w9WgXcQ?t=42"))
	assert.Equal(t, "dQw4w9WgXcQ", ExtractYouTubeID("https://www.youtube.com/shorts/dQw4w9WgXcQ"))
	assert.Equal(t, "", ExtractYouTubeID("https://example.com/video.mp4"))
}

func TestNewUploadRequest_Truncation(t *testing.T) {
	// **情境 1: 超長標題靜默截斷到上限**
	t.Run("超長標題截斷", func(t *testing.T) {
		long := strings.Repeat("x", 150)
		req := NewUploadRequest("tok", StagedMedia{}, long, "desc")

		assert.Equal(t, strings.Repeat("x", MaxTitleChars), req.Title)
		assert.Len(t, []rune(req.Title), MaxTitleChars)
	})

	// **情境 2: 截斷對已符合長度的輸入為恆等**
	t.Run("截斷為冪等操作", func(t *testing.T) {
		title := strings.Repeat("x", MaxTitleChars)
		req := NewUploadRequest("tok", StagedMedia{}, title, "desc")
		again := NewUploadRequest("tok", StagedMedia{}, req.Title, req.Description)

		assert.Equal(t, req.Title, again.Title)
		assert.Equal(t, req.Description, again.Description)
	})

	// **情境 3: 多位元組字元以字元數計**
	t.Run("多位元組字元按rune截斷", func(t *testing.T) {
		long := strings.Repeat("影", 120)
		req := NewUploadRequest("tok", StagedMedia{}, long, "")

		assert.Equal(t, strings.Repeat("影", MaxTitleChars), req.Title)
	})
}

func TestFormatISODuration(t *testing.T) {
	assert.Equal(t, "1:02:03", FormatISODuration("PT1H2M3S"))
	assert.Equal(t, "4:05", FormatISODuration("PT4M5S"))
	assert.Equal(t, "0:42", FormatISODuration("PT42S"))
	assert.Equal(t, "10:00", FormatISODuration("PT10M"))
	assert.Equal(t, "0:00", FormatISODuration("not-a-duration"))
}

func TestContentTypeFromName(t *testing.T) {
	assert.Equal(t, "video/webm", ContentTypeFromName("clip.webm"))
	assert.Equal(t, "video/mp4", ContentTypeFromName("https://cdn.example.com/a/b/movie.mp4"))
	assert.Equal(t, "video/*", ContentTypeFromName("mystery.bin"))
}
