package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
	"video_migrate_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestVidsSaveProvider_Resolve(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	// **情境 1: 頁面內嵌絕對 mp4 連結**
	t.Run("絕對連結", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/yt", r.URL.Path)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "https://www.youtube.com/watch?v=vid123", r.FormValue("url"))

			w.Write([]byte(`<a href="https://dl.example.com/files/video.mp4?sig=abc">Download</a>`))
		}))
		defer srv.Close()

		p := NewVidsSaveProvider(config.ProviderConfig{VidsSaveBaseURL: srv.URL})
		outcome := p.Resolve(ctx, "vid123")

		assert.True(t, outcome.OK)
		assert.Equal(t, "https://dl.example.com/files/video.mp4?sig=abc", outcome.SourceURL)
	})

	// **情境 2: protocol-relative 連結補上 scheme**
	t.Run("protocol-relative連結", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<a href="//dl.example.com/files/video.mp4">Download</a>`))
		}))
		defer srv.Close()

		p := NewVidsSaveProvider(config.ProviderConfig{VidsSaveBaseURL: srv.URL})
		outcome := p.Resolve(ctx, "vid123")

		assert.True(t, outcome.OK)
		assert.Equal(t, "http://dl.example.com/files/video.mp4", outcome.SourceURL)
	})

	// **情境 3: root-relative 連結補上 provider origin**
	t.Run("root-relative連結", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<a href="/files/video.mp4">Download</a>`))
		}))
		defer srv.Close()

		p := NewVidsSaveProvider(config.ProviderConfig{VidsSaveBaseURL: srv.URL})
		outcome := p.Resolve(ctx, "vid123")

		assert.True(t, outcome.OK)
		assert.Equal(t, srv.URL+"/files/video.mp4", outcome.SourceURL)
	})

	// **情境 4: 頁面找不到檔案連結**
	t.Run("找不到檔案連結", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><body>processing, come back later</body></html>`))
		}))
		defer srv.Close()

		p := NewVidsSaveProvider(config.ProviderConfig{VidsSaveBaseURL: srv.URL})
		outcome := p.Resolve(ctx, "vid123")

		assert.False(t, outcome.OK)
		assert.Equal(t, domain.FailureUnparseable, outcome.Kind)
	})
}
