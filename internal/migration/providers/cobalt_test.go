package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
	"video_migrate_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func cobaltConfig(instance string) config.ProviderConfig {
	return config.ProviderConfig{
		CobaltInstances: []string{instance},
		QualityTiers:    []string{"720"},
	}
}

func TestCobaltProvider_Resolve(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	// **情境 1: v8 直接給 url**
	t.Run("成功取得url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "https://www.youtube.com/watch?v=vid123", req["url"])
			assert.Equal(t, "720", req["videoQuality"])

			json.NewEncoder(w).Encode(map[string]string{"status": "tunnel", "url": "https://cobalt.example.com/v.mp4"})
		}))
		defer srv.Close()

		p := NewCobaltProvider(cobaltConfig(srv.URL))
		outcome := p.Resolve(ctx, "vid123")

		assert.True(t, outcome.OK)
		assert.Equal(t, "https://cobalt.example.com/v.mp4", outcome.SourceURL)
	})

	// **情境 2: picker 回應優先挑 type=video 的項目**
	t.Run("picker優先挑video", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "picker",
				"picker": []map[string]string{
					{"type": "photo", "url": "A"},
					{"type": "video", "url": "B"},
				},
			})
		}))
		defer srv.Close()

		p := NewCobaltProvider(cobaltConfig(srv.URL))
		outcome := p.Resolve(ctx, "vid123")

		assert.True(t, outcome.OK)
		assert.Equal(t, "B", outcome.SourceURL)
	})

	// **情境 3: picker 沒有 video 項目時取第一個**
	t.Run("picker沒有video取第一個", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "picker",
				"picker": []map[string]string{
					{"type": "photo", "url": "A"},
					{"type": "gif", "url": "B"},
				},
			})
		}))
		defer srv.Close()

		p := NewCobaltProvider(cobaltConfig(srv.URL))
		outcome := p.Resolve(ctx, "vid123")

		assert.True(t, outcome.OK)
		assert.Equal(t, "A", outcome.SourceURL)
	})

	// **情境 4: 任一 instance 回報 restricted 時最終分類不被蓋掉**
	t.Run("restricted分類保留", func(t *testing.T) {
		restricted := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "error",
				"error":  map[string]string{"code": "error.api.content.video.age"},
			})
		}))
		defer restricted.Close()
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer down.Close()

		p := NewCobaltProvider(config.ProviderConfig{
			CobaltInstances: []string{restricted.URL, down.URL},
			QualityTiers:    []string{"720"},
		})
		outcome := p.Resolve(ctx, "vid123")

		assert.False(t, outcome.OK)
		assert.Equal(t, domain.FailureRestricted, outcome.Kind)
	})

	// **情境 5: HTTP 成功但 body 不是 JSON**
	t.Run("非預期回應形狀", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>cloudflare</html>"))
		}))
		defer srv.Close()

		p := NewCobaltProvider(cobaltConfig(srv.URL))
		outcome := p.Resolve(ctx, "vid123")

		assert.False(t, outcome.OK)
		assert.Equal(t, domain.FailureUnparseable, outcome.Kind)
	})
}
