package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

// fakeTokenManager 記錄刷新次數
type fakeTokenManager struct {
	refreshCalls int
	renewed      domain.TokenPair
	refreshErr   error
}

func (f *fakeTokenManager) EnsureValid(ctx context.Context, pair domain.TokenPair) (domain.TokenPair, error) {
	return pair, nil
}

func (f *fakeTokenManager) RefreshAfterAuthFailure(ctx context.Context, pair domain.TokenPair) (domain.TokenPair, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return pair, f.refreshErr
	}
	return f.renewed, nil
}

func (f *fakeTokenManager) IsAuthError(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range []string{"unauthorized", "auth", "credential", "token", "invalid"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func bufferedSource(payload string) domain.StagedMedia {
	return domain.StagedMedia{
		ContentType: "video/mp4",
		SizeBytes:   int64(len(payload)),
		AccessURL:   "https://cdn.example.com/v.mp4",
		Buffer:      []byte(payload),
	}
}

func withInitiateURL(t *testing.T, url string) {
	t.Helper()
	old := uploadInitiateURL
	uploadInitiateURL = url
	t.Cleanup(func() { uploadInitiateURL = old })
}

func TestUploadOrchestrator_Upload(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()
	pair := domain.TokenPair{AccessToken: "tok-1", RefreshToken: "r"}

	// **情境 1: 兩階段都成功**
	t.Run("成功上傳", func(t *testing.T) {
		payload := "video-bytes"
		var gotMedia string

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Equal(t, "11", r.Header.Get("X-Upload-Content-Length"))
			assert.Equal(t, "video/mp4", r.Header.Get("X-Upload-Content-Type"))

			var meta uploadMetadata
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
			assert.Equal(t, "My Video", meta.Snippet.Title)
			assert.Equal(t, "22", meta.Snippet.CategoryID)
			assert.Equal(t, "private", meta.Status.PrivacyStatus)

			w.Header().Set("Location", srv.URL+"/upload-session")
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("PUT /upload-session", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			gotMedia = string(body)
			json.NewEncoder(w).Encode(map[string]string{"id": "abc"})
		})
		withInitiateURL(t, srv.URL)

		u := NewUploadOrchestrator(&fakeTokenManager{})
		req := domain.NewUploadRequest(pair.AccessToken, bufferedSource(payload), "My Video", "desc")

		result, finalPair, err := u.Upload(ctx, req, pair)

		assert.NoError(t, err)
		assert.Equal(t, "abc", result.DestinationVideoID)
		assert.Equal(t, "https://www.youtube.com/watch?v=abc", result.DestinationURL)
		assert.Equal(t, pair, finalPair)
		assert.Equal(t, payload, gotMedia)
	})

	// **情境 2: 回應缺 Location 視為起始失敗，不進入傳輸**
	t.Run("缺session url不傳輸", func(t *testing.T) {
		putCalls := 0
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK) // 200 但沒有 Location
		})
		mux.HandleFunc("PUT /", func(w http.ResponseWriter, r *http.Request) {
			putCalls++
		})
		withInitiateURL(t, srv.URL)

		u := NewUploadOrchestrator(&fakeTokenManager{})
		req := domain.NewUploadRequest(pair.AccessToken, bufferedSource("v"), "t", "")

		_, _, err := u.Upload(ctx, req, pair)

		var initErr *domain.InitiationError
		assert.ErrorAs(t, err, &initErr)
		assert.Contains(t, err.Error(), "no upload URL received from YouTube")
		assert.Equal(t, 0, putCalls)
	})

	// **情境 3: 授權失敗 → 刷新一次 → 重試成功**
	t.Run("授權失敗刷新後重試成功", func(t *testing.T) {
		initCalls := 0
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
			initCalls++
			if r.Header.Get("Authorization") != "Bearer tok-2" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{"message": "Invalid Credentials"},
				})
				return
			}
			w.Header().Set("Location", srv.URL+"/upload-session")
		})
		mux.HandleFunc("PUT /upload-session", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "abc"})
		})
		withInitiateURL(t, srv.URL)

		tm := &fakeTokenManager{renewed: domain.TokenPair{AccessToken: "tok-2", RefreshToken: "r"}}
		u := NewUploadOrchestrator(tm)
		req := domain.NewUploadRequest(pair.AccessToken, bufferedSource("v"), "t", "")

		result, finalPair, err := u.Upload(ctx, req, pair)

		assert.NoError(t, err)
		assert.Equal(t, "abc", result.DestinationVideoID)
		assert.Equal(t, "https://www.youtube.com/watch?v=abc", result.DestinationURL)
		assert.Equal(t, "tok-2", finalPair.AccessToken)
		assert.Equal(t, 1, tm.refreshCalls)
		assert.Equal(t, 2, initCalls)
	})

	// **情境 4: 刷新後仍被拒，會話終結且不再刷新**
	t.Run("刷新後仍被拒會話終結", func(t *testing.T) {
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "Invalid Credentials"},
			})
		})
		withInitiateURL(t, srv.URL)

		tm := &fakeTokenManager{renewed: domain.TokenPair{AccessToken: "tok-2", RefreshToken: "r"}}
		u := NewUploadOrchestrator(tm)
		req := domain.NewUploadRequest(pair.AccessToken, bufferedSource("v"), "t", "")

		_, _, err := u.Upload(ctx, req, pair)

		assert.ErrorIs(t, err, domain.ErrSessionExpired)
		assert.Equal(t, 1, tm.refreshCalls)
	})

	// **情境 5: 非授權類傳輸失敗原樣轉交，不觸發刷新**
	t.Run("傳輸失敗不刷新", func(t *testing.T) {
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", srv.URL+"/upload-session")
		})
		mux.HandleFunc("PUT /upload-session", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("backend storage is down"))
		})
		withInitiateURL(t, srv.URL)

		tm := &fakeTokenManager{}
		u := NewUploadOrchestrator(tm)
		req := domain.NewUploadRequest(pair.AccessToken, bufferedSource("v"), "t", "")

		_, _, err := u.Upload(ctx, req, pair)

		var transferErr *domain.TransferError
		assert.ErrorAs(t, err, &transferErr)
		assert.Contains(t, err.Error(), "backend storage is down")
		assert.Equal(t, 0, tm.refreshCalls)
	})
}
