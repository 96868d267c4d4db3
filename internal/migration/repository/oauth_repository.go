package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"video_migrate_service/internal/migration/domain"
	"video_migrate_service/pkg/config"
	errprocess "video_migrate_service/pkg/err"
	"video_migrate_service/pkg/logger"
)

// Google OAuth 端點，測試時可替換
var (
	oauthAuthBase    = "https://accounts.google.com/o/oauth2/v2/auth"
	oauthTokenURL    = "https://oauth2.googleapis.com/token"
	oauthChannelURL  = "https://www.googleapis.com/youtube/v3/channels?part=snippet&mine=true"
	oauthHTTPTimeout = 15 * time.Second
)

// 上傳與頻道識別所需的授權範圍
var oauthScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube",
}

// OAuthRepo definition google oauth operations
type OAuthRepo interface {
	GetAuthorizationURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (domain.TokenPair, domain.ChannelInfo, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiresIn int, err error)
}

type oauthRepo struct {
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewOAuthRepo create a OAuthRepo
func NewOAuthRepo(cfg config.OAuthConfig) OAuthRepo {
	return &oauthRepo{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       &http.Client{Timeout: oauthHTTPTimeout},
	}
}

// GetAuthorizationURL 組 consent 頁連結
// access_type=offline + prompt=consent 才拿得到 refresh token
func (r *oauthRepo) GetAuthorizationURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", r.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(oauthScopes, " "))
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("state", state)

	return oauthAuthBase + "?" + q.Encode()
}

type tokenEndpointRes struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode authorization code 換 token，並順帶抓頻道識別
func (r *oauthRepo) ExchangeCode(ctx context.Context, code, redirectURI string) (domain.TokenPair, domain.ChannelInfo, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", r.clientID)
	form.Set("client_secret", r.clientSecret)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")

	res, err := r.postToken(ctx, form)
	if err != nil {
		return domain.TokenPair{}, domain.ChannelInfo{}, err
	}

	expiresAt := time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	pair := domain.TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    &expiresAt,
	}

	// 頻道識別拿不到不影響授權本身
	channel, err := r.fetchChannel(ctx, res.AccessToken)
	if err != nil {
		logger.Log.Warn("fetch channel info failed: " + err.Error())
		channel = domain.ChannelInfo{}
	}

	return pair, channel, nil
}

// Refresh 用 refresh token 換新的 access token
func (r *oauthRepo) Refresh(ctx context.Context, refreshToken string) (string, int, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", r.clientID)
	form.Set("client_secret", r.clientSecret)
	form.Set("grant_type", "refresh_token")

	res, err := r.postToken(ctx, form)
	if err != nil {
		return "", 0, err
	}
	return res.AccessToken, res.ExpiresIn, nil
}

func (r *oauthRepo) postToken(ctx context.Context, form url.Values) (*tokenEndpointRes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("build token request failed : %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("token endpoint unreachable : %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("read token response failed : %v", err))
	}

	var res tokenEndpointRes
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("decode token response failed : %.200s", string(raw)))
	}
	if res.Error != "" {
		return nil, errprocess.Set(fmt.Sprintf("token endpoint error[%s] : %s", res.Error, res.ErrorDescription))
	}
	if resp.StatusCode != http.StatusOK || res.AccessToken == "" {
		return nil, errprocess.Set(fmt.Sprintf("token endpoint returned %d : %.200s", resp.StatusCode, string(raw)))
	}

	return &res, nil
}

func (r *oauthRepo) fetchChannel(ctx context.Context, accessToken string) (domain.ChannelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oauthChannelURL, nil)
	if err != nil {
		return domain.ChannelInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.ChannelInfo{}, err
	}
	defer resp.Body.Close()

	var res struct {
		Items []struct {
			Snippet struct {
				Title      string `json:"title"`
				Thumbnails struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.ChannelInfo{}, err
	}
	if len(res.Items) == 0 {
		return domain.ChannelInfo{}, fmt.Errorf("channel list empty, status %d", resp.StatusCode)
	}

	return domain.ChannelInfo{
		Title:     res.Items[0].Snippet.Title,
		Thumbnail: res.Items[0].Snippet.Thumbnails.Default.URL,
	}, nil
}
