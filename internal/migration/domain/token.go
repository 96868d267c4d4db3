package domain

import "time"

// TokenState definition token lifecycle state
type TokenState string

const (
	// TokenValid token still usable
	TokenValid TokenState = "valid"
	// TokenExpiringSoon token inside the safety margin
	TokenExpiringSoon TokenState = "expiring_soon"
	// TokenExpired token past its declared lifetime
	TokenExpired TokenState = "expired"
	// TokenInvalid refresh failed, re-authentication required
	TokenInvalid TokenState = "invalid"
)

// TokenPair oauth access/refresh token 組，ExpiresAt 可能未知
type TokenPair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// State 依 safety margin 判斷 token 目前狀態
func (p TokenPair) State(margin time.Duration) TokenState {
	if p.ExpiresAt == nil {
		// 沒有過期資訊時樂觀視為有效，靠上傳階段被動偵測
		return TokenValid
	}
	now := time.Now()
	switch {
	case p.ExpiresAt.Before(now):
		return TokenExpired
	case p.ExpiresAt.Before(now.Add(margin)):
		return TokenExpiringSoon
	default:
		return TokenValid
	}
}

// ChannelInfo 授權成功後取得的頻道識別
type ChannelInfo struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// TokenSession session store 保存的授權內容
type TokenSession struct {
	SessionID string      `json:"session_id"`
	Pair      TokenPair   `json:"pair"`
	Channel   ChannelInfo `json:"channel"`
}
