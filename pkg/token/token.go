package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateClaims structure for the signed OAuth state parameter
type StateClaims struct {
	RedirectURI string `json:"redirect_uri"`
	Nonce       string `json:"nonce"`
	jwt.RegisteredClaims
}

var (
	// StateSecret key for state signing, overridden from config at startup
	StateSecret = []byte("secure_state_key")

	stateExpiration = 10 * time.Minute
)

// 這個變數會在測試時被覆蓋
var (
	GenerateStateFunc = GenerateState
	ParseStateFunc    = ParseState
)

// GenerateState generates a signed OAuth state token
// state 夾帶 redirect_uri 與 nonce，callback 時驗證來源
func GenerateState(redirectURI, nonce, issuer string) (string, error) {
	claims := StateClaims{
		RedirectURI: redirectURI,
		Nonce:       nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(stateExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(StateSecret)
}

// ParseState parses a state token and extracts the StateClaims
func ParseState(tokenStr string) (*StateClaims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &StateClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return StateSecret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(*StateClaims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid state token")
	}

	return claims, nil
}
