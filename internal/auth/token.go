// Package auth issues and verifies the room tokens handed out on create and join.
// A token binds a player id to a room code; it is plumbing, not identity management.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Claims holds the room and player a token was issued for.
type Claims struct {
	RoomCode string `json:"room"`
	PlayerID string `json:"player"`
	Exp      int64  `json:"exp"`
}

// DefaultTokenExpiry is long enough to outlast a game night.
const DefaultTokenExpiry = 24 * time.Hour

// Token errors.
var (
	ErrNoSecret     = errors.New("token secret is required")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Signer issues and verifies room tokens.
type Signer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewSigner returns a signer using secret. A non-positive expiry means DefaultTokenExpiry.
func NewSigner(secret []byte, expiry time.Duration) *Signer {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &Signer{secret: secret, expiry: expiry, now: time.Now}
}

// Enabled reports whether the signer has a secret.
func (s *Signer) Enabled() bool { return s != nil && len(s.secret) > 0 }

// Issue creates a token for playerID in roomCode.
// Format: base64url(payload).base64url(hmac-sha256(payload)).
func (s *Signer) Issue(roomCode, playerID string) (token string, expiresAt time.Time, err error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrNoSecret
	}
	expiresAt = s.now().UTC().Add(s.expiry)
	payload, err := json.Marshal(Claims{RoomCode: roomCode, PlayerID: playerID, Exp: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal claims: %w", err)
	}
	b64Payload := base64.RawURLEncoding.EncodeToString(payload)
	return b64Payload + "." + base64.RawURLEncoding.EncodeToString(s.sign(b64Payload)), expiresAt, nil
}

// Verify checks the signature and expiry and returns the claims.
func (s *Signer) Verify(token string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrNoSecret
	}
	b64Payload, b64Sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("%w: format", ErrInvalidToken)
	}
	sig, err := base64.RawURLEncoding.DecodeString(b64Sig)
	if err != nil || !hmac.Equal(sig, s.sign(b64Payload)) {
		return nil, fmt.Errorf("%w: signature", ErrInvalidToken)
	}
	payload, err := base64.RawURLEncoding.DecodeString(b64Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload encoding", ErrInvalidToken)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload", ErrInvalidToken)
	}
	if s.now().UTC().Unix() > claims.Exp {
		return nil, ErrTokenExpired
	}
	if claims.RoomCode == "" || claims.PlayerID == "" {
		return nil, fmt.Errorf("%w: missing room or player", ErrInvalidToken)
	}
	return &claims, nil
}

// VerifyForRoom verifies token and checks it was issued for roomCode.
func (s *Signer) VerifyForRoom(token, roomCode string) (*Claims, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(claims.RoomCode, roomCode) {
		return nil, fmt.Errorf("%w: issued for another room", ErrInvalidToken)
	}
	return claims, nil
}

func (s *Signer) sign(b64Payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(b64Payload))
	return mac.Sum(nil)
}
