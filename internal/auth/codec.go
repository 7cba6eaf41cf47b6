package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"casedesk/internal/models"
)

// DefaultSessionTTL is how long a signed session token stays valid.
// There is no revocation list; a token lives out its full window.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Codec signs and verifies the compact stateless session credential used
// by the passcode identity path. Tokens are URL- and cookie-safe.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec constructs a codec keyed by the server secret.
func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type sessionClaims struct {
	TeamID     string `json:"team_id"`
	MemberName string `json:"member_name"`
	IssuedAt   int64  `json:"issued_at"`
}

// Sign mints a token binding the team and member identity to the issue time.
func (c *Codec) Sign(teamID, memberName string) (string, error) {
	if teamID == "" || memberName == "" {
		return "", fmt.Errorf("team id and member name required")
	}
	claims := sessionClaims{TeamID: teamID, MemberName: memberName, IssuedAt: c.now().Unix()}
	return signJSON(c.secret, claims)
}

// Verify returns the workspace context encoded in token, or nil for any
// malformed, tampered, or expired token. It never returns an error;
// callers treat nil as "no session".
func (c *Codec) Verify(token string) *models.WorkspaceContext {
	var claims sessionClaims
	if !verifyJSON(c.secret, token, &claims) {
		return nil
	}
	if claims.TeamID == "" || claims.MemberName == "" {
		return nil
	}
	issued := time.Unix(claims.IssuedAt, 0)
	if c.now().After(issued.Add(c.ttl)) {
		return nil
	}
	return &models.WorkspaceContext{TeamID: claims.TeamID, MemberName: claims.MemberName}
}

// signJSON encodes v as base64url(JSON) and appends an HMAC-SHA256 tag.
// Shared by the session codec and the federated session cookie.
func signJSON(secret []byte, v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(body))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return body + "." + sig, nil
}

// verifyJSON checks the HMAC tag before decoding the payload into v.
// Fails closed on any structural problem.
func verifyJSON(secret []byte, token string, v any) bool {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return false
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(body))
	if !hmac.Equal(mac.Sum(nil), gotSig) {
		return false
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return false
	}
	return json.Unmarshal(payload, v) == nil
}

func randomHex(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
