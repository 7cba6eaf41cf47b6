package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"casedesk/internal/models"
)

const (
	federatedCookieName  = "casedesk_federated"
	oauthStateCookieName = "casedesk_oauth_state"
	oauthStateTTL        = 10 * time.Minute
)

// Corporate identity provider endpoints (Google Workspace).
const (
	oauthAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	oauthTokenURL    = "https://oauth2.googleapis.com/token"
	oauthUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// FederatedUser is the identity claim set supplied by the provider.
type FederatedUser struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// FederatedSession is the session object consumed from the federated
// identity source.
type FederatedSession struct {
	User FederatedUser `json:"user"`
}

// SessionSource supplies the current federated session for a request,
// or nil when there is none.
type SessionSource interface {
	Session(c *gin.Context) *FederatedSession
	Mount(rg *gin.RouterGroup)
}

// FederatedResolver resolves workspace identity from a federated session,
// enforcing the corporate domain allow-list on every request.
type FederatedResolver struct {
	sessions      SessionSource
	teamID        string
	allowedDomain string
	defaultMember string
}

// NewFederatedResolver constructs the federated strategy. When this
// strategy is active the passcode endpoints are never mounted, so a
// stale passcode cookie cannot bypass the domain allow-list.
func NewFederatedResolver(sessions SessionSource, teamID, allowedDomain, defaultMember string) *FederatedResolver {
	if defaultMember == "" {
		defaultMember = "member"
	}
	return &FederatedResolver{
		sessions:      sessions,
		teamID:        teamID,
		allowedDomain: allowedDomain,
		defaultMember: defaultMember,
	}
}

// Resolve checks the federated session's email domain against the
// allow-list and derives the member name: display name, then email
// local part, then the default label.
func (r *FederatedResolver) Resolve(c *gin.Context) *models.WorkspaceContext {
	sess := r.sessions.Session(c)
	if sess == nil {
		return nil
	}
	email := strings.TrimSpace(sess.User.Email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return nil
	}
	if !strings.EqualFold(email[at+1:], r.allowedDomain) {
		return nil
	}
	member := strings.TrimSpace(sess.User.Name)
	if member == "" {
		member = strings.TrimSpace(email[:at])
	}
	if member == "" {
		member = r.defaultMember
	}
	return &models.WorkspaceContext{TeamID: r.teamID, MemberName: member}
}

// Mount registers the session source's login/callback/logout routes.
func (r *FederatedResolver) Mount(rg *gin.RouterGroup) {
	r.sessions.Mount(rg)
}

// OAuthSessionSource runs the OAuth authorization-code flow against the
// corporate provider and keeps the resulting identity in a signed cookie,
// so requests after login never round-trip to the provider.
type OAuthSessionSource struct {
	oauth       *oauth2.Config
	userinfoURL string
	secret      []byte
	sessionTTL  time.Duration
	now         func() time.Time
}

// NewOAuthSessionSource builds the production session source.
func NewOAuthSessionSource(clientID, clientSecret, redirectURL, signingSecret string) *OAuthSessionSource {
	return &OAuthSessionSource{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  oauthAuthURL,
				TokenURL: oauthTokenURL,
			},
		},
		userinfoURL: oauthUserinfoURL,
		secret:      []byte(signingSecret),
		sessionTTL:  DefaultSessionTTL,
		now:         time.Now,
	}
}

type federatedClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Image    string `json:"image,omitempty"`
	IssuedAt int64  `json:"issued_at"`
}

// Session verifies the federated session cookie. Any failure yields nil.
func (s *OAuthSessionSource) Session(c *gin.Context) *FederatedSession {
	token, err := c.Cookie(federatedCookieName)
	if err != nil || token == "" {
		return nil
	}
	var claims federatedClaims
	if !verifyJSON(s.secret, token, &claims) {
		return nil
	}
	if claims.Email == "" {
		return nil
	}
	if s.now().After(time.Unix(claims.IssuedAt, 0).Add(s.sessionTTL)) {
		return nil
	}
	return &FederatedSession{User: FederatedUser{Email: claims.Email, Name: claims.Name, Image: claims.Image}}
}

// Mount registers the OAuth flow endpoints.
func (s *OAuthSessionSource) Mount(rg *gin.RouterGroup) {
	rg.GET("/login", s.begin)
	rg.GET("/callback", s.callback)
	rg.POST("/logout", s.logout)
}

func (s *OAuthSessionSource) begin(c *gin.Context) {
	state, err := randomHex(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate state failed"})
		return
	}
	setCookie(c, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		MaxAge:   int(oauthStateTTL.Seconds()),
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state))
}

func (s *OAuthSessionSource) callback(c *gin.Context) {
	state := c.Query("state")
	cookieState, err := c.Cookie(oauthStateCookieName)
	if err != nil || state == "" || state != cookieState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	ctx := c.Request.Context()
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "code exchange failed"})
		return
	}
	user, err := s.fetchUser(ctx, tok)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "fetch userinfo failed"})
		return
	}
	claims := federatedClaims{Email: user.Email, Name: user.Name, Image: user.Image, IssuedAt: s.now().Unix()}
	signed, err := signJSON(s.secret, claims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue session failed"})
		return
	}
	setCookie(c, &http.Cookie{
		Name:     federatedCookieName,
		Value:    signed,
		MaxAge:   int(s.sessionTTL.Seconds()),
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// The state cookie is single-use.
	setCookie(c, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusFound, "/")
}

func (s *OAuthSessionSource) logout(c *gin.Context) {
	setCookie(c, &http.Cookie{
		Name:     federatedCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Status(http.StatusNoContent)
}

func (s *OAuthSessionSource) fetchUser(ctx context.Context, tok *oauth2.Token) (*FederatedUser, error) {
	resp, err := s.oauth.Client(ctx, tok).Get(s.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var payload struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &FederatedUser{Email: payload.Email, Name: payload.Name, Image: payload.Picture}, nil
}
