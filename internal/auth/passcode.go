package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"casedesk/internal/models"
)

// SessionCookieName carries the signed passcode session token.
const SessionCookieName = "casedesk_session"

// PasscodeResolver implements the legacy shared-passcode identity path:
// a per-team secret exchanged for a signed 30-day cookie.
type PasscodeResolver struct {
	codec     *Codec
	teamID    string
	passcode  string
	cookieTTL time.Duration
}

// NewPasscodeResolver constructs the passcode strategy for one deployment.
func NewPasscodeResolver(codec *Codec, teamID, passcode string) *PasscodeResolver {
	return &PasscodeResolver{
		codec:     codec,
		teamID:    teamID,
		passcode:  passcode,
		cookieTTL: DefaultSessionTTL,
	}
}

// Resolve reads and verifies the session cookie. Absence or any
// verification failure yields nil.
func (r *PasscodeResolver) Resolve(c *gin.Context) *models.WorkspaceContext {
	token, err := c.Cookie(SessionCookieName)
	if err != nil || token == "" {
		return nil
	}
	ws := r.codec.Verify(token)
	if ws == nil || ws.TeamID != r.teamID {
		return nil
	}
	return ws
}

// Mount registers the passcode login/logout endpoints.
func (r *PasscodeResolver) Mount(rg *gin.RouterGroup) {
	rg.POST("/login", r.login)
	rg.POST("/logout", r.logout)
}

type passcodeLoginRequest struct {
	Passcode   string `json:"passcode"`
	MemberName string `json:"member_name"`
}

func (r *PasscodeResolver) login(c *gin.Context) {
	var req passcodeLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Passcode), []byte(r.passcode)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid passcode"})
		return
	}
	member := strings.TrimSpace(req.MemberName)
	if member == "" {
		member = "member"
	}
	token, err := r.codec.Sign(r.teamID, member)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue session failed"})
		return
	}
	setCookie(c, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		MaxAge:   int(r.cookieTTL.Seconds()),
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.JSON(http.StatusOK, gin.H{"team_id": r.teamID, "member_name": member})
}

func (r *PasscodeResolver) logout(c *gin.Context) {
	setCookie(c, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Status(http.StatusNoContent)
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
