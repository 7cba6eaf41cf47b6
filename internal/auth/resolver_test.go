package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

type fakeSessionSource struct {
	sess *FederatedSession
}

func (f *fakeSessionSource) Session(*gin.Context) *FederatedSession { return f.sess }
func (f *fakeSessionSource) Mount(*gin.RouterGroup)                 {}

func testContext(t *testing.T, req *http.Request) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestFederatedResolveAllowedDomain(t *testing.T) {
	cases := []struct {
		name       string
		email      string
		display    string
		wantMember string
	}{
		{"display name wins", "alice@corp.example.com", "Alice Liddell", "Alice Liddell"},
		{"local part fallback", "bob@corp.example.com", "", "bob"},
		{"case-insensitive domain", "carol@CORP.EXAMPLE.COM", "Carol", "Carol"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSessionSource{sess: &FederatedSession{User: FederatedUser{Email: tc.email, Name: tc.display}}}
			r := NewFederatedResolver(source, "team-a", "corp.example.com", "member")
			ws := r.Resolve(testContext(t, httptest.NewRequest(http.MethodGet, "/api/me", nil)))
			if ws == nil {
				t.Fatalf("expected context for %s", tc.email)
			}
			if ws.TeamID != "team-a" {
				t.Fatalf("team id mismatch: %s", ws.TeamID)
			}
			if ws.MemberName != tc.wantMember {
				t.Fatalf("member mismatch: want %q got %q", tc.wantMember, ws.MemberName)
			}
		})
	}
}

func TestFederatedResolveRejectsOtherDomains(t *testing.T) {
	for _, email := range []string{
		"mallory@evil.example.com",
		"mallory@corp.example.com.evil.net",
		"corp.example.com",
		"@corp.example.com",
		"",
	} {
		source := &fakeSessionSource{sess: &FederatedSession{User: FederatedUser{Email: email}}}
		r := NewFederatedResolver(source, "team-a", "corp.example.com", "member")
		if ws := r.Resolve(testContext(t, httptest.NewRequest(http.MethodGet, "/api/me", nil))); ws != nil {
			t.Fatalf("expected nil for %q, got %+v", email, ws)
		}
	}
}

func TestFederatedResolveNoSession(t *testing.T) {
	r := NewFederatedResolver(&fakeSessionSource{}, "team-a", "corp.example.com", "member")
	if ws := r.Resolve(testContext(t, httptest.NewRequest(http.MethodGet, "/api/me", nil))); ws != nil {
		t.Fatalf("expected nil without session, got %+v", ws)
	}
}

func TestFederatedResolverIgnoresPasscodeCookie(t *testing.T) {
	// With federated login configured the legacy cookie must carry no
	// weight, even if it would verify.
	codec := NewCodec("test-secret", 0)
	token, err := codec.Sign("team-a", "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

	r := NewFederatedResolver(&fakeSessionSource{}, "team-a", "corp.example.com", "member")
	if ws := r.Resolve(testContext(t, req)); ws != nil {
		t.Fatalf("passcode cookie must not resolve on federated deployments, got %+v", ws)
	}
}

func TestPasscodeLoginAndResolve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	codec := NewCodec("test-secret", 0)
	resolver := NewPasscodeResolver(codec, "team-a", "open sesame")
	svc := NewService(resolver)

	router := gin.New()
	svc.Mount(router.Group("/api/auth"))
	router.GET("/api/me", svc.Require(), func(c *gin.Context) {
		ws, _ := WorkspaceFromContext(c)
		c.JSON(http.StatusOK, gin.H{"team_id": ws.TeamID, "member_name": ws.MemberName})
	})

	// Wrong passcode is rejected without a cookie.
	rec := postJSON(t, router, "/api/auth/login", map[string]string{"passcode": "wrong", "member_name": "alice"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong passcode, got %d", rec.Code)
	}

	rec = postJSON(t, router, "/api/auth/login", map[string]string{"passcode": "open sesame", "member_name": "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec, SessionCookieName)
	if !cookie.HttpOnly || cookie.Path != "/" {
		t.Fatalf("cookie attributes wrong: %+v", cookie)
	}
	if cookie.MaxAge != int(DefaultSessionTTL.Seconds()) {
		t.Fatalf("cookie max age %d, want %d", cookie.MaxAge, int(DefaultSessionTTL.Seconds()))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, req)
	if meRec.Code != http.StatusOK {
		t.Fatalf("expected 200 with session cookie, got %d", meRec.Code)
	}
	var body struct {
		TeamID     string `json:"team_id"`
		MemberName string `json:"member_name"`
	}
	if err := json.Unmarshal(meRec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.TeamID != "team-a" || body.MemberName != "alice" {
		t.Fatalf("unexpected identity: %+v", body)
	}

	// No cookie means no identity.
	anonRec := httptest.NewRecorder()
	router.ServeHTTP(anonRec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if anonRec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", anonRec.Code)
	}
}

func TestPasscodeResolveRejectsForeignTeamToken(t *testing.T) {
	codec := NewCodec("test-secret", 0)
	resolver := NewPasscodeResolver(codec, "team-a", "open sesame")
	token, err := codec.Sign("team-b", "mallory")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	if ws := resolver.Resolve(testContext(t, req)); ws != nil {
		t.Fatalf("token for another team must not resolve, got %+v", ws)
	}
}

func TestOAuthSessionCookieLifecycle(t *testing.T) {
	source := NewOAuthSessionSource("client", "secret", "https://app.example.com/api/auth/callback", "signing-secret")
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	source.now = func() time.Time { return issued }

	claims := federatedClaims{Email: "alice@corp.example.com", Name: "Alice", IssuedAt: issued.Unix()}
	signed, err := signJSON(source.secret, claims)
	if err != nil {
		t.Fatalf("signJSON error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: federatedCookieName, Value: signed})
	sess := source.Session(testContext(t, req))
	if sess == nil || sess.User.Email != "alice@corp.example.com" || sess.User.Name != "Alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	source.now = func() time.Time { return issued.Add(31 * 24 * time.Hour) }
	if sess := source.Session(testContext(t, req)); sess != nil {
		t.Fatalf("expected nil after expiry, got %+v", sess)
	}

	source.now = func() time.Time { return issued }
	tamperedReq := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	tamperedReq.AddCookie(&http.Cookie{Name: federatedCookieName, Value: signed + "x"})
	if sess := source.Session(testContext(t, tamperedReq)); sess != nil {
		t.Fatalf("expected nil for tampered cookie, got %+v", sess)
	}
}

func TestOAuthCallbackIssuesSessionAndRetiresState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			fmt.Fprint(w, `{"access_token":"test-token","token_type":"bearer","expires_in":3600}`)
		case "/userinfo":
			fmt.Fprint(w, `{"email":"alice@corp.example.com","name":"Alice"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer provider.Close()

	source := NewOAuthSessionSource("client", "secret", "https://app.example.com/api/auth/callback", "signing-secret")
	source.oauth.Endpoint = oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"}
	source.userinfoURL = provider.URL + "/userinfo"

	router := gin.New()
	source.Mount(router.Group("/api/auth"))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state=abc123&code=xyz789", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookieName, Value: "abc123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	session := sessionCookie(t, rec, federatedCookieName)
	var claims federatedClaims
	if !verifyJSON(source.secret, session.Value, &claims) {
		t.Fatalf("session cookie does not verify: %q", session.Value)
	}
	if claims.Email != "alice@corp.example.com" || claims.Name != "Alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// The state cookie is spent on success and must not survive.
	state := sessionCookie(t, rec, oauthStateCookieName)
	if state.Value != "" || state.MaxAge >= 0 {
		t.Fatalf("state cookie not cleared: %+v", state)
	}
}

func TestOAuthCallbackRejectsStateMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	source := NewOAuthSessionSource("client", "secret", "https://app.example.com/api/auth/callback", "signing-secret")
	router := gin.New()
	source.Mount(router.Group("/api/auth"))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?state=forged&code=xyz789", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookieName, Value: "abc123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for forged state, got %d", rec.Code)
	}
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	res := rec.Result()
	defer res.Body.Close()
	for _, ck := range res.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}
