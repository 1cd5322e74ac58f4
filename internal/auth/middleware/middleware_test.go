package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/gradewise/internal/rbac"
)

func TestLoginAndMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a := NewAuthService("test-key")
	login := LoginHandler(a, Account{Username: "ms.rao", PassHash: string(hash), Role: RoleTeacher})

	rec := httptest.NewRecorder()
	login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"ms.rao","password":"nope"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"ms.rao","password":"s3cret"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}

	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub, gotRole = rbac.SubjectFromContext(r.Context()), rbac.RoleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/classes", nil)
	req.Header.Set("Authorization", "Bearer "+out["access_token"])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || gotSub != "ms.rao" || gotRole != RoleTeacher {
		t.Fatalf("code=%d sub=%q role=%q", rec.Code, gotSub, gotRole)
	}
}

func TestMeHandler(t *testing.T) {
	a := NewAuthService("test-key")
	tok, _ := a.IssueJWT("mod-1", RoleViewer)
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	JWTMiddleware(a)(MeHandler()).ServeHTTP(rec, req)

	var out struct {
		Sub         string   `json:"sub"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	want := []string{"class:analyze", "class:export", "class:view"}
	if out.Sub != "mod-1" || out.Role != RoleViewer || strings.Join(out.Permissions, ",") != strings.Join(want, ",") {
		t.Fatalf("me: %+v", out)
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	a := NewAuthService("test-key")
	other := NewAuthService("other-key")
	forged, _ := other.IssueJWT("x", RoleAdmin)

	expired := NewAuthService("test-key")
	expired.now = func() time.Time { return time.Now().Add(-9 * time.Hour) }
	old, _ := expired.IssueJWT("x", RoleTeacher)

	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for name, hdr := range map[string]string{
		"missing": "",
		"forged":  "Bearer " + forged,
		"expired": "Bearer " + old,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: got %d", name, rec.Code)
		}
	}
}
