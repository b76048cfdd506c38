package httpapi

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dmorel/breakwater/internal/entitlement"
)

type fakeLinker struct {
	token      string
	username   string
	sessionKey string
	tokenErr   error
	sessionErr error

	current string
}

func (f *fakeLinker) GetToken() (string, error) { return f.token, f.tokenErr }

func (f *fakeLinker) GetAuthURL(token string) string {
	return "https://auth.example.com/?token=" + token
}

func (f *fakeLinker) GetSession(_ string) (string, string, error) {
	if f.sessionErr != nil {
		return "", "", f.sessionErr
	}
	return f.username, f.sessionKey, nil
}

func (f *fakeLinker) SetSessionKey(key string) { f.current = key }

func (f *fakeLinker) IsAuthenticated() bool { return f.current != "" }

func TestLastfm_Link(t *testing.T) {
	f := newFixture(t, entitlement.TierPremium, 0)
	f.srv.lastfm = &fakeLinker{token: "tok1"}

	rec := f.do(t, http.MethodPost, "/api/lastfm/link", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	resp := decode[map[string]string](t, rec)
	if resp["token"] != "tok1" {
		t.Errorf("token = %q, want tok1", resp["token"])
	}
	if resp["authUrl"] != "https://auth.example.com/?token=tok1" {
		t.Errorf("authUrl = %q", resp["authUrl"])
	}
}

func TestLastfm_Link_TokenError(t *testing.T) {
	f := newFixture(t, entitlement.TierPremium, 0)
	f.srv.lastfm = &fakeLinker{tokenErr: errors.New("upstream down")}

	rec := f.do(t, http.MethodPost, "/api/lastfm/link", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestLastfm_SessionExchangePersists(t *testing.T) {
	f := newFixture(t, entitlement.TierPremium, 0)
	linker := &fakeLinker{username: "alice", sessionKey: "sk-1"}
	f.srv.lastfm = linker

	rec := f.do(t, http.MethodPost, "/api/lastfm/session", map[string]string{"token": "tok1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if resp := decode[map[string]string](t, rec); resp["username"] != "alice" {
		t.Errorf("username = %q, want alice", resp["username"])
	}

	sess, err := f.store.GetLastfmSession()
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil || sess.Username != "alice" || sess.SessionKey != "sk-1" {
		t.Errorf("stored session = %+v, want alice/sk-1", sess)
	}
	if !linker.IsAuthenticated() {
		t.Error("linker should be authenticated after the exchange")
	}

	rec = f.do(t, http.MethodGet, "/api/lastfm", nil)
	status := decode[map[string]any](t, rec)
	if status["linked"] != true {
		t.Errorf("linked = %v, want true", status["linked"])
	}
	if status["username"] != "alice" {
		t.Errorf("username = %v, want alice", status["username"])
	}
}

func TestLastfm_Session_MissingToken(t *testing.T) {
	f := newFixture(t, entitlement.TierPremium, 0)
	f.srv.lastfm = &fakeLinker{}

	rec := f.do(t, http.MethodPost, "/api/lastfm/session", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLastfm_Unlink(t *testing.T) {
	f := newFixture(t, entitlement.TierPremium, 0)
	linker := &fakeLinker{username: "alice", sessionKey: "sk-1"}
	f.srv.lastfm = linker

	if rec := f.do(t, http.MethodPost, "/api/lastfm/session", map[string]string{"token": "tok1"}); rec.Code != http.StatusOK {
		t.Fatalf("exchange: status = %d", rec.Code)
	}

	rec := f.do(t, http.MethodDelete, "/api/lastfm", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	if sess, err := f.store.GetLastfmSession(); err != nil || sess != nil {
		t.Errorf("stored session = %+v, %v, want none", sess, err)
	}
	if linker.IsAuthenticated() {
		t.Error("linker should be signed out after unlink")
	}
}

func TestLastfm_Unconfigured(t *testing.T) {
	f := newFixture(t, entitlement.TierPremium, 0)

	rec := f.do(t, http.MethodPost, "/api/lastfm/link", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("link: status = %d, want 503", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/lastfm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: status = %d, want 200", rec.Code)
	}
	status := decode[map[string]any](t, rec)
	if status["configured"] != false {
		t.Errorf("configured = %v, want false", status["configured"])
	}
}
