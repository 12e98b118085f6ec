package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/abx-learn/backend/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			t.Error("user id missing from context")
		}
		w.Header().Set("X-User", strconv.FormatInt(id, 10))
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	raw, err := tokens.Issue(42)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := tokens.Parse(raw)
	if err != nil || id != 42 {
		t.Errorf("Parse = %d, %v; want 42", id, err)
	}

	if _, err := NewTokens("another-secret-another-secret-xx", time.Hour).Parse(raw); err == nil {
		t.Error("token verified with the wrong secret")
	}
	expired, _ := NewTokens(testSecret, -time.Minute).Issue(42)
	if _, err := tokens.Parse(expired); err == nil {
		t.Error("expired token accepted")
	}
}

func TestRequireToken(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	valid, _ := tokens.Issue(7)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	h := RequireToken(tokens)(echoUser(t))
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
		if tt.want == http.StatusOK && rec.Header().Get("X-User") != "7" {
			t.Errorf("%s: user = %s", tt.name, rec.Header().Get("X-User"))
		}
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc.def", "abc.def", nil},
		{"Bearer   ", "", ErrMissingToken},
		{"Basic dXNlcg==", "", ErrMissingToken},
		{"", "", ErrMissingToken},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, err := BearerToken(req)
		if got != tt.want || !errors.Is(err, tt.wantErr) {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestLocalUser(t *testing.T) {
	rec := httptest.NewRecorder()
	LocalUser(echoUser(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-User") != strconv.FormatInt(models.LocalUserID, 10) {
		t.Errorf("status %d user %s", rec.Code, rec.Header().Get("X-User"))
	}
}
