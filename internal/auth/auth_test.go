package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/item-bank/itembank/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	a := auth.NewService("sekrit", time.Hour)

	tok, err := a.IssueToken("guest|abc123")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Sub != "guest|abc123" {
		t.Errorf("Sub = %q, want the issued learner id", c.Sub)
	}

	if _, err := auth.NewService("other-secret", time.Hour).Parse(tok); err == nil {
		t.Error("token verified under a different secret")
	}
}

func TestMiddleware(t *testing.T) {
	a := auth.NewService("sekrit", time.Hour)
	tok, err := a.IssueToken("guest|abc123")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var gotLearner string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLearner = auth.LearnerFromContext(r.Context())
	})

	t.Run("required rejects missing bearer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		auth.Middleware(a, true)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("optional passes anonymously", func(t *testing.T) {
		gotLearner = "sentinel"
		rec := httptest.NewRecorder()
		auth.Middleware(a, false)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("code = %d, want 200", rec.Code)
		}
		if gotLearner != "" {
			t.Errorf("learner = %q, want empty for anonymous", gotLearner)
		}
	})

	t.Run("valid token attaches learner", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		auth.Middleware(a, true)(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %d, want 200", rec.Code)
		}
		if gotLearner != "guest|abc123" {
			t.Errorf("learner = %q, want the token subject", gotLearner)
		}
	})

	t.Run("garbage token rejected even when optional", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		auth.Middleware(a, false)(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})
}

func TestLearnerLoginIssuesAndReusesIdentity(t *testing.T) {
	a := auth.NewService("sekrit", time.Hour)
	h := auth.LearnerLoginHandler(a, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/learner", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var first struct {
		AccessToken string `json:"access_token"`
		LearnerID   string `json:"learner_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(first.LearnerID, "guest|") {
		t.Errorf("LearnerID = %q, want a guest identity", first.LearnerID)
	}
	if c, err := a.Parse(first.AccessToken); err != nil || c.Sub != first.LearnerID {
		t.Errorf("token does not carry the learner id: %v", err)
	}

	// The cookie from the first call pins the identity.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/learner", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	var second struct {
		LearnerID string `json:"learner_id"`
	}
	if err := json.NewDecoder(rec2.Body).Decode(&second); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if second.LearnerID != first.LearnerID {
		t.Errorf("second login got %q, want reused %q", second.LearnerID, first.LearnerID)
	}
}

func TestLearnerLoginDisabled(t *testing.T) {
	h := auth.LearnerLoginHandler(auth.NewService("sekrit", time.Hour), false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/learner", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", rec.Code)
	}
}
