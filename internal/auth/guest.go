package auth

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const learnerCookie = "ib_learner_id"

// LearnerLoginHandler issues a guest learner identity and its bearer
// token. A returning browser keeps its identity through the cookie so
// box progress survives new sessions.
func LearnerLoginHandler(a *Service, enabled bool) http.HandlerFunc {
	type out struct {
		AccessToken string `json:"access_token"`
		LearnerID   string `json:"learner_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !enabled {
			http.Error(w, "learner auth disabled", http.StatusForbidden)
			return
		}

		// Reuse the identity this browser already carries.
		if c, err := r.Cookie(learnerCookie); err == nil && strings.HasPrefix(c.Value, "guest|") {
			if tok, err := a.IssueToken(c.Value); err == nil {
				setLearnerCookie(w, c.Value)
				_ = json.NewEncoder(w).Encode(out{AccessToken: tok, LearnerID: c.Value})
				return
			}
		}

		learnerID := "guest|" + strconv.FormatInt(time.Now().UnixNano(), 36)
		tok, err := a.IssueToken(learnerID)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		setLearnerCookie(w, learnerID)
		_ = json.NewEncoder(w).Encode(out{AccessToken: tok, LearnerID: learnerID})
	}
}

func setLearnerCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     learnerCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}
