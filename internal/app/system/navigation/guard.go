package navigation

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/pharmausage/internal/app/system/session"
)

type deniedResponse struct {
	Error string `json:"error"`
	State string `json:"state"`
	Home  Screen `json:"home"`
}

// RequireScreen rejects requests whose session may not open screen.
//
// A session without a resolved role gets 401 (HTML clients are redirected
// to /login). A role that lacks the screen gets 403.
func RequireScreen(screen Screen) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromRequest(r)
			set := ForSession(s)
			if set.Contains(screen) {
				next.ServeHTTP(w, r)
				return
			}

			if !s.HasRole() {
				if wantsHTML(r) {
					http.Redirect(w, r, "/login?return="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
					return
				}
				writeDenied(w, http.StatusUnauthorized, "sign in required", s, set)
				return
			}
			writeDenied(w, http.StatusForbidden, "forbidden", s, set)
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, msg string, s session.Session, set ScreenSet) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(deniedResponse{
		Error: msg,
		State: string(s.State()),
		Home:  set.Home(),
	})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
