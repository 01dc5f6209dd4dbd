package main

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "messenger-session"

// sessionKeeper wraps the signed-cookie store. Handlers receive the session
// for their own request explicitly; there is no ambient current-session
// state anywhere in the process.
type sessionKeeper struct {
	store *sessions.CookieStore
}

func newSessionKeeper(secret string) *sessionKeeper {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   0, // browser session
	}
	return &sessionKeeper{store: store}
}

// userID returns the session-bound user id, or "" when the browser has not
// registered. A tampered cookie decodes as a fresh session, so it also
// reads as "".
func (k *sessionKeeper) userID(r *http.Request) string {
	session, err := k.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	id, _ := session.Values["user_id"].(string)
	return id
}

func (k *sessionKeeper) setUserID(w http.ResponseWriter, r *http.Request, id string) error {
	session, _ := k.store.Get(r, sessionName)
	session.Values["user_id"] = id
	return session.Save(r, w)
}
