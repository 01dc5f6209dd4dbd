package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

type wsHandler struct {
	h     *hub
	pings *pingTicker
	log   *slog.Logger
}

func (wsh wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsh.log.Warn("websocket upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	c := newConnection(websocketInteractor{ws: ws}, wsh.h, wsh.pings, wsh.log)
	c.run()
}

// apiHandler serves the persistence surface. Every failure is a 400 with a
// message echoed to the caller; nothing is retried and nothing rolls back.
// The handlers never touch the relay: persistence and broadcast are separate
// call paths on purpose.
type apiHandler struct {
	store    objectStore
	sessions *sessionKeeper
	validate *validator.Validate
	log      *slog.Logger
}

func newAPIHandler(store objectStore, sessions *sessionKeeper, log *slog.Logger) *apiHandler {
	return &apiHandler{
		store:    store,
		sessions: sessions,
		validate: validator.New(),
		log:      log,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
}

type logoutRequest struct {
	UserName string `json:"userName" validate:"required"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type registerResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type apiError struct {
	Message string `json:"message"`
	Detail  string `json:"error,omitempty"`
}

func (h *apiHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = registerRequest{}
	}
	if err := h.validate.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, apiError{
			Message: "/api/register error, no userName on request body",
		})
		return
	}

	existing, err := h.store.FindObject(r.Context(), "users", req.Username)
	if err != nil {
		h.log.Error("register: store lookup failed", "username", req.Username, "err", err)
		respondJSON(w, http.StatusBadRequest, apiError{
			Message: "Error registering username",
			Detail:  err.Error(),
		})
		return
	}
	if existing != nil {
		respondJSON(w, http.StatusBadRequest, apiError{
			Message: "user is already logged in",
		})
		return
	}

	user, err := h.store.AddObject(r.Context(), objectParams{
		Title:    req.Username,
		TypeSlug: "users",
	})
	if err != nil {
		h.log.Error("register: store create failed", "username", req.Username, "err", err)
		respondJSON(w, http.StatusBadRequest, apiError{
			Message: "Error registering username",
			Detail:  err.Error(),
		})
		return
	}

	if err := h.sessions.setUserID(w, r, user.ID); err != nil {
		h.log.Error("register: session save failed", "err", err)
	}
	incr("api.register", 1)
	respondJSON(w, http.StatusOK, registerResponse{
		ID:        user.ID,
		Name:      user.Title,
		CreatedAt: user.CreatedAt,
	})
}

func (h *apiHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = logoutRequest{}
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "No username", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteObject(r.Context(), req.UserName); err != nil {
		h.log.Error("logout: store delete failed", "username", req.UserName, "err", err)
		respondJSON(w, http.StatusBadRequest, apiError{
			Message: "unable to remove user",
		})
		return
	}
	incr("api.logout", 1)
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) message(w http.ResponseWriter, r *http.Request) {
	userID := h.sessions.userID(r)
	if userID == "" {
		respondJSON(w, http.StatusBadRequest, apiError{
			Message: "/api/message error, no user session on request",
		})
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = messageRequest{}
	}

	msg, err := h.store.AddObject(r.Context(), objectParams{
		Title:    req.Content,
		TypeSlug: "messages",
		Content:  req.Content,
		Metafields: []metafield{
			{Key: "user_id", Type: "text", Value: userID},
		},
	})
	if err != nil {
		h.log.Error("message: store create failed", "user_id", userID, "err", err)
		respondJSON(w, http.StatusBadRequest, apiError{
			Message: "Error creating message",
			Detail:  err.Error(),
		})
		return
	}
	incr("api.message", 1)
	respondJSON(w, http.StatusOK, map[string]*storedObject{"object": msg})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestLogger is the dev-style access log for the API routes.
func requestLogger(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("api request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
