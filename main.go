package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/facebookgo/httpdown"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.slogLevel(),
	}))
	slog.SetDefault(log)

	// Prepare the stoppable HTTP server
	server := &http.Server{
		Addr: cfg.addr(),
	}
	hd := &httpdown.HTTP{
		StopTimeout: 10 * time.Second,
		KillTimeout: 1 * time.Second,
	}

	flag.StringVar(&server.Addr, "addr", server.Addr, "http service address")
	flag.DurationVar(&hd.StopTimeout, "stop-timeout", hd.StopTimeout, "stop timeout")
	flag.DurationVar(&hd.KillTimeout, "kill-timeout", hd.KillTimeout, "kill timeout")
	flag.Parse()

	startMetrics(cfg.MetricsTick)
	defer finalMetrics()

	store := newCosmicStore(cfg, log)
	server.Handler = newHandler(cfg, store, log)

	log.Info("Cosmic Messenger listening", "addr", server.Addr)
	if err := httpdown.ListenAndServe(server, hd); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// newHandler wires the two independent surfaces: the real-time relay on
// /socket and the persistence API under /api. Nothing connects them.
func newHandler(cfg config, store objectStore, log *slog.Logger) http.Handler {
	hub := newHub()
	go hub.run()
	pings := newPingTicker(pingPeriod)

	sessions := newSessionKeeper(cfg.APISecret)
	api := newAPIHandler(store, sessions, log)

	r := mux.NewRouter()

	// Route websocket requests
	r.Path("/socket").Handler(wsHandler{h: hub, pings: pings, log: log})

	// Route API requests
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(requestLogger(log))
	apiRouter.HandleFunc("/register", api.register).Methods(http.MethodPost)
	apiRouter.HandleFunc("/logout", api.logout).Methods(http.MethodPost)
	apiRouter.HandleFunc("/message", api.message).Methods(http.MethodPost)

	// Serve the front-end entry document
	r.Handle("/", entryHandler{}).Methods(http.MethodGet)
	r.Handle("/{username}", entryHandler{}).Methods(http.MethodGet)

	return r
}
