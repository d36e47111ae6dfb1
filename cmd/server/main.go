package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"

	"forum-realtime/internal/api"
	"forum-realtime/internal/bridge"
	"forum-realtime/internal/config"
	"forum-realtime/internal/logger"
	"forum-realtime/internal/registry"
	"forum-realtime/internal/ws"
)

func main() {
	// Optional .env for local development; env vars win in deployment.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	reg := registry.New()
	hub := ws.NewHub(reg, log)

	// Cross-process fan-out is off by default: presence and room broadcast
	// are correct within a single process, and the reference deployment
	// runs exactly one.
	if cfg.BridgeEnabled {
		br, err := bridge.New(cfg.RedisURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("bridge init failed")
		}
		defer br.Close()
		hub.SetPublisher(br)
		go br.Run(context.Background(), hub)
	}

	go hub.Run()

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(hub, cfg.SiteOrigin, log))
	mux.Handle("/presence", api.NewPresenceHandler(reg, log))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	log.Info().Str("port", cfg.Port).Bool("bridge", cfg.BridgeEnabled).Msg("realtime server starting")
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
