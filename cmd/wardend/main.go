package main

import (
	"log"

	"warden/internal/config"
	"warden/internal/infra/db"
	httpinfra "warden/internal/infra/http"
)

func main() {
	cfg := config.FromEnv()

	store, err := db.NewStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	if store.Available() {
		if err := store.Migrate(); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	srv := httpinfra.NewServer(cfg, store)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
