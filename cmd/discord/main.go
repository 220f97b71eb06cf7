package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "molten/internal/command/music"

	"molten/internal/config"
	"molten/internal/discord"
	"molten/internal/storage"
)

func main() {
	log.Println("[INFO] Starting Molten bot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(ctx, cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	errCh := make(chan error, 1)
	go func() {
		if err := discord.StartBot(ctx, cfg, store); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	}

	log.Println("[INFO] Discord bot exited cleanly")
}
