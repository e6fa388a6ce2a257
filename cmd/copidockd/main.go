// Command copidockd is the Copidock backend daemon.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Droshow/copidock/internal/blob"
	"github.com/Droshow/copidock/internal/service"
	"github.com/Droshow/copidock/internal/store"
)

func main() {
	listen := flag.String("listen", "", "Address to listen on (default: :7460)")
	dataDir := flag.String("data", "", "Data directory (default: ./data)")
	baseURL := flag.String("base-url", "", "Public base URL for presigned links (default: http://<listen>)")
	flag.Parse()

	addr := firstOf(*listen, os.Getenv("COPIDOCK_LISTEN"), ":7460")
	dir := firstOf(*dataDir, os.Getenv("COPIDOCK_DATA_DIR"), "./data")
	base := firstOf(*baseURL, os.Getenv("COPIDOCK_BASE_URL"), "http://localhost"+addr)

	log.Printf("copidockd starting...")
	log.Printf("  listen:   %s", addr)
	log.Printf("  data:     %s", dir)
	log.Printf("  base_url: %s", base)
	log.Printf("  version:  %s", service.Version)

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}

	db, err := store.Open(filepath.Join(dir, "copidock.db"))
	if err != nil {
		log.Fatalf("failed to open metadata store: %v", err)
	}
	defer db.Close()

	blobs, err := blob.NewStore(filepath.Join(dir, "objects"))
	if err != nil {
		log.Fatalf("failed to open object store: %v", err)
	}

	signer := blob.NewSigner(signingSecret())

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	handler := service.NewHandler(db, blobs, signer, base, logger)

	srv := &http.Server{
		Addr:         addr,
		Handler:      service.WithDefaults(service.NewRouter(handler)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}

		close(done)
	}()

	log.Printf("copidockd listening on %s", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	<-done
	log.Println("copidockd stopped")
}

// signingSecret prefers the env-provided secret; a fresh random secret
// invalidates presigned links on restart but keeps development simple.
func signingSecret() []byte {
	if s := os.Getenv("COPIDOCK_SIGNING_SECRET"); s != "" {
		return []byte(s)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("failed to generate signing secret: %v", err)
	}
	log.Println("COPIDOCK_SIGNING_SECRET not set; using an ephemeral secret")
	return secret
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
