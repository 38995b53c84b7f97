package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mhoward-dev/portfolio-chat/internal/config"
	"github.com/mhoward-dev/portfolio-chat/internal/httpapi"
	"github.com/mhoward-dev/portfolio-chat/internal/httpapi/handlers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Server] no .env file loaded: %v", err)
	}

	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		log.Printf("[Server] GEMINI_API_KEY is not set; /api/chat will answer 503")
	}

	h := handlers.NewHandler(cfg)
	router := httpapi.NewRouter(cfg, h)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("[Server] listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Server] listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("[Server] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Server] shutdown: %v", err)
	}
}
