package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mhoward-dev/portfolio-chat/internal/chat"
	"github.com/mhoward-dev/portfolio-chat/internal/config"
	"github.com/mhoward-dev/portfolio-chat/internal/history"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "chat proxy base URL")
	backend := flag.String("backend", "", "history backend: sqlite, redis or memory (default from env)")
	flag.Parse()

	cfg := config.Load()
	if *backend != "" {
		cfg.HistoryBackend = *backend
	}

	storage, err := openHistory(cfg)
	if err != nil {
		log.Fatalf("[Chat] open history: %v", err)
	}

	store := chat.New(chat.NewHTTPTransport(*serverURL), storage)
	defer store.Close()

	fmt.Println("Portfolio chat. Commands: /retry /clear /quit")
	render(store.Snapshot())

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit":
			return
		case "/retry":
			store.RetryLastMessage(ctx)
		case "/clear":
			store.ClearHistory(ctx)
		default:
			store.SendMessage(ctx, line)
		}
		render(store.Snapshot())
	}
}

func openHistory(cfg config.Config) (history.Store, error) {
	switch cfg.HistoryBackend {
	case "sqlite":
		return history.OpenSQLite(cfg.HistoryDBPath)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return history.NewRedisStore(rdb, history.DefaultTTL), nil
	case "memory":
		return history.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}
}

func render(st chat.State) {
	if len(st.Messages) > 0 {
		last := st.Messages[len(st.Messages)-1]
		if last.Role == chat.RoleAssistant {
			fmt.Printf("\nassistant: %s\n", last.Content)
		}
	}
	if st.Err != "" {
		fmt.Printf("! %s\n", st.Err)
	}
	if st.IsRateLimited {
		fmt.Printf("! rate limited, %ds remaining\n", st.RateLimitSecondsRemaining)
	}
	if st.FailedMessage != "" {
		fmt.Println("  (last message failed, /retry to resend)")
	}
	for _, s := range st.Suggestions {
		fmt.Printf("  suggestion: %s\n", s)
	}
}
