package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mhoward-dev/portfolio-chat/internal/ai"
	"github.com/mhoward-dev/portfolio-chat/internal/config"
)

// ReplyGenerator runs the model fallback chain. Satisfied by *ai.Chain;
// faked in handler tests.
type ReplyGenerator interface {
	Run(ctx context.Context, contents []ai.Content) ai.ChainResult
}

type Handler struct {
	Cfg     config.Config
	Chain   ReplyGenerator
	Suggest Suggester
}

func NewHandler(cfg config.Config) *Handler {
	client := ai.NewClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.AttemptTimeout)
	return &Handler{
		Cfg:     cfg,
		Chain:   &ai.Chain{Models: cfg.Models, Client: client},
		Suggest: NewKeywordSuggester(),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
