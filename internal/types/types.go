package types

import (
	"context"

	"github.com/xhad/glance/internal/models"
)

// Core interfaces
type Engine interface {
	Process(ctx context.Context, src models.Source) (*models.Result, error)
}

type HistoryStore interface {
	Add(ctx context.Context, entry models.Entry) error
	List(ctx context.Context, limit int) ([]models.Entry, error)
	Close()
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}
