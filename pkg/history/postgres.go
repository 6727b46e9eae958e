package history

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/glance/internal/models"
	"github.com/xhad/glance/internal/types"
	"github.com/xhad/glance/pkg/processor"
)

type PostgresConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// Postgres persists history entries. Each entry is stored as one row per
// text chunk: row 0 represents the entry itself, later rows exist only to
// carry chunk embeddings for similarity search. Embeddings are best-effort;
// a failing embedder never blocks the write.
type Postgres struct {
	config   PostgresConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
	chunker  processor.Processor
}

func NewPostgresWithConfig(config PostgresConfig, embedder types.Embedder, chunker processor.Processor) (*Postgres, error) {
	if config.TableName == "" {
		config.TableName = "extractions"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // Default for nomic-embed-text
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	p := &Postgres{
		config:   config,
		pool:     pool,
		embedder: embedder,
		chunker:  chunker,
	}

	if err := p.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return p, nil
}

func (p *Postgres) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			entry_id TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			pages INTEGER,
			content TEXT,
			chunk_index INTEGER,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL
		)`, p.config.TableName, p.config.VectorDim)

	_, err = p.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		p.config.TableName, p.config.TableName)

	_, err = p.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

func (p *Postgres) Add(ctx context.Context, entry models.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	chunks := p.chunker.Chunk(entry.Text)
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	// Embed per chunk; on failure fall back to storing without vectors.
	var embeddings [][]float32
	if p.embedder != nil {
		embedded, err := p.embedder.CreateEmbedding(ctx, chunks)
		if err == nil && len(embedded) == len(chunks) {
			embeddings = embedded
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, entry_id, url, title, pages, content, chunk_index, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		p.config.TableName)

	cleanTitle := sanitizeUTF8(entry.Title)

	for i, chunk := range chunks {
		id := fmt.Sprintf("%s_%d", entry.ID, i)

		var embedding interface{}
		if embeddings != nil {
			embedding = pgvector.NewVector(embeddings[i])
		}

		_, err = tx.Exec(ctx, stmt,
			id,
			entry.ID,
			entry.URL,
			cleanTitle,
			entry.Pages,
			sanitizeUTF8(chunk),
			i,
			embedding,
			entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// List returns entries newest first; chunk 0 rows stand in for entries,
// so the content column holds the leading snippet of the extraction.
func (p *Postgres) List(ctx context.Context, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT entry_id, url, title, pages, content, created_at
		FROM %s
		WHERE chunk_index = 0
		ORDER BY created_at DESC
		LIMIT $1`,
		p.config.TableName)

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %v", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search orders chunk embeddings by cosine distance to the query vector
// and returns the matching entries, deduplicated, best match first.
func (p *Postgres) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 5
	}

	query := fmt.Sprintf(`
		SELECT entry_id, url, title, pages, content, created_at
		FROM %s
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`,
		p.config.TableName)

	embedding := pgvector.NewVector(queryEmbedding)
	rows, err := p.pool.Query(ctx, query, embedding, limit*4)
	if err != nil {
		return nil, fmt.Errorf("failed to search history: %v", err)
	}
	defer rows.Close()

	matches, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var entries []models.Entry
	for _, entry := range matches {
		if seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		entries = append(entries, entry)
		if len(entries) == limit {
			break
		}
	}

	return entries, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
}

func scanEntries(rows pgxRows) ([]models.Entry, error) {
	var entries []models.Entry
	for rows.Next() {
		var entry models.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.URL,
			&entry.Title,
			&entry.Pages,
			&entry.Text,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// sanitizeUTF8 strips invalid sequences; OCR output occasionally carries
// them and postgres rejects the insert.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
