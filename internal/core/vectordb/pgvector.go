package vectordb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/anydocai/docpipe/internal/config"
	"github.com/anydocai/docpipe/internal/core"
)

var _ core.VectorStore = (*PgVectorStore)(nil)

// PgVectorStore keeps each tenant collection as its own table with a
// pgvector embedding column. Collection names arrive pre-sanitized from the
// tenant resolver; they are lowercased here because Postgres folds unquoted
// identifiers.
type PgVectorStore struct {
	db *sql.DB
}

func NewPgVectorStore(ctx context.Context, cfg *config.Config) (*PgVectorStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vector store configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Pool settings tuned for a small API service.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctxPing, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctxPing); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := db.ExecContext(ctxPing, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable pgvector extension: %w", err)
	}

	return &PgVectorStore{db: db}, nil
}

func (s *PgVectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PgVectorStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = $1
		)`, tableName(name)).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("collection check failed: %w", err)
	}
	return exists, nil
}

func (s *PgVectorStore) CreateCollection(ctx context.Context, schema core.CollectionSchema) error {
	exists, err := s.CollectionExists(ctx, schema.Name)
	if err != nil {
		return err
	}
	if exists {
		return core.ErrCollectionExists
	}

	q := fmt.Sprintf(`
		CREATE TABLE %s (
			id            uuid PRIMARY KEY,
			embedding     vector(%d) NOT NULL,
			content       text NOT NULL,
			document_id   text NOT NULL,
			owner_id      text NOT NULL,
			page_number   int,
			chunk_index   int NOT NULL,
			heading       text,
			strategy_used text NOT NULL,
			created_at    timestamptz NOT NULL DEFAULT now()
		)`, tableName(schema.Name), schema.VectorDim)

	if _, err := s.db.ExecContext(ctx, q); err != nil {
		// Two pipelines creating the same collection race here; the
		// second one loses against the table we just wanted anyway.
		if strings.Contains(err.Error(), "already exists") {
			return core.ErrCollectionExists
		}
		return fmt.Errorf("create collection %s: %w", schema.Name, err)
	}
	return nil
}

// BatchWrite inserts all records in a single transaction, so a batch is
// either fully written or not written at all and a retry never duplicates
// half a batch.
func (s *PgVectorStore) BatchWrite(ctx context.Context, collection string, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s
			(id, embedding, content, document_id, owner_id, page_number, chunk_index, heading, strategy_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
	`, tableName(collection))

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		vec := pgvector.NewVector(r.Vector)
		if _, err := stmt.ExecContext(ctx,
			r.ID, vec, r.Chunk.Content, r.Chunk.DocumentID, r.Chunk.OwnerID,
			r.Chunk.PageNumber, r.Chunk.Index, r.Chunk.Heading, string(r.Chunk.Strategy), r.Chunk.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// tableName lowercases and strips anything that is not a safe identifier
// character. Collection names are interpolated into DDL, so nothing else may
// pass through.
func tableName(collection string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(collection) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "anydoc_chunks"
	}
	return b.String()
}
