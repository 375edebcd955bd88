package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/logging"
)

// ChangeChannel is the LISTEN/NOTIFY channel carrying Change payloads.
const ChangeChannel = "document_changes"

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Add(ctx context.Context, c Collection, data map[string]any) (Document, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode document: %w", err)
	}

	doc := Document{ID: uuid.NewString(), Collection: c}
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
			 RETURNING data, created_at, updated_at`,
			string(c), doc.ID, raw)
		if err := row.Scan(&doc.Data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return err
		}
		return notify(ctx, tx, Change{Collection: c, ID: doc.ID, Op: OpInsert})
	})
	if err != nil {
		return Document{}, apperr.Unavailable("add "+string(c), err)
	}
	return doc, nil
}

func (p *Postgres) Get(ctx context.Context, c Collection, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, apperr.NotFound("document")
	}

	doc := Document{ID: id, Collection: c}
	err := p.pool.QueryRow(ctx,
		`SELECT data, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		string(c), id).Scan(&doc.Data, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, apperr.NotFound("document")
	}
	if err != nil {
		return Document{}, apperr.Unavailable("get "+string(c), err)
	}
	return doc, nil
}

func (p *Postgres) List(ctx context.Context, c Collection) ([]Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, data, created_at, updated_at FROM documents
		 WHERE collection = $1 ORDER BY created_at DESC, id`,
		string(c))
	if err != nil {
		return nil, apperr.Unavailable("list "+string(c), err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id uuid.UUID
		doc := Document{Collection: c}
		if err := rows.Scan(&id, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, apperr.Unavailable("list "+string(c), err)
		}
		doc.ID = id.String()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list "+string(c), err)
	}
	return docs, nil
}

// Update merges fields into the document. The row is locked while guard runs,
// so the check and the write cannot interleave with another update.
func (p *Postgres) Update(ctx context.Context, c Collection, id string, fields map[string]any, guard Guard) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, apperr.NotFound("document")
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode fields: %w", err)
	}

	var (
		doc      = Document{ID: id, Collection: c}
		guardErr error
		missing  bool
	)
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		current := Document{ID: id, Collection: c}
		err := tx.QueryRow(ctx,
			`SELECT data, created_at, updated_at FROM documents
			 WHERE collection = $1 AND id = $2 FOR UPDATE`,
			string(c), id).Scan(&current.Data, &current.CreatedAt, &current.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			missing = true
			return err
		}
		if err != nil {
			return err
		}

		if guard != nil {
			if guardErr = guard(current); guardErr != nil {
				return guardErr
			}
		}

		err = tx.QueryRow(ctx,
			`UPDATE documents SET data = data || $3::jsonb, updated_at = now()
			 WHERE collection = $1 AND id = $2
			 RETURNING data, created_at, updated_at`,
			string(c), id, raw).Scan(&doc.Data, &doc.CreatedAt, &doc.UpdatedAt)
		if err != nil {
			return err
		}
		return notify(ctx, tx, Change{Collection: c, ID: id, Op: OpUpdate})
	})
	switch {
	case missing:
		return Document{}, apperr.NotFound("document")
	case guardErr != nil:
		return Document{}, guardErr
	case err != nil:
		return Document{}, apperr.Unavailable("update "+string(c), err)
	}
	return doc, nil
}

func (p *Postgres) Delete(ctx context.Context, c Collection, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("document")
	}

	var missing bool
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, string(c), id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			missing = true
			return pgx.ErrNoRows
		}
		return notify(ctx, tx, Change{Collection: c, ID: id, Op: OpDelete})
	})
	if missing {
		return apperr.NotFound("document")
	}
	if err != nil {
		return apperr.Unavailable("delete "+string(c), err)
	}
	return nil
}

// Subscribe holds one pool connection in LISTEN mode until ctx is done.
func (p *Postgres) Subscribe(ctx context.Context, onChange func(Change)) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return apperr.Unavailable("subscribe", err)
	}
	defer releaseListener(conn)

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return apperr.Unavailable("subscribe", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return apperr.Unavailable("subscribe", err)
		}

		var change Change
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			logging.Warn("Dropping malformed change notification", "payload", n.Payload, "error", err)
			continue
		}
		onChange(change)
	}
}

// releaseListener returns a LISTEN connection to the pool only once it has
// stopped listening; otherwise it is closed and the pool drops it.
func releaseListener(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
		logging.Debug("Closing listener connection", "error", err)
		_ = conn.Conn().Close(ctx)
	}
	conn.Release()
}

func notify(ctx context.Context, tx pgx.Tx, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, string(payload))
	return err
}
