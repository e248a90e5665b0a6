// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// foreignKeyViolation is the SQLSTATE for a failed REFERENCES check.
const foreignKeyViolation = "23503"

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to cfg.URL and verifies the connection.
func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logging.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("connected to postgres")

	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const createMessageSQL = `
WITH inserted AS (
    INSERT INTO messages (user_id, content, recipient_id, group_id, file_url, file_name, file_type, file_size)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id, user_id, content, recipient_id, group_id, file_url, file_name, file_type, file_size, created_at
)
SELECT i.id, i.user_id, u.username, i.content, i.recipient_id, i.group_id,
       i.file_url, i.file_name, i.file_type, i.file_size, i.created_at
FROM inserted i
JOIN users u ON u.id = i.user_id`

// CreateMessage inserts msg and returns the stored row with its author.
func (p *Postgres) CreateMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error) {
	var fileURL, fileName, fileType *string
	var fileSize *int64
	if a := msg.Attachment; a != nil {
		fileURL, fileName, fileType, fileSize = &a.URL, &a.Name, &a.MimeType, &a.SizeBytes
	}

	var out models.Message
	var outURL, outName, outType *string
	var outSize *int64
	err := p.pool.QueryRow(ctx, createMessageSQL,
		msg.AuthorID, msg.Content, msg.RecipientID, msg.GroupID,
		fileURL, fileName, fileType, fileSize,
	).Scan(
		&out.ID, &out.AuthorID, &out.Author.Username, &out.Content, &out.RecipientID, &out.GroupID,
		&outURL, &outName, &outType, &outSize, &out.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, pgErr.ConstraintName)
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}

	out.Author.ID = out.AuthorID
	out.CreatedAt = out.CreatedAt.UTC()
	if outURL != nil {
		out.Attachment = &models.Attachment{URL: *outURL}
		if outName != nil {
			out.Attachment.Name = *outName
		}
		if outType != nil {
			out.Attachment.MimeType = *outType
		}
		if outSize != nil {
			out.Attachment.SizeBytes = *outSize
		}
	}
	return &out, nil
}

// FindUserByID returns the profile for id or ErrNotFound.
func (p *Postgres) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := p.pool.QueryRow(ctx, `SELECT id, username FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("query user %d: %w", id, err)
	}
	return u, nil
}

// ListMemberIDs returns the member ids of groupID in ascending order.
func (p *Postgres) ListMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := p.pool.Query(ctx, `SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group %d members: %w", groupID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan group %d members: %w", groupID, err)
	}
	return ids, nil
}

// Ping checks connectivity with a short deadline.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

var _ Store = (*Postgres)(nil)
