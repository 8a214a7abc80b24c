// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"thumbforge/internal/models"
)

// ErrQuotaExceeded is returned by Reserve when the owner's monthly count is
// already at or above the tier limit.
var ErrQuotaExceeded = errors.New("monthly generation quota exceeded")

// ThumbnailStore handles all generation-record database operations.
type ThumbnailStore struct {
	db *sql.DB
}

// NewThumbnailStore creates a new ThumbnailStore with the given database connection.
func NewThumbnailStore(db *sql.DB) *ThumbnailStore {
	return &ThumbnailStore{db: db}
}

// monthStart returns the first instant of asOf's UTC calendar month.
func monthStart(asOf time.Time) time.Time {
	t := asOf.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CountForMonth returns how many generation records (pending reservations
// included) the user owns in the current UTC month relative to asOf.
// Computed fresh per call; quota decisions must never use a cached value.
func (s *ThumbnailStore) CountForMonth(ctx context.Context, userID uuid.UUID, asOf time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM thumbnails
		WHERE user_id = $1 AND created_at >= $2
	`, userID, monthStart(asOf)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count monthly thumbnails: %w", err)
	}
	return count, nil
}

// Reserve atomically checks the monthly quota and inserts a pending
// generation record. The count and insert run inside one transaction under
// a per-user advisory lock, so two concurrent requests from a user sitting
// at quota-1 cannot both pass. A limit below zero means unlimited.
//
// The pending row counts toward the quota immediately; callers must either
// Finalize it after the image is durably stored or Release it on failure.
func (s *ThumbnailStore) Reserve(ctx context.Context, userID uuid.UUID, limit int, asOf time.Time, meta models.ThumbnailMeta) (*models.Thumbnail, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("reserve thumbnail: begin: %w", err)
	}
	defer tx.Rollback()

	if limit >= 0 {
		// Serialize concurrent reservations for this user only.
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID.String(),
		); err != nil {
			return nil, fmt.Errorf("reserve thumbnail: lock: %w", err)
		}

		var count int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM thumbnails
			WHERE user_id = $1 AND created_at >= $2
		`, userID, monthStart(asOf)).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("reserve thumbnail: count: %w", err)
		}
		if count >= limit {
			return nil, ErrQuotaExceeded
		}
	}

	links, err := marshalLinks(meta.GroundingLinks)
	if err != nil {
		return nil, err
	}

	th := &models.Thumbnail{
		UserID:         userID,
		Status:         models.StatusPending,
		Headline:       nilIfEmpty(meta.Headline),
		Prompt:         meta.Prompt,
		Language:       meta.Language,
		Size:           meta.Size,
		AspectRatio:    meta.AspectRatio,
		Style:          meta.Style,
		SearchContext:  nilIfEmpty(meta.SearchContext),
		GroundingLinks: meta.GroundingLinks,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO thumbnails
			(user_id, status, headline, prompt, language, size, aspect_ratio, style, search_context, grounding_links)
		VALUES ($1, 'pending', $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, userID, th.Headline, th.Prompt, th.Language, th.Size, th.AspectRatio,
		th.Style, th.SearchContext, links,
	).Scan(&th.ID, &th.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reserve thumbnail: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("reserve thumbnail: commit: %w", err)
	}
	return th, nil
}

// Finalize flips a pending reservation to complete with its storage URL and
// object key. It is the only mutation a generation record ever receives;
// completed rows are immutable.
func (s *ThumbnailStore) Finalize(ctx context.Context, id uuid.UUID, storageURL, storageKey string, meta models.ThumbnailMeta) error {
	links, err := marshalLinks(meta.GroundingLinks)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE thumbnails
		SET status = 'complete', storage_url = $2, storage_key = $3,
		    search_context = $4, grounding_links = $5
		WHERE id = $1 AND status = 'pending'
	`, id, storageURL, storageKey, nilIfEmpty(meta.SearchContext), links)
	if err != nil {
		return fmt.Errorf("finalize thumbnail: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize thumbnail: rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("finalize thumbnail %s: no pending row", id)
	}
	return nil
}

// Release deletes a pending reservation after a failed run, returning the
// quota slot to the user. Completed rows are never deleted here.
func (s *ThumbnailStore) Release(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM thumbnails WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("release thumbnail: %w", err)
	}
	return nil
}

// ListByUser returns the user's completed generation records, newest first.
func (s *ThumbnailStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Thumbnail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, status, storage_url, storage_key, headline, prompt,
		       language, size, aspect_ratio, style, search_context, grounding_links, created_at
		FROM thumbnails
		WHERE user_id = $1 AND status = 'complete'
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list thumbnails: %w", err)
	}
	defer rows.Close()

	var out []models.Thumbnail
	for rows.Next() {
		var th models.Thumbnail
		var storageURL, storageKey, size sql.NullString
		var links []byte
		if err := rows.Scan(
			&th.ID, &th.UserID, &th.Status, &storageURL, &storageKey,
			&th.Headline, &th.Prompt, &th.Language, &size, &th.AspectRatio,
			&th.Style, &th.SearchContext, &links, &th.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan thumbnail: %w", err)
		}
		th.StorageURL = storageURL.String
		th.StorageKey = storageKey.String
		th.Size = models.Size(size.String)
		if len(links) > 0 {
			if err := json.Unmarshal(links, &th.GroundingLinks); err != nil {
				return nil, fmt.Errorf("unmarshal grounding links: %w", err)
			}
		}
		out = append(out, th)
	}
	return out, rows.Err()
}

// marshalLinks encodes grounding links as JSONB, or NULL when empty.
func marshalLinks(links []models.GroundingLink) (any, error) {
	if len(links) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("marshal grounding links: %w", err)
	}
	return b, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
