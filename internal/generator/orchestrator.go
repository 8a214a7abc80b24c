// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generator coordinates one thumbnail generation run: plan and
// quota gating, optional prompt enhancement and search grounding,
// instruction composition, the image model call with bounded retry,
// storage upload, and metadata persistence.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"thumbforge/internal/ai"
	"thumbforge/internal/identity"
	"thumbforge/internal/models"
	"thumbforge/internal/plan"
	"thumbforge/internal/prompt"
	"thumbforge/internal/storage"
	"thumbforge/internal/store"
)

// Retry policy for transient provider overload: 3 attempts total with
// exponential backoff between them (2s, then 4s).
const (
	maxAttempts = 3
	baseDelay   = 2 * time.Second
)

// AIClient is the slice of the Gemini client the orchestrator depends on.
type AIClient interface {
	GenerateImage(ctx context.Context, instruction string, referenceImages [][]byte, aspectRatio models.AspectRatio, size models.Size) ([]byte, error)
	SearchGrounding(ctx context.Context, query string) (*ai.GroundingResult, error)
	EnhancePrompt(ctx context.Context, original string) (string, error)
}

// Uploader persists image bytes to durable object storage.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, ownerID string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// UserDirectory resolves external identities to user rows.
type UserDirectory interface {
	Ensure(ctx context.Context, externalID, email string) (*models.User, error)
}

// ThumbnailRepo manages generation records and the monthly quota.
type ThumbnailRepo interface {
	CountForMonth(ctx context.Context, userID uuid.UUID, asOf time.Time) (int, error)
	Reserve(ctx context.Context, userID uuid.UUID, limit int, asOf time.Time, meta models.ThumbnailMeta) (*models.Thumbnail, error)
	Finalize(ctx context.Context, id uuid.UUID, storageURL, storageKey string, meta models.ThumbnailMeta) error
	Release(ctx context.Context, id uuid.UUID) error
}

// Result is the successful outcome of one generation run.
type Result struct {
	ThumbnailID    uuid.UUID              `json:"thumbnailId"`
	ImageURL       string                 `json:"imageUrl"`
	SearchContext  string                 `json:"searchContext,omitempty"`
	GroundingLinks []models.GroundingLink `json:"groundingLinks,omitempty"`
	AspectRatio    models.AspectRatio     `json:"aspectRatio"`
}

// Orchestrator sequences one generation request end to end. All external
// collaborators are injected so tests can substitute them.
type Orchestrator struct {
	ai         AIClient
	uploader   Uploader
	users      UserDirectory
	thumbnails ThumbnailRepo

	// sleep and now are injectable for retry-policy tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates an orchestrator with real timing functions.
func New(aiClient AIClient, uploader Uploader, users UserDirectory, thumbnails ThumbnailRepo) *Orchestrator {
	return &Orchestrator{
		ai:         aiClient,
		uploader:   uploader,
		users:      users,
		thumbnails: thumbnails,
		sleep:      sleepCtx,
		now:        time.Now,
	}
}

// Generate runs the full pipeline for one request. It returns a *Error for
// every failure; the entitlement and quota gates fire before any external
// generation work begins.
func (o *Orchestrator) Generate(ctx context.Context, id *identity.Identity, req models.GenerationRequest) (*Result, error) {
	// Authorizing.
	if id == nil || id.Subject == "" {
		return nil, fail(KindUnauthorized, "authentication required")
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// QuotaChecking: resolve the tier and validate the request against its
	// permitted sets. Violations are surfaced, never silently downgraded.
	tier := plan.Resolve(id)
	limits := plan.LimitsFor(tier)
	if v := plan.Check(limits, req); v != nil {
		return nil, fail(KindPlanRestricted,
			"%s %q is not available on the %s plan; upgrade to %s",
			v.Field, v.Value, tier, v.Required)
	}

	user, err := o.users.Ensure(ctx, id.Subject, id.Email)
	if err != nil {
		return nil, wrap(KindInternal, err, "could not resolve user account")
	}

	// Reserve a pending record under the quota. This is the last gate
	// before expensive external work.
	meta := metaFromRequest(req)
	reserved, err := o.thumbnails.Reserve(ctx, user.ID, limits.MonthlyImages, o.now(), meta)
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			count, countErr := o.thumbnails.CountForMonth(ctx, user.ID, o.now())
			if countErr != nil {
				count = limits.MonthlyImages
			}
			return nil, fail(KindQuotaExceeded,
				"monthly image quota reached on the %s plan (%d of %d used)",
				tier, count, limits.MonthlyImages)
		}
		return nil, wrap(KindInternal, err, "could not reserve generation slot")
	}

	result, genErr := o.run(ctx, user, reserved, req, meta)
	if genErr != nil {
		// Return the quota slot; the run produced nothing durable.
		o.release(reserved.ID)
		return nil, genErr
	}
	return result, nil
}

// run executes the external-facing stages for an already reserved record.
func (o *Orchestrator) run(ctx context.Context, user *models.User, reserved *models.Thumbnail, req models.GenerationRequest, meta models.ThumbnailMeta) (*Result, *Error) {
	// Optional prompt enhancement. Non-fatal: the original prompt is used
	// unchanged on failure.
	if req.EnhancePrompt {
		enhanced, err := o.ai.EnhancePrompt(ctx, req.Prompt)
		if err != nil {
			slog.Warn("prompt enhancement failed, using original prompt", "error", err)
		} else if enhanced != "" {
			req.Prompt = enhanced
		}
	}

	// SearchGrounding: enrichment only, never fatal.
	var searchContext string
	var links []models.GroundingLink
	if req.UseSearch {
		grounding, err := o.ai.SearchGrounding(ctx, req.Prompt)
		if err != nil {
			slog.Warn("search grounding failed, proceeding without context", "error", err)
		} else {
			searchContext = grounding.Text
			links = grounding.Links
		}
	}
	meta.SearchContext = searchContext
	meta.GroundingLinks = links

	// Composing never fails on validated input.
	instruction := prompt.Compose(req, searchContext)

	imgBytes, genErr := o.generateWithRetry(ctx, instruction, req)
	if genErr != nil {
		return nil, genErr
	}

	// Uploading. A generated image that cannot be persisted is a failed
	// generation; the caller never receives a non-durable URL.
	filename := fmt.Sprintf("thumbnail-%d.png", o.now().UTC().UnixMilli())
	obj, err := o.uploader.Upload(ctx, imgBytes, filename, user.ID.String())
	if err != nil {
		return nil, wrap(KindUploadFailed, err, "could not store the generated image")
	}

	// RecordingMetadata. On failure the stored object has no completed row
	// referencing it: log the divergence prominently and clean it up.
	if err := o.thumbnails.Finalize(ctx, reserved.ID, obj.URL, obj.Key, meta); err != nil {
		slog.Error("orphaned storage object: metadata write failed after upload",
			"storage_key", obj.Key, "thumbnail_id", reserved.ID, "error", err)
		if delErr := o.uploader.Delete(context.WithoutCancel(ctx), obj.Key); delErr != nil {
			slog.Error("orphan cleanup failed", "storage_key", obj.Key, "error", delErr)
		}
		return nil, wrap(KindPersistenceFailed, err, "could not record the generated image")
	}

	return &Result{
		ThumbnailID:    reserved.ID,
		ImageURL:       obj.URL,
		SearchContext:  searchContext,
		GroundingLinks: links,
		AspectRatio:    req.AspectRatio,
	}, nil
}

// generateWithRetry calls the image model, retrying only on transient
// overload up to maxAttempts with exponential backoff. The retryable/fatal
// classification is decided once per error, up front.
func (o *Orchestrator) generateWithRetry(ctx context.Context, instruction prompt.Instruction, req models.GenerationRequest) ([]byte, *Error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1) // 2s, 4s
			slog.Info("image model overloaded, retrying",
				"attempt", attempt+1, "max_attempts", maxAttempts, "delay", delay.String())
			if err := o.sleep(ctx, delay); err != nil {
				return nil, wrap(KindTimeout, err, "generation timed out")
			}
		}

		imgBytes, err := o.ai.GenerateImage(ctx, instruction.Text, instruction.ReferenceImages, req.AspectRatio, req.Size)
		if err == nil {
			return imgBytes, nil
		}
		lastErr = err
		if !errors.Is(err, ai.ErrOverloaded) {
			break
		}
	}

	switch {
	case errors.Is(lastErr, ai.ErrNoImage):
		return nil, wrap(KindNoImageProduced, lastErr, "the model did not produce an image")
	case errors.Is(lastErr, ai.ErrOverloaded):
		return nil, wrap(KindProviderOverloaded, lastErr, "the image model is overloaded, try again later")
	case errors.Is(lastErr, context.DeadlineExceeded) || ctx.Err() != nil:
		return nil, wrap(KindTimeout, lastErr, "generation timed out")
	default:
		return nil, wrap(KindGenerationFailed, lastErr, "image generation failed")
	}
}

// release deletes a pending reservation, detached from the (possibly
// expired) request context.
func (o *Orchestrator) release(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.thumbnails.Release(ctx, id); err != nil {
		slog.Error("failed to release pending reservation", "thumbnail_id", id, "error", err)
	}
}

// validateRequest rejects malformed input before any gate or external call.
func validateRequest(req models.GenerationRequest) *Error {
	if strings.TrimSpace(req.Prompt) == "" {
		return fail(KindInvalidRequest, "prompt is required")
	}
	if !models.ValidLanguage(req.Language) {
		return fail(KindInvalidRequest, "unknown language %q", req.Language)
	}
	if !models.ValidSize(req.Size) {
		return fail(KindInvalidRequest, "unknown size %q", req.Size)
	}
	if !models.ValidAspectRatio(req.AspectRatio) {
		return fail(KindInvalidRequest, "unknown aspect ratio %q", req.AspectRatio)
	}
	if !models.ValidStyle(req.Style) {
		return fail(KindInvalidRequest, "unknown style %q", req.Style)
	}
	return nil
}

// metaFromRequest extracts the persisted metadata from a request.
func metaFromRequest(req models.GenerationRequest) models.ThumbnailMeta {
	return models.ThumbnailMeta{
		Headline:    req.Headline,
		Prompt:      req.Prompt,
		Language:    req.Language,
		Size:        req.Size,
		AspectRatio: req.AspectRatio,
		Style:       req.Style,
	}
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
