// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the ThumbForge API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"thumbforge/internal/generator"
	"thumbforge/internal/identity"
	"thumbforge/internal/middleware"
	"thumbforge/internal/models"
)

const (
	// maxUploadSize caps the whole multipart request body (50 MB).
	maxUploadSize = 50 << 20

	// maxReferenceImages is the hard cap on reference image parts; plan
	// tiers may allow fewer.
	maxReferenceImages = 3

	// generateTimeout bounds one full generation run end to end.
	generateTimeout = 120 * time.Second
)

// Generator runs one thumbnail generation end to end.
type Generator interface {
	Generate(ctx context.Context, id *identity.Identity, req models.GenerationRequest) (*generator.Result, error)
}

// ThumbnailReader lists a user's completed generation records.
type ThumbnailReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Thumbnail, error)
}

// UserReader resolves identity subjects to user rows.
type UserReader interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// API bundles the HTTP handlers with their collaborators.
type API struct {
	generator  Generator
	thumbnails ThumbnailReader
	users      UserReader
	signer     *UploadSigner
}

// NewAPI creates the API handler set.
func NewAPI(gen Generator, thumbnails ThumbnailReader, users UserReader, signer *UploadSigner) *API {
	return &API{
		generator:  gen,
		thumbnails: thumbnails,
		users:      users,
		signer:     signer,
	}
}

// Generate handles POST /api/thumbnails: parses the multipart form, runs the
// generation pipeline under a request deadline, and maps orchestration
// failures to HTTP statuses.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, "request body too large or malformed", http.StatusBadRequest)
		return
	}

	req := models.GenerationRequest{
		Headline:      r.FormValue("headline"),
		Prompt:        r.FormValue("prompt"),
		Language:      models.Language(r.FormValue("language")),
		Size:          models.Size(r.FormValue("size")),
		AspectRatio:   models.AspectRatio(r.FormValue("aspectRatio")),
		Style:         models.Style(r.FormValue("style")),
		UseSearch:     parseBool(r.FormValue("useSearch")),
		EnhancePrompt: parseBool(r.FormValue("enhancePrompt")),
	}

	refs, err := referenceImages(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.ReferenceImages = refs

	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	result, err := a.generator.Generate(ctx, id, req)
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// List handles GET /api/thumbnails: the caller's completed records, newest
// first. A caller with no user row yet gets an empty list, not an error.
func (a *API) List(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		writeError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	user, err := a.users.FindByExternalID(r.Context(), id.Subject)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"thumbnails": []models.Thumbnail{}})
		return
	}

	items, err := a.thumbnails.ListByUser(r.Context(), user.ID)
	if err != nil {
		slog.Error("thumbnail list failed", "error", err, "user_id", user.ID)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Thumbnail{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"thumbnails": items})
}

// UploadAuth handles GET /api/upload-auth: short-lived signed parameters for
// direct-from-client uploads.
func (a *API) UploadAuth(w http.ResponseWriter, r *http.Request) {
	if a.signer == nil {
		writeError(w, "direct uploads are not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, a.signer.Sign(time.Now()))
}

// referenceImages reads the optional referenceImage0..2 file parts.
func referenceImages(r *http.Request) ([][]byte, error) {
	var refs [][]byte
	for i := 0; i < maxReferenceImages; i++ {
		file, _, err := r.FormFile("referenceImage" + strconv.Itoa(i))
		if err == http.ErrMissingFile {
			continue
		}
		if err != nil {
			return nil, errors.New("could not read reference image")
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, errors.New("could not read reference image")
		}
		if len(data) > 0 {
			refs = append(refs, data)
		}
	}
	return refs, nil
}

// writeGenerateError maps an orchestration failure to an HTTP status. The
// caller only ever sees the typed message; causes stay in the logs.
func writeGenerateError(w http.ResponseWriter, err error) {
	var gerr *generator.Error
	if !errors.As(err, &gerr) {
		slog.Error("generation failed", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch gerr.Kind {
	case generator.KindUnauthorized:
		status = http.StatusUnauthorized
	case generator.KindInvalidRequest:
		status = http.StatusBadRequest
	case generator.KindPlanRestricted, generator.KindQuotaExceeded:
		status = http.StatusPaymentRequired
	case generator.KindTimeout:
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		slog.Error("generation failed", "kind", gerr.Kind, "error", gerr)
	}
	writeJSON(w, status, map[string]string{
		"error": gerr.Message,
		"code":  string(gerr.Kind),
	})
}

// parseBool treats "true" and "1" as true, anything else as false.
func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
