// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ThumbnailStatus tracks the two-phase lifecycle of a generation record.
// A row is reserved as "pending" before any external work starts (it counts
// toward the monthly quota) and flipped to "complete" once the image is
// durably stored. Completed rows are immutable.
type ThumbnailStatus string

const (
	StatusPending  ThumbnailStatus = "pending"
	StatusComplete ThumbnailStatus = "complete"
)

// GroundingLink is one web source returned by the search-grounding call.
type GroundingLink struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Thumbnail represents one generation record. The image bytes live in
// object storage; this row holds the metadata and the durable URL.
type Thumbnail struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Status         ThumbnailStatus `json:"-"`
	StorageURL     string          `json:"image_url"`
	StorageKey     string          `json:"-"`
	Headline       *string         `json:"headline,omitempty"`
	Prompt         string          `json:"prompt"`
	Language       Language        `json:"language"`
	Size           Size            `json:"size,omitempty"`
	AspectRatio    AspectRatio     `json:"aspect_ratio"`
	Style          Style           `json:"style"`
	SearchContext  *string         `json:"search_context,omitempty"`
	GroundingLinks []GroundingLink `json:"grounding_links,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ThumbnailMeta carries the request metadata persisted alongside a
// generation record. The storage URL and key are filled in at finalize time.
type ThumbnailMeta struct {
	Headline       string
	Prompt         string
	Language       Language
	Size           Size
	AspectRatio    AspectRatio
	Style          Style
	SearchContext  string
	GroundingLinks []GroundingLink
}
