// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package plan maps subscription tiers to feature limits. Tiers come from
// the external entitlement provider per request and are never persisted;
// the limits for a tier are a pure function of the tier.
package plan

import (
	"strconv"

	"thumbforge/internal/models"
)

// Tier is a named subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPlus Tier = "plus"
	TierPro  Tier = "pro"
)

// Unlimited is the sentinel for quotas without an upper bound.
const Unlimited = -1

// Limits describes the feature entitlements of one tier.
type Limits struct {
	MonthlyImages   int
	ReferenceImages int
	Sizes           []models.Size
	Styles          []models.Style
	AspectRatios    []models.AspectRatio
}

var limits = map[Tier]Limits{
	TierFree: {
		MonthlyImages:   1,
		ReferenceImages: 1,
		Sizes:           []models.Size{models.Size1K, models.Size2K},
		Styles:          []models.Style{models.StyleCinematic, models.StyleCartoon},
		AspectRatios:    []models.AspectRatio{models.RatioLandscape},
	},
	TierPlus: {
		MonthlyImages:   5,
		ReferenceImages: 3,
		Sizes:           models.Sizes,
		Styles:          models.Styles,
		AspectRatios:    models.AspectRatios,
	},
	TierPro: {
		MonthlyImages:   Unlimited,
		ReferenceImages: Unlimited,
		Sizes:           models.Sizes,
		Styles:          models.Styles,
		AspectRatios:    models.AspectRatios,
	},
}

// EntitlementHolder is the narrow view of an authenticated identity the
// resolver needs. Satisfied by identity.Identity.
type EntitlementHolder interface {
	HasEntitlement(name string) bool
}

// Resolve determines the caller's tier from entitlement predicates.
// Pro wins over plus; absence of both yields free. There is no error path —
// unauthenticated callers must be rejected before reaching the resolver.
func Resolve(id EntitlementHolder) Tier {
	switch {
	case id.HasEntitlement("pro"):
		return TierPro
	case id.HasEntitlement("plus"):
		return TierPlus
	default:
		return TierFree
	}
}

// LimitsFor returns the static limits table entry for a tier. Unknown tiers
// fall back to free limits.
func LimitsFor(t Tier) Limits {
	if l, ok := limits[t]; ok {
		return l
	}
	return limits[TierFree]
}

// AllowsSize reports whether the tier permits the given resolution tier.
func (l Limits) AllowsSize(s models.Size) bool {
	for _, v := range l.Sizes {
		if v == s {
			return true
		}
	}
	return false
}

// AllowsStyle reports whether the tier permits the given style.
func (l Limits) AllowsStyle(s models.Style) bool {
	for _, v := range l.Styles {
		if v == s {
			return true
		}
	}
	return false
}

// AllowsAspectRatio reports whether the tier permits the given aspect ratio.
func (l Limits) AllowsAspectRatio(r models.AspectRatio) bool {
	for _, v := range l.AspectRatios {
		if v == r {
			return true
		}
	}
	return false
}

// AllowsReferenceCount reports whether the tier permits n reference images.
func (l Limits) AllowsReferenceCount(n int) bool {
	return l.ReferenceImages == Unlimited || n <= l.ReferenceImages
}

// Violation describes a request field outside the caller's tier limits.
type Violation struct {
	Field    string // "size", "style", "aspectRatio" or "referenceImages"
	Value    string
	Required Tier // the tier that would unlock the requested value
}

// Check validates a generation request against the tier limits. It returns
// nil when every field is within the permitted sets, or the first violation
// found. Violations are never silently downgraded.
func Check(l Limits, req models.GenerationRequest) *Violation {
	if !l.AllowsSize(req.Size) {
		return &Violation{Field: "size", Value: string(req.Size), Required: TierPlus}
	}
	if !l.AllowsStyle(req.Style) {
		return &Violation{Field: "style", Value: string(req.Style), Required: TierPlus}
	}
	if !l.AllowsAspectRatio(req.AspectRatio) {
		return &Violation{Field: "aspectRatio", Value: string(req.AspectRatio), Required: TierPlus}
	}
	if n := len(req.ReferenceImages); !l.AllowsReferenceCount(n) {
		required := TierPlus
		if n > limits[TierPlus].ReferenceImages {
			required = TierPro
		}
		return &Violation{Field: "referenceImages", Value: strconv.Itoa(n), Required: required}
	}
	return nil
}
