// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import "fmt"

// Kind is the coarse machine-readable classification of an orchestration
// failure. Handlers map kinds to HTTP statuses; the Message is safe to
// show to callers, while the wrapped cause is only ever logged.
type Kind string

const (
	KindUnauthorized       Kind = "unauthorized"
	KindInvalidRequest     Kind = "invalid_request"
	KindPlanRestricted     Kind = "plan_restricted"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindProviderOverloaded Kind = "provider_overloaded"
	KindNoImageProduced    Kind = "no_image_produced"
	KindGenerationFailed   Kind = "generation_failed"
	KindUploadFailed       Kind = "upload_failed"
	KindPersistenceFailed  Kind = "persistence_failed"
	KindTimeout            Kind = "timeout"
	KindInternal           Kind = "internal"
)

// Error is a typed orchestration failure.
type Error struct {
	Kind    Kind
	Message string // short, human-readable, caller-safe
	Err     error  // internal cause; never forwarded to callers
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// fail builds a typed failure without an internal cause.
func fail(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrap builds a typed failure around an internal cause.
func wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
