package domain

import (
	"errors"
	"fmt"
)

// NotFoundError marks an upstream 404. Some callers translate it to
// "no data" instead of a failure.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s was not found upstream", e.Resource)
}

// ForbiddenError marks an upstream 403, usually a credential problem.
// It always aborts the current run.
type ForbiddenError struct {
	Status int
	Body   string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("upstream access denied (%d)", e.Status)
}

// UpstreamError carries a non-2xx status and the raw response body for
// diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed (%d)", e.Status)
}

// DataIntegrityError marks a local precondition violation, e.g. a missing
// season or guild. Always fatal to the current operation.
type DataIntegrityError struct {
	Entity string
	Msg    string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Msg)
}

// ValidationError marks bad input shape, rejected before any network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target *ForbiddenError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

func IsDataIntegrity(err error) bool {
	var target *DataIntegrityError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
