package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

// SeatUnavailableError means the seat was booked or held by another
// session between the read and the hold attempt.
type SeatUnavailableError struct {
	TripID int64
	Seat   int
	Reason string
}

func (e SeatUnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("seat %d on trip %d unavailable: %s", e.Seat, e.TripID, e.Reason)
	}
	return fmt.Sprintf("seat %d on trip %d unavailable", e.Seat, e.TripID)
}

// HoldExpiredError means the session's shared hold countdown lapsed.
type HoldExpiredError struct {
	TripID int64
}

func (e HoldExpiredError) Error() string {
	return fmt.Sprintf("seat hold on trip %d expired, select seats again", e.TripID)
}

// PaymentVerificationError means the gateway rejected the reference.
// The booking stays unfinalized and holds are left in place.
type PaymentVerificationError struct {
	Reference string
	Msg       string
	Err       error
}

func (e PaymentVerificationError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "verification failed"
	}
	return fmt.Sprintf("payment %s: %s", e.Reference, msg)
}

func (e PaymentVerificationError) Unwrap() error { return e.Err }

// DraftLoadDeniedError means the requested draft is not owned by the session.
type DraftLoadDeniedError struct {
	DraftID string
}

func (e DraftLoadDeniedError) Error() string {
	return fmt.Sprintf("draft %s does not belong to this session", e.DraftID)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsSeatUnavailable(err error) bool {
	var target SeatUnavailableError
	return errors.As(err, &target)
}

func IsHoldExpired(err error) bool {
	var target HoldExpiredError
	return errors.As(err, &target)
}

func IsPaymentVerification(err error) bool {
	var target PaymentVerificationError
	return errors.As(err, &target)
}

func IsDraftLoadDenied(err error) bool {
	var target DraftLoadDeniedError
	return errors.As(err, &target)
}
