package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrProviderFailure     = errors.New("provider failure")
	ErrNotConfigured       = errors.New("not configured")
	ErrPaymentNotFound     = errors.New("payment transaction not found")
	ErrPaymentNotPaid      = errors.New("payment transaction must be paid")
	ErrNotProcessing       = errors.New("generation is no longer processing")
)
