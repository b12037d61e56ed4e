package repository

import "github.com/rkarimi/encore/internal/domain/errs"

// Sentinel kinds for storage errors. Each wraps its taxonomy kind so
// callers can branch on either the specific error or the class.
var (
	ErrSetNotFound         = errs.NotFoundf("set")
	ErrDuplicateSet        = errs.Validationf("set id already exists")
	ErrRatingConflict      = errs.Conflictf("rating changed concurrently")
	ErrDuplicateComparison = errs.Conflictf("comparison already recorded")
	ErrInvalidLimit        = errs.Validationf("invalid limit")
)
