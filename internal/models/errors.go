// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

// errors.go - domain error taxonomy shared across packages.
//
// Business-rule failures carry enough context (which rule, which entity)
// for the transport layer to pick a status code; the core never sees HTTP.

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common negative outcomes.
var (
	// ErrNotFound indicates the referenced entity does not exist where the
	// operation requires existence.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthenticated covers every authentication failure uniformly
	// (missing, invalid, expired, or revoked token, IP mismatch under
	// strict mode). The precise cause is only distinguished in logs.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrFeedItemMissing indicates a feed entry references an item that has
	// since been deleted. Fatal to the single request, never swallowed.
	ErrFeedItemMissing = errors.New("feed entry references missing item")
)

// RuleError is a recoverable domain-rule violation (max images exceeded,
// non-owner modification, duplicate email, ...). Rule is machine-readable;
// the message is safe to show to callers.
type RuleError struct {
	Rule    string // e.g. "item.max_images", "user.duplicate_email"
	Entity  string // e.g. "item", "user"
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// NewRuleError builds a RuleError.
func NewRuleError(rule, entity, format string, args ...any) *RuleError {
	return &RuleError{
		Rule:    rule,
		Entity:  entity,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsRuleViolation reports whether err is (or wraps) a RuleError.
func IsRuleViolation(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}
