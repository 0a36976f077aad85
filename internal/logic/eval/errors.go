// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package eval

import (
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/reachlogic/internal/logic/rule"
	"github.com/holomush/reachlogic/internal/logic/static"
)

// Error codes for evaluation faults.
const (
	CodeUnresolvedReference = "UNRESOLVED_REFERENCE"
	CodeTypeMismatch        = "TYPE_MISMATCH"
	CodeUnknownHelper       = "UNKNOWN_HELPER"
	CodeMissingStaticData   = static.CodeMissingStaticData
	CodeDepthExceeded       = "DEPTH_EXCEEDED"
	CodeMalformedRule       = rule.CodeMalformed
	CodeHelperFailed        = "HELPER_FAILED"
	CodeCyclicReference     = "CYCLIC_REFERENCE"
)

// ErrTypeMismatch creates an error for a comparison or argument whose
// operand kinds are incompatible.
func ErrTypeMismatch(op string, left, right any) error {
	return oops.Code(CodeTypeMismatch).
		With("op", op).
		With("left_type", fmt.Sprintf("%T", left)).
		With("right_type", fmt.Sprintf("%T", right)).
		Errorf("cannot apply %s to %T and %T", op, left, right)
}

// ErrUnknownHelper creates an error for a helper not registered for game
// nor in the generic table.
func ErrUnknownHelper(game, name string) error {
	return oops.Code(CodeUnknownHelper).
		With("game", game).
		With("helper", name).
		Errorf("unknown helper %q for game %q", name, game)
}

// ErrMissingStaticData creates an error for a reference to a location,
// region or exit absent from the dataset.
func ErrMissingStaticData(kind, name string) error {
	return oops.Code(CodeMissingStaticData).
		With("kind", kind).
		With("name", name).
		Errorf("unknown %s %q", kind, name)
}

// ErrDepthExceeded creates an error for a rule nested deeper than max.
func ErrDepthExceeded(max int) error {
	return oops.Code(CodeDepthExceeded).
		With("max_depth", max).
		Errorf("rule nesting exceeds maximum depth of %d", max)
}

// ErrMalformedRule creates an error for a structurally invalid rule.
func ErrMalformedRule(format string, args ...any) error {
	return oops.Code(CodeMalformedRule).Errorf(format, args...)
}

// ErrHelperFailed wraps an error returned or panicked by a helper.
func ErrHelperFailed(name string, cause error) error {
	return oops.Code(CodeHelperFailed).
		With("helper", name).
		Wrapf(cause, "helper %q failed", name)
}

// ErrCyclicReference creates an error for a location whose accessibility
// depends on itself.
func ErrCyclicReference(chain []string) error {
	return oops.Code(CodeCyclicReference).
		With("chain", chain).
		Errorf("cyclic accessibility reference: %s", strings.Join(chain, " -> "))
}

// HasCode reports whether err is an oops error carrying code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
