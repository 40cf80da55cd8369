// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"errors"
	"fmt"
)

// Kind classifies the error taxonomy shared by the device-path codec, the
// load-option codec, the variable store, and the boot entry manager.
type Kind int

const (
	// Invalid covers malformed binary input, bad text grammar, and bad
	// argument values.
	Invalid Kind = iota + 1
	// Implausible marks text that parsed but looks like a misrecognized
	// typed node that degraded into a file-path node.
	Implausible
	// NotFound means the named variable does not exist.
	NotFound
	// NoSpace means an AUTO index was requested but all 65536 slots are
	// in use.
	NoSpace
	// PermissionDenied means privilege acquisition or the firmware write
	// itself was refused.
	PermissionDenied
	// Unsupported means the backend cannot perform the requested
	// operation at all (stub backend, or no variable API on this
	// platform).
	Unsupported
	// Io covers other backend transport failures.
	Io
	// OutOfMemory means an allocation failed.
	OutOfMemory
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Invalid:
		return "Invalid"
	case Implausible:
		return "Implausible"
	case NotFound:
		return "NotFound"
	case NoSpace:
		return "NoSpace"
	case PermissionDenied:
		return "PermissionDenied"
	case Unsupported:
		return "Unsupported"
	case Io:
		return "Io"
	case OutOfMemory:
		return "OutOfMemory"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the structured error type returned by this package and by
// github.com/uefi-tools/bootvars/efibootmgr. Op names the failing operation
// (e.g. "DevicePath.FromText", "VariableStore.Read"); Err, if non-nil, is the
// underlying cause and is exposed via Unwrap for errors.As/errors.Is.
type Error struct {
	Kind Kind
	Op   string
	Name string // variable name, if applicable
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Name != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Name, e.Kind, e.Err)
	case e.Name != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Name, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind carried by err, if any, and reports whether one
// was found. Use it the way callers would otherwise use errors.Is against a
// sentinel: if k, ok := efivars.KindOf(err); ok && k == efivars.NotFound { ... }
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
