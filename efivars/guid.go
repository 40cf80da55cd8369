// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GUID corresponds to the EFI_GUID type: a 128-bit identifier stored as
// Data1 (u32 LE), Data2 (u16 LE), Data3 (u16 LE), Data4 ([8]byte, big-endian
// order within the array).
type GUID [16]byte

// GUIDGlobal is the UEFI global variable namespace GUID
// {8BE4DF61-93CA-11D2-AA0D-00E098032B8C}, used by Boot####, Driver####,
// SysPrep####, and their *Order variables.
var GUIDGlobal = MustParseGUID("8be4df61-93ca-11d2-aa0d-00e098032b8c")

// MakeGUID builds a GUID from its five canonical fields.
func MakeGUID(a uint32, b, c uint16, d [8]byte) GUID {
	var g GUID
	binary.LittleEndian.PutUint32(g[0:4], a)
	binary.LittleEndian.PutUint16(g[4:6], b)
	binary.LittleEndian.PutUint16(g[6:8], c)
	copy(g[8:16], d[:])
	return g
}

// ParseGUID decodes a GUID from its canonical 8-4-4-4-12 textual form,
// optionally wrapped in braces. Hex case is tolerated on input.
//
// Parsing is delegated to google/uuid, whose wire layout (big-endian
// throughout) differs from EFI_GUID's mixed-endian layout; the bytes are
// reordered on the way in and out so that the round trip is bit-exact with
// the UEFI specification's representation.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(strings.Trim(s, "{}"))
	if err != nil {
		return GUID{}, &Error{Kind: Invalid, Op: "ParseGUID", Err: err}
	}
	return guidFromUUID(u), nil
}

// MustParseGUID is like ParseGUID but panics on error. It is intended for
// package-level GUID constants whose literal value is known to be valid.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

func guidFromUUID(u uuid.UUID) GUID {
	var g GUID
	binary.LittleEndian.PutUint32(g[0:4], binary.BigEndian.Uint32(u[0:4]))
	binary.LittleEndian.PutUint16(g[4:6], binary.BigEndian.Uint16(u[4:6]))
	binary.LittleEndian.PutUint16(g[6:8], binary.BigEndian.Uint16(u[6:8]))
	copy(g[8:16], u[8:16])
	return g
}

func (g GUID) toUUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], binary.LittleEndian.Uint32(g[0:4]))
	binary.BigEndian.PutUint16(u[4:6], binary.LittleEndian.Uint16(g[4:6]))
	binary.BigEndian.PutUint16(u[6:8], binary.LittleEndian.Uint16(g[6:8]))
	copy(u[8:16], g[8:16])
	return u
}

// String renders the GUID in lowercase canonical form, for use in debug
// output and log lines. Device-path text rendering uses StringUpper instead,
// since the UEFI textual device-path grammar renders GUIDs uppercase.
func (g GUID) String() string {
	return g.toUUID().String()
}

// StringUpper renders the GUID in uppercase canonical form, as used inside
// device-path node text (HD(), Fv(), FvFile(), ...).
func (g GUID) StringUpper() string {
	return strings.ToUpper(g.String())
}

// IsZero reports whether this is the all-zero GUID.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// GoString implements fmt.GoStringer for nicer test failure output.
func (g GUID) GoString() string {
	return fmt.Sprintf("GUID(%s)", g.String())
}
