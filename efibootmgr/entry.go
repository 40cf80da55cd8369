// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

// Package efibootmgr manages the UEFI Boot####/Driver####/SysPrep#### load
// option variables and their *Order lists, on top of the binary codecs in
// github.com/uefi-tools/bootvars/efivars.
package efibootmgr

import (
	"fmt"

	"github.com/uefi-tools/bootvars/efivars"
)

// Index identifies a BootEntry's position in the 16-bit variable-name
// space, or AutoIndex for "assign the next free slot at save time".
type Index int32

// AutoIndex is the sentinel meaning "allocate a free slot at save time".
const AutoIndex Index = -1

// IsAuto reports whether i is the AUTO sentinel.
func (i Index) IsAuto() bool { return i == AutoIndex }

// Value returns the concrete 16-bit index and true, or (0, false) if i is
// AutoIndex.
func (i Index) Value() (uint16, bool) {
	if i.IsAuto() {
		return 0, false
	}
	return uint16(i), true
}

func (i Index) String() string {
	if i.IsAuto() {
		return "AUTO"
	}
	return fmt.Sprintf("%04X", uint16(i))
}

// pathSlot pairs an owned device-path chain with its lazily rendered and
// cached text form. The cache is invalidated (cached=false) whenever the
// chain it describes changes.
type pathSlot struct {
	chain  efivars.DevicePath
	text   string
	cached bool
}

// BootEntry is the in-memory representation of one Boot####, Driver####, or
// SysPrep#### load option: its description, its ordered non-empty list of
// device paths, any trailing opaque data, and its identity (type, index,
// derived variable name). All mutation goes through setters, which mark the
// entry modified so BootEntryManager.Save knows to re-encode and persist it.
type BootEntry struct {
	typ         efivars.EntryType
	index       Index
	attributes  efivars.LoadOptionAttributes
	description string
	paths       []pathSlot
	data        []byte
	name        string
	modified    bool
}

// NewBootEntry constructs an entry of the given type with the defaults the
// specification prescribes: a single End-only placeholder path, attributes
// ACTIVE, description "Unknown", index AUTO, and modified=true. Callers are
// expected to replace the placeholder path with SetPaths/SetPathsText
// before saving; saving it unmodified encodes to a load option whose sole
// path chain cannot itself be decoded back (it has zero non-End nodes), by
// design — it exists only to satisfy "paths.len() >= 1" until the caller
// supplies a real path.
func NewBootEntry(t efivars.EntryType) *BootEntry {
	return &BootEntry{
		typ:         t,
		index:       AutoIndex,
		attributes:  efivars.LoadOptionActive,
		description: "Unknown",
		paths:       []pathSlot{{chain: efivars.DevicePath{}}},
		modified:    true,
	}
}

// fromLoadOption builds a BootEntry from a decoded LoadOption and known
// identity, as BootEntryManager.LoadAll does for each entry it reads. The
// result has modified=false: it reflects exactly what's on disk.
func fromLoadOption(t efivars.EntryType, index uint16, name string, lo *efivars.LoadOption) *BootEntry {
	paths := make([]pathSlot, len(lo.FilePathList))
	for i, c := range lo.FilePathList {
		paths[i] = pathSlot{chain: c}
	}
	return &BootEntry{
		typ:         t,
		index:       Index(index),
		attributes:  lo.Attributes,
		description: lo.Description,
		paths:       paths,
		data:        lo.OptionalData,
		name:        name,
		modified:    false,
	}
}

// Type returns the entry's class (Boot, Driver, or SysPrep).
func (e *BootEntry) Type() efivars.EntryType { return e.typ }

// SetType changes the entry's class and recomputes its variable name.
func (e *BootEntry) SetType(t efivars.EntryType) {
	e.typ = t
	e.modified = true
	e.recomputeName()
}

// Index returns the entry's index, or AutoIndex if unassigned.
func (e *BootEntry) Index() Index { return e.index }

// SetIndex assigns a concrete index (0-0xFFFF) or AutoIndex, and recomputes
// the variable name accordingly.
func (e *BootEntry) SetIndex(i Index) error {
	if !i.IsAuto() && (i < 0 || i > 0xFFFF) {
		return &efivars.Error{Kind: efivars.Invalid, Op: "BootEntry.SetIndex", Err: fmt.Errorf("index %d out of range", int(i))}
	}
	e.index = i
	e.modified = true
	e.recomputeName()
	return nil
}

// Name returns the derived ASCII variable name ("Boot0003", ...), or "" if
// the index is still AUTO.
func (e *BootEntry) Name() string { return e.name }

func (e *BootEntry) recomputeName() {
	v, ok := e.index.Value()
	if !ok {
		e.name = ""
		return
	}
	name, err := e.typ.VariableName(v)
	if err != nil {
		e.name = ""
		return
	}
	e.name = name
}

// Attributes returns the firmware attribute flags.
func (e *BootEntry) Attributes() efivars.LoadOptionAttributes { return e.attributes }

// SetAttributes replaces the firmware attribute flags.
func (e *BootEntry) SetAttributes(a efivars.LoadOptionAttributes) {
	e.attributes = a
	e.modified = true
}

// Description returns the entry's human-readable label.
func (e *BootEntry) Description() string { return e.description }

// SetDescription replaces the entry's label. s must be valid UTF-8.
func (e *BootEntry) SetDescription(s string) {
	e.description = s
	e.modified = true
}

// NumPaths returns the number of device-path chains the entry carries.
func (e *BootEntry) NumPaths() int { return len(e.paths) }

// Path returns a read-only view of the i'th device-path chain.
func (e *BootEntry) Path(i int) (efivars.DevicePath, error) {
	if i < 0 || i >= len(e.paths) {
		return nil, &efivars.Error{Kind: efivars.Invalid, Op: "BootEntry.Path", Err: fmt.Errorf("path index %d out of range (have %d)", i, len(e.paths))}
	}
	return e.paths[i].chain, nil
}

// PathText renders the i'th device-path chain as text, materialising and
// caching it on first call. The cache is invalidated whenever the chain
// changes underneath it (SetPath, SetPaths, SetPathText).
func (e *BootEntry) PathText(i int, flags efivars.DevicePathToStringFlags) (string, error) {
	if i < 0 || i >= len(e.paths) {
		return "", &efivars.Error{Kind: efivars.Invalid, Op: "BootEntry.PathText", Err: fmt.Errorf("path index %d out of range (have %d)", i, len(e.paths))}
	}
	slot := &e.paths[i]
	if slot.cached {
		return slot.text, nil
	}
	slot.text = slot.chain.ToString(flags)
	slot.cached = true
	return slot.text, nil
}

// SetPaths replaces the entire path list. It must contain at least one
// chain.
func (e *BootEntry) SetPaths(chains []efivars.DevicePath) error {
	if len(chains) == 0 {
		return &efivars.Error{Kind: efivars.Invalid, Op: "BootEntry.SetPaths", Err: fmt.Errorf("path list must be non-empty")}
	}
	paths := make([]pathSlot, len(chains))
	for i, c := range chains {
		paths[i] = pathSlot{chain: c}
	}
	e.paths = paths
	e.modified = true
	return nil
}

// SetPath replaces a single chain in the path list by index.
func (e *BootEntry) SetPath(i int, chain efivars.DevicePath) error {
	if i < 0 || i >= len(e.paths) {
		return &efivars.Error{Kind: efivars.Invalid, Op: "BootEntry.SetPath", Err: fmt.Errorf("path index %d out of range (have %d)", i, len(e.paths))}
	}
	e.paths[i] = pathSlot{chain: chain}
	e.modified = true
	return nil
}

// SetPathsText parses each element of texts via efivars.FromText and
// replaces the entire path list. texts must contain at least one element.
func (e *BootEntry) SetPathsText(texts []string, allowImplausible bool) error {
	if len(texts) == 0 {
		return &efivars.Error{Kind: efivars.Invalid, Op: "BootEntry.SetPathsText", Err: fmt.Errorf("path list must be non-empty")}
	}
	chains := make([]efivars.DevicePath, len(texts))
	for i, t := range texts {
		c, err := efivars.FromText(t, allowImplausible)
		if err != nil {
			return err
		}
		chains[i] = c
	}
	return e.SetPaths(chains)
}

// SetPathText parses text via efivars.FromText and replaces a single chain
// in the path list by index.
func (e *BootEntry) SetPathText(i int, text string, allowImplausible bool) error {
	c, err := efivars.FromText(text, allowImplausible)
	if err != nil {
		return err
	}
	return e.SetPath(i, c)
}

// Data returns the entry's opaque trailing payload, which may be empty but
// is never nil.
func (e *BootEntry) Data() []byte {
	if e.data == nil {
		return []byte{}
	}
	return e.data
}

// SetData replaces the trailing payload.
func (e *BootEntry) SetData(b []byte) {
	e.data = b
	e.modified = true
}

// ClearData removes the trailing payload.
func (e *BootEntry) ClearData() {
	e.data = nil
	e.modified = true
}

// Modified reports whether the in-memory entry differs from what was last
// persisted (or, for a freshly constructed entry, whether it has never been
// saved at all).
func (e *BootEntry) Modified() bool { return e.modified }

// loadOption builds the LoadOption this entry would encode to.
func (e *BootEntry) loadOption() *efivars.LoadOption {
	chains := make([]efivars.DevicePath, len(e.paths))
	for i, s := range e.paths {
		chains[i] = s.chain
	}
	return &efivars.LoadOption{
		Attributes:   e.attributes,
		Description:  e.description,
		FilePathList: chains,
		OptionalData: e.data,
	}
}
