// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efibootmgr

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/uefi-tools/bootvars/efivars"
)

// maxIndex is the largest 16-bit variable-name index; the whole
// AUTO-assignable index space holds maxIndex+1 slots.
const maxIndex = 0xFFFF

// BootEntryManager mediates every collection-level operation (load, save,
// delete, reorder) against a VariableStore. It holds no cache between
// calls: each operation re-reads whatever state it needs, since the store
// may be mutated externally between calls (§5).
type BootEntryManager struct {
	store efivars.VariableStore
}

// NewBootEntryManager returns a manager bound to store.
func NewBootEntryManager(store efivars.VariableStore) *BootEntryManager {
	return &BootEntryManager{store: store}
}

// readOrder reads and decodes the ordering variable for t. A missing
// ordering variable is not an error: it is treated as an empty list, per
// §4.5. Any other store error is fatal.
func (m *BootEntryManager) readOrder(t efivars.EntryType) ([]uint16, error) {
	name, err := t.OrderName()
	if err != nil {
		return nil, err
	}
	b, _, err := m.store.Read(name)
	if err != nil {
		if k, ok := efivars.KindOf(err); ok && k == efivars.NotFound {
			return nil, nil
		}
		return nil, err
	}
	if len(b)%2 != 0 {
		return nil, &efivars.Error{Kind: efivars.Invalid, Op: "BootEntryManager.readOrder", Name: name, Err: fmt.Errorf("order variable has odd length %d", len(b))}
	}
	order := make([]uint16, len(b)/2)
	for i := range order {
		order[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	return order, nil
}

// writeOrder encodes and writes the ordering variable for t from the given
// indices, in the order given.
func (m *BootEntryManager) writeOrder(t efivars.EntryType, indices []uint16) error {
	name, err := t.OrderName()
	if err != nil {
		return err
	}
	b := make([]byte, len(indices)*2)
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(b[i*2:i*2+2], idx)
	}
	return m.store.Write(name, b)
}

// LoadAll reads the ordering variable for t and, for each index it lists,
// decodes the corresponding Boot####/Driver####/SysPrep#### variable into a
// BootEntry. Entries are returned in the order the ordering variable lists
// them, duplicates and all. If any per-entry read or decode fails, LoadAll
// releases whatever it has already loaded and returns the error: it never
// returns a partial, silently-pruned list.
func (m *BootEntryManager) LoadAll(t efivars.EntryType) ([]*BootEntry, error) {
	order, err := m.readOrder(t)
	if err != nil {
		return nil, err
	}
	entries := make([]*BootEntry, 0, len(order))
	for _, idx := range order {
		name, err := t.VariableName(idx)
		if err != nil {
			return nil, err
		}
		b, _, err := m.store.Read(name)
		if err != nil {
			return nil, err
		}
		lo, err := efivars.ReadLoadOption(b)
		if err != nil {
			return nil, &efivars.Error{Kind: efivars.Invalid, Op: "BootEntryManager.LoadAll", Name: name, Err: err}
		}
		entries = append(entries, fromLoadOption(t, idx, name, lo))
	}
	return entries, nil
}

// findFreeIndex returns the lowest index in [0, 0xFFFF] not currently
// occupied by a {prefix}{index:04X} variable. When the store can enumerate
// its contents cheaply (VariableStore.List), it builds the occupied set in
// one pass instead of probing Exists up to 65536 times.
func (m *BootEntryManager) findFreeIndex(t efivars.EntryType) (uint16, error) {
	prefix, err := t.Prefix()
	if err != nil {
		return 0, err
	}
	if names, err := m.store.List(); err == nil {
		occupied := make(map[uint16]bool, len(names))
		for _, n := range names {
			if len(n) != len(prefix)+4 || n[:len(prefix)] != prefix {
				continue
			}
			var idx uint16
			if _, scanErr := fmt.Sscanf(n[len(prefix):], "%04X", &idx); scanErr == nil {
				occupied[idx] = true
			}
		}
		for i := 0; i <= maxIndex; i++ {
			if !occupied[uint16(i)] {
				return uint16(i), nil
			}
		}
		return 0, &efivars.Error{Kind: efivars.NoSpace, Op: "BootEntryManager.findFreeIndex", Err: fmt.Errorf("all %d slots in use", maxIndex+1)}
	}

	for i := 0; i <= maxIndex; i++ {
		name, err := t.VariableName(uint16(i))
		if err != nil {
			return 0, err
		}
		if !m.store.Exists(name) {
			return uint16(i), nil
		}
	}
	return 0, &efivars.Error{Kind: efivars.NoSpace, Op: "BootEntryManager.findFreeIndex", Err: fmt.Errorf("all %d slots in use", maxIndex+1)}
}

// Save persists a single entry: if it is AUTO-indexed, it first claims the
// lowest free index (re-checking Exists/List at call time, never cached
// across operations); it then encodes and writes the entry's variable and
// clears its modified flag. An entry with modified==false is a no-op.
//
// Before writing, an already-indexed entry is compared against whatever is
// currently stored under its variable name. If the attributes, description,
// and optional data are unchanged and every path is a DevicePath.Matches
// equivalent of the stored one (full or short-form), the write is skipped:
// a newly generated path that is only a short-form rewrite of what's
// already there is not a real change worth persisting.
func (m *BootEntryManager) Save(e *BootEntry) error {
	if !e.modified {
		return nil
	}
	if e.index.IsAuto() {
		idx, err := m.findFreeIndex(e.typ)
		if err != nil {
			return err
		}
		if err := e.SetIndex(Index(idx)); err != nil {
			return err
		}
	} else if m.unchanged(e) {
		e.modified = false
		return nil
	}
	lo := e.loadOption()
	data, err := lo.Bytes()
	if err != nil {
		return err
	}
	if err := m.store.Write(e.name, data); err != nil {
		return err
	}
	e.modified = false
	return nil
}

// unchanged reports whether e is, modulo short-form path rewrites,
// identical to whatever is already stored under e.name.
func (m *BootEntryManager) unchanged(e *BootEntry) bool {
	b, _, err := m.store.Read(e.name)
	if err != nil {
		return false
	}
	stored, err := efivars.ReadLoadOption(b)
	if err != nil {
		return false
	}
	if stored.Attributes != e.attributes || stored.Description != e.description {
		return false
	}
	if !bytes.Equal(stored.OptionalData, e.Data()) {
		return false
	}
	if len(stored.FilePathList) != len(e.paths) {
		return false
	}
	for i, old := range stored.FilePathList {
		if old.Matches(e.paths[i].chain) == efivars.NoMatch {
			return false
		}
	}
	return true
}

// Del removes the variable an entry is stored under. It does not touch the
// ordering variable; callers that want to both unlist and delete an entry
// should remove it from their slice, call SaveAll to rewrite the order, and
// then call Del.
func (m *BootEntryManager) Del(e *BootEntry) error {
	if e.name == "" {
		return &efivars.Error{Kind: efivars.Invalid, Op: "BootEntryManager.Del", Err: fmt.Errorf("entry has no assigned variable name")}
	}
	return m.store.Delete(e.name)
}

// SaveAll saves every entry (resolving any AUTO indices along the way) and
// then rewrites the type's ordering variable to list exactly the given
// entries, in the order given. All entries must be of type t. If a Save
// call midway fails, entries already written remain written and the
// ordering variable is not touched; this reflects the absence of any
// shadow-write or transactional protocol in real firmware (§5, §9) and is
// surfaced to the caller via the returned error, not concealed.
func (m *BootEntryManager) SaveAll(t efivars.EntryType, entries []*BootEntry) error {
	for _, e := range entries {
		if e.Type() != t {
			return &efivars.Error{Kind: efivars.Invalid, Op: "BootEntryManager.SaveAll", Err: fmt.Errorf("entry %q has type %s, want %s", e.Name(), e.Type(), t)}
		}
	}
	for _, e := range entries {
		if err := m.Save(e); err != nil {
			return err
		}
	}
	indices := make([]uint16, len(entries))
	for i, e := range entries {
		v, ok := e.Index().Value()
		if !ok {
			return &efivars.Error{Kind: efivars.Invalid, Op: "BootEntryManager.SaveAll", Err: fmt.Errorf("entry %d still has no assigned index after save", i)}
		}
		indices[i] = v
	}
	return m.writeOrder(t, indices)
}

// Delete removes entry from entries, rewrites the ordering variable to
// reflect the remaining entries (via SaveAll), and then deletes entry's own
// variable. It returns the updated slice.
func (m *BootEntryManager) Delete(t efivars.EntryType, entries []*BootEntry, entry *BootEntry) ([]*BootEntry, error) {
	remaining := make([]*BootEntry, 0, len(entries))
	found := false
	for _, e := range entries {
		if e == entry {
			found = true
			continue
		}
		remaining = append(remaining, e)
	}
	if !found {
		return entries, &efivars.Error{Kind: efivars.Invalid, Op: "BootEntryManager.Delete", Err: fmt.Errorf("entry not found in collection")}
	}
	if err := m.SaveAll(t, remaining); err != nil {
		return entries, err
	}
	if err := m.Del(entry); err != nil {
		return remaining, err
	}
	return remaining, nil
}
