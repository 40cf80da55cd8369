// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// MockStore is an in-memory VariableStore backed by afero, usable in tests
// on any GOOS regardless of which platform backend NewVariableStore would
// otherwise select. It lays variables out the same way efivarfs does
// (one file per "name-GUID", first four bytes the attributes) so that
// behaviour exercised against it generalises to the real backend.
type MockStore struct {
	fs   afero.Fs
	root string
}

// NewMockStore returns an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{fs: afero.NewMemMapFs(), root: "/efivars"}
}

func (s *MockStore) fileName(name string) string {
	return s.root + "/" + name + "-" + GUIDGlobal.String()
}

func (s *MockStore) Read(name string) ([]byte, VariableAttributes, error) {
	f, err := s.fs.Open(s.fileName(name))
	if err != nil {
		return nil, 0, &Error{Kind: NotFound, Op: "VariableStore.Read", Name: name, Err: err}
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, &Error{Kind: Io, Op: "VariableStore.Read", Name: name, Err: err}
	}
	if len(b) < 4 {
		return nil, 0, &Error{Kind: Invalid, Op: "VariableStore.Read", Name: name, Err: fmt.Errorf("variable too short")}
	}
	attrs := VariableAttributes(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	return b[4:], attrs, nil
}

func (s *MockStore) Write(name string, data []byte) error {
	if err := s.fs.MkdirAll(s.root, 0755); err != nil {
		return &Error{Kind: Io, Op: "VariableStore.Write", Name: name, Err: err}
	}
	attrs := uint32(DefaultWriteAttributes)
	buf := make([]byte, 4+len(data))
	buf[0], buf[1], buf[2], buf[3] = byte(attrs), byte(attrs>>8), byte(attrs>>16), byte(attrs>>24)
	copy(buf[4:], data)
	if err := afero.WriteFile(s.fs, s.fileName(name), buf, 0644); err != nil {
		return &Error{Kind: Io, Op: "VariableStore.Write", Name: name, Err: err}
	}
	return nil
}

func (s *MockStore) Delete(name string) error {
	if !s.Exists(name) {
		return &Error{Kind: NotFound, Op: "VariableStore.Delete", Name: name, Err: fmt.Errorf("variable does not exist")}
	}
	if err := s.fs.Remove(s.fileName(name)); err != nil {
		return &Error{Kind: Io, Op: "VariableStore.Delete", Name: name, Err: err}
	}
	return nil
}

func (s *MockStore) Exists(name string) bool {
	ok, _ := afero.Exists(s.fs, s.fileName(name))
	return ok
}

func (s *MockStore) List() ([]string, error) {
	suffix := "-" + GUIDGlobal.String()
	var names []string
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, nil
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, strings.TrimSuffix(e.Name(), suffix))
		}
	}
	sort.Strings(names)
	return names, nil
}
