// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

//go:build linux

package efivars

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// efivarfsPath is the standard mount point the Linux kernel exposes UEFI
// variables under.
const efivarfsPath = "/sys/firmware/efi/efivars"

// efivarfsStore implements VariableStore against a mounted efivarfs,
// mirroring the immutable-flag dance real firmware variable files require:
// the kernel marks each file FS_IMMUTABLE_FL, so a write must first clear
// that flag and restore it afterwards.
type efivarfsStore struct {
	root string
}

// NewVariableStore returns the platform's VariableStore implementation. On
// Linux this is the efivarfs backend; it does not probe whether efivarfs is
// actually mounted until first use, consistent with §5's "safe to
// initialise lazily" requirement.
func NewVariableStore() VariableStore {
	return &efivarfsStore{root: efivarfsPath}
}

func (s *efivarfsStore) fileName(name string) string {
	return filepath.Join(s.root, fmt.Sprintf("%s-%s", name, GUIDGlobal.String()))
}

func (s *efivarfsStore) probe() error {
	var st unix.Statfs_t
	if err := unix.Statfs(s.root, &st); err != nil {
		return &Error{Kind: Unsupported, Op: "VariableStore", Err: fmt.Errorf("efivarfs not available: %w", err)}
	}
	if st.Type != unix.EFIVARFS_MAGIC {
		return &Error{Kind: Unsupported, Op: "VariableStore", Err: fmt.Errorf("%s is not efivarfs", s.root)}
	}
	return nil
}

func (s *efivarfsStore) Read(name string) ([]byte, VariableAttributes, error) {
	if err := s.probe(); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(s.fileName(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, &Error{Kind: NotFound, Op: "VariableStore.Read", Name: name, Err: err}
		}
		return nil, 0, classifyFileErr("VariableStore.Read", name, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, &Error{Kind: Io, Op: "VariableStore.Read", Name: name, Err: err}
	}
	if len(b) < 4 {
		return nil, 0, &Error{Kind: Invalid, Op: "VariableStore.Read", Name: name, Err: fmt.Errorf("variable file too short")}
	}
	attrs := VariableAttributes(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	return b[4:], attrs, nil
}

func (s *efivarfsStore) Write(name string, data []byte) error {
	if err := s.probe(); err != nil {
		return err
	}
	path := s.fileName(name)

	restore, err := makeMutable(path)
	if err != nil {
		return err
	}
	defer restore()

	attrs := uint32(DefaultWriteAttributes)
	payload := make([]byte, 4+len(data))
	payload[0] = byte(attrs)
	payload[1] = byte(attrs >> 8)
	payload[2] = byte(attrs >> 16)
	payload[3] = byte(attrs >> 24)
	copy(payload[4:], data)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return classifyFileErr("VariableStore.Write", name, err)
	}
	defer f.Close()
	if _, err := f.Write(payload); err != nil {
		return classifyFileErr("VariableStore.Write", name, err)
	}
	return nil
}

func (s *efivarfsStore) Delete(name string) error {
	if err := s.probe(); err != nil {
		return err
	}
	path := s.fileName(name)
	restore, err := makeMutable(path)
	if err != nil {
		if k, ok := KindOf(err); ok && k == NotFound {
			return &Error{Kind: NotFound, Op: "VariableStore.Delete", Name: name, Err: err}
		}
		return err
	}
	defer restore()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &Error{Kind: NotFound, Op: "VariableStore.Delete", Name: name, Err: err}
		}
		return classifyFileErr("VariableStore.Delete", name, err)
	}
	return nil
}

func (s *efivarfsStore) Exists(name string) bool {
	if err := s.probe(); err != nil {
		return false
	}
	f, err := os.Open(s.fileName(name))
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (s *efivarfsStore) List() ([]string, error) {
	if err := s.probe(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &Error{Kind: Io, Op: "VariableStore.List", Err: err}
	}
	suffix := "-" + GUIDGlobal.String()
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, suffix) {
			names = append(names, strings.TrimSuffix(n, suffix))
		}
	}
	return names, nil
}

// makeMutable clears the immutable inode flag efivarfs sets on every
// variable file, returning a func that restores it. Absence of the file is
// not itself an error here — callers distinguish NotFound for Delete.
func makeMutable(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return func() {}, nil
		}
		return nil, &Error{Kind: Io, Op: "VariableStore", Err: err}
	}
	defer f.Close()

	flags, err := unix.IoctlGetInt(int(f.Fd()), unix.FS_IOC_GETFLAGS)
	if err != nil {
		return func() {}, nil
	}
	if flags&unix.FS_IMMUTABLE_FL == 0 {
		return func() {}, nil
	}
	cleared := flags &^ unix.FS_IMMUTABLE_FL
	if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.FS_IOC_SETFLAGS, cleared); err != nil {
		return nil, &Error{Kind: PermissionDenied, Op: "VariableStore", Err: err}
	}
	return func() {
		rf, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return
		}
		defer rf.Close()
		_ = unix.IoctlSetPointerInt(int(rf.Fd()), unix.FS_IOC_SETFLAGS, flags)
	}, nil
}

func classifyFileErr(op, name string, err error) error {
	switch {
	case os.IsPermission(err):
		return &Error{Kind: PermissionDenied, Op: op, Name: name, Err: err}
	case os.IsNotExist(err):
		return &Error{Kind: NotFound, Op: op, Name: name, Err: err}
	default:
		return &Error{Kind: Io, Op: op, Name: name, Err: err}
	}
}
