// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import "testing"

func TestMockStoreReadWriteDeleteExists(t *testing.T) {
	s := NewMockStore()

	if s.Exists("Boot0000") {
		t.Fatal("Exists on empty store should be false")
	}
	if _, _, err := s.Read("Boot0000"); err == nil {
		t.Fatal("Read on missing variable should fail")
	} else if k, ok := KindOf(err); !ok || k != NotFound {
		t.Fatalf("Read error kind = %v, want NotFound", err)
	}

	if err := s.Write("Boot0000", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Exists("Boot0000") {
		t.Fatal("Exists should be true after Write")
	}
	data, attrs, err := s.Read("Boot0000")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if attrs != DefaultWriteAttributes {
		t.Fatalf("attrs = %#x, want %#x", uint32(attrs), uint32(DefaultWriteAttributes))
	}
	if len(data) != 3 || data[0] != 1 || data[1] != 2 || data[2] != 3 {
		t.Fatalf("data = % X, want 01 02 03", data)
	}

	if err := s.Delete("Boot0000"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("Boot0000") {
		t.Fatal("Exists should be false after Delete")
	}
	if err := s.Delete("Boot0000"); err == nil {
		t.Fatal("Delete on missing variable should fail")
	}
}

func TestMockStoreList(t *testing.T) {
	s := NewMockStore()
	_ = s.Write("Boot0000", []byte{0})
	_ = s.Write("Boot0001", []byte{0})
	_ = s.Write("BootOrder", []byte{0, 0})

	names, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := map[string]bool{"Boot0000": true, "Boot0001": true, "BootOrder": true}
	if len(names) != len(want) {
		t.Fatalf("List returned %v, want %v", names, want)
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected name %q in List", n)
		}
	}
}
