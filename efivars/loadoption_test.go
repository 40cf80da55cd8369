// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"bytes"
	"testing"
)

const fedoraLoadOptionHex = "" +
	"01 00 00 00" + // Attributes = ACTIVE
	"62 00" + // FilePathListLength = 0x62
	"46 00 65 00 64 00 6F 00 72 00 61 00 00 00" + // "Fedora\0"
	// HD(1,GPT,C8F57909-D589-41A1-9958-44C7F229E150,0x800,0x12C000)
	"04 01 2A 00" +
	"01 00 00 00" + // PartitionNumber
	"00 08 00 00 00 00 00 00" + // PartitionStart
	"00 C0 12 00 00 00 00 00" + // PartitionSize
	"09 79 F5 C8 89 D5 A1 41 99 58 44 C7 F2 29 E1 50" + // GPT signature (GUID, EFI mixed-endian)
	"02" + // MBRType = GPT
	"02" + // SignatureType = GUID
	// \EFI\fedora\shimx64.efi
	"04 04 34 00" +
	"5C 00 45 00 46 00 49 00 5C 00 66 00 65 00 64 00 6F 00 72 00 61 00 5C 00 73 00 68 00 69 00 6D 00 78 00 36 00 34 00 2E 00 65 00 66 00 69 00 00 00" +
	"7F FF 04 00"

func TestFedoraLoadOption(t *testing.T) {
	raw := mustHex(t, fedoraLoadOptionHex)

	lo, err := ReadLoadOption(raw)
	if err != nil {
		t.Fatalf("ReadLoadOption: %v", err)
	}
	if lo.Attributes != LoadOptionActive {
		t.Fatalf("Attributes = %#x, want ACTIVE", uint32(lo.Attributes))
	}
	if lo.Description != "Fedora" {
		t.Fatalf("Description = %q, want %q", lo.Description, "Fedora")
	}
	if len(lo.OptionalData) != 0 {
		t.Fatalf("OptionalData = % X, want empty", lo.OptionalData)
	}
	if len(lo.FilePathList) != 1 {
		t.Fatalf("FilePathList has %d chains, want 1", len(lo.FilePathList))
	}
	want := `HD(1,GPT,C8F57909-D589-41A1-9958-44C7F229E150,0x800,0x12C000)/\EFI\fedora\shimx64.efi`
	if got := lo.FilePathList[0].String(); got != want {
		t.Fatalf("path text = %q, want %q", got, want)
	}

	encoded, err := lo.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(encoded, raw) {
		t.Fatalf("re-encoded bytes differ:\ngot:  % X\nwant: % X", encoded, raw)
	}
}

func TestLoadOptionBoundary(t *testing.T) {
	raw := mustHex(t, fedoraLoadOptionHex)

	t.Run("too short", func(t *testing.T) {
		if _, err := ReadLoadOption(raw[:5]); err == nil {
			t.Fatal("expected error for record shorter than 6 bytes")
		}
	})

	t.Run("unterminated description", func(t *testing.T) {
		bad := append([]byte{}, raw[:6]...)
		bad = append(bad, []byte{0x46, 0x00, 0x65, 0x00}...) // "Fe", no NUL
		if _, err := ReadLoadOption(bad); err == nil {
			t.Fatal("expected error for missing UCS-2LE NUL terminator")
		}
	})

	t.Run("FilePathListLength off by one over", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		bad[4]++
		if _, err := ReadLoadOption(bad); err == nil {
			t.Fatal("expected error when FilePathListLength overruns the record")
		}
	})

	t.Run("FilePathListLength off by one under", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		bad[4]--
		if _, err := ReadLoadOption(bad); err == nil {
			t.Fatal("expected error when FilePathListLength underruns a chain")
		}
	})

	t.Run("FilePathListLength zero", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		bad[4], bad[5] = 0, 0
		if _, err := ReadLoadOption(bad); err == nil {
			t.Fatal("expected error for zero-length file path list")
		}
	})

	t.Run("FilePathListLength equal to record length", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		bad[4], bad[5] = byte(len(raw)), byte(len(raw)>>8)
		if _, err := ReadLoadOption(bad); err == nil {
			t.Fatal("expected error when FilePathListLength consumes the whole record (no room for End node placement)")
		}
	})

	t.Run("optional data truncated still parses while path region intact", func(t *testing.T) {
		withData := append([]byte{}, raw...)
		withData = append(withData, 0x01, 0x02, 0x03)
		lo, err := ReadLoadOption(withData)
		if err != nil {
			t.Fatalf("ReadLoadOption with optional data: %v", err)
		}
		if !bytes.Equal(lo.OptionalData, []byte{0x01, 0x02, 0x03}) {
			t.Fatalf("OptionalData = % X, want 01 02 03", lo.OptionalData)
		}
		// Truncating only the optional data, by 1..3 bytes, still parses.
		for cut := 1; cut <= 3; cut++ {
			short := withData[:len(withData)-cut]
			lo, err := ReadLoadOption(short)
			if err != nil {
				t.Fatalf("ReadLoadOption with optional data cut by %d: %v", cut, err)
			}
			if !bytes.Equal(lo.OptionalData, short[len(raw):]) {
				t.Fatalf("OptionalData = % X, want % X", lo.OptionalData, short[len(raw):])
			}
		}
		// Truncating into the path region (not just the optional data) fails.
		truncatedIntoPath := withData[:len(raw)-1]
		if _, err := ReadLoadOption(truncatedIntoPath); err == nil {
			t.Fatal("expected error when truncation cuts into the device-path region")
		}
	})

	t.Run("no chains in file path list", func(t *testing.T) {
		// A record whose path region length is fine but contains no bytes.
		bad := append([]byte{}, raw[:6]...)
		bad[4], bad[5] = 0, 0
		bad = append(bad, raw[6:20]...) // description only, no path bytes
		if _, err := ReadLoadOption(bad); err == nil {
			t.Fatal("expected error for a file path list with zero chains")
		}
	})
}
