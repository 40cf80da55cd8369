// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), "\n", ""))
	if err != nil {
		t.Fatalf("bad hex literal: %v", err)
	}
	return b
}

func TestDevicePathRoundTrip(t *testing.T) {
	t.Run("hddpath", func(t *testing.T) {
		want := mustHex(t, "02 01 0C 00 D0 41 03 0A 00 00 00 00 01 01 06 00 01 01 03 01 08 00 00 00 00 00 7F FF 04 00")
		chain, err := FromText("PciRoot(0x0)/Pci(0x1,0x1)/Ata(0x0)", false)
		if err != nil {
			t.Fatalf("FromText: %v", err)
		}
		if got := chain.Bytes(); !bytes.Equal(got, want) {
			t.Fatalf("Bytes() = % X, want % X", got, want)
		}
		back, n, err := ReadDevicePath(want, 0)
		if err != nil {
			t.Fatalf("ReadDevicePath: %v", err)
		}
		if n != len(want) {
			t.Fatalf("consumed %d, want %d", n, len(want))
		}
		if got := back.String(); got != "PciRoot(0x0)/Pci(0x1,0x1)/Ata(0x0)" {
			t.Fatalf("round-tripped text = %q", got)
		}
	})

	t.Run("macpath", func(t *testing.T) {
		text := "PciRoot(0x0)/Pci(0x3,0x0)/MAC(525400123456,0x1)"
		chain, err := FromText(text, false)
		if err != nil {
			t.Fatalf("FromText: %v", err)
		}
		back, n, err := ReadDevicePath(chain.Bytes(), 0)
		if err != nil {
			t.Fatalf("ReadDevicePath: %v", err)
		}
		if n != len(chain.Bytes()) {
			t.Fatalf("consumed %d, want %d", n, len(chain.Bytes()))
		}
		if got := back.ToString(0); got != text {
			t.Fatalf("round-tripped text = %q, want %q", got, text)
		}
	})
}

func TestURIPathDualForms(t *testing.T) {
	short := "PciRoot(0x0)/Pci(0x1,0x1)/MAC(000000000000,0x1)/IPv4(0.0.0.0)/Uri(http://boot.ipxe.org/ipxe.efi)"
	long := "PciRoot(0x0)/Pci(0x1,0x1)/MAC(000000000000,0x1)/IPv4(0.0.0.0,0x0,DHCP,0.0.0.0,0.0.0.0,0.0.0.0)/Uri(http://boot.ipxe.org/ipxe.efi)"

	shortChain, err := FromText(short, false)
	if err != nil {
		t.Fatalf("FromText(short): %v", err)
	}
	longChain, err := FromText(long, false)
	if err != nil {
		t.Fatalf("FromText(long): %v", err)
	}
	if !bytes.Equal(shortChain.Bytes(), longChain.Bytes()) {
		t.Fatalf("short and long forms decoded to different bytes:\n%X\n%X", shortChain.Bytes(), longChain.Bytes())
	}
	if got := shortChain.ToString(DisplayOnly | AllowShortcuts); got != short {
		t.Fatalf("display-only rendering = %q, want %q", got, short)
	}
	if got := longChain.ToString(0); got != long {
		t.Fatalf("long-form rendering = %q, want %q", got, long)
	}
}

func TestFvFilePath(t *testing.T) {
	text := "Fv(7CB8BDC9-F8EB-4F34-AAEA-3EE4AF6516A1)/FvFile(7C04A583-9E3E-4F1C-AD65-E05268D0B4D1)"
	chain, err := FromText(text, false)
	if err != nil {
		t.Fatalf("FromText: %v", err)
	}
	back, n, err := ReadDevicePath(chain.Bytes(), 0)
	if err != nil {
		t.Fatalf("ReadDevicePath: %v", err)
	}
	if n != len(chain.Bytes()) {
		t.Fatalf("consumed %d, want %d", n, len(chain.Bytes()))
	}
	if got := back.String(); got != text {
		t.Fatalf("round-tripped text = %q, want %q", got, text)
	}
}

func TestImplausibility(t *testing.T) {
	chain, err := FromText("Uri(http://x)", false)
	if err != nil {
		t.Fatalf("FromText(Uri): %v", err)
	}
	if _, ok := chain[0].(*URIDevicePathNode); !ok {
		t.Fatalf("expected URI node, got %T", chain[0])
	}

	_, err = FromText("URI(http://x)", false)
	if k, ok := KindOf(err); !ok || k != Implausible {
		t.Fatalf("FromText(URI, allowImplausible=false) error = %v, want Implausible", err)
	}

	chain2, err := FromText("URI(http://x)", true)
	if err != nil {
		t.Fatalf("FromText(URI, allowImplausible=true): %v", err)
	}
	if _, ok := chain2[0].(FilePathDevicePathNode); !ok {
		t.Fatalf("expected file-path node, got %T", chain2[0])
	}
}

func TestIPv6RoundTrip(t *testing.T) {
	t.Run("without gateway encodes the 42-byte form", func(t *testing.T) {
		n := &IPv6DevicePathNode{
			LocalPort:  1,
			RemotePort: 2,
			Protocol:   6,
			Origin:     0,
			PrefixLen:  64,
		}
		n.LocalAddr[0] = 0xFE
		n.RemoteAddr[0] = 0xFD
		chain := DevicePath{n}

		if got := len(n.payload()); got != 42 {
			t.Fatalf("payload length = %d, want 42", got)
		}

		decoded, _, err := ReadDevicePath(chain.Bytes(), 0)
		if err != nil {
			t.Fatalf("ReadDevicePath: %v", err)
		}
		got, ok := decoded[0].(*IPv6DevicePathNode)
		if !ok {
			t.Fatalf("decoded node is %T, want *IPv6DevicePathNode", decoded[0])
		}
		if got.GatewayAddr != ([16]byte{}) {
			t.Fatalf("GatewayAddr = %v, want zero", got.GatewayAddr)
		}
		if !bytes.Equal(chain.Bytes(), decoded.Bytes()) {
			t.Fatal("round trip through the 42-byte form did not preserve bytes")
		}
	})

	t.Run("with gateway encodes the 58-byte form and preserves it", func(t *testing.T) {
		n := &IPv6DevicePathNode{
			LocalPort:  1,
			RemotePort: 2,
			Protocol:   6,
			Origin:     2,
			PrefixLen:  64,
		}
		n.LocalAddr[0] = 0xFE
		n.RemoteAddr[0] = 0xFD
		n.GatewayAddr[0] = 0xFE
		n.GatewayAddr[15] = 0x01
		chain := DevicePath{n}

		if got := len(n.payload()); got != 58 {
			t.Fatalf("payload length = %d, want 58", got)
		}

		decoded, _, err := ReadDevicePath(chain.Bytes(), 0)
		if err != nil {
			t.Fatalf("ReadDevicePath: %v", err)
		}
		got, ok := decoded[0].(*IPv6DevicePathNode)
		if !ok {
			t.Fatalf("decoded node is %T, want *IPv6DevicePathNode", decoded[0])
		}
		if got.GatewayAddr != n.GatewayAddr {
			t.Fatalf("GatewayAddr = %v, want %v", got.GatewayAddr, n.GatewayAddr)
		}
		if !bytes.Equal(chain.Bytes(), decoded.Bytes()) {
			t.Fatal("round trip through the 58-byte form did not preserve the gateway")
		}
	})
}

func TestValidateBoundary(t *testing.T) {
	endEntire := []byte{0x7F, 0xFF, 0x04, 0x00}
	pciRoot := mustHex(t, "02010C00D04103 0A000000 00")

	t.Run("length less than 4 is rejected", func(t *testing.T) {
		bad := append(append([]byte{}, pciRoot...), 0x01, 0x01, 0x02, 0x00)
		bad = append(bad, endEntire...)
		if Validate(bad, 0) {
			t.Fatal("expected Validate to reject node with Length < 4")
		}
	})

	t.Run("overrun is rejected", func(t *testing.T) {
		bad := append(append([]byte{}, pciRoot...), 0x01, 0x01, 0xFF, 0xFF, 0x01, 0x01)
		if Validate(bad, 0) {
			t.Fatal("expected Validate to reject node that overruns its bound")
		}
	})

	t.Run("missing end node is rejected", func(t *testing.T) {
		if Validate(pciRoot, 0) {
			t.Fatal("expected Validate to reject chain with no End-Entire terminator")
		}
	})

	t.Run("trailing bytes after the terminator are permitted", func(t *testing.T) {
		good := append(append([]byte{}, pciRoot...), endEntire...)
		if !Validate(good, 0) {
			t.Fatal("expected Validate to accept a well-formed chain")
		}
		trailing := append(append([]byte{}, good...), 0xAA)
		// Validate only needs some m <= maxLen (or m <= len(b) when
		// maxLen==0) to contain a well-formed chain; it doesn't require
		// consuming the whole buffer, the same property ReadLoadOption
		// relies on to decode a FilePathList's multiple back-to-back
		// chains one at a time.
		if !Validate(trailing, 0) {
			t.Fatal("expected Validate to accept trailing bytes after the terminator")
		}
		if !Validate(trailing, len(good)) {
			t.Fatal("expected Validate to accept when maxLen bounds exactly the chain")
		}
	})

	t.Run("zero non-end nodes is rejected", func(t *testing.T) {
		if Validate(endEntire, 0) {
			t.Fatal("expected Validate to reject a chain with zero non-end nodes")
		}
	})
}
