// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import "bytes"

// ShortFormType describes whether a device path begins with one of the
// short-form node types the UEFI boot manager is required to resolve by
// matching against the tail of any full device path it already knows
// about, rather than by exact match.
type ShortFormType int

const (
	// NotShortForm means the path does not start with a recognised
	// short-form node.
	NotShortForm ShortFormType = iota
	// ShortFormHD means the path starts with a HardDriveDevicePathNode.
	ShortFormHD
	// ShortFormUSBWWID means the path starts with a
	// USBWWIDDevicePathNode.
	ShortFormUSBWWID
	// ShortFormFilePath means the path starts with a
	// FilePathDevicePathNode.
	ShortFormFilePath
)

// IsShortForm reports whether t is anything other than NotShortForm.
func (t ShortFormType) IsShortForm() bool { return t != NotShortForm }

// ShortFormType reports whether p begins with a recognised short-form node.
func (p DevicePath) ShortFormType() ShortFormType {
	if len(p) == 0 {
		return NotShortForm
	}
	switch p[0].(type) {
	case *HardDriveDevicePathNode:
		return ShortFormHD
	case *USBWWIDDevicePathNode:
		return ShortFormUSBWWID
	case FilePathDevicePathNode:
		return ShortFormFilePath
	default:
		return NotShortForm
	}
}

// MatchKind reports how DevicePath.Matches classified a comparison.
type MatchKind int

const (
	// NoMatch means the two paths are neither identical nor related by
	// a recognised short-form relationship.
	NoMatch MatchKind = iota
	// FullMatch means the two paths encode to the same bytes.
	FullMatch
	// ShortFormHDMatch means one path is a HD() short-form path whose
	// bytes match the tail of the other, starting at its own
	// HardDriveDevicePathNode.
	ShortFormHDMatch
	// ShortFormUSBWWIDMatch is the USBWWID analogue of ShortFormHDMatch.
	ShortFormUSBWWIDMatch
	// ShortFormFileMatch is the file-path analogue of ShortFormHDMatch.
	ShortFormFileMatch
)

// Matches reports whether other is the same device path as p, or a
// short-form equivalent of it: a HD()/UsbWwid()/file-path node sequence
// that, spliced onto the matching suffix of the longer path, would encode
// identically. BootEntryManager uses this to tell whether replacing an
// entry's path with a newly generated one is actually a no-op.
func (p DevicePath) Matches(other DevicePath) MatchKind {
	return p.matches(other, false)
}

func (p DevicePath) matches(other DevicePath, onlyFull bool) MatchKind {
	if bytes.Equal(p.Bytes(), other.Bytes()) {
		return FullMatch
	}
	if onlyFull {
		return NoMatch
	}

	shortest, longest := p, other
	switch {
	case len(p) > len(other):
		shortest, longest = other, p
	case len(p) == len(other):
		return NoMatch
	}

	switch shortest.ShortFormType() {
	case ShortFormHD:
		if tail := findFirstHardDrive(longest); tail != nil {
			if tail.matches(shortest, true) == FullMatch {
				return ShortFormHDMatch
			}
		}
	case ShortFormUSBWWID:
		if tail := findFirstUSBWWID(longest); tail != nil {
			if tail.matches(shortest, true) == FullMatch {
				return ShortFormUSBWWIDMatch
			}
		}
	case ShortFormFilePath:
		if tail := findFirstFilePath(longest); tail != nil {
			if tail.matches(shortest, true) == FullMatch {
				return ShortFormFileMatch
			}
		}
	}
	return NoMatch
}

func findFirstHardDrive(p DevicePath) DevicePath {
	for i, n := range p {
		if _, ok := n.(*HardDriveDevicePathNode); ok {
			return p[i:]
		}
	}
	return nil
}

func findFirstUSBWWID(p DevicePath) DevicePath {
	for i, n := range p {
		if _, ok := n.(*USBWWIDDevicePathNode); ok {
			return p[i:]
		}
	}
	return nil
}

func findFirstFilePath(p DevicePath) DevicePath {
	for i, n := range p {
		if _, ok := n.(FilePathDevicePathNode); ok {
			return p[i:]
		}
	}
	return nil
}
