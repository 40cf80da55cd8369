// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"encoding/binary"
	"fmt"
)

// LoadOptionAttributes are the firmware flags carried in a LoadOption's
// Attributes field.
type LoadOptionAttributes uint32

const (
	LoadOptionActive         LoadOptionAttributes = 0x00000001
	LoadOptionForceReconnect LoadOptionAttributes = 0x00000002
	LoadOptionHidden         LoadOptionAttributes = 0x00000008
	LoadOptionCategoryMask   LoadOptionAttributes = 0x00001F00
	LoadOptionCategoryBoot   LoadOptionAttributes = 0x00000000
	LoadOptionCategoryApp    LoadOptionAttributes = 0x00000100
)

// LoadOption is the decoded form of an EFI_LOAD_OPTION record: firmware
// attribute flags, a human-readable description, an ordered non-empty list
// of device-path chains, and an opaque trailing payload.
type LoadOption struct {
	Attributes   LoadOptionAttributes
	Description  string
	FilePathList []DevicePath
	OptionalData []byte
}

// Bytes encodes the record per the UEFI wire layout: Attributes (u32 LE),
// FilePathListLength (u16 LE), Description (UCS-2LE, NUL-terminated),
// FilePathList (concatenated chain bytes), OptionalData.
func (o *LoadOption) Bytes() ([]byte, error) {
	if len(o.FilePathList) == 0 {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Bytes", Err: fmt.Errorf("load option has no device paths")}
	}
	desc, err := encodeUCS2(o.Description + "\x00")
	if err != nil {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Bytes", Err: err}
	}

	var pathBytes []byte
	for _, p := range o.FilePathList {
		pathBytes = append(pathBytes, p.Bytes()...)
	}
	if len(pathBytes) > 0xFFFF {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Bytes", Err: fmt.Errorf("file path list too large: %d bytes", len(pathBytes))}
	}

	buf := make([]byte, 6, 6+len(desc)+len(pathBytes)+len(o.OptionalData))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(o.Attributes))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(pathBytes)))
	buf = append(buf, desc...)
	buf = append(buf, pathBytes...)
	buf = append(buf, o.OptionalData...)
	return buf, nil
}

// ReadLoadOption decodes a raw EFI_LOAD_OPTION record per the algorithm in
// the UEFI specification: a 6-byte header, a NUL-terminated UCS-2LE
// description, exactly FilePathListLength bytes of concatenated device-path
// chains, and whatever remains as optional data.
func ReadLoadOption(b []byte) (*LoadOption, error) {
	if len(b) < 6 {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Read", Err: fmt.Errorf("record too short: %d bytes", len(b))}
	}
	attrs := LoadOptionAttributes(binary.LittleEndian.Uint32(b[0:4]))
	pathLen := int(binary.LittleEndian.Uint16(b[4:6]))

	descBytes := b[6:]
	nulAt := -1
	for i := 0; i+1 < len(descBytes); i += 2 {
		if descBytes[i] == 0 && descBytes[i+1] == 0 {
			nulAt = i
			break
		}
	}
	if nulAt < 0 {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Read", Err: fmt.Errorf("description has no UCS-2LE NUL terminator")}
	}
	desc, err := decodeUCS2(descBytes[:nulAt])
	if err != nil {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Read", Err: err}
	}

	rest := descBytes[nulAt+2:]
	if pathLen > len(rest) {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Read", Err: fmt.Errorf("file path list length %d overruns record", pathLen)}
	}
	pathBytes := rest[:pathLen]
	optionalData := rest[pathLen:]

	var chains []DevicePath
	off := 0
	for off < len(pathBytes) {
		chain, n, err := ReadDevicePath(pathBytes[off:], 0)
		if err != nil {
			return nil, &Error{Kind: Invalid, Op: "LoadOption.Read", Err: err}
		}
		chains = append(chains, chain)
		off += n
	}
	if off != pathLen {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Read", Err: fmt.Errorf("file path list consumed %d of %d declared bytes", off, pathLen)}
	}
	if len(chains) == 0 {
		return nil, &Error{Kind: Invalid, Op: "LoadOption.Read", Err: fmt.Errorf("file path list has zero chains")}
	}

	return &LoadOption{
		Attributes:   attrs,
		Description:  desc,
		FilePathList: chains,
		OptionalData: append([]byte(nil), optionalData...),
	}, nil
}
