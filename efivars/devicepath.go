// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DevicePathType is the top-level Type field of a device-path node header.
type DevicePathType uint8

const (
	HardwareDevicePath  DevicePathType = 0x01
	ACPIDevicePath      DevicePathType = 0x02
	MessagingDevicePath DevicePathType = 0x03
	MediaDevicePath     DevicePathType = 0x04
	BBSDevicePath       DevicePathType = 0x05
	EndDevicePath       DevicePathType = 0x7F
)

func (t DevicePathType) String() string {
	switch t {
	case HardwareDevicePath:
		return "Hardware"
	case ACPIDevicePath:
		return "ACPI"
	case MessagingDevicePath:
		return "Messaging"
	case MediaDevicePath:
		return "Media"
	case BBSDevicePath:
		return "BBS"
	case EndDevicePath:
		return "End"
	default:
		return fmt.Sprintf("DevicePathType(%#02x)", uint8(t))
	}
}

// DevicePathSubType is the SubType field of a device-path node header; its
// meaning depends on the enclosing DevicePathType.
type DevicePathSubType uint8

const (
	SubTypePCI                 DevicePathSubType = 0x01
	SubTypeVendorHW            DevicePathSubType = 0x04
	SubTypeACPI                DevicePathSubType = 0x01
	SubTypeExpandedACPI        DevicePathSubType = 0x02
	SubTypeATAPI               DevicePathSubType = 0x01
	SubTypeSCSI                DevicePathSubType = 0x02
	SubTypeUSB                 DevicePathSubType = 0x05
	SubTypeVendorMessaging     DevicePathSubType = 0x0A
	SubTypeMACAddress          DevicePathSubType = 0x0B
	SubTypeIPv4                DevicePathSubType = 0x0C
	SubTypeIPv6                DevicePathSubType = 0x0D
	SubTypeUSBClass            DevicePathSubType = 0x0F
	SubTypeUSBWWID             DevicePathSubType = 0x10
	SubTypeSATA                DevicePathSubType = 0x12
	SubTypeNVMENamespace       DevicePathSubType = 0x17
	SubTypeURI                 DevicePathSubType = 0x18
	SubTypeHardDrive           DevicePathSubType = 0x01
	SubTypeCDROM               DevicePathSubType = 0x02
	SubTypeVendorMedia         DevicePathSubType = 0x03
	SubTypeFilePath            DevicePathSubType = 0x04
	SubTypeFWFile              DevicePathSubType = 0x06
	SubTypeFWVol               DevicePathSubType = 0x07
	SubTypeRelativeOffsetRange DevicePathSubType = 0x08
	SubTypeEndInstance         DevicePathSubType = 0x01
	SubTypeEndEntire           DevicePathSubType = 0xFF
)

// nodeHeaderLen is the fixed 4-byte Type|SubType|Length header every node
// begins with.
const nodeHeaderLen = 4

// DevicePathToStringFlags controls text rendering, mirroring the two
// loosely-defined bits the UEFI specification allows a renderer to honour.
type DevicePathToStringFlags uint

const (
	// DisplayOnly asks nodes to use the shorter, human-facing form,
	// e.g. rendering an IPv4 or IPv6 node as its remote address alone.
	DisplayOnly DevicePathToStringFlags = 1 << iota
	// AllowShortcuts is accepted for callers that pass it, but no node in
	// this package renders differently when it is set: well-known node
	// sequences are not collapsed to shortcut forms.
	AllowShortcuts
)

func (f DevicePathToStringFlags) displayOnly() bool    { return f&DisplayOnly != 0 }
func (f DevicePathToStringFlags) allowShortcuts() bool { return f&AllowShortcuts != 0 }

// DevicePathNode is one element of a device path: a typed, length-prefixed
// binary record that also knows how to render itself as text.
type DevicePathNode interface {
	Type() DevicePathType
	SubType() DevicePathSubType
	// payload returns the node's binary body, excluding the 4-byte header.
	payload() []byte
	// ToString renders this single node's text form, without its
	// neighbours or the leading/trailing '/' separators.
	ToString(flags DevicePathToStringFlags) string
}

// nodeLength returns a node's full wire length, header included.
func nodeLength(n DevicePathNode) uint16 {
	return uint16(nodeHeaderLen + len(n.payload()))
}

// writeNode emits a node's header and payload to w.
func writeNode(w io.Writer, n DevicePathNode) error {
	p := n.payload()
	hdr := [4]byte{byte(n.Type()), byte(n.SubType())}
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(nodeHeaderLen+len(p)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// DevicePath is a non-empty ordered chain of non-End nodes. The terminating
// End-Entire node is implicit: it is added on encode and stripped on decode,
// so that callers never have to special-case it when inspecting a path.
type DevicePath []DevicePathNode

// Bytes encodes the full chain, including the trailing End-Entire node.
func (p DevicePath) Bytes() []byte {
	buf := make([]byte, 0, p.Length())
	w := &byteSink{buf: buf}
	_ = p.Write(w)
	return w.buf
}

type byteSink struct{ buf []byte }

func (s *byteSink) Write(b []byte) (int, error) {
	s.buf = append(s.buf, b...)
	return len(b), nil
}

// Write encodes the full chain, including the trailing End-Entire node, to w.
func (p DevicePath) Write(w io.Writer) error {
	for _, n := range p {
		if err := writeNode(w, n); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{byte(EndDevicePath), byte(SubTypeEndEntire), 4, 0})
	return err
}

// Length is the encoded byte length of the chain, End node included.
func (p DevicePath) Length() int {
	n := nodeHeaderLen // End-Entire
	for _, node := range p {
		n += int(nodeLength(node))
	}
	return n
}

// String renders the chain with both flags clear, the canonical form used
// for round-trip comparisons.
func (p DevicePath) String() string {
	return p.ToString(0)
}

// ToString renders the full chain as '/'-separated node text.
func (p DevicePath) ToString(flags DevicePathToStringFlags) string {
	s := ""
	for i, n := range p {
		if i > 0 {
			s += "/"
		}
		s += n.ToString(flags)
	}
	return s
}

// GenericDevicePathNode is the fallback representation for any
// (Type, SubType) the codec doesn't have a dedicated parser for. It never
// loses information: round-tripping through ToString/FromText reproduces
// the original bytes exactly.
type GenericDevicePathNode struct {
	NodeType    DevicePathType
	NodeSubType DevicePathSubType
	Data        []byte
}

func (n *GenericDevicePathNode) Type() DevicePathType       { return n.NodeType }
func (n *GenericDevicePathNode) SubType() DevicePathSubType { return n.NodeSubType }
func (n *GenericDevicePathNode) payload() []byte            { return n.Data }

func (n *GenericDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("Path(%d,%d,%X)", uint8(n.NodeType), uint8(n.NodeSubType), n.Data)
}

// decodeNode dispatches on (Type, SubType) to build the concrete node type
// for hdr, consuming exactly len(payload) bytes of body.
func decodeNode(hdrType DevicePathType, hdrSubType DevicePathSubType, payload []byte) (DevicePathNode, error) {
	switch hdrType {
	case ACPIDevicePath:
		switch hdrSubType {
		case SubTypeACPI:
			return decodeACPINode(payload)
		case SubTypeExpandedACPI:
			return decodeACPIExpandedNode(payload)
		}
	case HardwareDevicePath:
		switch hdrSubType {
		case SubTypePCI:
			return decodePCINode(payload)
		}
	case MessagingDevicePath:
		switch hdrSubType {
		case SubTypeATAPI:
			return decodeATAPINode(payload)
		case SubTypeSCSI:
			return decodeSCSINode(payload)
		case SubTypeUSB:
			return decodeUSBNode(payload)
		case SubTypeMACAddress:
			return decodeMACNode(payload)
		case SubTypeIPv4:
			return decodeIPv4Node(payload)
		case SubTypeIPv6:
			return decodeIPv6Node(payload)
		case SubTypeSATA:
			return decodeSATANode(payload)
		case SubTypeUSBWWID:
			return decodeUSBWWIDNode(payload)
		case SubTypeNVMENamespace:
			return decodeNVMENamespaceNode(payload)
		case SubTypeURI:
			return decodeURINode(payload)
		}
	case MediaDevicePath:
		switch hdrSubType {
		case SubTypeHardDrive:
			return decodeHardDriveNode(payload)
		case SubTypeCDROM:
			return decodeCDROMNode(payload)
		case SubTypeFilePath:
			return decodeFilePathNode(payload)
		case SubTypeFWFile:
			return decodeFWFileNode(payload)
		case SubTypeFWVol:
			return decodeFWVolNode(payload)
		case SubTypeRelativeOffsetRange:
			return decodeRelativeOffsetRangeNode(payload)
		}
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	return &GenericDevicePathNode{NodeType: hdrType, NodeSubType: hdrSubType, Data: data}, nil
}

// ReadDevicePath decodes a full chain from the start of b, requiring that
// it fit within len(b) and, when maxLen > 0, within maxLen bytes
// (maxLen==0 means bounded by len(b) only). Decoding stops at the first
// End-Entire node; any bytes after it are left unread. It returns the parsed
// chain and the number of bytes consumed.
func ReadDevicePath(b []byte, maxLen int) (DevicePath, int, error) {
	limit := len(b)
	if maxLen > 0 && maxLen < limit {
		limit = maxLen
	}
	var chain DevicePath
	off := 0
	for {
		if off+nodeHeaderLen > limit {
			return nil, 0, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("truncated node header at offset %d", off)}
		}
		hdrType := DevicePathType(b[off])
		hdrSubType := DevicePathSubType(b[off+1])
		length := binary.LittleEndian.Uint16(b[off+2 : off+4])
		if length < nodeHeaderLen {
			return nil, 0, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("node length %d < %d at offset %d", length, nodeHeaderLen, off)}
		}
		if off+int(length) > limit {
			return nil, 0, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("node at offset %d overruns bound", off)}
		}
		if hdrType == EndDevicePath && hdrSubType == SubTypeEndEntire {
			if length != nodeHeaderLen {
				return nil, 0, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("end-entire node has non-minimal length %d", length)}
			}
			off += nodeHeaderLen
			if len(chain) == 0 {
				return nil, 0, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("chain has zero non-end nodes")}
			}
			return chain, off, nil
		}
		payload := b[off+nodeHeaderLen : off+int(length)]
		node, err := decodeNode(hdrType, hdrSubType, payload)
		if err != nil {
			return nil, 0, err
		}
		chain = append(chain, node)
		off += int(length)
	}
}

// Validate reports whether a prefix of b up to maxLen (0 = unbounded) forms
// a well-formed chain: every node length >= 4, no overrun, an End-Entire
// terminator present, and at least one non-End node.
func Validate(b []byte, maxLen int) bool {
	_, _, err := ReadDevicePath(b, maxLen)
	return err == nil
}
