// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"encoding/binary"
	"fmt"
)

// --- ACPI -------------------------------------------------------------

// eisaPNPVendor is the compressed 3-letter vendor code for "PNP", used by
// every ACPI _HID device path this codec renders by name.
const eisaPNPVendor = 0x41D0

// ACPIDevicePathNode represents an ACPI _HID/_UID device, e.g. the PCI root
// bridge (PciRoot) most device paths start with.
type ACPIDevicePathNode struct {
	HID uint32
	UID uint32
}

func (n *ACPIDevicePathNode) Type() DevicePathType       { return ACPIDevicePath }
func (n *ACPIDevicePathNode) SubType() DevicePathSubType { return SubTypeACPI }
func (n *ACPIDevicePathNode) payload() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], n.HID)
	binary.LittleEndian.PutUint32(b[4:8], n.UID)
	return b
}

func eisaProduct(hid uint32) uint32 { return hid >> 16 }
func eisaVendorCode(hid uint32) uint32 { return hid & 0xFFFF }

func (n *ACPIDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	if eisaVendorCode(n.HID) == eisaPNPVendor {
		switch eisaProduct(n.HID) {
		case 0x0A03:
			return fmt.Sprintf("PciRoot(%#x)", n.UID)
		case 0x0A08:
			return fmt.Sprintf("PcieRoot(%#x)", n.UID)
		case 0x0301:
			return fmt.Sprintf("Keyboard(%#x)", n.UID)
		case 0x0501:
			return fmt.Sprintf("Serial(%#x)", n.UID)
		case 0x0604:
			return "Floppy(0)"
		}
	}
	return fmt.Sprintf("Acpi(%s,%#x)", eisaIDString(n.HID), n.UID)
}

func eisaIDString(hid uint32) string {
	v := eisaVendorCode(hid)
	c1 := byte((v>>10)&0x1F) + 'A' - 1
	c2 := byte((v>>5)&0x1F) + 'A' - 1
	c3 := byte(v&0x1F) + 'A' - 1
	return fmt.Sprintf("%c%c%c%04X", c1, c2, c3, eisaProduct(hid))
}

func decodeACPINode(b []byte) (DevicePathNode, error) {
	if len(b) != 8 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("acpi node: bad payload length %d", len(b))}
	}
	return &ACPIDevicePathNode{
		HID: binary.LittleEndian.Uint32(b[0:4]),
		UID: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// ACPIExpandedDevicePathNode adds string HID/CID/UID overrides to the
// numeric ACPI fields, rendered as AcpiEx()/AcpiExp().
type ACPIExpandedDevicePathNode struct {
	HID, UID, CID     uint32
	HIDStr, UIDStr, CIDStr string
}

func (n *ACPIExpandedDevicePathNode) Type() DevicePathType       { return ACPIDevicePath }
func (n *ACPIExpandedDevicePathNode) SubType() DevicePathSubType { return SubTypeExpandedACPI }
func (n *ACPIExpandedDevicePathNode) payload() []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], n.HID)
	binary.LittleEndian.PutUint32(b[4:8], n.UID)
	binary.LittleEndian.PutUint32(b[8:12], n.CID)
	b = append(b, []byte(n.HIDStr)...)
	b = append(b, 0)
	b = append(b, []byte(n.UIDStr)...)
	b = append(b, 0)
	b = append(b, []byte(n.CIDStr)...)
	b = append(b, 0)
	return b
}

func (n *ACPIExpandedDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	if flags.displayOnly() && n.HIDStr != "" {
		if n.UIDStr != "" {
			return fmt.Sprintf("AcpiExp(%s,%s,%s)", n.HIDStr, n.CIDStr, n.UIDStr)
		}
		return fmt.Sprintf("AcpiEx(%s,%s,%#x)", n.HIDStr, n.CIDStr, n.UID)
	}
	return fmt.Sprintf("AcpiEx(%s,%s,%#x,%#x,%#x)", eisaIDString(n.HID), eisaIDString(n.CID), n.HID, n.CID, n.UID)
}

func decodeACPIExpandedNode(b []byte) (DevicePathNode, error) {
	if len(b) < 12 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("acpi expanded node: short payload")}
	}
	n := &ACPIExpandedDevicePathNode{
		HID: binary.LittleEndian.Uint32(b[0:4]),
		UID: binary.LittleEndian.Uint32(b[4:8]),
		CID: binary.LittleEndian.Uint32(b[8:12]),
	}
	strs := splitNulTerminated(b[12:], 3)
	if len(strs) == 3 {
		n.HIDStr, n.UIDStr, n.CIDStr = strs[0], strs[1], strs[2]
	}
	return n, nil
}

func splitNulTerminated(b []byte, want int) []string {
	var out []string
	start := 0
	for i := 0; i < len(b) && len(out) < want; i++ {
		if b[i] == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	return out
}

// --- Hardware: PCI ------------------------------------------------------

// PCIDevicePathNode identifies a PCI function behind its parent bridge.
type PCIDevicePathNode struct {
	Function uint8
	Device   uint8
}

func (n *PCIDevicePathNode) Type() DevicePathType       { return HardwareDevicePath }
func (n *PCIDevicePathNode) SubType() DevicePathSubType { return SubTypePCI }
func (n *PCIDevicePathNode) payload() []byte            { return []byte{n.Function, n.Device} }
func (n *PCIDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("Pci(%#x,%#x)", n.Device, n.Function)
}

func decodePCINode(b []byte) (DevicePathNode, error) {
	if len(b) != 2 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("pci node: bad payload length %d", len(b))}
	}
	return &PCIDevicePathNode{Function: b[0], Device: b[1]}, nil
}

// --- Messaging: ATAPI -----------------------------------------------------

// ATAPIDevicePathNode identifies an ATA/ATAPI device by controller role,
// drive role, and logical unit.
type ATAPIDevicePathNode struct {
	PrimarySecondary uint8
	SlaveMaster      uint8
	LUN              uint16
}

func (n *ATAPIDevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *ATAPIDevicePathNode) SubType() DevicePathSubType { return SubTypeATAPI }
func (n *ATAPIDevicePathNode) payload() []byte {
	b := make([]byte, 4)
	b[0], b[1] = n.PrimarySecondary, n.SlaveMaster
	binary.LittleEndian.PutUint16(b[2:4], n.LUN)
	return b
}
func (n *ATAPIDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	if n.PrimarySecondary == 0 && n.SlaveMaster == 0 {
		return fmt.Sprintf("Ata(%#x)", n.LUN)
	}
	return fmt.Sprintf("Ata(%d,%d,%#x)", n.PrimarySecondary, n.SlaveMaster, n.LUN)
}

func decodeATAPINode(b []byte) (DevicePathNode, error) {
	if len(b) != 4 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("atapi node: bad payload length %d", len(b))}
	}
	return &ATAPIDevicePathNode{PrimarySecondary: b[0], SlaveMaster: b[1], LUN: binary.LittleEndian.Uint16(b[2:4])}, nil
}

// --- Messaging: SCSI ------------------------------------------------------

// SCSIDevicePathNode identifies a SCSI device by target and logical unit.
type SCSIDevicePathNode struct {
	PUN uint16
	LUN uint16
}

func (n *SCSIDevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *SCSIDevicePathNode) SubType() DevicePathSubType { return SubTypeSCSI }
func (n *SCSIDevicePathNode) payload() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], n.PUN)
	binary.LittleEndian.PutUint16(b[2:4], n.LUN)
	return b
}
func (n *SCSIDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("Scsi(%#x,%#x)", n.PUN, n.LUN)
}

func decodeSCSINode(b []byte) (DevicePathNode, error) {
	if len(b) != 4 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("scsi node: bad payload length %d", len(b))}
	}
	return &SCSIDevicePathNode{PUN: binary.LittleEndian.Uint16(b[0:2]), LUN: binary.LittleEndian.Uint16(b[2:4])}, nil
}

// --- Messaging: USB ---------------------------------------------------

// USBDevicePathNode identifies a USB device by its parent hub port and
// interface number.
type USBDevicePathNode struct {
	ParentPort uint8
	Interface  uint8
}

func (n *USBDevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *USBDevicePathNode) SubType() DevicePathSubType { return SubTypeUSB }
func (n *USBDevicePathNode) payload() []byte            { return []byte{n.ParentPort, n.Interface} }
func (n *USBDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("USB(%#x,%#x)", n.ParentPort, n.Interface)
}

func decodeUSBNode(b []byte) (DevicePathNode, error) {
	if len(b) != 2 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("usb node: bad payload length %d", len(b))}
	}
	return &USBDevicePathNode{ParentPort: b[0], Interface: b[1]}, nil
}

// --- Messaging: USB WWID ------------------------------------------------

// USBWWIDDevicePathNode identifies a USB device by its descriptor-reported
// vendor/product IDs and serial number, independent of physical port.
type USBWWIDDevicePathNode struct {
	InterfaceNumber uint16
	VendorID        uint16
	ProductID       uint16
	SerialNumber    string
}

func (n *USBWWIDDevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *USBWWIDDevicePathNode) SubType() DevicePathSubType { return SubTypeUSBWWID }
func (n *USBWWIDDevicePathNode) payload() []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], n.InterfaceNumber)
	binary.LittleEndian.PutUint16(b[2:4], n.VendorID)
	binary.LittleEndian.PutUint16(b[4:6], n.ProductID)
	serial, _ := encodeUCS2(n.SerialNumber)
	return append(b, serial...)
}
func (n *USBWWIDDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("UsbWwid(%#x,%#x,%#x,\"%s\")", n.VendorID, n.ProductID, n.InterfaceNumber, n.SerialNumber)
}

func decodeUSBWWIDNode(b []byte) (DevicePathNode, error) {
	if len(b) < 6 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("usb wwid node: short payload")}
	}
	serial, err := decodeUCS2(b[6:])
	if err != nil {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: err}
	}
	return &USBWWIDDevicePathNode{
		InterfaceNumber: binary.LittleEndian.Uint16(b[0:2]),
		VendorID:        binary.LittleEndian.Uint16(b[2:4]),
		ProductID:       binary.LittleEndian.Uint16(b[4:6]),
		SerialNumber:    serial,
	}, nil
}

// --- Messaging: MAC address ---------------------------------------------

// MACAddrDevicePathNode identifies a network interface by MAC address.
// Only the leading bytes of the 32-byte padded field are meaningful; when
// rendering, macAddrLen derives their count from IfType (6 for Ethernet,
// otherwise all 32).
type MACAddrDevicePathNode struct {
	Address [32]byte
	IfType  uint8
}

func macAddrLen(ifType uint8) int {
	if ifType == 1 {
		return 6 // Ethernet
	}
	return 32
}

func (n *MACAddrDevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *MACAddrDevicePathNode) SubType() DevicePathSubType { return SubTypeMACAddress }
func (n *MACAddrDevicePathNode) payload() []byte {
	b := make([]byte, 33)
	copy(b[0:32], n.Address[:])
	b[32] = n.IfType
	return b
}
func (n *MACAddrDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	l := macAddrLen(n.IfType)
	return fmt.Sprintf("MAC(%X,%#x)", n.Address[:l], n.IfType)
}

func decodeMACNode(b []byte) (DevicePathNode, error) {
	if len(b) != 33 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("mac node: bad payload length %d", len(b))}
	}
	n := &MACAddrDevicePathNode{IfType: b[32]}
	copy(n.Address[:], b[0:32])
	return n, nil
}

// --- Messaging: IPv4 ------------------------------------------------------

// IPv4DevicePathNode identifies an IPv4 network endpoint.
type IPv4DevicePathNode struct {
	LocalAddr   [4]byte
	RemoteAddr  [4]byte
	LocalPort   uint16
	RemotePort  uint16
	Protocol    uint16
	StaticIP    bool
	GatewayAddr [4]byte
	SubnetMask  [4]byte
}

func (n *IPv4DevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *IPv4DevicePathNode) SubType() DevicePathSubType { return SubTypeIPv4 }
func (n *IPv4DevicePathNode) payload() []byte {
	b := make([]byte, 23)
	copy(b[0:4], n.LocalAddr[:])
	copy(b[4:8], n.RemoteAddr[:])
	binary.LittleEndian.PutUint16(b[8:10], n.LocalPort)
	binary.LittleEndian.PutUint16(b[10:12], n.RemotePort)
	binary.LittleEndian.PutUint16(b[12:14], n.Protocol)
	if n.StaticIP {
		b[14] = 1
	}
	copy(b[15:19], n.GatewayAddr[:])
	copy(b[19:23], n.SubnetMask[:])
	return b
}

func ipv4String(a [4]byte) string { return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3]) }

func (n *IPv4DevicePathNode) ToString(flags DevicePathToStringFlags) string {
	if flags.displayOnly() {
		return fmt.Sprintf("IPv4(%s)", ipv4String(n.RemoteAddr))
	}
	origin := "DHCP"
	if n.StaticIP {
		origin = "Static"
	}
	return fmt.Sprintf("IPv4(%s,%#x,%s,%s,%s,%s)",
		ipv4String(n.RemoteAddr), n.Protocol, origin,
		ipv4String(n.LocalAddr), ipv4String(n.GatewayAddr), ipv4String(n.SubnetMask))
}

func decodeIPv4Node(b []byte) (DevicePathNode, error) {
	if len(b) != 23 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("ipv4 node: bad payload length %d", len(b))}
	}
	n := &IPv4DevicePathNode{
		LocalPort:  binary.LittleEndian.Uint16(b[8:10]),
		RemotePort: binary.LittleEndian.Uint16(b[10:12]),
		Protocol:   binary.LittleEndian.Uint16(b[12:14]),
		StaticIP:   b[14] != 0,
	}
	copy(n.LocalAddr[:], b[0:4])
	copy(n.RemoteAddr[:], b[4:8])
	copy(n.GatewayAddr[:], b[15:19])
	copy(n.SubnetMask[:], b[19:23])
	return n, nil
}

// --- Messaging: IPv6 ------------------------------------------------------

// IPv6DevicePathNode identifies an IPv6 network endpoint.
type IPv6DevicePathNode struct {
	LocalAddr   [16]byte
	RemoteAddr  [16]byte
	LocalPort   uint16
	RemotePort  uint16
	Protocol    uint16
	Origin      uint8
	PrefixLen   uint8
	GatewayAddr [16]byte
}

func (n *IPv6DevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *IPv6DevicePathNode) SubType() DevicePathSubType { return SubTypeIPv6 }
func (n *IPv6DevicePathNode) payload() []byte {
	size := 42
	if n.GatewayAddr != ([16]byte{}) {
		size = 58
	}
	b := make([]byte, size)
	copy(b[0:16], n.LocalAddr[:])
	copy(b[16:32], n.RemoteAddr[:])
	binary.LittleEndian.PutUint16(b[32:34], n.LocalPort)
	binary.LittleEndian.PutUint16(b[34:36], n.RemotePort)
	binary.LittleEndian.PutUint16(b[36:38], n.Protocol)
	b[38] = n.Origin
	b[39] = n.PrefixLen
	if size == 58 {
		copy(b[42:58], n.GatewayAddr[:])
	}
	return b
}

func ipv6String(a [16]byte) string {
	return fmt.Sprintf("%x:%x:%x:%x:%x:%x:%x:%x",
		binary.BigEndian.Uint16(a[0:2]), binary.BigEndian.Uint16(a[2:4]),
		binary.BigEndian.Uint16(a[4:6]), binary.BigEndian.Uint16(a[6:8]),
		binary.BigEndian.Uint16(a[8:10]), binary.BigEndian.Uint16(a[10:12]),
		binary.BigEndian.Uint16(a[12:14]), binary.BigEndian.Uint16(a[14:16]))
}

func (n *IPv6DevicePathNode) ToString(flags DevicePathToStringFlags) string {
	if flags.displayOnly() {
		return fmt.Sprintf("IPv6(%s)", ipv6String(n.RemoteAddr))
	}
	origin := "Static"
	switch n.Origin {
	case 0:
		origin = "Static"
	case 1:
		origin = "StatelessAutoConfigure"
	case 2:
		origin = "StatefulAutoConfigure"
	}
	return fmt.Sprintf("IPv6(%s,%#x,%s,%s,%s)", ipv6String(n.RemoteAddr), n.Protocol, origin, ipv6String(n.LocalAddr), ipv6String(n.GatewayAddr))
}

func decodeIPv6Node(b []byte) (DevicePathNode, error) {
	if len(b) != 42 && len(b) != 58 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("ipv6 node: bad payload length %d", len(b))}
	}
	n := &IPv6DevicePathNode{
		LocalPort:  binary.LittleEndian.Uint16(b[32:34]),
		RemotePort: binary.LittleEndian.Uint16(b[34:36]),
		Protocol:   binary.LittleEndian.Uint16(b[36:38]),
		Origin:     b[38],
		PrefixLen:  b[39],
	}
	copy(n.LocalAddr[:], b[0:16])
	copy(n.RemoteAddr[:], b[16:32])
	if len(b) == 58 {
		copy(n.GatewayAddr[:], b[42:58])
	}
	return n, nil
}

// --- Messaging: SATA ------------------------------------------------------

// SATADevicePathNode identifies a SATA device by HBA port, port
// multiplier port, and logical unit.
type SATADevicePathNode struct {
	HBAPort              uint16
	PortMultiplierPort   uint16
	LUN                  uint16
}

func (n *SATADevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *SATADevicePathNode) SubType() DevicePathSubType { return SubTypeSATA }
func (n *SATADevicePathNode) payload() []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], n.HBAPort)
	binary.LittleEndian.PutUint16(b[2:4], n.PortMultiplierPort)
	binary.LittleEndian.PutUint16(b[4:6], n.LUN)
	return b
}
func (n *SATADevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("Sata(%#x,%#x,%#x)", n.HBAPort, n.PortMultiplierPort, n.LUN)
}

func decodeSATANode(b []byte) (DevicePathNode, error) {
	if len(b) != 6 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("sata node: bad payload length %d", len(b))}
	}
	return &SATADevicePathNode{
		HBAPort:            binary.LittleEndian.Uint16(b[0:2]),
		PortMultiplierPort: binary.LittleEndian.Uint16(b[2:4]),
		LUN:                binary.LittleEndian.Uint16(b[4:6]),
	}, nil
}

// --- Messaging: NVMe namespace -------------------------------------------

// NVMENamespaceDevicePathNode identifies an NVMe namespace by its ID and
// the 64-bit EUI the controller reports for it.
type NVMENamespaceDevicePathNode struct {
	NamespaceID uint32
	EUI64       uint64
}

func (n *NVMENamespaceDevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *NVMENamespaceDevicePathNode) SubType() DevicePathSubType { return SubTypeNVMENamespace }
func (n *NVMENamespaceDevicePathNode) payload() []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], n.NamespaceID)
	binary.LittleEndian.PutUint64(b[4:12], n.EUI64)
	return b
}
func (n *NVMENamespaceDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("NVMe(%#x,%02X-%02X-%02X-%02X-%02X-%02X-%02X-%02X)", n.NamespaceID,
		byte(n.EUI64>>56), byte(n.EUI64>>48), byte(n.EUI64>>40), byte(n.EUI64>>32),
		byte(n.EUI64>>24), byte(n.EUI64>>16), byte(n.EUI64>>8), byte(n.EUI64))
}

func decodeNVMENamespaceNode(b []byte) (DevicePathNode, error) {
	if len(b) != 12 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("nvme namespace node: bad payload length %d", len(b))}
	}
	return &NVMENamespaceDevicePathNode{
		NamespaceID: binary.LittleEndian.Uint32(b[0:4]),
		EUI64:       binary.LittleEndian.Uint64(b[4:12]),
	}, nil
}

// --- Messaging: URI -------------------------------------------------------

// URIDevicePathNode holds a literal URI, as used by network/HTTP boot
// entries (e.g. iPXE's http:// boot image references).
type URIDevicePathNode struct {
	URI string
}

func (n *URIDevicePathNode) Type() DevicePathType       { return MessagingDevicePath }
func (n *URIDevicePathNode) SubType() DevicePathSubType { return SubTypeURI }
func (n *URIDevicePathNode) payload() []byte            { return []byte(n.URI) }
func (n *URIDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("Uri(%s)", n.URI)
}

func decodeURINode(b []byte) (DevicePathNode, error) {
	return &URIDevicePathNode{URI: string(b)}, nil
}

// --- Media: Hard Drive ----------------------------------------------------

// HardDriveSignature identifies a partition's disk signature, one of the
// UEFI-defined forms (none, MBR, or GUID/GPT).
type HardDriveSignature interface {
	signatureType() uint8
	signatureBytes() [16]byte
	String() string
}

type emptyHardDriveSignature struct{}

func (emptyHardDriveSignature) signatureType() uint8    { return 0 }
func (emptyHardDriveSignature) signatureBytes() [16]byte { return [16]byte{} }
func (emptyHardDriveSignature) String() string          { return "0" }

// MBRHardDriveSignature is a 4-byte MBR disk signature.
type MBRHardDriveSignature uint32

func (s MBRHardDriveSignature) signatureType() uint8 { return 1 }
func (s MBRHardDriveSignature) signatureBytes() [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint32(b[0:4], uint32(s))
	return b
}
func (s MBRHardDriveSignature) String() string { return fmt.Sprintf("%#08x", uint32(s)) }

// GUIDHardDriveSignature is a GPT partition unique GUID.
type GUIDHardDriveSignature GUID

func (s GUIDHardDriveSignature) signatureType() uint8     { return 2 }
func (s GUIDHardDriveSignature) signatureBytes() [16]byte { return [16]byte(s) }
func (s GUIDHardDriveSignature) String() string           { return GUID(s).StringUpper() }

func decodeHardDriveSignature(sigType uint8, b [16]byte) HardDriveSignature {
	switch sigType {
	case 1:
		return MBRHardDriveSignature(binary.LittleEndian.Uint32(b[0:4]))
	case 2:
		return GUIDHardDriveSignature(b)
	default:
		return emptyHardDriveSignature{}
	}
}

// HardDriveDevicePathNode identifies a disk partition by partition number,
// byte extent, and disk signature.
type HardDriveDevicePathNode struct {
	PartitionNumber uint32
	PartitionStart  uint64
	PartitionSize   uint64
	Signature       HardDriveSignature
	MBRType         uint8 // 1 = MBR, 2 = GPT
}

func (n *HardDriveDevicePathNode) Type() DevicePathType       { return MediaDevicePath }
func (n *HardDriveDevicePathNode) SubType() DevicePathSubType { return SubTypeHardDrive }
func (n *HardDriveDevicePathNode) payload() []byte {
	b := make([]byte, 38)
	binary.LittleEndian.PutUint32(b[0:4], n.PartitionNumber)
	binary.LittleEndian.PutUint64(b[4:12], n.PartitionStart)
	binary.LittleEndian.PutUint64(b[12:20], n.PartitionSize)
	sig := n.Signature
	if sig == nil {
		sig = emptyHardDriveSignature{}
	}
	sb := sig.signatureBytes()
	copy(b[20:36], sb[:])
	b[36] = n.MBRType
	b[37] = sig.signatureType()
	return b
}

func (n *HardDriveDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	partType := "MBR"
	if n.MBRType == 2 {
		partType = "GPT"
	}
	sig := n.Signature
	if sig == nil {
		sig = emptyHardDriveSignature{}
	}
	return fmt.Sprintf("HD(%d,%s,%s,0x%X,0x%X)", n.PartitionNumber, partType, sig.String(), n.PartitionStart, n.PartitionSize)
}

func decodeHardDriveNode(b []byte) (DevicePathNode, error) {
	if len(b) != 38 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("hard drive node: bad payload length %d", len(b))}
	}
	var sigBytes [16]byte
	copy(sigBytes[:], b[20:36])
	return &HardDriveDevicePathNode{
		PartitionNumber: binary.LittleEndian.Uint32(b[0:4]),
		PartitionStart:  binary.LittleEndian.Uint64(b[4:12]),
		PartitionSize:   binary.LittleEndian.Uint64(b[12:20]),
		MBRType:         b[36],
		Signature:       decodeHardDriveSignature(b[37], sigBytes),
	}, nil
}

// --- Media: CD-ROM El Torito entry ----------------------------------------

// CDROMDevicePathNode identifies a CD-ROM El Torito boot entry by its
// boot-catalog entry number and byte extent.
type CDROMDevicePathNode struct {
	BootEntry uint32
	Start     uint64
	Size      uint64
}

func (n *CDROMDevicePathNode) Type() DevicePathType       { return MediaDevicePath }
func (n *CDROMDevicePathNode) SubType() DevicePathSubType { return SubTypeCDROM }
func (n *CDROMDevicePathNode) payload() []byte {
	b := make([]byte, 20)
	binary.LittleEndian.PutUint32(b[0:4], n.BootEntry)
	binary.LittleEndian.PutUint64(b[4:12], n.Start)
	binary.LittleEndian.PutUint64(b[12:20], n.Size)
	return b
}
func (n *CDROMDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("CDROM(%#x,%#x,%#x)", n.BootEntry, n.Start, n.Size)
}

func decodeCDROMNode(b []byte) (DevicePathNode, error) {
	if len(b) != 20 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("cdrom node: bad payload length %d", len(b))}
	}
	return &CDROMDevicePathNode{
		BootEntry: binary.LittleEndian.Uint32(b[0:4]),
		Start:     binary.LittleEndian.Uint64(b[4:12]),
		Size:      binary.LittleEndian.Uint64(b[12:20]),
	}, nil
}

// --- Media: File Path -------------------------------------------------

// FilePathDevicePathNode is a literal, backslash-separated firmware path
// segment, rendered verbatim with no wrapping syntax.
type FilePathDevicePathNode string

func (n FilePathDevicePathNode) Type() DevicePathType       { return MediaDevicePath }
func (n FilePathDevicePathNode) SubType() DevicePathSubType { return SubTypeFilePath }
func (n FilePathDevicePathNode) payload() []byte {
	b, _ := encodeUCS2(string(n) + "\x00")
	return b
}
func (n FilePathDevicePathNode) ToString(flags DevicePathToStringFlags) string { return string(n) }

func decodeFilePathNode(b []byte) (DevicePathNode, error) {
	if len(b) < 2 || len(b)%2 != 0 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("file path node: bad payload length %d", len(b))}
	}
	s, err := decodeUCS2(b)
	if err != nil {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: err}
	}
	// strip the trailing wide NUL the UEFI spec requires for this node.
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return FilePathDevicePathNode(s), nil
}

// --- Media: firmware volume / firmware file -------------------------------

// FWVolDevicePathNode identifies a firmware volume by GUID.
type FWVolDevicePathNode GUID

func (n FWVolDevicePathNode) Type() DevicePathType       { return MediaDevicePath }
func (n FWVolDevicePathNode) SubType() DevicePathSubType { return SubTypeFWVol }
func (n FWVolDevicePathNode) payload() []byte            { b := GUID(n); return b[:] }
func (n FWVolDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("Fv(%s)", GUID(n).StringUpper())
}

func decodeFWVolNode(b []byte) (DevicePathNode, error) {
	if len(b) != 16 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("fw vol node: bad payload length %d", len(b))}
	}
	var g GUID
	copy(g[:], b)
	return FWVolDevicePathNode(g), nil
}

// FWFileDevicePathNode identifies a file within a firmware volume by GUID.
type FWFileDevicePathNode GUID

func (n FWFileDevicePathNode) Type() DevicePathType       { return MediaDevicePath }
func (n FWFileDevicePathNode) SubType() DevicePathSubType { return SubTypeFWFile }
func (n FWFileDevicePathNode) payload() []byte            { b := GUID(n); return b[:] }
func (n FWFileDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("FvFile(%s)", GUID(n).StringUpper())
}

func decodeFWFileNode(b []byte) (DevicePathNode, error) {
	if len(b) != 16 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("fw file node: bad payload length %d", len(b))}
	}
	var g GUID
	copy(g[:], b)
	return FWFileDevicePathNode(g), nil
}

// --- Media: relative offset range -----------------------------------------

// MediaRelOffsetRangeDevicePathNode names a byte range within the
// enclosing medium, used to carve out a compressed/embedded payload.
type MediaRelOffsetRangeDevicePathNode struct {
	Start uint64
	End   uint64
}

func (n *MediaRelOffsetRangeDevicePathNode) Type() DevicePathType       { return MediaDevicePath }
func (n *MediaRelOffsetRangeDevicePathNode) SubType() DevicePathSubType { return SubTypeRelativeOffsetRange }
func (n *MediaRelOffsetRangeDevicePathNode) payload() []byte {
	b := make([]byte, 20)
	binary.LittleEndian.PutUint64(b[4:12], n.Start)
	binary.LittleEndian.PutUint64(b[12:20], n.End)
	return b
}
func (n *MediaRelOffsetRangeDevicePathNode) ToString(flags DevicePathToStringFlags) string {
	return fmt.Sprintf("Offset(%#x,%#x)", n.Start, n.End)
}

func decodeRelativeOffsetRangeNode(b []byte) (DevicePathNode, error) {
	if len(b) != 20 {
		return nil, &Error{Kind: Invalid, Op: "DevicePath.Read", Err: fmt.Errorf("relative offset range node: bad payload length %d", len(b))}
	}
	return &MediaRelOffsetRangeDevicePathNode{
		Start: binary.LittleEndian.Uint64(b[4:12]),
		End:   binary.LittleEndian.Uint64(b[12:20]),
	}, nil
}
