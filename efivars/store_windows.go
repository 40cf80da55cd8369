// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

//go:build windows

package efivars

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32                           = windows.NewLazySystemDLL("kernel32.dll")
	procGetFirmwareEnvironmentVariableW   = modkernel32.NewProc("GetFirmwareEnvironmentVariableW")
	procSetFirmwareEnvironmentVariableW   = modkernel32.NewProc("SetFirmwareEnvironmentVariableW")
	procGetFirmwareEnvironmentVariableExW = modkernel32.NewProc("GetFirmwareEnvironmentVariableExW")
	procSetFirmwareEnvironmentVariableExW = modkernel32.NewProc("SetFirmwareEnvironmentVariableExW")
)

// firmwareProbeSize is the initial buffer size the backend probes with
// before growing, since the Windows firmware-variable API offers no length
// query of its own.
const firmwareProbeSize = 4096

// windowsStore implements VariableStore against the Windows firmware
// environment variable API (GetFirmwareEnvironmentVariable family), which
// requires the SE_SYSTEM_ENVIRONMENT_NAME privilege to be enabled on the
// calling process's token.
type windowsStore struct {
	privilegesRaised bool
}

// NewVariableStore returns the platform's VariableStore implementation.
func NewVariableStore() VariableStore {
	return &windowsStore{}
}

func (s *windowsStore) ensurePrivilege() error {
	if s.privilegesRaised {
		return nil
	}
	if err := raiseSystemEnvironmentPrivilege(); err != nil {
		return &Error{Kind: PermissionDenied, Op: "VariableStore", Err: err}
	}
	s.privilegesRaised = true
	return nil
}

func raiseSystemEnvironmentPrivilege() error {
	var token windows.Token
	proc, err := windows.GetCurrentProcess()
	if err != nil {
		return err
	}
	if err := windows.OpenProcessToken(proc, windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token); err != nil {
		return err
	}
	defer token.Close()

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, windows.StringToUTF16Ptr("SeSystemEnvironmentPrivilege"), &luid); err != nil {
		return err
	}

	privs := windows.Tokenprivileges{
		PrivilegeCount: 1,
		Privileges: [1]windows.LUIDAndAttributes{
			{Luid: luid, Attributes: windows.SE_PRIVILEGE_ENABLED},
		},
	}
	return windows.AdjustTokenPrivileges(token, false, &privs, 0, nil, nil)
}

func (s *windowsStore) Read(name string) ([]byte, VariableAttributes, error) {
	if err := s.ensurePrivilege(); err != nil {
		return nil, 0, err
	}
	namePtr, _ := syscall.UTF16PtrFromString(name)
	guidPtr, _ := syscall.UTF16PtrFromString("{" + GUIDGlobal.String() + "}")

	size := uint32(firmwareProbeSize)
	for {
		buf := make([]uint16, size/2)
		var attrs uint32
		r, _, callErr := procGetFirmwareEnvironmentVariableExW.Call(
			uintptr(unsafe.Pointer(namePtr)),
			uintptr(unsafe.Pointer(guidPtr)),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(size),
			uintptr(unsafe.Pointer(&attrs)),
		)
		if r != 0 {
			data := unsafe.Slice((*byte)(unsafe.Pointer(&buf[0])), int(r))
			out := make([]byte, int(r))
			copy(out, data)
			return out, VariableAttributes(attrs), nil
		}
		if callErr == windows.ERROR_INSUFFICIENT_BUFFER {
			size *= 2
			continue
		}
		if callErr == windows.ERROR_ENVVAR_NOT_FOUND {
			return nil, 0, &Error{Kind: NotFound, Op: "VariableStore.Read", Name: name, Err: callErr}
		}
		return nil, 0, &Error{Kind: Io, Op: "VariableStore.Read", Name: name, Err: callErr}
	}
}

func (s *windowsStore) Write(name string, data []byte) error {
	if err := s.ensurePrivilege(); err != nil {
		return err
	}
	namePtr, _ := syscall.UTF16PtrFromString(name)
	guidPtr, _ := syscall.UTF16PtrFromString("{" + GUIDGlobal.String() + "}")

	var dataPtr unsafe.Pointer
	if len(data) > 0 {
		dataPtr = unsafe.Pointer(&data[0])
	}
	r, _, callErr := procSetFirmwareEnvironmentVariableExW.Call(
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(unsafe.Pointer(guidPtr)),
		uintptr(dataPtr),
		uintptr(len(data)),
		uintptr(DefaultWriteAttributes),
	)
	if r == 0 {
		if callErr == windows.ERROR_ACCESS_DENIED {
			return &Error{Kind: PermissionDenied, Op: "VariableStore.Write", Name: name, Err: callErr}
		}
		return &Error{Kind: Io, Op: "VariableStore.Write", Name: name, Err: callErr}
	}
	return nil
}

func (s *windowsStore) Delete(name string) error {
	if err := s.ensurePrivilege(); err != nil {
		return err
	}
	if !s.Exists(name) {
		return &Error{Kind: NotFound, Op: "VariableStore.Delete", Name: name, Err: fmt.Errorf("variable does not exist")}
	}
	namePtr, _ := syscall.UTF16PtrFromString(name)
	guidPtr, _ := syscall.UTF16PtrFromString("{" + GUIDGlobal.String() + "}")
	r, _, callErr := procSetFirmwareEnvironmentVariableW.Call(
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(unsafe.Pointer(guidPtr)),
		0, 0,
	)
	if r == 0 {
		return &Error{Kind: Io, Op: "VariableStore.Delete", Name: name, Err: callErr}
	}
	return nil
}

func (s *windowsStore) Exists(name string) bool {
	_, _, err := s.Read(name)
	return err == nil
}

func (s *windowsStore) List() ([]string, error) {
	return nil, &Error{Kind: Unsupported, Op: "VariableStore.List", Err: fmt.Errorf("the Windows firmware-variable API does not support enumeration")}
}
