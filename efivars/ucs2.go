// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efivars

import (
	"golang.org/x/text/encoding/unicode"
)

var ucs2le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encodeUCS2 converts a UTF-8 string to UCS-2LE bytes, without any
// terminating NUL. Callers that need the wide NUL append it themselves
// (see LoadOption.Bytes), since not every caller wants one (e.g. the
// UsbWwid node's serial-number field is encoded without one).
func encodeUCS2(s string) ([]byte, error) {
	enc := ucs2le.NewEncoder()
	return enc.Bytes([]byte(s))
}

// decodeUCS2 converts UCS-2LE bytes (no trailing NUL) to a UTF-8 string.
func decodeUCS2(b []byte) (string, error) {
	dec := ucs2le.NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
