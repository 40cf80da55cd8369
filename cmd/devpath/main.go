// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

// Command devpath round-trips a single UEFI device path between its binary
// wire form and its textual representation: binary on stdin produces text
// on stdout, and -t TEXT produces binary on stdout.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/uefi-tools/bootvars/efivars"
)

func main() {
	displayOnly := flag.Bool("d", false, "render using the shorter display-only form")
	allowShortcuts := flag.Bool("s", false, "pass the AllowShortcuts flag to the renderer (no node renders differently with it)")
	text := flag.String("t", "", "parse TEXT into a binary device path instead of reading binary from stdin")
	allowImplausible := flag.Bool("i", false, "accept text that looks like an unrecognised typed node instead of rejecting it")
	flag.Parse()

	if *text != "" {
		chain, err := efivars.FromText(*text, *allowImplausible)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := os.Stdout.Write(chain.Bytes()); err != nil {
			log.Fatal(err)
		}
		return
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatal(err)
	}
	chain, _, err := efivars.ReadDevicePath(raw, 0)
	if err != nil {
		log.Fatal(err)
	}

	var flags efivars.DevicePathToStringFlags
	if *displayOnly {
		flags |= efivars.DisplayOnly
	}
	if *allowShortcuts {
		flags |= efivars.AllowShortcuts
	}
	if _, err := io.WriteString(os.Stdout, chain.ToString(flags)+"\n"); err != nil {
		log.Fatal(err)
	}
}
