// This file is part of bootvars
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

// Command bootvarsctl inspects and edits the UEFI Boot####/Driver####/
// SysPrep#### load option variables through the efibootmgr package: show
// lists entries, add creates one, mod edits one in place, and del removes
// one.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/uefi-tools/bootvars/efibootmgr"
	"github.com/uefi-tools/bootvars/efivars"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "show":
		err = runShow(os.Args[2:])
	case "add":
		err = runAdd(os.Args[2:])
	case "mod":
		err = runMod(os.Args[2:])
	case "del":
		err = runDel(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bootvarsctl {show|add|mod|del} [flags]")
}

// entryFlags holds the flag set common to add and mod: everything needed to
// populate or update a BootEntry's fields.
type entryFlags struct {
	typ         string
	position    int
	name        string
	attributes  uint
	description string
	paths       stringList
	data        string
	quiet       bool
}

// stringList accumulates repeated occurrences of a flag into a slice, for
// --path, which may be given more than once.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func bindEntryFlags(fs *flag.FlagSet) *entryFlags {
	f := &entryFlags{position: -1}
	fs.StringVar(&f.typ, "type", "boot", "entry class: boot, driver, or sysprep")
	fs.IntVar(&f.position, "position", -1, "0-based position in the order list (add: where to insert; mod/del: which entry)")
	fs.StringVar(&f.name, "name", "", "variable name (e.g. Boot0003) identifying the entry directly, as an alternative to --position")
	fs.UintVar(&f.attributes, "attributes", uint(efivars.LoadOptionActive), "raw LoadOptionAttributes value")
	fs.StringVar(&f.description, "description", "", "human-readable label")
	fs.Var(&f.paths, "path", "device path in text form; may be repeated")
	fs.StringVar(&f.data, "data", "", "base64-encoded optional trailing data")
	fs.BoolVar(&f.quiet, "quiet", false, "suppress the summary printed after a successful change")
	return f
}

func entryType(s string) (efivars.EntryType, error) {
	switch strings.ToLower(s) {
	case "boot":
		return efivars.Boot, nil
	case "driver":
		return efivars.Driver, nil
	case "sysprep":
		return efivars.SysPrep, nil
	default:
		return 0, fmt.Errorf("unknown --type %q (want boot, driver, or sysprep)", s)
	}
}

func findByNameOrPosition(entries []*efibootmgr.BootEntry, name string, position int) (*efibootmgr.BootEntry, int, error) {
	if name != "" {
		for i, e := range entries {
			if e.Name() == name {
				return e, i, nil
			}
		}
		return nil, -1, fmt.Errorf("no entry named %q", name)
	}
	if position < 0 || position >= len(entries) {
		return nil, -1, fmt.Errorf("--position %d out of range (have %d entries)", position, len(entries))
	}
	return entries[position], position, nil
}

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	typ := fs.String("type", "", "restrict to one entry class: boot, driver, or sysprep (default: all three)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store := efivars.NewVariableStore()
	mgr := efibootmgr.NewBootEntryManager(store)

	types := []efivars.EntryType{efivars.Boot, efivars.Driver, efivars.SysPrep}
	if *typ != "" {
		t, err := entryType(*typ)
		if err != nil {
			return err
		}
		types = []efivars.EntryType{t}
	}

	for _, t := range types {
		entries, err := mgr.LoadAll(t)
		if err != nil {
			return err
		}
		for i, e := range entries {
			printEntry(i, e)
		}
	}
	return nil
}

func printEntry(position int, e *efibootmgr.BootEntry) {
	fmt.Printf("%s (position %d)\n", e.Name(), position)
	fmt.Printf("  Description: %s\n", e.Description())
	fmt.Printf("  Attributes:  %#08x\n", uint32(e.Attributes()))
	for i := 0; i < e.NumPaths(); i++ {
		text, err := e.PathText(i, 0)
		if err != nil {
			text = fmt.Sprintf("<unprintable: %v>", err)
		}
		fmt.Printf("  Path[%d]:     %s\n", i, text)
	}
	if data := e.Data(); len(data) > 0 {
		fmt.Printf("  Data:        %s\n", base64.StdEncoding.EncodeToString(data))
	}
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	f := bindEntryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := entryType(f.typ)
	if err != nil {
		return err
	}
	if len(f.paths) == 0 {
		return fmt.Errorf("add requires at least one --path")
	}

	e := efibootmgr.NewBootEntry(t)
	if f.description != "" {
		e.SetDescription(f.description)
	}
	e.SetAttributes(efivars.LoadOptionAttributes(f.attributes))
	if err := e.SetPathsText(f.paths, false); err != nil {
		return err
	}
	if f.data != "" {
		b, err := base64.StdEncoding.DecodeString(f.data)
		if err != nil {
			return fmt.Errorf("--data: %w", err)
		}
		e.SetData(b)
	}

	store := efivars.NewVariableStore()
	mgr := efibootmgr.NewBootEntryManager(store)
	entries, err := mgr.LoadAll(t)
	if err != nil {
		return err
	}

	pos := f.position
	if pos < 0 || pos > len(entries) {
		entries = append(entries, e)
	} else {
		entries = append(entries, nil)
		copy(entries[pos+1:], entries[pos:])
		entries[pos] = e
	}

	if err := mgr.SaveAll(t, entries); err != nil {
		return err
	}
	if !f.quiet {
		fmt.Printf("added %s\n", e.Name())
	}
	return nil
}

func runMod(args []string) error {
	fs := flag.NewFlagSet("mod", flag.ExitOnError)
	f := bindEntryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	attributesSet := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "attributes" {
			attributesSet = true
		}
	})

	t, err := entryType(f.typ)
	if err != nil {
		return err
	}

	store := efivars.NewVariableStore()
	mgr := efibootmgr.NewBootEntryManager(store)
	entries, err := mgr.LoadAll(t)
	if err != nil {
		return err
	}
	e, _, err := findByNameOrPosition(entries, f.name, f.position)
	if err != nil {
		return err
	}

	if f.description != "" {
		e.SetDescription(f.description)
	}
	if attributesSet {
		e.SetAttributes(efivars.LoadOptionAttributes(f.attributes))
	}
	if len(f.paths) > 0 {
		if err := e.SetPathsText(f.paths, false); err != nil {
			return err
		}
	}
	if f.data != "" {
		b, err := base64.StdEncoding.DecodeString(f.data)
		if err != nil {
			return fmt.Errorf("--data: %w", err)
		}
		e.SetData(b)
	}

	if err := mgr.Save(e); err != nil {
		return err
	}
	if !f.quiet {
		fmt.Printf("updated %s\n", e.Name())
	}
	return nil
}

func runDel(args []string) error {
	fs := flag.NewFlagSet("del", flag.ExitOnError)
	typ := fs.String("type", "boot", "entry class: boot, driver, or sysprep")
	position := fs.Int("position", -1, "0-based position in the order list of the entry to remove")
	name := fs.String("name", "", "variable name (e.g. Boot0003) of the entry to remove, as an alternative to --position")
	quiet := fs.Bool("quiet", false, "suppress the summary printed after a successful change")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := entryType(*typ)
	if err != nil {
		return err
	}

	store := efivars.NewVariableStore()
	mgr := efibootmgr.NewBootEntryManager(store)
	entries, err := mgr.LoadAll(t)
	if err != nil {
		return err
	}
	e, _, err := findByNameOrPosition(entries, *name, *position)
	if err != nil {
		return err
	}

	if _, err := mgr.Delete(t, entries, e); err != nil {
		return err
	}
	if !*quiet {
		fmt.Printf("deleted %s\n", e.Name())
	}
	return nil
}
