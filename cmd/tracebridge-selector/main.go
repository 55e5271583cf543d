// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tracebridge-selector derives view selectors from recorded windows.
//
// Each argument is a <ts>.json file written by tracebridge. For a
// window whose action source is marked, the output selector is the
// shortest path from the window's activity to that view. For any other
// window, for a file given with a leading "!", and for every file under
// --hash, it is the window's layout hash. The result is printed as one
// compact JSON array that tracebridge accepts as --selectors.
//
// With --count, identical selectors are grouped instead and each group
// is printed as "<first file> <occurrences>", most frequent first.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tracebridge/lib/layout"
	"github.com/bureau-foundation/tracebridge/lib/logging"
	"github.com/bureau-foundation/tracebridge/lib/process"
	"github.com/bureau-foundation/tracebridge/lib/uitree"
	"github.com/bureau-foundation/tracebridge/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, logging.New(os.Stderr, slog.LevelInfo)); err != nil {
		process.Fatal(err)
	}
}

func run(arguments []string, stdout io.Writer, logger *slog.Logger) error {
	var (
		hashOnly    bool
		count       bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("tracebridge-selector", pflag.ContinueOnError)
	flagSet.BoolVar(&hashOnly, "hash", false, "derive layout hashes even for windows with a marked source view")
	flagSet.BoolVar(&count, "count", false, "print \"<first file> <count>\" per distinct selector instead of the selectors")
	flagSet.BoolVar(&showVersion, "version", false, "print the version and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  tracebridge-selector [flags] [!]<window.json>...\n\nFlags:\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(arguments); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Fprintf(stdout, "tracebridge-selector %s\n", version.Info())
		return nil
	}

	var derived []derivation
	for _, argument := range flagSet.Args() {
		if argument == "" {
			continue
		}
		selector, err := deriveFile(argument, hashOnly)
		if err != nil {
			logger.Warn("skipping window", "file", argument, "error", err)
			continue
		}
		encoded, err := json.Marshal(selector)
		if err != nil {
			return err
		}
		derived = append(derived, derivation{file: argument, encoded: encoded})
	}

	if count {
		return writeCounts(stdout, derived)
	}
	return writeSelectors(stdout, derived)
}

// derivation is one selector and the argument it came from.
type derivation struct {
	file    string
	encoded json.RawMessage
}

// deriveFile reads one window file. A leading "!" in argument forces a
// layout hash.
func deriveFile(argument string, hashOnly bool) (layout.Selector, error) {
	path, forced := strings.CutPrefix(argument, "!")
	data, err := os.ReadFile(path)
	if err != nil {
		return layout.Selector{}, err
	}
	window, err := uitree.Parse(data)
	if err != nil {
		return layout.Selector{}, fmt.Errorf("parsing window: %w", err)
	}
	if hashOnly || forced {
		return layout.DeriveHash(window)
	}
	return layout.Derive(window)
}

func writeSelectors(w io.Writer, derived []derivation) error {
	selectors := make([]json.RawMessage, 0, len(derived))
	for _, d := range derived {
		selectors = append(selectors, d.encoded)
	}
	encoded, err := json.Marshal(selectors)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", encoded)
	return err
}

// writeCounts groups identical selectors, keeping the first file that
// produced each, and prints the groups by descending size. Groups of
// equal size keep their first-seen order.
func writeCounts(w io.Writer, derived []derivation) error {
	type group struct {
		first string
		count int
	}
	var groups []*group
	index := make(map[string]*group)
	for _, d := range derived {
		key := string(d.encoded)
		if g, ok := index[key]; ok {
			g.count++
			continue
		}
		g := &group{first: d.file, count: 1}
		index[key] = g
		groups = append(groups, g)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].count > groups[j].count })

	for _, g := range groups {
		if _, err := fmt.Fprintf(w, "%s %d\n", g.first, g.count); err != nil {
			return err
		}
	}
	return nil
}
