// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/tracebridge/lib/layout"
	"github.com/bureau-foundation/tracebridge/lib/uitree"
)

// checkResult is printed by --check.
type checkResult struct {
	Restart bool    `json:"restart"`
	Views   []int64 `json:"views"`
	Hash    string  `json:"hash,omitempty"`
}

// runCheck evaluates selectors against the window recorded in path and
// writes the decision to w as one JSON object.
func runCheck(w io.Writer, selectors *layout.Selectors, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	window, err := uitree.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	decision := selectors.Evaluate(window)
	result := checkResult{Restart: decision.Restart, Views: decision.Views}
	if result.Views == nil {
		result.Views = []int64{}
	}
	if hash, ok := layout.Hash(layout.Prune(window)); ok {
		result.Hash = hash
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", encoded)
	return err
}
