// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/tracebridge/lib/uitree"
)

const (
	gatherPrefix = "ch_"
	positionKey  = "_pos"
)

// Predicate is one step of a path selector.
type Predicate struct {
	// Attrs requires each attribute to equal the given value.
	Attrs map[string]any

	// Gathered requires, per attribute, that every listed value occurs
	// on the node or one of its descendants. Keys omit the "ch_"
	// prefix.
	Gathered map[string][]any

	// Position pins the child index this step must match. Ignored on
	// the first step of a path.
	Position *int
}

// Path is an ordered list of predicates, root first.
type Path []Predicate

// Selector is either a path or a layout hash.
type Selector struct {
	Path Path
	Hash string
}

// IsHash reports whether the selector is a layout hash.
func (s Selector) IsHash() bool { return s.Path == nil }

// MarshalJSON encodes a hash selector as a string and a path as an
// array of objects.
func (s Selector) MarshalJSON() ([]byte, error) {
	if s.IsHash() {
		return json.Marshal(s.Hash)
	}
	return json.Marshal([]Predicate(s.Path))
}

// MarshalJSON flattens the predicate back into its configuration form.
func (p Predicate) MarshalJSON() ([]byte, error) {
	object := make(map[string]any, len(p.Attrs)+len(p.Gathered)+1)
	for name, value := range p.Attrs {
		object[name] = value
	}
	for name, values := range p.Gathered {
		object[gatherPrefix+name] = values
	}
	if p.Position != nil {
		object[positionKey] = *p.Position
	}
	return json.Marshal(object)
}

// UnmarshalJSON reads a predicate object. Numbers keep their literal
// form so that identifiers compare exactly.
func (p *Predicate) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var object map[string]any
	if err := decoder.Decode(&object); err != nil {
		return err
	}
	if object == nil {
		return errors.New("predicate must be an object")
	}

	predicate := Predicate{Attrs: make(map[string]any), Gathered: make(map[string][]any)}
	for key, value := range object {
		switch {
		case key == positionKey:
			number, ok := value.(json.Number)
			if !ok {
				return fmt.Errorf("%s must be an integer, got %v", positionKey, value)
			}
			position, err := number.Int64()
			if err != nil || position < 0 {
				return fmt.Errorf("%s must be a non-negative integer, got %s", positionKey, number)
			}
			index := int(position)
			predicate.Position = &index
		case strings.HasPrefix(key, gatherPrefix):
			values, ok := value.([]any)
			if !ok {
				return fmt.Errorf("%s must be an array", key)
			}
			predicate.Gathered[strings.TrimPrefix(key, gatherPrefix)] = values
		default:
			predicate.Attrs[key] = value
		}
	}
	*p = predicate
	return nil
}

// Selectors is the immutable selector configuration of a run.
type Selectors struct {
	// single is set when the configuration is itself one path (its
	// first element is an object). Only that path is evaluated.
	single Path

	paths  []Path
	hashes map[string]struct{}
}

// ParseSelectors reads a selector configuration: a JSON array that is
// either one path (an array of predicate objects) or a list of
// selectors, each a path array or a layout hash string. Comments and
// trailing commas are accepted.
func ParseSelectors(data []byte) (*Selectors, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &elements); err != nil {
		return nil, fmt.Errorf("parsing selectors: %w", err)
	}

	selectors := &Selectors{hashes: make(map[string]struct{})}
	if len(elements) == 0 {
		return selectors, nil
	}

	if firstByte(elements[0]) == '{' {
		path, err := parsePath(elements)
		if err != nil {
			return nil, err
		}
		selectors.single = path
		return selectors, nil
	}

	for index, element := range elements {
		switch firstByte(element) {
		case '"':
			var hash string
			if err := json.Unmarshal(element, &hash); err != nil {
				return nil, fmt.Errorf("selector %d: %w", index, err)
			}
			selectors.hashes[strings.ToLower(hash)] = struct{}{}
		case '[':
			var steps []json.RawMessage
			if err := json.Unmarshal(element, &steps); err != nil {
				return nil, fmt.Errorf("selector %d: %w", index, err)
			}
			path, err := parsePath(steps)
			if err != nil {
				return nil, fmt.Errorf("selector %d: %w", index, err)
			}
			selectors.paths = append(selectors.paths, path)
		default:
			return nil, fmt.Errorf("selector %d: expected a path array or a hash string", index)
		}
	}
	return selectors, nil
}

func parsePath(steps []json.RawMessage) (Path, error) {
	if len(steps) == 0 {
		return nil, errors.New("empty path")
	}
	path := make(Path, len(steps))
	for index, step := range steps {
		if firstByte(step) != '{' {
			return nil, fmt.Errorf("path step %d: expected an object", index)
		}
		if err := json.Unmarshal(step, &path[index]); err != nil {
			return nil, fmt.Errorf("path step %d: %w", index, err)
		}
	}
	return path, nil
}

func firstByte(data json.RawMessage) byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// Len returns the number of configured selectors.
func (s *Selectors) Len() int {
	if s == nil {
		return 0
	}
	if s.single != nil {
		return 1
	}
	return len(s.paths) + len(s.hashes)
}

// Hashes returns the configured layout hashes, sorted.
func (s *Selectors) Hashes() []string {
	if s == nil {
		return nil
	}
	hashes := make([]string, 0, len(s.hashes))
	for hash := range s.hashes {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes
}

// Decision is the outcome of evaluating selectors against one window.
type Decision struct {
	// Restart is set when the window matched a layout hash.
	Restart bool

	// Views lists the identifiers of matched enabled views, in
	// selector order without duplicates.
	Views []int64
}

// Evaluate matches a window against the selectors. The window is
// evaluated with identifier-less children pruned away.
//
// A single-path configuration yields at most one view. Otherwise a
// layout hash match yields a restart and nothing else; failing that,
// every path is tried.
func (s *Selectors) Evaluate(window uitree.Tree) Decision {
	var decision Decision
	if s.Len() == 0 || window == nil {
		return decision
	}
	pruned := Prune(window)

	if s.single != nil {
		if id, ok := MatchPath(pruned, s.single); ok {
			decision.Views = []int64{id}
		}
		return decision
	}

	if len(s.hashes) > 0 {
		if hash, ok := Hash(pruned); ok {
			if _, match := s.hashes[hash]; match {
				decision.Restart = true
				return decision
			}
		}
	}

	seen := make(map[int64]struct{})
	for _, path := range s.paths {
		id, ok := MatchPath(pruned, path)
		if !ok {
			continue
		}
		if _, duplicate := seen[id]; duplicate {
			continue
		}
		seen[id] = struct{}{}
		decision.Views = append(decision.Views, id)
	}
	return decision
}
