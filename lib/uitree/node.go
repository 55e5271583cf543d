// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uitree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Node is one parsed UI node. The zero value is an empty node.
type Node struct {
	keys     []string
	raw      map[string]json.RawMessage
	children []*Node

	// elements holds every "ch" array element as parsed; slots maps
	// each one to its child node, or nil for non-objects, which are
	// written back verbatim.
	elements []json.RawMessage
	slots    []*Node

	// hasChildren is set when "ch" held an array. Otherwise "ch", if
	// present at all, is kept raw like any other attribute.
	hasChildren bool
}

// Parse decodes a single node object.
func Parse(data []byte) (*Node, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	node, err := decodeNode(decoder)
	if err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after node object")
	}
	return node, nil
}

// ParseWindows decodes a dump: a JSON array of window nodes. Elements
// that are not objects are skipped.
func ParseWindows(data []byte) ([]*Node, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("parsing window list: %w", err)
	}
	windows := make([]*Node, 0, len(elements))
	for index, element := range elements {
		if !isObject(element) {
			continue
		}
		window, err := Parse(element)
		if err != nil {
			return nil, fmt.Errorf("parsing window %d: %w", index, err)
		}
		windows = append(windows, window)
	}
	return windows, nil
}

func decodeNode(decoder *json.Decoder) (*Node, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", token)
	}

	node := &Node{raw: make(map[string]json.RawMessage)}
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", token)
		}
		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", key, err)
		}
		if err := node.setRaw(key, value); err != nil {
			return nil, err
		}
	}
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return node, nil
}

func (n *Node) setRaw(key string, value json.RawMessage) error {
	if _, exists := n.raw[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.raw[key] = value
	if key != KeyChildren {
		return nil
	}

	n.children, n.elements, n.slots, n.hasChildren = nil, nil, nil, false
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return fmt.Errorf("decoding children: %w", err)
	}
	n.hasChildren = true
	n.elements = elements
	n.slots = make([]*Node, len(elements))
	for index, element := range elements {
		if !isObject(element) {
			continue
		}
		child, err := Parse(element)
		if err != nil {
			return err
		}
		n.slots[index] = child
		n.children = append(n.children, child)
	}
	return nil
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Attr decodes the named attribute. Numbers decode as json.Number.
func (n *Node) Attr(name string) (any, bool) {
	if n == nil || n.raw == nil {
		return nil, false
	}
	value, ok := n.raw[name]
	if !ok {
		return nil, false
	}
	decoder := json.NewDecoder(bytes.NewReader(value))
	decoder.UseNumber()
	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, false
	}
	return decoded, true
}

// NumChildren returns the number of object children under "ch".
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns the i-th child.
func (n *Node) Child(i int) Tree { return n.children[i] }

// Children returns the child nodes in document order.
func (n *Node) Children() []*Node { return n.children }

// Keys returns the attribute names in document order.
func (n *Node) Keys() []string { return append([]string(nil), n.keys...) }

// Set stores an attribute, replacing an existing value in place or
// appending a new key at the end.
func (n *Node) Set(name string, value any) error {
	if name == KeyChildren {
		return errors.New("children cannot be replaced through Set")
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", name, err)
	}
	if n.raw == nil {
		n.raw = make(map[string]json.RawMessage)
	}
	return n.setRaw(name, encoded)
}

// MarshalJSON writes the node with its attributes in document order.
// Untouched attributes are emitted byte-for-byte as parsed.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for index, key := range n.keys {
		if index > 0 {
			buffer.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buffer.Write(encodedKey)
		buffer.WriteByte(':')
		if key == KeyChildren && n.hasChildren {
			buffer.WriteByte('[')
			for slot, child := range n.slots {
				if slot > 0 {
					buffer.WriteByte(',')
				}
				if child == nil {
					buffer.Write(n.elements[slot])
					continue
				}
				encodedChild, err := child.MarshalJSON()
				if err != nil {
					return nil, err
				}
				buffer.Write(encodedChild)
			}
			buffer.WriteByte(']')
			continue
		}
		buffer.Write(n.raw[key])
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// MarkSource searches the subtree depth-first, checking each node
// before its children, for the first node whose "hash" equals id. That
// node gets is_source=true. Reports whether a node was found.
func (n *Node) MarkSource(id int64) bool {
	if hash, ok := Int(n, KeyHash); ok && hash == id {
		// Set cannot fail for a bool.
		_ = n.Set(KeySource, true)
		return true
	}
	for _, child := range n.children {
		if child.MarkSource(id) {
			return true
		}
	}
	return false
}
