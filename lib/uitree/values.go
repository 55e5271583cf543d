// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uitree

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Equal compares two decoded JSON values. Numbers compare by value:
// integrally when both are integers, as float64 otherwise.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case json.Number:
		y, ok := b.(json.Number)
		return ok && numbersEqual(x, y)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for key, value := range x {
			other, ok := y[key]
			if !ok || !Equal(value, other) {
				return false
			}
		}
		return true
	}
	return false
}

func numbersEqual(a, b json.Number) bool {
	if x, err := a.Int64(); err == nil {
		if y, err := b.Int64(); err == nil {
			return x == y
		}
	}
	x, errA := a.Float64()
	y, errB := b.Float64()
	return errA == nil && errB == nil && x == y
}

// Key returns a canonical string for a decoded value such that
// Key(a) == Key(b) exactly when Equal(a, b). It lets value sets be
// plain Go maps.
func Key(value any) string {
	var builder strings.Builder
	writeKey(&builder, value)
	return builder.String()
}

func writeKey(builder *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		builder.WriteString("null")
	case string:
		builder.WriteString(strconv.Quote(v))
	case bool:
		builder.WriteString(strconv.FormatBool(v))
	case json.Number:
		builder.WriteByte('#')
		if n, err := v.Int64(); err == nil {
			builder.WriteString(strconv.FormatInt(n, 10))
		} else if f, err := v.Float64(); err == nil {
			if f == float64(int64(f)) {
				builder.WriteString(strconv.FormatInt(int64(f), 10))
			} else {
				builder.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
			}
		} else {
			builder.WriteString(v.String())
		}
	case []any:
		builder.WriteByte('[')
		for i, element := range v {
			if i > 0 {
				builder.WriteByte(',')
			}
			writeKey(builder, element)
		}
		builder.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		builder.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				builder.WriteByte(',')
			}
			builder.WriteString(strconv.Quote(key))
			builder.WriteByte(':')
			writeKey(builder, v[key])
		}
		builder.WriteByte('}')
	default:
		builder.WriteString("?")
	}
}

// Truthy reports whether a value carries information. nil, false, "",
// zero and empty collections do not.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}
