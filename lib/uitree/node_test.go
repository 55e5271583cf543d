// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package uitree

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleWindow = `{"hash":1,"act_id":"com.example/.Main","bound":"[0,0][1080,1920]","focus":true,"extra":{"nested":[1,2.50,"x"]},"ch":[{"hash":7,"class":"android.widget.Button","id":"ok","en":true},{"hash":8,"class":"android.widget.TextView","text":"Hello"}]}`

func TestParsePreservesOrderAndBytes(t *testing.T) {
	node, err := Parse([]byte(sampleWindow))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	encoded, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(encoded) != sampleWindow {
		t.Fatalf("round trip changed the document:\n got  %s\n want %s", encoded, sampleWindow)
	}
	want := []string{"hash", "act_id", "bound", "focus", "extra", "ch"}
	if got := node.Keys(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestAccessors(t *testing.T) {
	node, err := Parse([]byte(sampleWindow))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, ok := Int(node, KeyHash); !ok || got != 1 {
		t.Errorf("Int(hash) = %d, %v", got, ok)
	}
	if got, ok := String(node, KeyActivity); !ok || got != "com.example/.Main" {
		t.Errorf("String(act_id) = %q, %v", got, ok)
	}
	if got, ok := Bool(node, KeyFocus); !ok || !got {
		t.Errorf("Bool(focus) = %v, %v", got, ok)
	}
	if _, ok := Bool(node, KeyEnabled); ok {
		t.Error("Bool(en) should be absent on the root")
	}
	if got := node.NumChildren(); got != 2 {
		t.Fatalf("NumChildren() = %d, want 2", got)
	}
	if got, _ := String(node.Child(1), "text"); got != "Hello" {
		t.Errorf("child text = %q", got)
	}
	if got, ok := String(node, KeyHash); !ok || got != "1" {
		t.Errorf("String(hash) = %q, %v; numbers should read as their literal", got, ok)
	}
}

func TestMarkSourceAndSetOnlyAddMarkers(t *testing.T) {
	node, err := Parse([]byte(sampleWindow))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !node.MarkSource(7) {
		t.Fatal("MarkSource(7) did not find the button")
	}
	if err := node.Set(KeyActionType, 3); err != nil {
		t.Fatalf("Set: %v", err)
	}

	encoded, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"hash":1,"act_id":"com.example/.Main","bound":"[0,0][1080,1920]","focus":true,"extra":{"nested":[1,2.50,"x"]},"ch":[{"hash":7,"class":"android.widget.Button","id":"ok","en":true,"is_source":true},{"hash":8,"class":"android.widget.TextView","text":"Hello"}],"ua_type":3}`
	if string(encoded) != want {
		t.Fatalf("annotated window:\n got  %s\n want %s", encoded, want)
	}
}

func TestMarkSourceMissing(t *testing.T) {
	node, err := Parse([]byte(sampleWindow))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.MarkSource(99) {
		t.Fatal("MarkSource(99) reported a match")
	}
	if _, ok := node.Attr(KeySource); ok {
		t.Error("is_source was set without a match")
	}
}

func TestSetReplacesInPlace(t *testing.T) {
	node, err := Parse([]byte(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := node.Set("a", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	encoded, _ := json.Marshal(node)
	if string(encoded) != `{"a":"x","b":2}` {
		t.Errorf("got %s", encoded)
	}
	if err := node.Set(KeyChildren, []int{}); err == nil {
		t.Error("Set(ch) should be rejected")
	}
}

func TestParseWindowsSkipsNonObjects(t *testing.T) {
	windows, err := ParseWindows([]byte(`[{"hash":1}, 5, null, {"hash":2,"ch":[3,{"hash":4}]}]`))
	if err != nil {
		t.Fatalf("ParseWindows: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	if windows[1].NumChildren() != 1 {
		t.Errorf("non-object children should be skipped, got %d", windows[1].NumChildren())
	}
}

func TestNonObjectChildrenSurviveMarshal(t *testing.T) {
	node, err := Parse([]byte(`{"hash":1,"ch":[null,{"hash":7,"en":true},3,"x"]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := node.NumChildren(); got != 1 {
		t.Fatalf("NumChildren() = %d, want 1", got)
	}
	if !node.MarkSource(7) {
		t.Fatal("MarkSource(7) did not find the child")
	}
	encoded, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"hash":1,"ch":[null,{"hash":7,"en":true,"is_source":true},3,"x"]}`
	if string(encoded) != want {
		t.Fatalf("annotated window:\n got  %s\n want %s", encoded, want)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{``, `[]`, `{"a":`, `{"a":1} {"b":2}`, `"text"`} {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
	if _, err := ParseWindows([]byte(`[{"hash":1}`)); err == nil {
		t.Error("ParseWindows accepted a truncated array")
	}
}
