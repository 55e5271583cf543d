// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framecache

import (
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
)

func TestCoalescesFramesWithinInterval(t *testing.T) {
	cache := New(0)
	accepted := make([]bool, 0, 3)
	for _, timestamp := range []int64{10, 30, 80} {
		accepted = append(accepted, cache.InsertIfIncreasing(Bucket(timestamp), []byte{byte(timestamp)}))
	}

	if want := []bool{true, false, true}; !slices.Equal(accepted, want) {
		t.Fatalf("accepted = %v, want %v", accepted, want)
	}
	if got := cache.Buckets(); !slices.Equal(got, []int64{0, 1}) {
		t.Fatalf("buckets = %v, want [0 1]", got)
	}
	frame, ok := cache.LookupFloor(0)
	if !ok || frame.Payload[0] != 10 {
		t.Errorf("bucket 0 should keep the first frame, got %v, %v", frame, ok)
	}
}

func TestInsertRejectsNonIncreasing(t *testing.T) {
	cache := New(4)
	if !cache.InsertIfIncreasing(5, nil) {
		t.Fatal("first insert rejected")
	}
	for _, bucket := range []int64{5, 4, -1} {
		if cache.InsertIfIncreasing(bucket, nil) {
			t.Errorf("bucket %d accepted after 5", bucket)
		}
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestLookupFloor(t *testing.T) {
	cache := New(8)
	for _, bucket := range []int64{2, 5, 9, 14} {
		cache.InsertIfIncreasing(bucket, nil)
	}

	tests := []struct {
		bucket int64
		want   int64
		found  bool
	}{
		{bucket: 1, found: false},
		{bucket: 2, want: 2, found: true},
		{bucket: 4, want: 2, found: true},
		{bucket: 5, want: 5, found: true},
		{bucket: 13, want: 9, found: true},
		{bucket: 14, want: 14, found: true},
		{bucket: 1000, want: 14, found: true},
	}
	for _, test := range tests {
		frame, ok := cache.LookupFloor(test.bucket)
		if ok != test.found || (ok && frame.Bucket != test.want) {
			t.Errorf("LookupFloor(%d) = %d, %v; want %d, %v", test.bucket, frame.Bucket, ok, test.want, test.found)
		}
	}

	if _, ok := New(8).LookupFloor(100); ok {
		t.Error("empty cache returned a frame")
	}
}

func TestWrapAroundKeepsNewest(t *testing.T) {
	cache := New(3)
	for bucket := int64(1); bucket <= 7; bucket++ {
		cache.InsertIfIncreasing(bucket, []byte{byte(bucket)})
	}

	if got := cache.Buckets(); !slices.Equal(got, []int64{5, 6, 7}) {
		t.Fatalf("buckets = %v, want [5 6 7]", got)
	}
	if _, ok := cache.LookupFloor(4); ok {
		t.Error("an overwritten bucket is still reachable")
	}
	if frame, ok := cache.LookupFloor(6); !ok || frame.Payload[0] != 6 {
		t.Errorf("LookupFloor(6) = %v, %v", frame, ok)
	}
	if cache.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cache.Len())
	}
}

func TestRandomSequencesStayStrictlyIncreasing(t *testing.T) {
	random := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 50; round++ {
		cache := New(16)
		var bucket int64
		for i := 0; i < 200; i++ {
			bucket += random.Int64N(5) - 1
			cache.InsertIfIncreasing(bucket, nil)
		}

		buckets := cache.Buckets()
		for i := 1; i < len(buckets); i++ {
			if buckets[i] <= buckets[i-1] {
				t.Fatalf("round %d: buckets not strictly increasing: %v", round, buckets)
			}
		}

		probe := buckets[0] + random.Int64N(buckets[len(buckets)-1]-buckets[0]+1)
		frame, ok := cache.LookupFloor(probe)
		if !ok {
			t.Fatalf("round %d: LookupFloor(%d) found nothing in %v", round, probe, buckets)
		}
		for _, stored := range buckets {
			if stored <= probe && stored > frame.Bucket {
				t.Fatalf("round %d: LookupFloor(%d) = %d, but %d is closer", round, probe, frame.Bucket, stored)
			}
		}
	}
}

func TestConcurrentInsertAndLookup(t *testing.T) {
	cache := New(0)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for bucket := int64(0); bucket < 1000; bucket++ {
			cache.InsertIfIncreasing(bucket, nil)
		}
	}()
	go func() {
		defer wg.Done()
		for i := int64(0); i < 1000; i++ {
			if frame, ok := cache.LookupFloor(i); ok && frame.Bucket > i {
				t.Errorf("LookupFloor(%d) returned newer bucket %d", i, frame.Bucket)
				return
			}
		}
	}()
	wg.Wait()
	if cache.Len() != Capacity {
		t.Errorf("Len() = %d, want %d", cache.Len(), Capacity)
	}
}
