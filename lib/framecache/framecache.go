// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framecache

import (
	"sort"
	"sync"
)

const (
	// Capacity is the number of frames a Cache retains.
	Capacity = 100

	// Interval is the coalescing window of a bucket, in milliseconds.
	Interval = 50
)

// Bucket returns the time bucket of a timestamp in milliseconds.
func Bucket(timestampMillis int64) int64 {
	return timestampMillis / Interval
}

// Frame is one captured frame. Payload must not be modified once the
// frame is inserted.
type Frame struct {
	Bucket  int64
	Payload []byte
}

// Cache is a fixed-capacity ring of frames with strictly increasing
// buckets. The zero value is not usable; call New.
type Cache struct {
	mu     sync.Mutex
	frames []Frame
	// next is the slot the next insert writes. Once the ring is full
	// it is also the oldest frame.
	next  int
	count int
}

// New returns an empty cache holding up to capacity frames. A
// non-positive capacity selects Capacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = Capacity
	}
	return &Cache{frames: make([]Frame, capacity)}
}

// InsertIfIncreasing stores a frame if its bucket is strictly greater
// than the bucket of the most recent insert, and reports whether it
// did. The first insert into an empty cache is always stored.
func (c *Cache) InsertIfIncreasing(bucket int64, payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count > 0 && bucket <= c.newestLocked().Bucket {
		return false
	}
	c.frames[c.next] = Frame{Bucket: bucket, Payload: payload}
	c.next = (c.next + 1) % len(c.frames)
	if c.count < len(c.frames) {
		c.count++
	}
	return true
}

// LookupFloor returns the frame with the greatest bucket not above
// bucket. It reports false when the cache is empty or every stored
// frame is newer.
func (c *Cache) LookupFloor(bucket int64) (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Index of the first logical frame newer than bucket.
	index := sort.Search(c.count, func(i int) bool {
		return c.atLocked(i).Bucket > bucket
	})
	if index == 0 {
		return Frame{}, false
	}
	return c.atLocked(index - 1), true
}

// Len returns the number of stored frames.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Buckets returns the stored buckets, oldest first.
func (c *Cache) Buckets() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	buckets := make([]int64, c.count)
	for i := range buckets {
		buckets[i] = c.atLocked(i).Bucket
	}
	return buckets
}

// atLocked returns the i-th frame in logical order, oldest first.
func (c *Cache) atLocked(i int) Frame {
	oldest := 0
	if c.count == len(c.frames) {
		oldest = c.next
	}
	return c.frames[(oldest+i)%len(c.frames)]
}

func (c *Cache) newestLocked() Frame {
	return c.atLocked(c.count - 1)
}
