package main

import (
	"reflect"
	"testing"
)

func testClient(id string) *client {
	return &client{id: id, send: make(chan serverEvent, 32)}
}

func TestQueueKeys(t *testing.T) {
	t.Run("Normalizes and dedupes", func(t *testing.T) {
		keys := queueKeys([]string{" Chess ", "chess", "Football"})
		want := []string{"chess", "football"}
		if !reflect.DeepEqual(keys, want) {
			t.Errorf("Expected %v, got %v", want, keys)
		}
	})

	t.Run("Empty list falls back to any", func(t *testing.T) {
		keys := queueKeys(nil)
		if len(keys) != 1 || keys[0] != anyToken {
			t.Errorf("Expected [any], got %v", keys)
		}
	})

	t.Run("Blank interests collapse into any", func(t *testing.T) {
		keys := queueKeys([]string{"   ", ""})
		if len(keys) != 1 || keys[0] != anyToken {
			t.Errorf("Expected [any], got %v", keys)
		}
	})
}

func TestOverlap(t *testing.T) {
	t.Run("Case and whitespace insensitive", func(t *testing.T) {
		if !overlap([]string{"AI"}, []string{" ai "}) {
			t.Error("Expected overlap between AI and ai")
		}
	})

	t.Run("Disjoint sets", func(t *testing.T) {
		if overlap([]string{"chess"}, []string{"football"}) {
			t.Error("Expected no overlap")
		}
	})

	t.Run("Two empty sets share the any token", func(t *testing.T) {
		if !overlap(nil, nil) {
			t.Error("Expected two any-only sets to overlap")
		}
	})

	t.Run("Empty set does not overlap declared interests", func(t *testing.T) {
		if overlap(nil, []string{"chess"}) {
			t.Error("Expected no overlap between any-only and a declared set")
		}
	})
}

func TestCommonInterests(t *testing.T) {
	t.Run("Original casing from first argument", func(t *testing.T) {
		got := commonInterests([]string{"AI", "Football"}, []string{"ai", "music"})
		if !reflect.DeepEqual(got, []string{"AI"}) {
			t.Errorf("Expected [AI], got %v", got)
		}
	})

	t.Run("Order preserved, no duplicates", func(t *testing.T) {
		got := commonInterests([]string{"b", "a", "b"}, []string{"A", "B"})
		if !reflect.DeepEqual(got, []string{"b", "a"}) {
			t.Errorf("Expected [b a], got %v", got)
		}
	})

	t.Run("No shared interests", func(t *testing.T) {
		got := commonInterests([]string{"chess"}, []string{"music"})
		if len(got) != 0 {
			t.Errorf("Expected empty slice, got %v", got)
		}
	})
}

func TestEnqueueDequeue(t *testing.T) {
	q := newQueueIndex()
	a := testClient("a")

	q.enqueue(a, Profile{University: "X", Interests: []string{"Chess", "Music"}})
	if !q.waiting("a") {
		t.Fatal("Expected a to be waiting after enqueue")
	}
	if len(q.buckets["chess"]) != 1 || len(q.buckets["music"]) != 1 {
		t.Errorf("Expected one entry per interest bucket, got %d/%d",
			len(q.buckets["chess"]), len(q.buckets["music"]))
	}

	q.dequeueAll("a")
	if q.waiting("a") {
		t.Error("Expected a to be gone from every bucket")
	}

	// Removing again is a no-op, not an error.
	q.dequeueAll("a")
}

func TestTryMatch(t *testing.T) {
	t.Run("Pairs on shared interest and empties both waits", func(t *testing.T) {
		q := newQueueIndex()
		a := testClient("a")
		b := testClient("b")
		q.enqueue(a, Profile{University: "X", Interests: []string{"Chess"}})

		roomID, partner := q.tryMatch(b, Profile{University: "Y", Interests: []string{"chess"}})
		if partner == nil {
			t.Fatal("Expected a match")
		}
		if partner.client.id != "a" {
			t.Errorf("Expected partner a, got %s", partner.client.id)
		}
		if roomID == "" {
			t.Error("Expected a non-empty room id")
		}
		if q.waiting("a") || q.waiting("b") {
			t.Error("Expected both sides absent from every bucket after a match")
		}
	})

	t.Run("Never matches itself", func(t *testing.T) {
		q := newQueueIndex()
		a := testClient("a")
		q.enqueue(a, Profile{University: "X", Interests: []string{"chess"}})

		if _, partner := q.tryMatch(a, Profile{University: "X", Interests: []string{"chess"}}); partner != nil {
			t.Error("Expected no self-match")
		}
		if !q.waiting("a") {
			t.Error("Expected the queue untouched after a miss")
		}
	})

	t.Run("Prefers a different university over an earlier arrival", func(t *testing.T) {
		q := newQueueIndex()
		c1 := testClient("c1")
		c2 := testClient("c2")
		q.enqueue(c1, Profile{University: "X", Interests: []string{"chess"}})
		q.enqueue(c2, Profile{University: "Y", Interests: []string{"chess"}})

		_, partner := q.tryMatch(testClient("r"), Profile{University: "X", Interests: []string{"chess"}})
		if partner == nil || partner.client.id != "c2" {
			t.Fatalf("Expected c2 (different university), got %v", partner)
		}
		if q.waiting("c2") {
			t.Error("Expected c2 dequeued")
		}
		if !q.waiting("c1") {
			t.Error("Expected c1 still waiting")
		}
	})

	t.Run("Falls back to same university", func(t *testing.T) {
		q := newQueueIndex()
		c1 := testClient("c1")
		q.enqueue(c1, Profile{University: "X", Interests: []string{"chess"}})

		_, partner := q.tryMatch(testClient("r"), Profile{University: "x ", Interests: []string{"chess"}})
		if partner == nil || partner.client.id != "c1" {
			t.Fatalf("Expected same-university fallback, got %v", partner)
		}
	})

	t.Run("Strict FIFO among equal candidates", func(t *testing.T) {
		q := newQueueIndex()
		q.enqueue(testClient("old"), Profile{University: "Y", Interests: []string{"chess"}})
		q.enqueue(testClient("new"), Profile{University: "Y", Interests: []string{"chess"}})

		_, partner := q.tryMatch(testClient("r"), Profile{University: "X", Interests: []string{"chess"}})
		if partner == nil || partner.client.id != "old" {
			t.Fatalf("Expected the oldest wait to win, got %v", partner)
		}
	})

	t.Run("Bucket hit without real overlap is skipped", func(t *testing.T) {
		// An any-only waiter sits in the any bucket. A requester whose
		// interests were all declared does not share the any token, so
		// bucket membership alone must not pair them.
		q := newQueueIndex()
		q.enqueue(testClient("a"), Profile{University: "X"})

		if _, partner := q.tryMatch(testClient("r"), Profile{University: "Y", Interests: []string{"chess"}}); partner != nil {
			t.Error("Expected no match without a shared token")
		}
	})

	t.Run("Two any-only profiles pair up", func(t *testing.T) {
		q := newQueueIndex()
		q.enqueue(testClient("a"), Profile{University: "X"})

		_, partner := q.tryMatch(testClient("r"), Profile{University: "Y"})
		if partner == nil || partner.client.id != "a" {
			t.Fatalf("Expected the any-only waiter, got %v", partner)
		}
	})

	t.Run("Miss leaves the queue untouched", func(t *testing.T) {
		q := newQueueIndex()
		a := testClient("a")
		q.enqueue(a, Profile{University: "X", Interests: []string{"chess"}})

		if _, partner := q.tryMatch(testClient("r"), Profile{University: "Y", Interests: []string{"football"}}); partner != nil {
			t.Fatal("Expected no match")
		}
		if !q.waiting("a") {
			t.Error("Expected a still queued after a miss")
		}
		if q.waiting("r") {
			t.Error("tryMatch must never enqueue the requester")
		}
	})
}
