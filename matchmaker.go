package main

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// anyToken is the fallback bucket for profiles with no usable interests.
// Two "any" waiters share it as a common token, so they can still pair up.
const anyToken = "any"

// norm is the sole identity test for interest comparison and for the
// different-university check.
func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// queueKeys returns the normalized bucket keys for an interest list, in
// first-seen order without duplicates. Blank interests collapse into the
// "any" bucket, as does an empty list.
func queueKeys(interests []string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, raw := range interests {
		t := norm(raw)
		if t == "" {
			t = anyToken
		}
		if !seen[t] {
			seen[t] = true
			keys = append(keys, t)
		}
	}
	if len(keys) == 0 {
		keys = []string{anyToken}
	}
	return keys
}

// overlap reports whether two interest lists share at least one normalized
// token. Both sides get the "any" fallback, so bucket membership alone is
// never trusted: callers re-verify with this before pairing.
func overlap(a, b []string) bool {
	bs := make(map[string]bool)
	for _, t := range queueKeys(b) {
		bs[t] = true
	}
	for _, t := range queueKeys(a) {
		if bs[t] {
			return true
		}
	}
	return false
}

// commonInterests lists the interests two profiles share, spelled the way
// the first argument spells them (trimmed), first-seen order, no duplicates.
func commonInterests(a, b []string) []string {
	seen := make(map[string]bool)
	common := []string{}
	for _, ai := range a {
		for _, bj := range b {
			if norm(ai) != norm(bj) {
				continue
			}
			spelled := strings.TrimSpace(ai)
			if !seen[spelled] {
				seen[spelled] = true
				common = append(common, spelled)
			}
		}
	}
	return common
}

// queueEntry is one bucket occurrence of a logical wait. A wait spanning N
// interest tokens places N entries that all carry the same client and seq.
type queueEntry struct {
	client  *client
	profile Profile
	since   time.Time
	seq     uint64
}

// queueIndex is the multi-bucket FIFO wait list. It is not safe for
// concurrent use on its own; the hub's mutex guards every call together
// with the room table, so two concurrent matches can never select the same
// waiting client.
type queueIndex struct {
	buckets map[string][]*queueEntry
	nextSeq uint64
}

func newQueueIndex() *queueIndex {
	return &queueIndex{buckets: make(map[string][]*queueEntry)}
}

// enqueue records one wait for the client: one entry per normalized
// interest token, or a single "any" entry when none survive normalization.
func (q *queueIndex) enqueue(c *client, p Profile) {
	q.nextSeq++
	entry := queueEntry{client: c, profile: p, since: time.Now(), seq: q.nextSeq}
	for _, key := range queueKeys(p.Interests) {
		e := entry
		q.buckets[key] = append(q.buckets[key], &e)
	}
}

// dequeueAll removes every occurrence of the client from every bucket. It
// is the single removal path, so a wait spanning several buckets can never
// be half-removed. Removing a client that is not queued is a no-op.
func (q *queueIndex) dequeueAll(clientID string) {
	for key, bucket := range q.buckets {
		kept := bucket[:0]
		for _, e := range bucket {
			if e.client.id != clientID {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(q.buckets, key)
		} else {
			q.buckets[key] = kept
		}
	}
}

// waiting reports whether the client has any outstanding queue entry.
func (q *queueIndex) waiting(clientID string) bool {
	for _, bucket := range q.buckets {
		for _, e := range bucket {
			if e.client.id == clientID {
				return true
			}
		}
	}
	return false
}

// tryMatch scans the waiting candidates that share a bucket with the
// requester, oldest first, and picks the first one from a different
// university, falling back to the first eligible candidate otherwise. On a
// hit both sides are dequeued from every bucket and a fresh room id is
// minted. On a miss the queue is left untouched and ("", nil) is returned;
// the caller decides whether to enqueue.
func (q *queueIndex) tryMatch(requester *client, p Profile) (string, *queueEntry) {
	candidates := make(map[string]*queueEntry)
	for _, key := range queueKeys(p.Interests) {
		for _, e := range q.buckets[key] {
			if _, ok := candidates[e.client.id]; !ok {
				candidates[e.client.id] = e
			}
		}
	}

	byAge := make([]*queueEntry, 0, len(candidates))
	for _, e := range candidates {
		byAge = append(byAge, e)
	}
	sort.Slice(byAge, func(i, j int) bool {
		if byAge[i].since.Equal(byAge[j].since) {
			return byAge[i].seq < byAge[j].seq
		}
		return byAge[i].since.Before(byAge[j].since)
	})

	var chosen *queueEntry
	for _, cand := range byAge {
		if cand.client.id == requester.id {
			continue
		}
		// Bucket membership is not enough because of the "any" fallback;
		// re-verify the overlap against the candidate's full interest set.
		if !overlap(p.Interests, cand.profile.Interests) {
			continue
		}
		if norm(cand.profile.University) != norm(p.University) {
			chosen = cand
			break
		}
		if chosen == nil {
			chosen = cand // same-university fallback
		}
	}

	if chosen == nil {
		return "", nil
	}

	q.dequeueAll(requester.id)
	q.dequeueAll(chosen.client.id)

	return uuid.NewString(), chosen
}
