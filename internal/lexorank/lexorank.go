// Package lexorank implements the base-26 fractional ordering scheme used
// to sort card siblings without renumbering on every insert (spec §2, §4.4,
// §8 rank laws).
//
// A rank is encoded "prefix|payload": prefix is a bucket tag (lci's
// config/gitignore package groups precedence tiers the same way — this
// package groups rank space into widenable buckets instead), payload is a
// base-26 string over 'a'..'z' compared lexicographically. The default
// bucket is "0".
package lexorank

import (
	"fmt"
	"sort"
	"strings"
)

const (
	alphabetSize = 26
	minRune      = 'a'
	maxRune      = 'z'
	midRune      = 'm'
	defaultBucket = "0"
	separator     = "|"
)

// First is the lexorank assigned to the first card ever inserted into an
// empty sibling list (spec S2: rank "0|m").
const First = defaultBucket + separator + "m"

// Rank is a sortable lexorank string.
type Rank string

// split separates the bucket prefix from the base-26 payload. Ranks without
// a separator are treated as bucket "0" with the whole string as payload,
// tolerating legacy/foreign input.
func split(r Rank) (bucket, payload string) {
	s := string(r)
	if idx := strings.Index(s, separator); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return defaultBucket, s
}

func join(bucket, payload string) Rank {
	return Rank(bucket + separator + payload)
}

// Compare orders two ranks: first by bucket string, then by payload
// lexicographic comparison after zero-padding to equal length (shorter
// payload sorts as if padded with 'a', matching how inserting mid-sequence
// behaves).
func Compare(a, b Rank) int {
	ab, ap := split(a)
	bb, bp := split(b)
	if ab != bb {
		if ab < bb {
			return -1
		}
		return 1
	}
	return strings.Compare(padTo(ap, bp), padTo(bp, ap))
}

func padTo(s, other string) string {
	if len(s) >= len(other) {
		return s
	}
	return s + strings.Repeat(string(minRune), len(other)-len(s))
}

// Less reports whether a sorts before b.
func Less(a, b Rank) bool { return Compare(a, b) < 0 }

// SortByRank stable-sorts items by their rank, as extracted by rankOf.
func SortByRank[T any](items []T, rankOf func(T) Rank) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(rankOf(items[i]), rankOf(items[j]))
	})
}

// rankBetweenPayloads computes a base-26 string strictly between lo and hi
// (lo < result < hi), widening the alphabet (appending characters) when no
// string fits in the available space, per spec §9's "implementations must
// widen the lexorank alphabet rather than fail."
func rankBetweenPayloads(lo, hi string) string {
	if lo == "" && hi == "" {
		return string(midRune)
	}
	if lo == "" {
		return before(hi)
	}
	if hi == "" {
		return after(lo)
	}

	maxLen := len(lo)
	if len(hi) > maxLen {
		maxLen = len(hi)
	}
	loPadded := padRune(lo, maxLen, minRune)
	hiPadded := padRune(hi, maxLen, maxRune+1) // sentinel above 'z'

	var out []byte
	for i := 0; i < maxLen; i++ {
		lc := loPadded[i]
		hc := hiPadded[i]
		if lc == hc {
			out = append(out, lc)
			continue
		}
		if hc-lc > 1 {
			mid := lc + (hc-lc)/2
			out = append(out, mid)
			return string(out)
		}
		// Adjacent characters: carry lc forward and recurse on the
		// remaining suffix of lo, appending below hi eventually.
		out = append(out, lc)
		rest := rankBetweenPayloads(suffixOrEmpty(lo, i+1), "")
		return string(out) + rest
	}
	// lo is a strict prefix of hi (after padding they were equal
	// throughout): append a midpoint character.
	return string(out) + string(midRune)
}

func suffixOrEmpty(s string, i int) string {
	if i >= len(s) {
		return ""
	}
	return s[i:]
}

func padRune(s string, n int, fill byte) []byte {
	out := make([]byte, n)
	copy(out, s)
	for i := len(s); i < n; i++ {
		out[i] = fill
	}
	return out
}

// before returns a payload strictly less than hi.
func before(hi string) string {
	if hi == "" {
		return string(midRune)
	}
	first := hi[0]
	if first > minRune {
		return string(first - 1)
	}
	// hi starts with 'a': go one level deeper.
	return string(minRune) + before(hi[1:])
}

// after returns a payload strictly greater than lo.
func after(lo string) string {
	if lo == "" {
		return string(midRune)
	}
	last := lo[len(lo)-1]
	if last < maxRune {
		return lo[:len(lo)-1] + string(last+1)
	}
	return lo + string(midRune)
}

// Between returns a rank strictly between a and b, widening the payload
// alphabet when the gap is exhausted. a and b must be in the same bucket;
// if they are not, the bucket of a is used. Pass "" for a to mean
// "no lower bound", "" for b to mean "no upper bound".
func Between(a, b Rank) Rank {
	bucket := defaultBucket
	var loPayload, hiPayload string
	if a != "" {
		bucket, loPayload = split(a)
	}
	if b != "" {
		bucket2, p := split(b)
		hiPayload = p
		if a == "" {
			bucket = bucket2
		}
	}
	return join(bucket, rankBetweenPayloads(loPayload, hiPayload))
}

// After returns a rank strictly greater than a, with no upper bound.
func After(a Rank) Rank { return Between(a, "") }

// Before returns a rank strictly less than b, with no lower bound.
func Before(b Rank) Rank { return Between("", b) }

// Rebalance redistributes n ranks evenly across the default bucket's
// payload space, returning them in ascending order. It widens the alphabet
// automatically for n of 26 or more by using two-character payloads, etc.
func Rebalance(n int) []Rank {
	if n <= 0 {
		return nil
	}
	width := 1
	for alphabetPow(width) <= n {
		width++
	}
	out := make([]Rank, n)
	span := alphabetPow(width)
	step := span / (n + 1)
	if step < 1 {
		step = 1
	}
	for i := 0; i < n; i++ {
		idx := (i + 1) * step
		out[i] = join(defaultBucket, encodeBase26(idx, width))
	}
	return out
}

func alphabetPow(width int) int {
	p := 1
	for i := 0; i < width; i++ {
		p *= alphabetSize
	}
	return p
}

func encodeBase26(n, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(minRune) + byte(n%alphabetSize)
		n /= alphabetSize
	}
	return string(buf)
}

// Validate reports whether r is a syntactically well-formed lexorank
// (bucket|payload with payload over [a-z]+).
func Validate(r Rank) error {
	_, payload := split(r)
	if payload == "" {
		return fmt.Errorf("lexorank: empty payload in %q", r)
	}
	for _, c := range payload {
		if c < minRune || c > maxRune {
			return fmt.Errorf("lexorank: payload %q contains out-of-range character %q", payload, c)
		}
	}
	return nil
}
