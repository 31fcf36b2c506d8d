package lexorank

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBetweenOrdering(t *testing.T) {
	a := Rank("0|b")
	b := Rank("0|d")
	mid := Between(a, b)
	require.True(t, Less(a, mid) && Less(mid, b), "expected %q < %q < %q", a, mid, b)
}

func TestBetweenAdjacentWidensAlphabet(t *testing.T) {
	a := Rank("0|b")
	b := Rank("0|c")
	mid := Between(a, b)
	require.True(t, Less(a, mid) && Less(mid, b), "expected %q < %q < %q after widening", a, mid, b)
}

func TestAfterAndBefore(t *testing.T) {
	r := Rank("0|m")
	after := After(r)
	require.True(t, Less(r, after), "expected After(%q)=%q to sort after %q", r, after, r)
	before := Before(r)
	require.True(t, Less(before, r), "expected Before(%q)=%q to sort before %q", r, before, r)
}

func TestRankIdempotence(t *testing.T) {
	// Calling Between with the same neighbours twice yields the same
	// string both times (spec §8 "rank idempotence").
	a, b := Rank("0|a"), Rank("0|z")
	r1 := Between(a, b)
	r2 := Between(a, b)
	require.Equal(t, r1, r2, "expected deterministic result")
}

func TestRebalanceMonotonicity(t *testing.T) {
	ranks := Rebalance(10)
	require.Len(t, ranks, 10)
	for i := 1; i < len(ranks); i++ {
		require.True(t, Less(ranks[i-1], ranks[i]), "expected ranks[%d]=%q < ranks[%d]=%q", i-1, ranks[i-1], i, ranks[i])
	}
}

func TestRebalanceWidensForLargeN(t *testing.T) {
	ranks := Rebalance(100)
	require.Len(t, ranks, 100)
	for i := 1; i < len(ranks); i++ {
		require.True(t, Less(ranks[i-1], ranks[i]), "expected strictly increasing order at index %d", i)
	}
}

func TestSortByRank(t *testing.T) {
	type item struct {
		name string
		rank Rank
	}
	items := []item{
		{"c", "0|c"},
		{"a", "0|a"},
		{"b", "0|b"},
	}
	SortByRank(items, func(i item) Rank { return i.rank })
	want := []string{"a", "b", "c"}
	for i, w := range want {
		require.Equal(t, w, items[i].name, "index %d", i)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Rank("0|abc")), "expected valid rank")
	require.Error(t, Validate(Rank("0|")), "expected error for empty payload")
	require.Error(t, Validate(Rank("0|A1")), "expected error for out-of-range characters")
}
