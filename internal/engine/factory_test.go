package engine

import (
	"testing"

	"sk/internal/rank"
)

func mustBuilder() rank.Builder {
	crit, _ := rank.ParseCriteria("score,begin,end,length")
	return rank.NewBuilder(crit)
}

func TestParseEmptyQueryIsMatchAll(t *testing.T) {
	eng, err := Parse("", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := eng.(MatchAll); !ok {
		t.Fatalf("empty query should parse to MatchAll, got %T", eng)
	}
}

func TestParseBareInverseIsMatchAll(t *testing.T) {
	eng, err := Parse("!", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := eng.(MatchAll); !ok {
		t.Fatalf("bare ! should parse to MatchAll, got %T", eng)
	}
}

func TestParseAndOfOr(t *testing.T) {
	eng, err := Parse("cat | dog fish", Options{ExactMode: true})
	if err != nil {
		t.Fatal(err)
	}
	b := mustBuilder()

	match := func(text string) bool {
		_, ok := eng.Match(text, int32(len(text)), b)
		return ok
	}
	if !match("cat fish") {
		t.Fatal("expected match: cat fish")
	}
	if match("cat dog") {
		t.Fatal("unexpected match: cat dog (missing fish)")
	}
	if !match("dog fish") {
		t.Fatal("expected match: dog fish")
	}
}

func TestParseExactPrefixPostfix(t *testing.T) {
	eng, err := Parse("^foo", Options{})
	if err != nil {
		t.Fatal(err)
	}
	b := mustBuilder()
	if _, ok := eng.Match("foobar", 6, b); !ok {
		t.Fatal("expected prefix match on foobar")
	}
	if _, ok := eng.Match("barfoo", 6, b); ok {
		t.Fatal("unexpected prefix match on barfoo")
	}
}

func TestParseEscapedSpace(t *testing.T) {
	eng, err := Parse(`foo\ bar`, Options{ExactMode: true})
	if err != nil {
		t.Fatal(err)
	}
	b := mustBuilder()
	if _, ok := eng.Match("foo bar baz", 11, b); !ok {
		t.Fatal("expected literal space to be preserved in token")
	}
}

func TestFuzzyOrdersByScore(t *testing.T) {
	eng := NewFuzzy("ap", CaseIgnore, AlgoSkimV2)
	b := mustBuilder()

	appleResult, ok := eng.Match("apple", 5, b)
	if !ok {
		t.Fatal("apple should match ap")
	}
	grapeResult, ok := eng.Match("grape", 5, b)
	if !ok {
		t.Fatal("grape should match ap")
	}
	bananaResult, ok := eng.Match("banana", 6, b)
	if ok {
		t.Fatalf("banana should not match ap, got %+v", bananaResult)
	}
	if !rank.Less(appleResult.Rank, grapeResult.Rank) {
		t.Fatalf("apple should outrank grape: %v vs %v", appleResult.Rank, grapeResult.Rank)
	}
}

func TestRegexEmptyMatchesAllWithZeroScore(t *testing.T) {
	eng, err := NewRegex("")
	if err != nil {
		t.Fatal(err)
	}
	b := mustBuilder()
	m, ok := eng.Match("anything", 8, b)
	if !ok {
		t.Fatal("empty regex should match")
	}
	if m.Rank[0] != 0 {
		t.Fatalf("expected zero score component, got %v", m.Rank)
	}
}
