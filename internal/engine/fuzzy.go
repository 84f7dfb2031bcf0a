package engine

import (
	"unicode"

	"sk/internal/rank"
)

// Algorithm selects the fuzzy scoring constants, grounded on the reference
// implementation's FuzzyAlgorithm enum (SkimV1, SkimV2, Clangd): supplemented
// from original_source since spec.md's --algo flag names them, but no
// Go-ecosystem fuzzy-matching library in the example pack implements any of
// the three, so the scorer itself is a standard-library algorithm (see
// DESIGN.md).
type Algorithm int

const (
	AlgoSkimV2 Algorithm = iota
	AlgoSkimV1
	AlgoClangd
)

const (
	bonusBoundary    = int32(8)
	bonusCamel123    = int32(7)
	bonusConsecutive = int32(4)
	bonusFirstChar   = int32(2)
	bonusClangdExtra = int32(1)
	matchBase        = int32(1)
)

// Fuzzy is an approximate subsequence scorer: a higher score is better.
// Grounded on engine/fuzzy.rs's wrapping of an external scorer; reimplemented
// here as a dynamic-programming subsequence aligner with boundary and
// consecutive-run bonuses (SkimV2-style), since the scoring algorithm is
// itself under spec, not an ambient concern delegable to a library.
type Fuzzy struct {
	Query string
	Case  Case
	Algo  Algorithm

	query []rune
}

// NewFuzzy builds a Fuzzy engine for the given query text.
func NewFuzzy(query string, c Case, algo Algorithm) *Fuzzy {
	return &Fuzzy{Query: query, Case: c, Algo: algo, query: []rune(query)}
}

func (f *Fuzzy) String() string { return f.Query }

func (f *Fuzzy) Match(text string, length int32, b rank.Builder) (MatchResult, bool) {
	if len(f.query) == 0 {
		return MatchResult{Rank: b.Build(0, 0, 0, length)}, true
	}
	runes := []rune(text)
	ci := caseInsensitive(f.Query, f.Case)

	score, begin, end, ranges, ok := fuzzyScore(runes, f.query, ci, f.Algo)
	if !ok {
		return MatchResult{}, false
	}
	return MatchResult{Rank: b.Build(score, int32(begin), int32(end), length), Ranges: ranges}, true
}

const minScore = int32(-1 << 30)

// fuzzyScore finds the best-scoring way to match query as an ordered
// subsequence of text. M[i][j] is the best score matching query[:j] using
// text[:i] with query[j-1] matched at text index i-1. bestVal[j]/bestPos[j]
// track, as rows are processed in order, the best M[i'][j] seen so far and
// the i' that achieved it, letting each cell choose between extending the
// immediately preceding character (earning the consecutive-run bonus) or
// jumping from the best earlier match of query[:j-1].
func fuzzyScore(text, query []rune, caseInsensitive bool, algo Algorithm) (score int32, begin, end int, ranges []int, ok bool) {
	n, m := len(text), len(query)
	if m == 0 || n == 0 || m > n {
		return 0, 0, 0, nil, false
	}

	tl, ql := text, query
	if caseInsensitive {
		tl, ql = toLower(text), toLower(query)
	}

	M := make([][]int32, n+1)
	P := make([][]int, n+1) // P[i][j] = previous matched text index (0-based), or -1 if start
	for i := range M {
		M[i] = make([]int32, m+1)
		P[i] = make([]int, m+1)
		for j := range M[i] {
			M[i][j] = minScore
			P[i][j] = -1
		}
	}

	bestVal := make([]int32, m+1)
	bestPos := make([]int, m+1)
	for j := range bestVal {
		bestVal[j] = minScore
		bestPos[j] = -1
	}

	var topScore int32 = minScore
	topEndRow := -1

	for i := 1; i <= n; i++ {
		// j descends so bestVal[j-1] still holds only rows before i.
		for j := m; j >= 1; j-- {
			if tl[i-1] != ql[j-1] {
				continue
			}
			bonus := charBonus(text, i-1, algo)

			var best int32 = minScore
			prevIdx := -1

			if j == 1 {
				best = bonus
				prevIdx = -1
			} else {
				// Option A: extend the match adjacent to text[i-2].
				if M[i-1][j-1] != minScore {
					cand := M[i-1][j-1] + bonus + bonusConsecutive
					if cand > best {
						best, prevIdx = cand, i-2
					}
				}
				// Option B: jump from the best earlier match of query[:j-1].
				if bestVal[j-1] != minScore {
					cand := bestVal[j-1] + bonus
					if cand > best {
						best, prevIdx = cand, bestPos[j-1]
					}
				}
			}
			if best == minScore {
				continue
			}
			M[i][j] = best
			P[i][j] = prevIdx

			if best > bestVal[j] {
				bestVal[j] = best
				bestPos[j] = i - 1
			}
			if j == m && best > topScore {
				topScore = best
				topEndRow = i
			}
		}
	}

	if topEndRow < 0 {
		return 0, 0, 0, nil, false
	}

	idxs := make([]int, m)
	row, col := topEndRow, m
	for col >= 1 {
		idxs[col-1] = row - 1
		prevIdx := P[row][col]
		col--
		if prevIdx == -1 {
			break
		}
		row = prevIdx + 1
	}
	return topScore, idxs[0], idxs[len(idxs)-1] + 1, idxs, true
}

func charBonus(text []rune, i int, algo Algorithm) int32 {
	b := matchBase
	if i == 0 {
		return b + bonusFirstChar
	}
	prev, cur := text[i-1], text[i]
	switch {
	case isBoundary(prev):
		b += bonusBoundary
	case unicode.IsLower(prev) && unicode.IsUpper(cur):
		b += bonusCamel123
	case unicode.IsDigit(cur) && !unicode.IsDigit(prev):
		b += bonusCamel123
	}
	if algo == AlgoClangd {
		b += bonusClangdExtra
	}
	return b
}

func isBoundary(r rune) bool {
	return r == '/' || r == '-' || r == '_' || r == ' ' || r == '.' || r == ','
}

func toLower(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}
