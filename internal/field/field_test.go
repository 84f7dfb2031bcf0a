package field

import (
	"regexp"
	"testing"
)

func commaDelim() *regexp.Regexp { return regexp.MustCompile(",") }

func TestParseSingle(t *testing.T) {
	r, ok := Parse("2")
	if !ok || r.hasSep || r.left != 2 {
		t.Fatalf("parse 2: %+v ok=%v", r, ok)
	}
}

func TestParseVariants(t *testing.T) {
	cases := []string{"2..3", "..3", "2..", "..", "-1", "-2..-1"}
	for _, c := range cases {
		if _, ok := Parse(c); !ok {
			t.Fatalf("parse %q failed", c)
		}
	}
	if _, ok := Parse("abc"); ok {
		t.Fatalf("parse abc should fail")
	}
}

func TestBoundsSingleAndNegative(t *testing.T) {
	r, _ := Parse("1")
	b, e := r.Bounds(5)
	if b != 0 || e != 1 {
		t.Fatalf("bounds(1,5) = %d,%d", b, e)
	}
	r, _ = Parse("-1")
	b, e = r.Bounds(5)
	if b != 4 || e != 5 {
		t.Fatalf("bounds(-1,5) = %d,%d", b, e)
	}
}

func TestBoundsRanges(t *testing.T) {
	r, _ := Parse("2..3")
	b, e := r.Bounds(5)
	if b != 1 || e != 3 {
		t.Fatalf("bounds(2..3,5) = %d,%d", b, e)
	}
	r, _ = Parse("..2")
	b, e = r.Bounds(5)
	if b != 0 || e != 2 {
		t.Fatalf("bounds(..2,5) = %d,%d", b, e)
	}
	r, _ = Parse("3..")
	b, e = r.Bounds(5)
	if b != 2 || e != 5 {
		t.Fatalf("bounds(3..,5) = %d,%d", b, e)
	}
	r, _ = Parse("..")
	b, e = r.Bounds(5)
	if b != 0 || e != 5 {
		t.Fatalf("bounds(..,5) = %d,%d", b, e)
	}
}

func TestBoundsOutOfRange(t *testing.T) {
	r, _ := Parse("10")
	b, e := r.Bounds(5)
	if b != 0 || e != 0 {
		t.Fatalf("out-of-range single should be empty, got %d,%d", b, e)
	}
}

func TestSplitterRejoinIsLossless(t *testing.T) {
	text := "a,b,c,d"
	spec, ok := ParseSpec("1..")
	if !ok {
		t.Fatal("parse spec failed")
	}
	sp := NewSplitter(commaDelim(), spec)
	if got := sp.Transform(text); got != text {
		t.Fatalf("rejoin = %q, want %q", got, text)
	}
}

func TestSplitterSelectField(t *testing.T) {
	text := "a,b,c"
	spec, _ := ParseSpec("2")
	sp := NewSplitter(commaDelim(), spec)
	ranges := sp.Ranges(text)
	if len(ranges) != 1 {
		t.Fatalf("ranges = %v", ranges)
	}
	got := text[ranges[0][0]:ranges[0][1]]
	if got != ",b" {
		t.Fatalf("field 2 (with leading delim) = %q, want %q", got, ",b")
	}
}

func TestSplitterEmptySpecIsNoOp(t *testing.T) {
	text := "a,b,c"
	sp := NewSplitter(commaDelim(), nil)
	if sp.Transform(text) != text {
		t.Fatalf("empty spec should be a no-op")
	}
}

func TestMultiByteUTF8Fields(t *testing.T) {
	text := "中,华,人,民,E,F"
	spec, _ := ParseSpec("5..")
	sp := NewSplitter(commaDelim(), spec)
	got := text[sp.Ranges(text)[0][0]:]
	if got != ",E,F" {
		t.Fatalf("got %q", got)
	}
}
