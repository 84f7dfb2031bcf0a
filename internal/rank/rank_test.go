package rank

import "testing"

func TestParseCriteriaOrderPreservingDedup(t *testing.T) {
	crit, err := ParseCriteria("score,begin,score,end")
	if err != nil {
		t.Fatal(err)
	}
	want := []Criterion{Score, Begin, End}
	if len(crit) != len(want) {
		t.Fatalf("crit = %v, want %v", crit, want)
	}
	for i := range want {
		if crit[i] != want[i] {
			t.Fatalf("crit[%d] = %v, want %v", i, crit[i], want[i])
		}
	}
}

func TestParseCriteriaTruncatesToMax(t *testing.T) {
	crit, err := ParseCriteria("score,begin,end,length,-score")
	if err != nil {
		t.Fatal(err)
	}
	if len(crit) != MaxCriteria {
		t.Fatalf("len = %d, want %d", len(crit), MaxCriteria)
	}
}

func TestParseCriteriaEmptyDefaultsToStandard(t *testing.T) {
	crit, err := ParseCriteria("")
	if err != nil {
		t.Fatal(err)
	}
	want := []Criterion{Score, Begin, End, Length}
	for i := range want {
		if crit[i] != want[i] {
			t.Fatalf("crit = %v, want %v", crit, want)
		}
	}
}

func TestParseCriteriaRejectsUnknown(t *testing.T) {
	if _, err := ParseCriteria("bogus"); err == nil {
		t.Fatal("expected error for unknown criterion")
	}
}

func TestBuilderHigherScoreSortsFirst(t *testing.T) {
	b := NewBuilder([]Criterion{Score})
	better := b.Build(100, 0, 0, 0)
	worse := b.Build(50, 0, 0, 0)
	if !Less(better, worse) {
		t.Fatalf("higher score should sort first: %v vs %v", better, worse)
	}
}

func TestBuilderEarlierBeginSortsFirst(t *testing.T) {
	b := NewBuilder([]Criterion{Score, Begin})
	a := b.Build(10, 2, 5, 20)
	c := b.Build(10, 5, 9, 20)
	if !Less(a, c) {
		t.Fatalf("earlier begin should sort first: %v vs %v", a, c)
	}
}

func TestNegatedCriterionReversesOrder(t *testing.T) {
	b := NewBuilder([]Criterion{NegScore})
	high := b.Build(100, 0, 0, 0)
	low := b.Build(50, 0, 0, 0)
	if !Less(low, high) {
		t.Fatalf("-score should reverse ordering: %v vs %v", low, high)
	}
}

func TestCompare(t *testing.T) {
	b := NewBuilder([]Criterion{Score})
	a := b.Build(10, 0, 0, 0)
	same := b.Build(10, 0, 0, 0)
	if Compare(a, same) != 0 {
		t.Fatalf("expected equal ranks to compare 0")
	}
	higher := b.Build(20, 0, 0, 0)
	if Compare(higher, a) != -1 {
		t.Fatalf("higher score should compare -1 (sorts first)")
	}
	if Compare(a, higher) != 1 {
		t.Fatalf("lower score should compare 1")
	}
}
