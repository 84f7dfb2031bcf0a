package keymap

import "testing"

func TestDefaultTableHasCoreBindings(t *testing.T) {
	t1 := Default()
	if a := t1[Key{Name: "enter"}]; a.Kind != ActAccept {
		t.Fatalf("enter = %v, want accept", a.Kind)
	}
	if a := t1[Key{Name: "ctrl-c"}]; a.Kind != ActAbort {
		t.Fatalf("ctrl-c = %v, want abort", a.Kind)
	}
}

func TestParseOverridesDefault(t *testing.T) {
	base := Default()
	table, err := Parse(base, []string{"ctrl-x:abort"})
	if err != nil {
		t.Fatal(err)
	}
	if a := table[Key{Name: "ctrl-x"}]; a.Kind != ActAbort {
		t.Fatalf("ctrl-x = %v, want abort", a.Kind)
	}
	if a := table[Key{Name: "enter"}]; a.Kind != ActAccept {
		t.Fatalf("base binding was lost: enter = %v", a.Kind)
	}
}

func TestParseLaterSpecWins(t *testing.T) {
	table, err := Parse(Table{}, []string{"ctrl-x:abort,ctrl-x:accept"})
	if err != nil {
		t.Fatal(err)
	}
	if a := table[Key{Name: "ctrl-x"}]; a.Kind != ActAccept {
		t.Fatalf("ctrl-x = %v, want accept (later spec should win)", a.Kind)
	}
}

func TestParseBareRuneKey(t *testing.T) {
	table, err := Parse(Table{}, []string{"q:abort"})
	if err != nil {
		t.Fatal(err)
	}
	if a := table[Key{Rune: 'q'}]; a.Kind != ActAbort {
		t.Fatalf("q = %v, want abort", a.Kind)
	}
}

func TestParseActionWithArg(t *testing.T) {
	table, err := Parse(Table{}, []string{"ctrl-o:execute(less {})"})
	if err != nil {
		t.Fatal(err)
	}
	a := table[Key{Name: "ctrl-o"}]
	if a.Kind != ActExecute {
		t.Fatalf("kind = %v, want execute", a.Kind)
	}
	if a.Arg != "less {}" {
		t.Fatalf("arg = %q", a.Arg)
	}
}

func TestParseRejectsUnknownAction(t *testing.T) {
	if _, err := Parse(Table{}, []string{"ctrl-x:not-a-real-action"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestParseRejectsMissingColon(t *testing.T) {
	if _, err := Parse(Table{}, []string{"ctrl-x"}); err == nil {
		t.Fatal("expected error for missing ':'")
	}
}

func TestParseFunctionKey(t *testing.T) {
	table, err := Parse(Table{}, []string{"f5:abort"})
	if err != nil {
		t.Fatal(err)
	}
	if a := table[Key{Name: "f5"}]; a.Kind != ActAbort {
		t.Fatalf("f5 = %v, want abort", a.Kind)
	}
}

func TestKeyString(t *testing.T) {
	if (Key{Name: "ctrl-a"}).String() != "ctrl-a" {
		t.Fatal("named key String() mismatch")
	}
	if (Key{Rune: 'x'}).String() != "x" {
		t.Fatal("rune key String() mismatch")
	}
}
