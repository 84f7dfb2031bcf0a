package config

import "testing"

func TestLoadParsesPositionalCommand(t *testing.T) {
	opts, err := Load([]string{"ls -la"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Command != "ls -la" {
		t.Fatalf("command = %q", opts.Command)
	}
}

func TestLoadCmdFlagOverridesPositional(t *testing.T) {
	opts, err := Load([]string{"--cmd", "find .", "ls -la"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Command != "find ." {
		t.Fatalf("command = %q, want %q", opts.Command, "find .")
	}
}

func TestResolveDefaultsProduceNoError(t *testing.T) {
	opts, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := opts.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Tabstop != 8 {
		t.Fatalf("tabstop = %d, want 8", resolved.Tabstop)
	}
	if len(resolved.Controller.Criteria) == 0 {
		t.Fatal("expected default tiebreak criteria")
	}
}

func TestResolveRejectsUnknownAlgo(t *testing.T) {
	opts, err := Load([]string{"--algo", "bogus"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := opts.Resolve(); err == nil {
		t.Fatal("expected error for unknown algo")
	}
}

func TestResolveRejectsUnknownCase(t *testing.T) {
	opts, err := Load([]string{"--case", "bogus"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := opts.Resolve(); err == nil {
		t.Fatal("expected error for unknown case mode")
	}
}

func TestResolveRejectsBadDelimiterRegex(t *testing.T) {
	opts, err := Load([]string{"--delimiter", "("})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := opts.Resolve(); err == nil {
		t.Fatal("expected error for invalid delimiter regex")
	}
}

func TestResolveInteractiveAppendsQueryPlaceholder(t *testing.T) {
	opts, err := Load([]string{"--interactive", "--cmd", "grep foo"})
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := opts.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Controller.Command != "grep foo {q}" {
		t.Fatalf("command = %q", resolved.Controller.Command)
	}
}

func TestResolveFilterSetsFiltering(t *testing.T) {
	opts, err := Load([]string{"--filter", "needle"})
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := opts.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if !resolved.Filtering || resolved.FilterQuery != "needle" {
		t.Fatalf("resolved = %+v", resolved)
	}
}

func TestResolveThemePresetAndOverride(t *testing.T) {
	opts, err := Load([]string{"--color-preset", "light", "--color", "fg:1"})
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := opts.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if c := resolved.Theme.Get("fg"); c.Index != 1 {
		t.Fatalf("fg override not applied: %+v", c)
	}
}

func TestParseMarginVariants(t *testing.T) {
	top, right, bottom, left, err := ParseMargin("1")
	if err != nil || top != 1 || right != 1 || bottom != 1 || left != 1 {
		t.Fatalf("single value margin = %d %d %d %d, err %v", top, right, bottom, left, err)
	}
	top, right, bottom, left, err = ParseMargin("1,2")
	if err != nil || top != 1 || right != 2 || bottom != 1 || left != 2 {
		t.Fatalf("pair margin = %d %d %d %d, err %v", top, right, bottom, left, err)
	}
	top, right, bottom, left, err = ParseMargin("1,2,3,4")
	if err != nil || top != 1 || right != 2 || bottom != 3 || left != 4 {
		t.Fatalf("quad margin = %d %d %d %d, err %v", top, right, bottom, left, err)
	}
	if _, _, _, _, err := ParseMargin("1,2,3"); err == nil {
		t.Fatal("expected error for 3-value margin")
	}
}

func TestSplitCommaLists(t *testing.T) {
	got := splitCommaLists([]string{"ctrl-q,ctrl-x", "enter"})
	want := []string{"ctrl-q", "ctrl-x", "enter"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
