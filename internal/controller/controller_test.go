package controller

import (
	"context"
	"strings"
	"testing"
	"time"

	"sk/internal/keymap"
	"sk/internal/record"
)

func waitForMatches(t *testing.T, c *Controller, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.ranked.Len() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d matches, got %d", want, c.ranked.Len())
}

func TestControllerIngestsAndMatches(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'alpha\\nbeta\\ngamma\\n'", Shell: "sh", ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitForMatches(t, c, 3, time.Second)

	item, ok := c.currentRef()
	if !ok {
		t.Fatal("expected a current ref under the cursor")
	}
	out := c.resolveOutput(item.Ref)
	if out == "" {
		t.Fatal("expected non-empty resolved output")
	}
}

func TestControllerAcceptWithoutSelectionUsesCursor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'one\\ntwo\\nthree\\n'", Shell: "sh", ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 3, time.Second)

	acc := c.accept("")
	if len(acc.Lines) != 1 {
		t.Fatalf("expected exactly one accepted line from the cursor, got %v", acc.Lines)
	}
}

func TestControllerAcceptReturnsSelectionInOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'one\\ntwo\\nthree\\n'", Shell: "sh", Multi: true, ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 3, time.Second)

	c.HandleAction(keymap.Action{Kind: keymap.ActToggle}, c.query)
	c.HandleAction(keymap.Action{Kind: keymap.ActUp}, c.query)
	c.HandleAction(keymap.Action{Kind: keymap.ActToggle}, c.query)

	acc := c.accept("")
	if len(acc.Lines) != 2 {
		t.Fatalf("expected 2 selected lines, got %v", acc.Lines)
	}
	if acc.Lines[0] != "one" || acc.Lines[1] != "two" {
		t.Fatalf("expected [one two] in selection order, got %v", acc.Lines)
	}
}

func TestControllerAbortReportsAborted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := New(ctx, Config{ViewportHeight: 10}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	acc, _ := c.HandleAction(keymap.Action{Kind: keymap.ActAbort}, c.query)
	if acc == nil || !acc.Aborted {
		t.Fatalf("expected Aborted accept, got %+v", acc)
	}
}

func TestSubstituteQueryAndReferencesQuery(t *testing.T) {
	if got := substituteQuery("grep {q} file.txt", "needle"); got != "grep needle file.txt" {
		t.Fatalf("substituteQuery = %q", got)
	}
	if !commandReferencesQuery("grep {q} file.txt") {
		t.Fatal("expected command to reference query")
	}
	if commandReferencesQuery("cat file.txt") {
		t.Fatal("expected command to not reference query")
	}
}

func TestQueryChangeDrivesMatcherRestart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'apple\\nbanana\\ncherry\\n'", Shell: "sh", ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 3, time.Second)

	for _, r := range "an" {
		c.HandleAction(keymap.Action{Kind: keymap.ActIgnore}, c.query)
		c.query.InsertRune(r)
		c.OnQueryChange(c.query.Text())
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if item, ok := c.currentRef(); ok {
			text := c.resolveOutput(item.Ref)
			if strings.Contains(text, "an") {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected a match containing the narrowed query")
}

func TestSeedInstallsInitialQueryAndHistory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'apple\\nbanana\\n'", Shell: "sh", ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Seed("ban", []string{"old query"})
	if c.QueryText() != "ban" {
		t.Fatalf("QueryText() = %q, want ban", c.QueryText())
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 1, time.Second)
	if c.MatchCount() != 1 {
		t.Fatalf("MatchCount() = %d, want 1 (only banana matches 'ban')", c.MatchCount())
	}
}

func TestWaitForMatchReturnsTrueOnceSettled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'a\\nb\\nc\\n'", Shell: "sh", ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.WaitForMatch(time.Second) {
		t.Fatal("expected WaitForMatch to settle within timeout")
	}
	if c.TotalCount() != 3 {
		t.Fatalf("TotalCount() = %d, want 3", c.TotalCount())
	}
}

func TestAllMatchedOutputsReturnsEveryRankedRecord(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'x\\ny\\nz\\n'", Shell: "sh", ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 3, time.Second)

	outs := c.AllMatchedOutputs()
	if len(outs) != 3 {
		t.Fatalf("AllMatchedOutputs() = %v, want 3 entries", outs)
	}
}

func TestBuildRowsMarksCursorAndSelection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'one\\ntwo\\n'", Shell: "sh", Multi: true, ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 2, time.Second)

	c.HandleAction(keymap.Action{Kind: keymap.ActToggle}, c.query)

	rows, cursorRow := c.BuildRows(false)
	if len(rows) != 2 {
		t.Fatalf("BuildRows returned %d rows, want 2", len(rows))
	}
	if cursorRow < 0 || cursorRow >= len(rows) {
		t.Fatalf("cursorRow = %d out of range", cursorRow)
	}
	if !rows[cursorRow].Cursor {
		t.Fatal("row at cursorRow should have Cursor set")
	}
	selectedCount := 0
	for _, r := range rows {
		if r.Selected {
			selectedCount++
		}
	}
	if selectedCount != 1 {
		t.Fatalf("expected exactly one selected row, got %d", selectedCount)
	}
}

func TestAcceptWithExpectCarriesTheExpectKey(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'solo\\n'", Shell: "sh", ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 1, time.Second)

	acc := c.AcceptWithExpect("ctrl-o")
	if acc.ExpectKey != "ctrl-o" {
		t.Fatalf("ExpectKey = %q, want ctrl-o", acc.ExpectKey)
	}
	if len(acc.Lines) != 1 {
		t.Fatalf("Lines = %v", acc.Lines)
	}
}

func TestAcceptCarriesQueryAndCommand(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'a\\n' {q}", Shell: "sh", ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 1, time.Second)

	acc := c.accept("")
	if acc.Command != "printf 'a\\n' " {
		t.Fatalf("Command = %q", acc.Command)
	}
	if acc.Query != "" {
		t.Fatalf("Query = %q, want empty", acc.Query)
	}
}

func TestSelectionSurvivesQueryChangeThatDeranksTheRecord(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := Config{Command: "printf 'alpha\\nbeta\\ngamma\\n'", Shell: "sh", Multi: true, ViewportHeight: 10}
	c, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForMatches(t, c, 3, time.Second)

	var betaRef record.Ref
	for i := 0; i < c.ranked.Len(); i++ {
		item, _ := c.ranked.Get(i)
		if out := c.resolveOutput(item.Value.Ref); out == "beta" {
			betaRef = item.Value.Ref
			c.sel.Toggle(item.Value.Ref)
			break
		}
	}
	if betaRef == (record.Ref{}) {
		t.Fatal("could not find beta to select")
	}

	c.query.InsertRune('z')
	c.OnQueryChange(c.query.Text())

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && c.ranked.Len() > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if c.ranked.Len() != 0 {
		t.Fatalf("expected query 'z' to match nothing, got %d matches", c.ranked.Len())
	}

	acc := c.accept("")
	if len(acc.Lines) != 1 || acc.Lines[0] != "beta" {
		t.Fatalf("expected selection to survive the query change, got %v", acc.Lines)
	}
}

func TestHighlightFragmentsCoalescesAdjacentRuns(t *testing.T) {
	frags := highlightFragments([]int{0, 1, 2, 5, 6})
	if len(frags) != 2 {
		t.Fatalf("fragments = %+v, want 2 runs", frags)
	}
	if frags[0].Begin != 0 || frags[0].End != 3 {
		t.Fatalf("first run = %+v, want [0,3)", frags[0])
	}
	if frags[1].Begin != 5 || frags[1].End != 7 {
		t.Fatalf("second run = %+v, want [5,7)", frags[1])
	}
}

func TestHighlightFragmentsEmptyInput(t *testing.T) {
	if frags := highlightFragments(nil); frags != nil {
		t.Fatalf("expected nil for no matches, got %+v", frags)
	}
}
