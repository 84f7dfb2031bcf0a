// Package controller implements the single-threaded reactor that owns
// authoritative state and coordinates the Ingestor, Matcher, Ranked Store,
// Selection State, and Query Model (the "Controller / Event Loop", C8), per
// spec.md §4.8. Grounded on the teacher's orchestrator.Orchestrator style
// of one parent coordinating several long-lived goroutines via context
// cancellation, generalized from log ingestion to the fuzzy-finder's
// restart-on-query-edit semantics.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"sk/internal/ansi"
	"sk/internal/engine"
	"sk/internal/field"
	"sk/internal/ingest"
	"sk/internal/keymap"
	"sk/internal/logging"
	"sk/internal/matcher"
	"sk/internal/preview"
	"sk/internal/queryedit"
	"sk/internal/rank"
	"sk/internal/ranked"
	"sk/internal/record"
	"sk/internal/render"
	"sk/internal/selection"
)

// Config holds the startup-resolved, immutable parameters of one session.
type Config struct {
	Command    string // source command template; referencing {q} makes it query-dependent
	Shell      string
	Read0      bool
	ShowErrors bool

	ExactMode bool
	RegexMode bool
	Case      engine.Case
	Algo      engine.Algorithm
	Criteria  []rank.Criterion
	Tac       bool
	NoSort    bool

	Multi          bool
	Delimiter      *regexp.Regexp
	NthSpec        field.Spec
	WithNthSpec    field.Spec
	Keymap         keymap.Table
	TickInterval   time.Duration
	ViewportHeight int
	Ansi           bool

	PreviewCommand string
}

// ConfigError reports an invalid runtime configuration discovered after
// flag parsing but before the event loop starts, per spec.md §7.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("controller: %s: %v", e.Field, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Accept is the final output of a session: the committed records' output
// text (their raw lines), in selection order (or just the cursor item if nothing was
// selected), plus the expect-key label if one fired.
type Accept struct {
	Lines     []string
	ExpectKey string
	Aborted   bool
	Query     string
	Command   string
}

// Controller owns the authoritative state for one session.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	store           *record.Store
	runs            *RunTable
	matchSplitter   *field.Splitter // --nth: restricts the text fed to the match engine
	displaySplitter *field.Splitter // --with-nth: transforms the rendered text
	builder         rank.Builder

	ingestor     *ingest.Ingestor
	ingestHandle *ingest.Handle

	mtc    *matcher.Matcher
	ranked *ranked.Store[matcher.Item]

	sel      *selection.State
	query    *queryedit.Buffer
	cmdQuery *queryedit.Buffer
	yank     string

	previewRunner *preview.Runner

	eg      *errgroup.Group
	egCtx   context.Context
	rootCtx context.Context
}

// New constructs a Controller. Call Start to begin ingestion and matching.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Controller, error) {
	logger = logging.Default(logger).With("component", "controller")
	criteria := cfg.Criteria
	if len(criteria) == 0 {
		var err error
		criteria, err = rank.ParseCriteria("score,begin,end,length")
		if err != nil {
			return nil, &ConfigError{Field: "tiebreak", Err: err}
		}
	}

	c := &Controller{
		cfg:             cfg,
		logger:          logger,
		runs:            NewRunTable(),
		matchSplitter:   field.NewSplitter(cfg.Delimiter, cfg.NthSpec),
		displaySplitter: field.NewSplitter(cfg.Delimiter, cfg.WithNthSpec),
		builder:         rank.NewBuilder(criteria),
		ingestor:        ingest.New(logger),
		ranked:          ranked.New[matcher.Item](),
		sel:             selection.New(cfg.ViewportHeight, cfg.Multi),
		rootCtx:         ctx,
	}
	c.ranked.SetOrdering(cfg.NoSort, cfg.Tac)
	c.query = queryedit.New(&c.yank)
	c.cmdQuery = queryedit.New(&c.yank)

	if cfg.PreviewCommand != "" {
		c.previewRunner = preview.New(cfg.Shell, cfg.PreviewCommand, logger)
	}
	return c, nil
}

// Start launches the Ingestor and Matcher workers under an errgroup
// supervised by ctx, and performs the initial ingest+match for the empty
// query, per the teacher's goroutine-group supervision style in
// orchestrator.Orchestrator.
func (c *Controller) Start(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	c.eg = eg
	c.egCtx = egCtx

	query := c.query.Text()
	run := c.runs.RunFor(c.resolveCommand(query))
	c.store = record.New(run)
	c.mtc = matcher.New(c.store, c.ranked, c.logger)

	eg.Go(func() error { return c.mtc.Run(egCtx) })
	c.restartIngest(egCtx, query)
	c.restartMatch(query)
	return nil
}

// Seed installs prior history and an initial query text before Start,
// per spec.md §6's --query and history-file options.
func (c *Controller) Seed(query string, historyEntries []string) {
	c.query.SeedHistory(historyEntries)
	c.query.SetText(query)
}

// SeedHistory installs prior query history without changing the current
// query text.
func (c *Controller) SeedHistory(historyEntries []string) {
	c.query.SeedHistory(historyEntries)
}

// QueryBuffer exposes the fuzzy-query edit buffer for the event loop to
// drive directly (inserting typed runes that carry no bound action).
func (c *Controller) QueryBuffer() *queryedit.Buffer { return c.query }

// QueryText returns the current fuzzy-query text.
func (c *Controller) QueryText() string { return c.query.Text() }

// MatchCount returns the number of records currently ranked.
func (c *Controller) MatchCount() int { return c.ranked.Len() }

// TotalCount returns the number of records ingested so far.
func (c *Controller) TotalCount() int { return c.store.Len() }

// AcceptWithExpect computes the Accept as if the given expect-bound key
// had triggered acceptance, per spec.md §6's --expect option.
func (c *Controller) AcceptWithExpect(key string) *Accept { return c.accept(key) }

// WaitForMatch blocks until the Matcher reports it has scanned every
// ingested record, or timeout elapses; returns whether it caught up.
// Used by --sync to settle results before the first draw.
func (c *Controller) WaitForMatch(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.mtc.State().Done {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// AllMatchedOutputs returns every currently ranked record's output text,
// best-ranked first, for --filter's non-interactive mode.
func (c *Controller) AllMatchedOutputs() []string {
	items := c.ranked.GetSorted(c.ranked.Len())
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, c.resolveOutput(it.Value.Ref))
	}
	return out
}

// BuildRows renders the currently ranked records into Renderer Rows,
// best-ranked first, applying ANSI decoding when ansiMode is set and
// merging the match highlight over any ANSI-derived styling, per the
// Display-string overlay rule in spec.md §3. Returns the row index
// currently under the cursor, or -1 if the list is empty.
func (c *Controller) BuildRows(ansiMode bool) ([]render.Row, int) {
	items := c.ranked.GetSorted(c.ranked.Len())
	sn := c.store.Snapshot(0)
	cursorIdx := c.sel.CurrentIndex(len(items))

	rows := make([]render.Row, 0, len(items))
	for i, it := range items {
		rec, _ := lookupRecord(sn, it.Value.Ref)
		text := rec.Display
		if text == "" {
			text = rec.Raw
		}
		var styled render.Styled
		if ansiMode {
			plain, frags := ansi.Parse(text)
			styled = render.Styled{Text: plain, Fragments: frags}
		} else {
			styled = render.Plain(text)
		}
		styled.Fragments = render.MergeFragments(styled.Fragments, highlightFragments(it.Value.Range))
		rows = append(rows, render.Row{
			Line:     styled,
			Selected: c.sel.IsSelected(it.Value.Ref),
			Cursor:   i == cursorIdx,
		})
	}
	return rows, cursorIdx
}

func highlightFragments(matched []int) []render.Fragment {
	if len(matched) == 0 {
		return nil
	}
	idxs := append([]int(nil), matched...)
	sort.Ints(idxs)

	var frags []render.Fragment
	start, prev := idxs[0], idxs[0]
	flush := func(end int) {
		frags = append(frags, render.Fragment{Attr: render.AttrBold, Begin: start, End: end})
	}
	for _, idx := range idxs[1:] {
		if idx == prev+1 {
			prev = idx
			continue
		}
		flush(prev + 1)
		start, prev = idx, idx
	}
	flush(prev + 1)
	return frags
}

// Wait blocks until every supervised worker exits (normally only on
// context cancellation, i.e. session shutdown).
func (c *Controller) Wait() error {
	if c.eg == nil {
		return nil
	}
	return c.eg.Wait()
}

func (c *Controller) resolveCommand(query string) string {
	if c.cfg.Command == "" {
		return ""
	}
	return substituteQuery(c.cfg.Command, query)
}

func substituteQuery(template, query string) string {
	out := make([]byte, 0, len(template))
	for i := 0; i < len(template); i++ {
		if i+1 < len(template) && template[i] == '{' && template[i+1] == 'q' && i+2 < len(template) && template[i+2] == '}' {
			out = append(out, query...)
			i += 2
			continue
		}
		out = append(out, template[i])
	}
	return string(out)
}

func commandReferencesQuery(template string) bool {
	return regexp.MustCompile(`\{q\}`).MatchString(template)
}

// restartIngest cancels any running ingestor, resets the Record Store under
// the run number the RunTable holds for the resolved command (a new one the
// first time that command is seen), and starts a new ingest worker from the command
// interpolated with query.
func (c *Controller) restartIngest(ctx context.Context, query string) {
	if c.ingestHandle != nil {
		c.ingestHandle.Cancel()
	}
	cmd := c.resolveCommand(query)
	run := c.runs.RunFor(cmd)
	c.store.Rerun(run)

	var src ingest.Source
	if cmd == "" {
		src = ingest.StdinSource(c.cfg.Read0, c.cfg.ShowErrors)
	} else {
		src = ingest.CommandSource(c.cfg.Shell, cmd, c.cfg.Read0, c.cfg.ShowErrors)
	}

	out := make(chan ingest.Message, 256)
	c.ingestHandle = c.ingestor.Start(ctx, src, out)
	c.eg.Go(func() error {
		for msg := range out {
			text := msg.Text
			display := c.displaySplitter.Transform(text)
			if display == text {
				display = ""
			}
			match := c.matchSplitter.Transform(text)
			if match == text {
				match = ""
			}
			c.store.Append(text, display, match)
		}
		return nil
	})
}

// restartMatch clears the Ranked Store and tells the Matcher to re-evaluate
// from record 0 under a new epoch, per spec.md §4.8 step 1. The persistent
// selection set is untouched: per spec.md §3, selections survive query
// changes within a run, since Selected keys are stable record.Refs resolved
// independently of whatever currently ranks.
func (c *Controller) restartMatch(query string) {
	eng, err := c.buildEngine(query)
	if err != nil {
		c.logger.Warn("query parse error", "query", query, "error", err)
		return
	}
	c.mtc.Restart(c.egCtx, eng, c.builder)
}

func (c *Controller) buildEngine(query string) (engine.Engine, error) {
	if c.cfg.RegexMode {
		return engine.NewRegex(query)
	}
	return engine.Parse(query, engine.Options{ExactMode: c.cfg.ExactMode, Case: c.cfg.Case, Algo: c.cfg.Algo})
}

// OnQueryChange implements the restart orchestration from spec.md §4.8: if
// the command template references the query, the Ingestor and Record Store
// also restart under a new run; otherwise only the Matcher restarts.
func (c *Controller) OnQueryChange(query string) {
	if commandReferencesQuery(c.cfg.Command) {
		c.restartIngest(c.egCtx, query)
	}
	c.restartMatch(query)
}

// HandleAction applies one resolved keymap Action to the Controller's
// state. Query-edit actions are applied to whichever buffer is active;
// callers distinguish fuzzy-query vs command-query focus externally and
// pass the right Buffer.
func (c *Controller) HandleAction(a keymap.Action, buf *queryedit.Buffer) (accept *Accept, changed bool) {
	before := buf.Text()
	switch a.Kind {
	case keymap.ActAbort:
		return &Accept{Aborted: true}, false
	case keymap.ActAccept:
		return c.accept(""), false
	case keymap.ActClearQuery:
		buf.SetText("")
	case keymap.ActBackwardChar:
		buf.MoveLeft()
	case keymap.ActForwardChar:
		buf.MoveRight()
	case keymap.ActBackwardWord:
		buf.WordBackward()
	case keymap.ActForwardWord:
		buf.WordForward()
	case keymap.ActBackwardDeleteChar:
		buf.DeleteBackward()
	case keymap.ActDeleteChar:
		buf.DeleteForward()
	case keymap.ActBeginningOfLine:
		buf.Home()
	case keymap.ActEndOfLine:
		buf.End()
	case keymap.ActKillLine:
		buf.KillLine()
	case keymap.ActKillWord:
		buf.KillWordBackward()
	case keymap.ActYank:
		buf.Yank()
	case keymap.ActUp:
		c.sel.MoveCursor(1, c.ranked.Len())
	case keymap.ActDown:
		c.sel.MoveCursor(-1, c.ranked.Len())
	case keymap.ActPageUp:
		c.sel.PageUp(c.ranked.Len())
	case keymap.ActPageDown:
		c.sel.PageDown(c.ranked.Len())
	case keymap.ActHalfPageUp:
		c.sel.HalfPageUp(c.ranked.Len())
	case keymap.ActHalfPageDown:
		c.sel.HalfPageDown(c.ranked.Len())
	case keymap.ActToggle:
		if item, ok := c.currentRef(); ok {
			c.sel.Toggle(item.Ref)
		}
	case keymap.ActSelectAll:
		c.sel.SelectAll(c.allRankedRefs())
	case keymap.ActDeselectAll:
		c.sel.DeselectAll()
	case keymap.ActIgnore:
		// no-op
	}

	if buf.Text() != before {
		c.OnQueryChange(buf.Text())
	}
	return nil, buf.Text() != before
}

func (c *Controller) currentRef() (matcher.Item, bool) {
	idx := c.sel.CurrentIndex(c.ranked.Len())
	if idx < 0 {
		return matcher.Item{}, false
	}
	item, ok := c.ranked.Get(idx)
	if !ok {
		return matcher.Item{}, false
	}
	return item.Value, true
}

func (c *Controller) allRankedRefs() []record.Ref {
	n := c.ranked.Len()
	refs := make([]record.Ref, 0, n)
	for i := 0; i < n; i++ {
		it, ok := c.ranked.Get(i)
		if !ok {
			break
		}
		refs = append(refs, it.Value.Ref)
	}
	return refs
}

// accept computes the final output per spec.md §4.8: selected items (in
// insertion order) plus the current cursor item if none are selected.
func (c *Controller) accept(expectKey string) *Accept {
	selectedKeys := c.sel.Selected()
	var lines []string
	if len(selectedKeys) > 0 {
		for _, key := range selectedKeys {
			lines = append(lines, c.resolveOutput(key))
		}
	} else if item, ok := c.currentRef(); ok {
		lines = append(lines, c.resolveOutput(item.Ref))
	}
	query := c.query.Text()
	return &Accept{
		Lines:     lines,
		ExpectKey: expectKey,
		Query:     query,
		Command:   c.resolveCommand(query),
	}
}

func (c *Controller) resolveOutput(ref record.Ref) string {
	sn := c.store.Snapshot(0)
	rec, ok := lookupRecord(sn, ref)
	if !ok {
		return ""
	}
	return rec.Raw
}

func lookupRecord(sn record.Snapshot, ref record.Ref) (record.Record, bool) {
	if ref.Run != sn.Run() || int(ref.Index) >= sn.Len() {
		return record.Record{}, false
	}
	return sn.At(int(ref.Index)), true
}
