// Command sk is an interactive terminal fuzzy finder: it ingests records
// from standard input or a source command, narrows them live against a
// query, and prints the selection to standard output. Grounded on the
// teacher's cmd/gastrolog entrypoint shape (cobra command wired through
// internal/config, context-scoped run, explicit os.Exit code), adapted
// from a long-running log-collection daemon into a one-shot interactive
// session.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	isatty "github.com/mattn/go-isatty"
	"github.com/google/uuid"

	"sk/internal/config"
	"sk/internal/controller"
	"sk/internal/history"
	"sk/internal/logging"
	"sk/internal/render"
)

func main() {
	os.Exit(run())
}

// Exit codes per spec.md §7.
const (
	exitMatched     = 0
	exitNoMatch     = 1
	exitStartupErr  = 2
	exitUserAbort   = 130
	exitInternalErr = 135
)

func run() int {
	opts, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStartupErr
	}
	resolved, err := opts.Resolve()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStartupErr
	}

	sessionID := uuid.New().String()
	logger := logging.Default(nil).With("session", sessionID)

	if !isatty.IsTerminal(os.Stdin.Fd()) && resolved.Controller.Command == "" {
		// stdin carries records; leave Command empty so Controller reads it.
	} else if resolved.Controller.Command == "" {
		fmt.Fprintln(os.Stderr, "sk: no input source: pipe data in or pass a command")
		return exitStartupErr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var histEntries []string
	if resolved.HistoryFile != "" {
		histEntries, _ = history.Load(resolved.HistoryFile, resolved.HistorySize)
	}

	ctrl, err := controller.New(ctx, resolved.Controller, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStartupErr
	}
	if resolved.InitialQuery != "" {
		ctrl.Seed(resolved.InitialQuery, histEntries)
	} else {
		ctrl.SeedHistory(histEntries)
	}
	if err := ctrl.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternalErr
	}

	if resolved.Filtering {
		return runFilter(ctrl, resolved)
	}

	acc, err := runInteractive(ctx, ctrl, resolved, logger)
	cancel()
	_ = ctrl.Wait()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternalErr
	}
	if acc == nil || acc.Aborted {
		return exitUserAbort
	}
	if resolved.HistoryFile != "" && ctrl.QueryText() != "" {
		entries := history.Push(histEntries, ctrl.QueryText(), resolved.HistorySize)
		_ = history.Save(resolved.HistoryFile, entries, resolved.HistorySize)
	}
	return writeAccept(acc, resolved)
}

func writeAccept(acc *controller.Accept, resolved *config.Resolved) int {
	term := "\n"
	if resolved.Print0 {
		term = "\x00"
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	if resolved.PrintQuery {
		fmt.Fprint(w, acc.Query, term)
	}
	if resolved.PrintCmd {
		fmt.Fprint(w, acc.Command, term)
	}
	if acc.ExpectKey != "" {
		fmt.Fprint(w, acc.ExpectKey, term)
	}
	for _, line := range acc.Lines {
		fmt.Fprint(w, line, term)
	}
	if len(acc.Lines) == 0 {
		return exitNoMatch
	}
	return exitMatched
}

// runFilter implements --filter: score the given query against the fully
// ingested source and print matches without drawing a screen, per the
// non-interactive scripting mode in spec.md §6.
func runFilter(ctrl *controller.Controller, resolved *config.Resolved) int {
	ctrl.OnQueryChange(resolved.FilterQuery)
	time.Sleep(200 * time.Millisecond) // best-effort settle; Sync below tightens this
	if resolved.Sync {
		ctrl.WaitForMatch(2 * time.Second)
	}
	lines := ctrl.AllMatchedOutputs()
	term := "\n"
	if resolved.Print0 {
		term = "\x00"
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, l := range lines {
		fmt.Fprint(w, l, term)
	}
	if len(lines) == 0 {
		return exitNoMatch
	}
	return exitMatched
}

func runInteractive(ctx context.Context, ctrl *controller.Controller, resolved *config.Resolved, logger *slog.Logger) (*controller.Accept, error) {
	screen, err := render.NewScreen(resolved.Theme, resolved.Tabstop)
	if err != nil {
		return nil, err
	}
	defer screen.Close()

	events := screen.PollEvents(ctx, 150*time.Millisecond)
	draw := func() {
		screen.Draw(buildSnapshot(ctrl, resolved, screen))
	}
	draw()

	for {
		select {
		case <-ctx.Done():
			return &controller.Accept{Aborted: true}, nil
		case ev, ok := <-events:
			if !ok {
				return &controller.Accept{Aborted: true}, nil
			}
			switch e := ev.(type) {
			case render.TickEvent:
				draw()
			case render.ResizeEvent:
				draw()
			case render.KeyEvent:
				acc, handled := dispatchKey(ctrl, resolved, e)
				if handled {
					draw()
				}
				if acc != nil {
					return acc, nil
				}
			case render.MouseEvent:
				draw()
			}
		}
	}
}

func dispatchKey(ctrl *controller.Controller, resolved *config.Resolved, e render.KeyEvent) (*controller.Accept, bool) {
	action, ok := resolved.Controller.Keymap[e.Key]
	if !ok && e.Key.Name == "" {
		ctrl.QueryBuffer().InsertRune(e.Rune)
		ctrl.OnQueryChange(ctrl.QueryBuffer().Text())
		return nil, true
	}
	if !ok {
		return nil, false
	}
	for _, expect := range resolved.ExpectKeys {
		if expect == e.Key.String() {
			acc := ctrl.AcceptWithExpect(expect)
			return acc, true
		}
	}
	acc, changed := ctrl.HandleAction(action, ctrl.QueryBuffer())
	return acc, changed || acc != nil
}

func buildSnapshot(ctrl *controller.Controller, resolved *config.Resolved, screen *render.Screen) render.Snapshot {
	rows, cursorRow := ctrl.BuildRows(resolved.Controller.Ansi)
	return render.Snapshot{
		Prompt:      "> ",
		Query:       ctrl.QueryBuffer().Text(),
		QueryCursor: ctrl.QueryBuffer().CursorPos(),
		Info:        fmt.Sprintf("%d/%d", ctrl.MatchCount(), ctrl.TotalCount()),
		Rows:        rows,
		CursorRow:   cursorRow,
		Reverse:     resolved.Reverse,
	}
}
