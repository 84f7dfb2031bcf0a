// Package config parses the CLI surface from spec.md §6 into a validated
// Options struct, then resolves it into the typed configuration each
// component actually consumes (internal/controller.Config,
// internal/keymap.Table, internal/theme.Theme, ...), per SPEC_FULL.md
// §4.16. Grounded on the teacher's cobra.Command-based CLI (the `Run`
// RunE-and-flags shape) and the example pack's go-shellwords use for
// splitting an environment-supplied default-options string ahead of argv.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"sk/internal/controller"
	"sk/internal/engine"
	"sk/internal/field"
	"sk/internal/keymap"
	"sk/internal/rank"
	"sk/internal/theme"
)

// Options is the raw, as-parsed CLI configuration, one field per flag in
// spec.md §6's CLI surface table.
type Options struct {
	Command     string // positional source command, if any
	Cmd         string // --cmd: alias source command (wins over positional)
	Tac         bool
	NoSort      bool
	Tiebreak    string
	Exact       bool
	Regex       bool
	Algo        string
	Case        string
	Nth         string
	WithNth     string
	Delimiter   string

	Binds       []string
	Multi       bool
	Interactive bool

	Layout string
	Reverse bool
	Height  string
	Margin  string

	Ansi       bool
	Tabstop    int
	Header     string
	InlineInfo bool

	HistoryFile    string
	HistorySize    int
	CmdHistoryFile string
	CmdHistorySize int

	Preview       string
	PreviewWindow string

	Query        string
	Expect       []string
	Read0        bool
	Print0       bool
	Filter       string
	PrintQuery   bool
	PrintCmd     bool
	Select1      bool
	Exit0        bool
	Sync         bool
	PreSelectN   int
	PreSelectPat string
	PreSelectAll bool

	Color      string
	ThemePreset string

	ShowErrors bool
}

// ConfigError reports a bad flag, bad regex, or bad color, surfaced per
// spec.md §7 before the event loop starts (exit code 2).
type ConfigError struct {
	Flag string
	Err  error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: --%s: %v", e.Flag, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

func newCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sk [command]",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Command = args[0]
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.Tac, "tac", false, "reverse the order of input lines")
	f.BoolVar(&opts.NoSort, "no-sort", false, "do not sort results")
	f.StringVar(&opts.Tiebreak, "tiebreak", "score,begin,end,length", "comma-separated sort criteria")
	f.BoolVar(&opts.Exact, "exact", false, "exact substring matching instead of fuzzy")
	f.BoolVar(&opts.Regex, "regex", false, "treat the query as a regular expression")
	f.StringVar(&opts.Algo, "algo", "skim_v2", "fuzzy scoring algorithm: skim_v2|skim_v1|clangd")
	f.StringVar(&opts.Case, "case", "smart", "case sensitivity: smart|ignore|respect")
	f.StringVar(&opts.Nth, "nth", "", "field ranges to limit matching to")
	f.StringVar(&opts.WithNth, "with-nth", "", "field ranges to display/match instead of the whole line")
	f.StringVar(&opts.Delimiter, "delimiter", "", "field delimiter regex (default: no splitting)")

	f.StringArrayVar(&opts.Binds, "bind", nil, "custom key binding, <key>:<action>[(<arg>)]")
	f.BoolVar(&opts.Multi, "multi", false, "enable multi-select")
	f.StringVar(&opts.Cmd, "cmd", "", "source command, overriding the positional argument")
	f.BoolVar(&opts.Interactive, "interactive", false, "treat the source command as query-dependent ({q})")

	f.StringVar(&opts.Layout, "layout", "default", "layout: default|reverse|reverse-list")
	f.BoolVar(&opts.Reverse, "reverse", false, "reverse layout (prompt on top)")
	f.StringVar(&opts.Height, "height", "", "display height, e.g. 40% or 20")
	f.StringVar(&opts.Margin, "margin", "", "outer margin, e.g. 1,2")

	f.BoolVar(&opts.Ansi, "ansi", false, "interpret ANSI color codes in input")
	f.IntVar(&opts.Tabstop, "tabstop", 8, "tab width")
	f.StringVar(&opts.Header, "header", "", "static header line")
	f.BoolVar(&opts.InlineInfo, "inline-info", false, "show match count inline with the query line")

	f.StringVar(&opts.HistoryFile, "history", "", "query history file")
	f.IntVar(&opts.HistorySize, "history-size", 1000, "maximum query history entries")
	f.StringVar(&opts.CmdHistoryFile, "cmd-history", "", "command history file")
	f.IntVar(&opts.CmdHistorySize, "cmd-history-size", 1000, "maximum command history entries")

	f.StringVar(&opts.Preview, "preview", "", "preview command template")
	f.StringVar(&opts.PreviewWindow, "preview-window", "right:50%", "preview window position/size")

	f.StringVar(&opts.Query, "query", "", "initial query")
	f.StringArrayVar(&opts.Expect, "expect", nil, "comma-separated keys that also accept")
	f.BoolVar(&opts.Read0, "read0", false, "read input delimited by NUL instead of newline")
	f.BoolVar(&opts.Print0, "print0", false, "print output delimited by NUL instead of newline")
	f.StringVar(&opts.Filter, "filter", "", "non-interactive filter mode: print matches for QUERY and exit")
	f.BoolVar(&opts.PrintQuery, "print-query", false, "print the query before the accepted lines")
	f.BoolVar(&opts.PrintCmd, "print-cmd", false, "print the resolved source command before the accepted lines")
	f.BoolVar(&opts.Select1, "select-1", false, "accept automatically when exactly one match")
	f.BoolVar(&opts.Exit0, "exit-0", false, "exit immediately when there are no matches")
	f.BoolVar(&opts.Sync, "sync", false, "wait for the initial match pass before drawing")
	f.IntVar(&opts.PreSelectN, "pre-select-n", 0, "pre-select the first N matches")
	f.StringVar(&opts.PreSelectPat, "pre-select-pat", "", "pre-select matches whose output matches this regex")
	f.BoolVar(&opts.PreSelectAll, "pre-select-all", false, "pre-select every match")

	f.StringVar(&opts.Color, "color", "", "comma-separated role:color theme overrides")
	f.StringVar(&opts.ThemePreset, "color-preset", "dark", "named theme preset: dark|light|16|molokai")
	return cmd
}

// Load parses args (conventionally os.Args[1:]), prepending any
// SKIM_DEFAULT_OPTIONS entries from the environment per spec.md §6.
func Load(args []string) (*Options, error) {
	opts := &Options{}
	cmd := newCommand(opts)

	var prefix []string
	if defaults := os.Getenv("SKIM_DEFAULT_OPTIONS"); defaults != "" {
		parser := shellwords.NewParser()
		split, err := parser.Parse(defaults)
		if err != nil {
			return nil, &ConfigError{Flag: "SKIM_DEFAULT_OPTIONS", Err: err}
		}
		prefix = split
	}
	cmd.SetArgs(append(prefix, args...))
	if err := cmd.Execute(); err != nil {
		return nil, &ConfigError{Flag: "args", Err: err}
	}

	if opts.Cmd != "" {
		opts.Command = opts.Cmd
	} else if opts.Command == "" {
		opts.Command = os.Getenv("SKIM_DEFAULT_COMMAND")
	}
	return opts, nil
}

func resolveShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "sh"
}

// Resolved bundles every typed, validated configuration an assembled
// session needs beyond controller.Config itself.
type Resolved struct {
	Controller controller.Config
	Theme      theme.Theme
	Tabstop    int
	Reverse    bool
	HistoryFile,
	CmdHistoryFile string
	HistorySize, CmdHistorySize int
	InitialQuery string
	ExpectKeys   []string
	Read0, Print0, PrintQuery, PrintCmd bool
	Select1, Exit0, Sync                bool
	FilterQuery                         string
	Filtering                           bool
}

// Resolve validates and translates Options into the typed configuration
// consumed by internal/controller and internal/render, surfacing every
// parse failure as a ConfigError.
func (o *Options) Resolve() (*Resolved, error) {
	criteria, err := rank.ParseCriteria(o.Tiebreak)
	if err != nil {
		return nil, &ConfigError{Flag: "tiebreak", Err: err}
	}

	var algo engine.Algorithm
	switch strings.ToLower(o.Algo) {
	case "", "skim_v2", "skimv2":
		algo = engine.AlgoSkimV2
	case "skim_v1", "skimv1":
		algo = engine.AlgoSkimV1
	case "clangd":
		algo = engine.AlgoClangd
	default:
		return nil, &ConfigError{Flag: "algo", Err: fmt.Errorf("unknown algorithm %q", o.Algo)}
	}

	var caseMode engine.Case
	switch strings.ToLower(o.Case) {
	case "", "smart":
		caseMode = engine.CaseSmart
	case "ignore":
		caseMode = engine.CaseIgnore
	case "respect":
		caseMode = engine.CaseRespect
	default:
		return nil, &ConfigError{Flag: "case", Err: fmt.Errorf("unknown case mode %q", o.Case)}
	}

	var delim *regexp.Regexp
	if o.Delimiter != "" {
		delim, err = regexp.Compile(o.Delimiter)
		if err != nil {
			return nil, &ConfigError{Flag: "delimiter", Err: err}
		}
	}

	nthSpec, err := parseFieldSpec(o.Nth, "nth")
	if err != nil {
		return nil, err
	}
	withNthSpec, err := parseFieldSpec(o.WithNth, "with-nth")
	if err != nil {
		return nil, err
	}

	table := keymap.Default()
	if len(o.Binds) > 0 {
		table, err = keymap.Parse(table, o.Binds)
		if err != nil {
			return nil, &ConfigError{Flag: "bind", Err: err}
		}
	}

	th, err := resolveTheme(o)
	if err != nil {
		return nil, err
	}

	command := o.Command
	if o.Interactive && command != "" && !strings.Contains(command, "{q}") {
		command = command + " {q}"
	}

	cfg := controller.Config{
		Command:        command,
		Shell:          resolveShell(),
		Read0:          o.Read0,
		ShowErrors:     o.ShowErrors,
		ExactMode:      o.Exact,
		RegexMode:      o.Regex,
		Case:           caseMode,
		Algo:           algo,
		Criteria:       criteria,
		Tac:            o.Tac,
		NoSort:         o.NoSort,
		Multi:          o.Multi,
		Delimiter:      delim,
		NthSpec:        nthSpec,
		WithNthSpec:    withNthSpec,
		Keymap:         table,
		ViewportHeight: 20,
		PreviewCommand: o.Preview,
		Ansi:           o.Ansi,
	}

	return &Resolved{
		Controller:     cfg,
		Theme:          th,
		Tabstop:        o.Tabstop,
		Reverse:        o.Reverse || o.Layout == "reverse" || o.Layout == "reverse-list",
		HistoryFile:    o.HistoryFile,
		CmdHistoryFile: o.CmdHistoryFile,
		HistorySize:    o.HistorySize,
		CmdHistorySize: o.CmdHistorySize,
		InitialQuery:   o.Query,
		ExpectKeys:     splitCommaLists(o.Expect),
		Read0:          o.Read0,
		Print0:         o.Print0,
		PrintQuery:     o.PrintQuery,
		PrintCmd:       o.PrintCmd,
		Select1:        o.Select1,
		Exit0:          o.Exit0,
		Sync:           o.Sync,
		FilterQuery:    o.Filter,
		Filtering:      o.Filter != "",
	}, nil
}

func parseFieldSpec(s, flag string) (field.Spec, error) {
	if s == "" {
		return nil, nil
	}
	spec, ok := field.ParseSpec(s)
	if !ok {
		return nil, &ConfigError{Flag: flag, Err: fmt.Errorf("invalid field range %q", s)}
	}
	return spec, nil
}

func resolveTheme(o *Options) (theme.Theme, error) {
	th, ok := theme.Preset(o.ThemePreset)
	if !ok {
		th = make(theme.Theme)
	} else {
		cp := make(theme.Theme, len(th))
		for k, v := range th {
			cp[k] = v
		}
		th = cp
	}
	if o.Color == "" {
		return th, nil
	}
	overrides, err := theme.Parse(o.Color)
	if err != nil {
		return nil, &ConfigError{Flag: "color", Err: err}
	}
	for role, c := range overrides {
		th[role] = c
	}
	return th, nil
}

func splitCommaLists(entries []string) []string {
	var out []string
	for _, e := range entries {
		for _, part := range strings.Split(e, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseMargin parses an fzf-style margin spec ("1", "1,2", "1,2,3,4") into
// top/right/bottom/left integers.
func ParseMargin(s string) (top, right, bottom, left int, err error) {
	if s == "" {
		return 0, 0, 0, 0, nil
	}
	parts := strings.Split(s, ",")
	vals := make([]int, len(parts))
	for i, p := range parts {
		n, convErr := strconv.Atoi(strings.TrimSpace(p))
		if convErr != nil {
			return 0, 0, 0, 0, &ConfigError{Flag: "margin", Err: convErr}
		}
		vals[i] = n
	}
	switch len(vals) {
	case 1:
		return vals[0], vals[0], vals[0], vals[0], nil
	case 2:
		return vals[0], vals[1], vals[0], vals[1], nil
	case 4:
		return vals[0], vals[1], vals[2], vals[3], nil
	default:
		return 0, 0, 0, 0, &ConfigError{Flag: "margin", Err: fmt.Errorf("expected 1, 2, or 4 comma-separated values")}
	}
}
