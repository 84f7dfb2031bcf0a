// Package keymap parses --bind specs into an action table consulted by the
// Controller, per spec.md §6 and SPEC_FULL.md §4.13. The default table is
// built once at startup from a literal Go map, in the style of the
// teacher's keyword-table map literals (querylang/highlight.go's
// pipeKeywordSet/aggFuncSet), then overridden by user entries, later
// entries winning.
package keymap

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies one bindable input: a named special key ("ctrl-a",
// "alt-enter", "f5", "btab", "double-click") or a bare rune.
type Key struct {
	Name string // non-empty for named keys
	Rune rune   // valid when Name == ""
}

func (k Key) String() string {
	if k.Name != "" {
		return k.Name
	}
	return string(k.Rune)
}

// ActionKind names a Controller action. Actions with an argument (execute,
// execute-silent) carry it in Action.Arg.
type ActionKind string

const (
	ActAbort             ActionKind = "abort"
	ActAccept            ActionKind = "accept"
	ActClearQuery        ActionKind = "clear-query"
	ActBackwardChar      ActionKind = "backward-char"
	ActForwardChar       ActionKind = "forward-char"
	ActBackwardWord      ActionKind = "backward-word"
	ActForwardWord       ActionKind = "forward-word"
	ActBackwardDeleteChar ActionKind = "backward-delete-char"
	ActDeleteChar        ActionKind = "delete-char"
	ActBeginningOfLine   ActionKind = "beginning-of-line"
	ActEndOfLine         ActionKind = "end-of-line"
	ActKillLine          ActionKind = "kill-line"
	ActKillWord          ActionKind = "kill-word"
	ActYank              ActionKind = "yank"
	ActUp                ActionKind = "up"
	ActDown              ActionKind = "down"
	ActPageUp            ActionKind = "page-up"
	ActPageDown          ActionKind = "page-down"
	ActHalfPageUp        ActionKind = "half-page-up"
	ActHalfPageDown      ActionKind = "half-page-down"
	ActToggle            ActionKind = "toggle"
	ActToggleAll         ActionKind = "toggle-all"
	ActSelectAll         ActionKind = "select-all"
	ActDeselectAll       ActionKind = "deselect-all"
	ActTogglePreview     ActionKind = "toggle-preview"
	ActPreviewUp         ActionKind = "preview-up"
	ActPreviewDown       ActionKind = "preview-down"
	ActPreviewPageUp     ActionKind = "preview-page-up"
	ActPreviewPageDown   ActionKind = "preview-page-down"
	ActExecute           ActionKind = "execute"
	ActExecuteSilent     ActionKind = "execute-silent"
	ActIgnore            ActionKind = "ignore"
)

// actionNames is the literal table of recognized action names, mirroring
// the teacher's map-literal keyword-table style.
var actionNames = map[string]ActionKind{
	"abort": ActAbort, "accept": ActAccept, "clear-query": ActClearQuery,
	"backward-char": ActBackwardChar, "forward-char": ActForwardChar,
	"backward-word": ActBackwardWord, "forward-word": ActForwardWord,
	"backward-delete-char": ActBackwardDeleteChar, "delete-char": ActDeleteChar,
	"beginning-of-line": ActBeginningOfLine, "end-of-line": ActEndOfLine,
	"kill-line": ActKillLine, "kill-word": ActKillWord, "yank": ActYank,
	"up": ActUp, "down": ActDown, "page-up": ActPageUp, "page-down": ActPageDown,
	"half-page-up": ActHalfPageUp, "half-page-down": ActHalfPageDown,
	"toggle": ActToggle, "toggle-all": ActToggleAll,
	"select-all": ActSelectAll, "deselect-all": ActDeselectAll,
	"toggle-preview": ActTogglePreview,
	"preview-up": ActPreviewUp, "preview-down": ActPreviewDown,
	"preview-page-up": ActPreviewPageUp, "preview-page-down": ActPreviewPageDown,
	"execute": ActExecute, "execute-silent": ActExecuteSilent,
	"ignore": ActIgnore,
}

var namedKeys = map[string]bool{
	"up": true, "down": true, "left": true, "right": true,
	"enter": true, "esc": true, "tab": true, "btab": true,
	"space": true, "backspace": true, "delete": true, "home": true, "end": true,
	"pgup": true, "pgdn": true, "double-click": true,
}

// Action is a parsed binding target: a kind plus an optional argument
// (the command text for execute/execute-silent).
type Action struct {
	Kind ActionKind
	Arg  string
}

// Table maps Key to Action.
type Table map[Key]Action

// ConfigError reports an invalid --bind entry.
type ConfigError struct {
	Spec string
	Err  error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("keymap: %v (in %q)", e.Err, e.Spec) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Default returns the built-in key table.
func Default() Table {
	t := make(Table)
	t[Key{Rune: 0x1b}] = Action{Kind: ActAbort}
	t[Key{Name: "ctrl-c"}] = Action{Kind: ActAbort}
	t[Key{Name: "enter"}] = Action{Kind: ActAccept}
	t[Key{Name: "ctrl-g"}] = Action{Kind: ActAbort}
	t[Key{Name: "up"}] = Action{Kind: ActUp}
	t[Key{Name: "down"}] = Action{Kind: ActDown}
	t[Key{Name: "ctrl-p"}] = Action{Kind: ActUp}
	t[Key{Name: "ctrl-n"}] = Action{Kind: ActDown}
	t[Key{Name: "tab"}] = Action{Kind: ActToggle}
	t[Key{Name: "btab"}] = Action{Kind: ActToggle}
	t[Key{Name: "ctrl-a"}] = Action{Kind: ActSelectAll}
	t[Key{Name: "ctrl-d"}] = Action{Kind: ActDeselectAll}
	t[Key{Name: "backspace"}] = Action{Kind: ActBackwardDeleteChar}
	t[Key{Name: "ctrl-u"}] = Action{Kind: ActKillLine}
	t[Key{Name: "ctrl-w"}] = Action{Kind: ActKillWord}
	t[Key{Name: "ctrl-y"}] = Action{Kind: ActYank}
	t[Key{Name: "ctrl-k"}] = Action{Kind: ActKillLine}
	t[Key{Name: "home"}] = Action{Kind: ActBeginningOfLine}
	t[Key{Name: "end"}] = Action{Kind: ActEndOfLine}
	t[Key{Name: "pgup"}] = Action{Kind: ActPageUp}
	t[Key{Name: "pgdn"}] = Action{Kind: ActPageDown}
	return t
}

// Parse applies a sequence of --bind specs on top of a base table
// (typically Default()), each "<key>:<action>[(<arg>)][,...]", later
// entries winning on key conflicts.
func Parse(base Table, specs []string) (Table, error) {
	t := make(Table, len(base))
	for k, v := range base {
		t[k] = v
	}
	for _, spec := range specs {
		for _, entry := range strings.Split(spec, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			key, action, err := parseEntry(entry)
			if err != nil {
				return nil, err
			}
			t[key] = action
		}
	}
	return t, nil
}

func parseEntry(entry string) (Key, Action, error) {
	idx := strings.IndexByte(entry, ':')
	if idx < 0 {
		return Key{}, Action{}, &ConfigError{Spec: entry, Err: fmt.Errorf("missing ':'")}
	}
	key, err := parseKey(entry[:idx])
	if err != nil {
		return Key{}, Action{}, &ConfigError{Spec: entry, Err: err}
	}
	action, err := parseAction(entry[idx+1:])
	if err != nil {
		return Key{}, Action{}, &ConfigError{Spec: entry, Err: err}
	}
	return key, action, nil
}

func parseKey(s string) (Key, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if namedKeys[s] || strings.HasPrefix(s, "ctrl-") || strings.HasPrefix(s, "alt-") || strings.HasPrefix(s, "shift-") || isFunctionKey(s) {
		return Key{Name: s}, nil
	}
	r := []rune(s)
	if len(r) == 1 {
		return Key{Rune: r[0]}, nil
	}
	return Key{}, fmt.Errorf("unrecognized key %q", s)
}

func isFunctionKey(s string) bool {
	if len(s) < 2 || s[0] != 'f' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

func parseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	name, arg, hasArg := strings.Cut(s, "(")
	name = strings.ToLower(strings.TrimSpace(name))
	kind, ok := actionNames[name]
	if !ok {
		return Action{}, fmt.Errorf("unknown action %q", name)
	}
	if hasArg {
		arg = strings.TrimSuffix(arg, ")")
	}
	return Action{Kind: kind, Arg: arg}, nil
}
