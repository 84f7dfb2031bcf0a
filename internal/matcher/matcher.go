// Package matcher implements the long-lived worker that evaluates the
// Record Store against the current query and feeds scored results into the
// Ranked Store (the "Matcher"), with epoch-tagged restarts so no match
// produced under a stale query is ever delivered. Grounded on the restart/
// drain pattern in the reference implementation's matcher.rs (the
// matcher_restart flag plus a draining receive loop), translated to a Go
// epoch counter guarded by a mutex instead of an AtomicBool plus a second
// draining goroutine, since Go channels make an explicit epoch check at
// each step simpler than replicating the drain thread.
package matcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sk/internal/engine"
	"sk/internal/logging"
	"sk/internal/rank"
	"sk/internal/ranked"
	"sk/internal/record"
)

// pollInterval bounds how long the Matcher sleeps when snapshot(cursor) is
// caught up with the Record Store, per spec.md §5 ("poll interval ≤ 10 ms").
const pollInterval = 8 * time.Millisecond

// batchSize bounds how many records are matched between epoch checks, so
// cancellation latency stays within the tens-of-milliseconds budget from
// spec.md §4.5 even under CPU-bound matching.
const batchSize = 256

// Item is one scored match delivered to the Ranked Store.
type Item struct {
	Ref   record.Ref
	Rank  rank.Rank
	Range []int
}

// State reports the Matcher's progress for the Controller's status line.
type State struct {
	Epoch    uint64
	Scanned  int
	Total    int
	Done     bool
}

// Matcher owns one restartable matching loop over a Record Store.
type Matcher struct {
	store  *record.Store
	out    *ranked.Store[Item]
	logger *slog.Logger

	epochCh chan job
	stateCh chan State

	mu       sync.Mutex // guards curEpoch and every write to out
	curEpoch uint64
}

type job struct {
	epoch   uint64
	engine  engine.Engine
	builder rank.Builder
}

// New creates a Matcher over the given Record Store, delivering results
// into out.
func New(store *record.Store, out *ranked.Store[Item], logger *slog.Logger) *Matcher {
	return &Matcher{
		store:   store,
		out:     out,
		logger:  logging.Default(logger).With("component", "matcher"),
		epochCh: make(chan job, 1),
		stateCh: make(chan State, 1),
	}
}

// Restart requests the Matcher re-evaluate from record 0 under a new
// epoch. A restart observed mid-batch completes that batch before
// checking, but never delivers results tagged with a stale epoch: Restart
// increments curEpoch and clears out under mu, and Run inserts a batch only
// under mu and only while the batch's epoch is still current, so a batch
// scored under a superseded epoch is dropped.
func (m *Matcher) Restart(ctx context.Context, eng engine.Engine, builder rank.Builder) {
	m.mu.Lock()
	m.curEpoch++
	epoch := m.curEpoch
	m.out.Clear()
	m.mu.Unlock()
	select {
	case m.epochCh <- job{epoch: epoch, engine: eng, builder: builder}:
	case <-ctx.Done():
	}
}

// State returns the progress snapshot published since the previous call and
// consumes it, or the zero value if nothing has been published since then.
func (m *Matcher) State() State {
	select {
	case s := <-m.stateCh:
		return s
	default:
		return State{}
	}
}

func (m *Matcher) publish(s State) {
	select {
	case <-m.stateCh:
	default:
	}
	m.stateCh <- s
}

// Run executes the Matcher's loop until ctx is canceled. It owns no
// goroutines of its own beyond the caller's; the caller typically runs Run
// inside an errgroup alongside the Ingestor.
func (m *Matcher) Run(ctx context.Context) error {
	var current job
	cursor := 0
	idle := true

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-m.epochCh:
			current = j
			cursor = 0
			idle = false
			m.logger.Debug("matcher restart", "epoch", j.epoch)
		case <-ticker.C:
			if idle {
				continue
			}
			sn := m.store.Snapshot(cursor)
			if sn.Len() == 0 {
				m.publish(State{Epoch: current.epoch, Scanned: cursor, Total: cursor, Done: true})
				continue
			}
			n := sn.Len()
			if n > batchSize {
				n = batchSize
			}
			batch := make([]ranked.Item[Item], 0, n)
			for i := 0; i < n; i++ {
				rec := sn.At(i)
				text := rec.Match
				if text == "" {
					text = rec.Raw
				}
				mr, ok := current.engine.Match(text, int32(len(text)), current.builder)
				if !ok {
					continue
				}
				batch = append(batch, ranked.Item[Item]{
					Rank:  mr.Rank,
					Value: Item{Ref: rec.Ref, Rank: mr.Rank, Range: mr.Ranges},
				})
			}
			// Epoch re-check: if a restart landed while this batch was
			// being scored, current.epoch is stale and the batch is
			// dropped rather than delivered under the new epoch.
			select {
			case j := <-m.epochCh:
				current = j
				cursor = 0
				continue
			default:
			}
			m.mu.Lock()
			if len(batch) > 0 && current.epoch == m.curEpoch {
				m.out.Insert(batch)
			}
			m.mu.Unlock()
			cursor += n
			m.publish(State{Epoch: current.epoch, Scanned: cursor, Total: m.store.Len(), Done: cursor >= m.store.Len()})
		}
	}
}
