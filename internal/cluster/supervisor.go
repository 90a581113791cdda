package cluster

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fleetops/herd/internal/history"
	"github.com/fleetops/herd/internal/metrics"
	"github.com/fleetops/herd/internal/worker"
)

// Config is the supervisor's immutable configuration, resolved once at
// startup.
type Config struct {
	// Enabled turns clustering on. When false, Start returns false
	// immediately and the caller proceeds as a single unsupervised worker.
	Enabled bool
	// WorkerCount is the pool size; non-positive falls back to the detected
	// CPU core count.
	WorkerCount int
	// RestartDelay pauses before a replacement spawn. Zero (the default)
	// respawns immediately, preserving the original unthrottled policy.
	RestartDelay time.Duration
	// MaxRespawns caps total replacement spawns over the supervisor's
	// lifetime. Zero (the default) means unlimited.
	MaxRespawns int
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = runtime.NumCPU()
	}
	return c
}

// workerRecord is the supervisor's bookkeeping for one live or recently-live
// worker. Mutated only on the event loop.
type workerRecord struct {
	seq    int
	id     int
	pid    int
	state  State
	last   time.Time
	handle Handle
}

type ctrlKind int

const (
	ctrlStats ctrlKind = iota
	ctrlShutdown
	ctrlRespawn
)

type ctrlMsg struct {
	kind  ctrlKind
	seq   int           // ctrlRespawn: the exited record being superseded
	stats chan *Stats   // ctrlStats reply
	done  chan struct{} // ctrlShutdown acknowledgement
}

// Supervisor owns the worker pool: it spawns workers, observes their
// lifecycle events, respawns on exit, and propagates termination on
// shutdown. All record mutation happens on a single event-handling
// goroutine, so the record table needs no locking.
type Supervisor struct {
	cfg     Config
	spawner Spawner
	logger  *slog.Logger

	events chan Event
	ctrl   chan ctrlMsg
	done   chan struct{}

	// event-loop-owned state
	records      map[int]*workerRecord // keyed by seq, not logical id
	order        []int
	nextSeq      int
	respawns     int
	shuttingDown bool

	isPrimary atomic.Bool
	started   atomic.Bool
	ncpu      int
	sigCh     chan os.Signal
	sinks     []history.Sink
	histCh    chan history.Event
}

// historySendTimeout bounds one sink write; a sink slower than this loses
// the event rather than backing up the queue.
const historySendTimeout = 5 * time.Second

// NewSupervisor builds a supervisor for the given spawner. The configuration
// is normalized once here and never re-evaluated.
func NewSupervisor(cfg Config, sp Spawner) *Supervisor {
	return &Supervisor{
		cfg:     cfg.withDefaults(),
		spawner: sp,
		logger:  slog.Default(),
		events:  make(chan Event, 64),
		ctrl:    make(chan ctrlMsg, 8),
		done:    make(chan struct{}),
		records: make(map[int]*workerRecord),
		ncpu:    runtime.NumCPU(),
		sigCh:   make(chan os.Signal, 2),
		histCh:  make(chan history.Event, 256),
	}
}

// SetLogger overrides the default logger. Must be called before Start.
func (s *Supervisor) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetHistorySinks configures lifecycle event sinks. Must be called before
// Start. Passing no sinks clears the list.
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.sinks = append([]history.Sink(nil), sinks...)
}

// Config returns the normalized configuration.
func (s *Supervisor) Config() Config { return s.cfg }

// Start decides this process's role and, on the primary, brings up the pool.
//
// It returns false without any pool management when clustering is disabled
// (single-process development mode) or when this process is itself a spawned
// worker. Otherwise it synchronously spawns WorkerCount workers, starts the
// event loop, installs SIGINT/SIGTERM handling, and returns true. The role
// is decided exactly once per process.
func (s *Supervisor) Start(ctx context.Context) bool {
	if !s.cfg.Enabled {
		return false
	}
	if worker.Spawned() {
		return false
	}
	if !s.started.CompareAndSwap(false, true) {
		return s.isPrimary.Load()
	}
	s.isPrimary.Store(true)
	s.logger.Info("starting worker pool",
		"workers", s.cfg.WorkerCount, "cpus", s.ncpu, "pid", os.Getpid())
	for i := 0; i < s.cfg.WorkerCount; i++ {
		s.spawn(i, false)
	}
	signal.Notify(s.sigCh, os.Interrupt, syscall.SIGTERM)
	go s.watchSignals()
	if len(s.sinks) > 0 {
		go s.historyWriter()
	}
	go s.loop(ctx)
	return true
}

// Shutdown stops replacement spawns and asks every live worker to terminate.
// It returns once the suppression flag is set and termination has been
// issued; it does not wait for workers to exit (see Done).
//
// A no-op on processes that never became the primary: there is no event loop
// to acknowledge the request.
func (s *Supervisor) Shutdown() {
	if !s.isPrimary.Load() {
		return
	}
	done := make(chan struct{})
	select {
	case s.ctrl <- ctrlMsg{kind: ctrlShutdown, done: done}:
	case <-s.done:
		return
	}
	select {
	case <-done:
	case <-s.done:
	}
}

// Done is closed once shutdown has been requested and every tracked worker
// process has been reaped.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Stats returns a snapshot of the pool, or nil when called on a non-primary
// process (workers must ask the primary) or after the pool has wound down.
// It is side-effect free; repeated calls without intervening lifecycle
// events return structurally identical results.
func (s *Supervisor) Stats() *Stats {
	if !s.isPrimary.Load() {
		return nil
	}
	reply := make(chan *Stats, 1)
	select {
	case s.ctrl <- ctrlMsg{kind: ctrlStats, stats: reply}:
	case <-s.done:
		return nil
	}
	select {
	case st := <-reply:
		return st
	case <-s.done:
		return nil
	}
}

func (s *Supervisor) watchSignals() {
	select {
	case sig := <-s.sigCh:
		s.logger.Info("termination signal received", "signal", sig.String())
		signal.Stop(s.sigCh)
		s.Shutdown()
	case <-s.done:
		signal.Stop(s.sigCh)
	}
}

// loop is the supervisor's single event-handling sequence. Worker
// notifications and control messages are processed strictly one at a time,
// so no other goroutine ever touches the record table.
func (s *Supervisor) loop(ctx context.Context) {
	defer close(s.done)
	// Enqueues happen in Start (before this goroutine runs) and on this
	// goroutine, so closing here cannot race a send.
	defer close(s.histCh)
	ctxDone := ctx.Done()
	for {
		select {
		case <-ctxDone:
			ctxDone = nil
			s.beginShutdown()
		case ev := <-s.events:
			s.handleEvent(ev)
		case msg := <-s.ctrl:
			switch msg.kind {
			case ctrlStats:
				msg.stats <- s.snapshot()
			case ctrlShutdown:
				s.beginShutdown()
				close(msg.done)
			case ctrlRespawn:
				s.respawnFor(msg.seq)
			}
		}
		if s.shuttingDown && s.allReaped() {
			return
		}
	}
}

func (s *Supervisor) handleEvent(ev Event) {
	rec := s.records[ev.Seq]
	if rec == nil || rec.state == StateExited {
		// Late notification for a record already dropped or reaped.
		return
	}
	switch ev.Kind {
	case EventOnline:
		if rec.state != StateStarting {
			return
		}
		s.transition(rec, StateOnline)
		s.logger.Info("worker online", "worker", rec.id, "pid", rec.pid)
		s.syncGauges()
	case EventError:
		// Purely observational: a transient error does not imply death, so
		// no restart and no record removal here.
		s.logger.Error("worker error", "worker", rec.id, "pid", rec.pid, "error", ev.Err)
		s.transition(rec, StateErrored)
	case EventExit:
		s.transition(rec, StateExited)
		rec.handle = nil
		metrics.IncExit(exitClass(ev))
		s.logger.Warn("worker exited",
			"worker", rec.id, "pid", rec.pid, "code", ev.ExitCode, "signal", ev.Signal)
		s.sendHistory(history.Event{
			Type: history.EventExit, WorkerID: rec.id, PID: rec.pid,
			ExitCode: ev.ExitCode, Signal: ev.Signal, OccurredAt: time.Now().UTC(),
		})
		s.syncGauges()
		if s.shuttingDown {
			return
		}
		if s.cfg.MaxRespawns > 0 && s.respawns >= s.cfg.MaxRespawns {
			s.logger.Error("respawn ceiling reached, worker not replaced",
				"worker", rec.id, "ceiling", s.cfg.MaxRespawns)
			s.remove(rec.seq)
			return
		}
		if s.cfg.RestartDelay > 0 {
			seq := rec.seq
			time.AfterFunc(s.cfg.RestartDelay, func() {
				select {
				case s.ctrl <- ctrlMsg{kind: ctrlRespawn, seq: seq}:
				case <-s.done:
				}
			})
			return
		}
		s.respawnFor(rec.seq)
	}
}

// respawnFor spawns exactly one replacement for the exited record deadSeq,
// then drops the superseded record from the tracked set.
func (s *Supervisor) respawnFor(deadSeq int) {
	if s.shuttingDown {
		return
	}
	if _, ok := s.records[deadSeq]; !ok {
		return
	}
	s.respawns++
	// The original id-assignment rule: next id is the current live-worker
	// count, which makes ids reusable across the pool's history.
	s.spawn(s.liveCount(), true)
	s.remove(deadSeq)
}

func (s *Supervisor) spawn(id int, respawn bool) {
	seq := s.nextSeq
	s.nextSeq++
	rec := &workerRecord{seq: seq, id: id, state: StateStarting, last: time.Now()}
	s.records[seq] = rec
	s.order = append(s.order, seq)

	h, err := s.spawner.Spawn(id, seq, s.events)
	if err != nil {
		// No process came into being, so no exit event will ever arrive;
		// the record stays Errored and the pool runs short.
		s.transition(rec, StateErrored)
		s.logger.Error("worker spawn failed", "worker", id, "error", err)
		metrics.IncSpawnFailure()
		s.syncGauges()
		return
	}
	rec.pid = h.PID()
	rec.handle = h
	metrics.IncSpawn()
	if respawn {
		metrics.IncRespawn()
		s.logger.Info("replacement worker spawned", "worker", id, "pid", rec.pid)
	} else {
		s.logger.Info("worker spawned", "worker", id, "pid", rec.pid)
	}
	s.sendHistory(history.Event{
		Type: history.EventSpawn, WorkerID: id, PID: rec.pid, OccurredAt: time.Now().UTC(),
	})
	s.syncGauges()
}

func (s *Supervisor) beginShutdown() {
	if s.shuttingDown {
		return
	}
	s.shuttingDown = true
	s.logger.Info("shutting down worker pool", "live", s.liveCount())
	for _, seq := range s.order {
		rec := s.records[seq]
		if rec.handle == nil {
			continue
		}
		if err := rec.handle.Terminate(); err != nil {
			s.logger.Warn("terminate failed", "worker", rec.id, "pid", rec.pid, "error", err)
		}
	}
}

func (s *Supervisor) transition(rec *workerRecord, to State) {
	if rec.state == to {
		return
	}
	metrics.RecordStateTransition(rec.state.String(), to.String())
	rec.state = to
	rec.last = time.Now()
}

func (s *Supervisor) remove(seq int) {
	delete(s.records, seq)
	for i, v := range s.order {
		if v == seq {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Supervisor) liveCount() int {
	n := 0
	for _, rec := range s.records {
		if rec.state.live() {
			n++
		}
	}
	return n
}

// allReaped reports whether no tracked worker still has a running process.
func (s *Supervisor) allReaped() bool {
	for _, rec := range s.records {
		if rec.handle != nil {
			return false
		}
	}
	return true
}

func (s *Supervisor) snapshot() *Stats {
	ws := make([]WorkerStat, 0, len(s.order))
	live := 0
	for _, seq := range s.order {
		rec := s.records[seq]
		if rec.state.live() {
			live++
		}
		ws = append(ws, WorkerStat{ID: rec.id, PID: rec.pid, Dead: rec.state == StateExited})
	}
	return &Stats{
		PrimaryPID:   os.Getpid(),
		Workers:      ws,
		TotalWorkers: live,
		MaxWorkers:   s.cfg.WorkerCount,
		CPUCount:     s.ncpu,
	}
}

func (s *Supervisor) syncGauges() {
	live, online := 0, 0
	for _, rec := range s.records {
		switch rec.state {
		case StateOnline:
			online++
			live++
		case StateStarting:
			live++
		}
	}
	metrics.SetLive(live)
	metrics.SetOnline(online)
}

// sendHistory queues a lifecycle event for the writer goroutine. It never
// blocks: a full queue drops the event so a stalled sink cannot freeze exit
// handling, respawns, or Stats.
func (s *Supervisor) sendHistory(evt history.Event) {
	if len(s.sinks) == 0 {
		return
	}
	select {
	case s.histCh <- evt:
	default:
		s.logger.Warn("history queue full, event dropped", "type", string(evt.Type))
	}
}

// historyWriter drains queued lifecycle events to the configured sinks, off
// the event loop. Each write is bounded by historySendTimeout.
func (s *Supervisor) historyWriter() {
	for evt := range s.histCh {
		for _, sink := range s.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), historySendTimeout)
			if err := sink.Send(ctx, evt); err != nil {
				s.logger.Warn("history sink send failed", "type", string(evt.Type), "error", err)
			}
			cancel()
		}
	}
}

func exitClass(ev Event) string {
	switch {
	case ev.Signal != "":
		return metrics.ExitSignal
	case ev.ExitCode == 0:
		return metrics.ExitClean
	default:
		return metrics.ExitCrash
	}
}
