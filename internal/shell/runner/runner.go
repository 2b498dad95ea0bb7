// Package runner implements the background Runner subsystem: job
// lifecycle, cooperative pause/stop, routine locking, and the
// per-runner numeric trigger the event bus polls through Engine's
// %name.trg expander.
package runner

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/worldline-go/types"

	"github.com/rakunlabs/symshell/internal/shell/core"
	"github.com/rakunlabs/symshell/internal/shell/store"
)

// Status is a job's lifecycle state, grounded on original_source's
// AIGMos.py runner state machine.
type Status string

const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
	StatusDone    Status = "done"
)

// pulse duration and poll-visible trigger values.
const (
	pulseDuration = 100 * time.Millisecond

	trgNone        int32 = 0
	trgDone        int32 = 1
	trgFailed      int32 = 2
	trgStopOrPurge int32 = 3
)

// controlPrefixes names the run|status|pause|stop head tokens a routine
// step must not invoke against a %-runner: runners may not control runners.
var controlPrefixes = map[string]bool{
	"run": true, "status": true, "pause": true, "stop": true,
}

// Job is one runner's mutable record. Status/step/error/trg are read by
// concurrent callers (status queries, the %name.trg expander) while the
// worker goroutine advances them, so access goes through mu or the
// atomic trg field.
type Job struct {
	Name string

	mu      sync.Mutex
	status  Status
	stepI   int
	lastErr string
	routine string // "" unless the snapshot came from a locked &name

	trg int32 // atomic: 0 idle/running/paused, 1/2/3 transient pulse value

	stopRequested int32 // atomic bool

	pauseMu   sync.Mutex
	pauseCond *sync.Cond
	paused    bool

	startedAt  types.Time
	finishedAt types.Null[types.Time]
}

func newJob(name string) *Job {
	j := &Job{Name: name, status: StatusRunning, startedAt: types.NewTime(time.Now().UTC())}
	j.pauseCond = sync.NewCond(&j.pauseMu)
	return j
}

func (j *Job) snapshot() (Status, int, string, int32) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.stepI, j.lastErr, atomic.LoadInt32(&j.trg)
}

func (j *Job) setStatus(s Status) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

// Manager owns every runner job and implements core.RunnerTrigger so the
// %name.trg expander can resolve a runner's current pulse value.
type Manager struct {
	engine *core.Engine

	mu   sync.Mutex
	jobs map[string]*Job
}

// New wires a Manager onto engine: registers sys.run/status/pause/stop
// and installs itself as the engine's runner-trigger resolver.
func New(e *core.Engine) *Manager {
	m := &Manager{engine: e, jobs: make(map[string]*Job)}
	e.RegisterPrimitive("sys.run", m.run,
		"Run a command synchronously, or start a background %runner job",
		"sys.run <tokens...> | sys.run %<name> [&<routine>|$<sub>:<key>|#<path>|<tokens...>]")
	e.RegisterPrimitive("sys.status", m.statusCmd,
		"Report a %runner job's status line",
		"sys.status %<name>")
	e.RegisterPrimitive("sys.pause", m.pauseCmd,
		"Toggle a running %runner job between running and paused",
		"sys.pause %<name>")
	e.RegisterPrimitive("sys.stop", m.stopCmd,
		"Request a %runner job to stop at its next step boundary",
		"sys.stop %<name>")
	e.SetRunnerTrigger(m)
	return m
}

// Trigger implements core.RunnerTrigger.
func (m *Manager) Trigger(name string) (int, bool) {
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return 0, false
	}
	return int(atomic.LoadInt32(&job.trg)), true
}

func (m *Manager) run(args []string) (string, error) {
	if len(args) == 0 {
		return "", core.Shape("run expects <tokens...> or %<name> [target]")
	}

	if !strings.HasPrefix(args[0], "%") {
		// Single-shot, synchronous: run <tokens...> with no % target.
		line := strings.Join(args, " ")
		return m.engine.ExecuteNested(line), nil
	}

	name, err := store.ParsePct(args[0])
	if err != nil {
		return "", core.Shape("%s", err)
	}

	m.mu.Lock()
	if existing, ok := m.jobs[name]; ok {
		st, _, _, _ := existing.snapshot()
		if st == StatusRunning || st == StatusPaused {
			m.mu.Unlock()
			return "", core.Shape("runner %%%s is already %s", name, st)
		}
	}
	m.mu.Unlock()

	steps, routineLocked, err := m.resolveTarget(name, args[1:])
	if err != nil {
		return "", err
	}
	if routineLocked != "" {
		if lock, locked := m.engine.Routines.LockOf(routineLocked); locked {
			return "", core.Shape("routine is locked by %s (%s)", lock.Runner, lock.State)
		}
	}

	job := newJob(name)
	if routineLocked != "" {
		job.routine = routineLocked
		m.engine.Routines.Lock(routineLocked, name, "running")
	}

	m.mu.Lock()
	m.jobs[name] = job
	m.mu.Unlock()

	go m.runWorker(job, steps)

	return "OK", nil
}

// resolveTarget resolves a run target: default to &name, or a &routine
// snapshot, $sub:key/#path leaf as a single step, or literal tokens
// joined as one step.
func (m *Manager) resolveTarget(name string, target []string) (steps []string, routineLocked string, err error) {
	if len(target) == 0 {
		routineName := name
		s, ok := m.engine.Routines.Snapshot(routineName)
		if !ok {
			return nil, "", core.Shape("sub not found: routines/%s", routineName)
		}
		return s, routineName, nil
	}

	head := target[0]
	switch {
	case strings.HasPrefix(head, "&"):
		routineName, parseErr := store.ParseAmp(head)
		if parseErr != nil {
			return nil, "", core.Shape("%s", parseErr)
		}
		s, ok := m.engine.Routines.Snapshot(routineName)
		if !ok {
			return nil, "", core.Shape("sub not found: routines/%s", routineName)
		}
		return s, routineName, nil

	case strings.HasPrefix(head, "$"):
		sub, key, hasKey, parseErr := store.SplitKV(head)
		if parseErr != nil || !hasKey {
			return nil, "", core.Shape("expected $<sub>:<key>")
		}
		if !m.engine.Texts.SubExists(sub) {
			return nil, "", core.Shape("sub not found: texts/%s", sub)
		}
		v, ok := m.engine.Texts.Get(sub, key)
		if !ok {
			return nil, "", core.Shape("key not found")
		}
		if v == "" {
			return []string{}, "", nil
		}
		return []string{v}, "", nil

	case strings.HasPrefix(head, "#"):
		path, parseErr := store.ParseHash(head)
		if parseErr != nil {
			return nil, "", core.Shape("%s", parseErr)
		}
		node := m.engine.Tables.NodeGet(path)
		text, _ := node.(string)
		if text == "" {
			return []string{}, "", nil
		}
		return []string{text}, "", nil

	default:
		return []string{strings.Join(target, " ")}, "", nil
	}
}

func (m *Manager) runWorker(job *Job, steps []string) {
	logger := slog.With("runner", job.Name)
	logger.Info("runner started", "steps", len(steps))

	defer func() {
		if job.routine != "" {
			m.engine.Routines.Unlock(job.routine)
		}
	}()

	for i, raw := range steps {
		if atomic.LoadInt32(&job.stopRequested) != 0 {
			m.finish(job, StatusStopped, "", trgStopOrPurge)
			logger.Info("runner stopped", "step", i)
			return
		}

		job.pauseMu.Lock()
		for job.paused {
			job.pauseCond.Wait()
		}
		job.pauseMu.Unlock()

		if atomic.LoadInt32(&job.stopRequested) != 0 {
			m.finish(job, StatusStopped, "", trgStopOrPurge)
			logger.Info("runner stopped", "step", i)
			return
		}

		job.mu.Lock()
		job.stepI = i
		job.mu.Unlock()

		step := strings.ReplaceAll(raw, "<counter>", strconv.Itoa(i+1))

		if headTok := firstField(step); controlPrefixes[headTok] && hasPctArg(step) {
			m.finish(job, StatusFailed, fmt.Sprintf("step %d: runner-control of %%-targets is not permitted", i), trgFailed)
			logger.Warn("runner rejected step", "step", i, "reason", "runner-control")
			return
		}

		result := m.engine.Execute(step)
		if strings.HasPrefix(result, "Error:") {
			m.finish(job, StatusFailed, strings.TrimPrefix(result, "Error: "), trgFailed)
			logger.Warn("runner step failed", "step", i, "error", result)
			return
		}
	}

	m.finish(job, StatusDone, "", trgDone)
	logger.Info("runner done")
}

// finish records the terminal status, then pulses trg before resetting
// it to 0. The worker goroutine never holds the dispatch gate while
// sleeping through the pulse.
func (m *Manager) finish(job *Job, status Status, errMsg string, trgVal int32) {
	job.mu.Lock()
	job.status = status
	job.lastErr = errMsg
	job.finishedAt = types.NewNull(types.NewTime(time.Now().UTC()))
	job.mu.Unlock()

	atomic.StoreInt32(&job.trg, trgVal)
	time.Sleep(pulseDuration)
	atomic.StoreInt32(&job.trg, trgNone)
}

func (m *Manager) statusCmd(args []string) (string, error) {
	if len(args) != 1 {
		return "", core.Shape("status expects %<name>")
	}
	name, err := store.ParsePct(args[0])
	if err != nil {
		return "", core.Shape("%s", err)
	}
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return "NOT_FOUND", nil
	}
	status, stepI, lastErr, trg := job.snapshot()
	return fmt.Sprintf("%s step=%d err=%s trg=%d", status, stepI, lastErr, trg), nil
}

func (m *Manager) pauseCmd(args []string) (string, error) {
	if len(args) != 1 {
		return "", core.Shape("pause expects %<name>")
	}
	name, err := store.ParsePct(args[0])
	if err != nil {
		return "", core.Shape("%s", err)
	}
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return "", core.Shape("runner %%%s not found", name)
	}

	job.mu.Lock()
	status := job.status
	switch status {
	case StatusRunning:
		job.status = StatusPaused
		job.mu.Unlock()
		job.pauseMu.Lock()
		job.paused = true
		job.pauseMu.Unlock()
		if job.routine != "" {
			m.engine.Routines.SetLockState(name, "paused")
		}
		return "OK", nil
	case StatusPaused:
		job.status = StatusRunning
		job.mu.Unlock()
		job.pauseMu.Lock()
		job.paused = false
		job.pauseCond.Broadcast()
		job.pauseMu.Unlock()
		if job.routine != "" {
			m.engine.Routines.SetLockState(name, "running")
		}
		return "OK", nil
	default:
		job.mu.Unlock()
		return "", core.Shape("runner %%%s is %s, cannot pause/resume", name, status)
	}
}

func (m *Manager) stopCmd(args []string) (string, error) {
	if len(args) != 1 {
		return "", core.Shape("stop expects %<name>")
	}
	name, err := store.ParsePct(args[0])
	if err != nil {
		return "", core.Shape("%s", err)
	}
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return "OK", nil
	}

	atomic.StoreInt32(&job.stopRequested, 1)
	job.pauseMu.Lock()
	job.paused = false
	job.pauseCond.Broadcast()
	job.pauseMu.Unlock()
	return "OK", nil
}

func firstField(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func hasPctArg(s string) bool {
	for _, f := range strings.Fields(s)[1:] {
		if strings.HasPrefix(f, "%") {
			return true
		}
	}
	return false
}
