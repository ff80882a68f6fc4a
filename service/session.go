// Package service provides a thread-safe session wrapper around a TinyVM
// driver/testee pair, suitable for driving from a long-lived process such as
// the HTTP API server. It mirrors the mutex-guarded, env-gated-logger shape
// the debugger package uses for its own interactive sessions, but exposes a
// narrower, serialization-friendly surface.
package service

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"tinyvm/coordinate"
	"tinyvm/debugger"
	"tinyvm/vm"
)

var sessionLog *log.Logger

func init() {
	if os.Getenv("TINYVM_DEBUG") != "" {
		logPath := filepath.Join(os.TempDir(), "tinyvm-service-debug.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304 -- fixed temp-dir debug log
		var out io.Writer = os.Stderr
		if err == nil {
			out = f
		}
		sessionLog = log.New(out, "[service] ", log.LstdFlags|log.Lshortfile)
	}
}

func logf(format string, args ...interface{}) {
	if sessionLog != nil {
		sessionLog.Printf(format, args...)
	}
}

// Session owns one driver VM, one optional testee VM, and the coordinator
// wiring them together. All mutation goes through exported methods so a
// single session can be shared safely between the API's HTTP handlers and a
// background run loop goroutine.
type Session struct {
	mu sync.RWMutex

	Driver *vm.VM
	Testee *vm.VM
	coord  *coordinate.Coordinator

	breakpoints map[vm.Word]*BreakpointInfo
	watchpoints *debugger.WatchpointManager
	trace       *vm.ExecutionTrace
	stats       *vm.Statistics
	events      *EventEmitter

	running bool
}

// NewSession creates a session around a fresh driver VM. Call LoadDriver (and
// optionally AttachTestee) before running it.
func NewSession(budget uint64) *Session {
	driver := vm.NewWithBudget(budget)
	return &Session{
		Driver:      driver,
		breakpoints: make(map[vm.Word]*BreakpointInfo),
		watchpoints: debugger.NewWatchpointManager(),
		events:      NewEventEmitter(nil),
	}
}

// AttachTestee gives the session a testee VM and builds the coordinator that
// services the driver's protocol requests against it.
func (s *Session) AttachTestee(testeeLimit uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Testee = vm.New()
	s.coord = coordinate.NewCoordinator(s.Driver, s.Testee)
	s.coord.TesteeLimit = testeeLimit
	s.coord.Stats = s.stats
	logf("testee attached, limit=%d", testeeLimit)
}

// LoadDriverInstructions loads the driver's instruction segment from a flat
// byte stream, two bytes per word, high byte first.
func (s *Session) LoadDriverInstructions(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Driver.LoadInstructionBytes(data)
	logf("driver loaded, %d bytes", len(data))
}

// LoadTesteeInstructions loads the testee's instruction segment. AttachTestee
// must have been called first.
func (s *Session) LoadTesteeInstructions(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Testee == nil {
		return fmt.Errorf("no testee attached")
	}
	s.Testee.LoadInstructionBytes(data)
	return nil
}

// EnableTrace installs a ring-buffer execution trace on the driver VM.
func (s *Session) EnableTrace(maxEntries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = vm.NewExecutionTrace(maxEntries)
}

// DisableTrace removes the execution trace.
func (s *Session) DisableTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = nil
}

// TraceEntries returns a snapshot of the recorded trace, oldest first.
func (s *Session) TraceEntries() []vm.TraceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.trace == nil {
		return nil
	}
	return s.trace.Entries()
}

// EnableStatistics installs an instruction-mix counter on the driver VM,
// and, if a testee is attached, on the coordinator's per-round outcomes too.
func (s *Session) EnableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &vm.Statistics{}
	if s.coord != nil {
		s.coord.Stats = s.stats
	}
}

// DisableStatistics removes the statistics counter.
func (s *Session) DisableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = nil
	if s.coord != nil {
		s.coord.Stats = nil
	}
}

// Statistics returns a copy of the current counters, or nil if disabled.
func (s *Session) Statistics() *vm.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stats == nil {
		return nil
	}
	cp := *s.stats
	return &cp
}

// Step executes a single driver instruction, honoring an installed trace.
// Host-driven single steps spend budget the same way the run loop does.
func (s *Session) Step() vm.StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Driver.Halted() && s.Driver.Budget > 0 {
		s.Driver.Budget--
	}
	word := s.Driver.Instr[s.Driver.CPU.PC]
	var res vm.StepResult
	if s.trace != nil {
		res = s.Driver.TracedStep(s.trace)
	} else {
		res = s.Driver.Step()
	}
	if s.stats != nil {
		s.stats.ObserveKind(vm.Decode(word).Kind)
	}
	return res
}

// AtBreakpoint reports whether the driver's current PC has an enabled
// breakpoint. Callers check this before stepping past it.
func (s *Session) AtBreakpoint() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bp, ok := s.breakpoints[s.Driver.CPU.PC]
	return ok && bp.Enabled
}

// RunDriverToSuspension drives the coordinator (or, with no testee attached,
// the bare driver) until the driver reaches Done, a fatal protocol error, or
// a breakpoint. Intended for a background goroutine; the caller polls
// ExecutionState() and Events() for progress.
func (s *Session) RunDriverToSuspension() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		s.mu.RLock()
		atBP := false
		if bp, ok := s.breakpoints[s.Driver.CPU.PC]; ok && bp.Enabled {
			atBP = true
		}
		s.mu.RUnlock()
		if atBP {
			s.events.Emitf("breakpoint hit at PC=0x%04X", s.Driver.CPU.PC)
			return
		}

		s.mu.Lock()
		if s.Driver.Halted() || s.Driver.Budget == 0 {
			s.mu.Unlock()
			s.events.Emitf("driver suspended, halted=%v budget=%d", s.Driver.Halted(), s.Driver.Budget)
			return
		}
		if s.coord != nil {
			out := s.coord.Run()
			s.mu.Unlock()
			s.events.Emitf("coordinator finished: kind=%v", out.Kind)
			return
		}
		word := s.Driver.Instr[s.Driver.CPU.PC]
		s.Driver.Step()
		s.Driver.Budget--
		if s.stats != nil {
			s.stats.ObserveKind(vm.Decode(word).Kind)
		}
		triggered, changed := s.watchpoints.CheckWatchpoints(s.Driver)
		s.mu.Unlock()
		if changed {
			s.events.Emitf("watchpoint %d (%s) changed to 0x%04X", triggered.ID, triggered.Expression, triggered.LastValue)
			return
		}
	}
}

// IsRunning reports whether RunDriverToSuspension is currently active.
func (s *Session) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Reset restores the driver (and testee, if attached) to their just-loaded
// state: registers and data segment cleared, instruction segment and budget
// left as they are.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Driver.Reset()
	if s.Testee != nil {
		s.Testee.Reset()
	}
}

// RegisterState returns a snapshot of the driver's registers.
func (s *Session) RegisterState() RegisterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rs RegisterState
	for i, r := range s.Driver.CPU.R {
		rs.Registers[i] = uint16(r)
	}
	rs.PC = uint16(s.Driver.CPU.PC)
	rs.Retired = s.Driver.CPU.Retired
	rs.Budget = s.Driver.Budget
	return rs
}

// ExecutionState reports the driver's current run state.
func (s *Session) ExecutionState() vm.ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, atBP := s.breakpoints[s.Driver.CPU.PC]
	return s.Driver.ExecutionState(atBP)
}

// AddBreakpoint sets (or re-enables) a breakpoint at the given driver
// instruction address.
func (s *Session) AddBreakpoint(address vm.Word, temporary bool) BreakpointInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	bp, ok := s.breakpoints[address]
	if !ok {
		bp = &BreakpointInfo{Address: uint16(address)}
		s.breakpoints[address] = bp
	}
	bp.Enabled = true
	bp.Temporary = temporary
	return *bp
}

// RemoveBreakpoint deletes the breakpoint at the given address, if any.
func (s *Session) RemoveBreakpoint(address vm.Word) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.breakpoints, address)
}

// Breakpoints returns all current breakpoints.
func (s *Session) Breakpoints() []BreakpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BreakpointInfo, 0, len(s.breakpoints))
	for _, bp := range s.breakpoints {
		out = append(out, *bp)
	}
	return out
}

// ClearBreakpoints removes every breakpoint.
func (s *Session) ClearBreakpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakpoints = make(map[vm.Word]*BreakpointInfo)
}

// AddWatchpoint registers a watchpoint on a register or data-segment word.
// target must describe exactly one of the two (see debugger.WatchTarget).
func (s *Session) AddWatchpoint(expression string, target debugger.WatchTarget) WatchpointInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp := s.watchpoints.AddWatchpoint(expression, target)
	_ = s.watchpoints.InitializeWatchpoint(wp.ID, s.Driver)
	return toWatchpointInfo(wp)
}

// RemoveWatchpoint deletes the watchpoint with the given ID.
func (s *Session) RemoveWatchpoint(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchpoints.DeleteWatchpoint(id)
}

// Watchpoints returns all current watchpoints.
func (s *Session) Watchpoints() []WatchpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.watchpoints.GetAllWatchpoints()
	out := make([]WatchpointInfo, 0, len(all))
	for _, wp := range all {
		out = append(out, toWatchpointInfo(wp))
	}
	return out
}

// ClearWatchpoints removes every watchpoint.
func (s *Session) ClearWatchpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchpoints.Clear()
}

func toWatchpointInfo(wp *debugger.Watchpoint) WatchpointInfo {
	return WatchpointInfo{ID: wp.ID, Target: wp.Expression, Enabled: wp.Enabled}
}

// Memory reads a window of one segment (clamped to segment bounds).
func (s *Session) Memory(segment string, address vm.Word, length int) (MemoryRegion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var src *[vm.MemSize]vm.Word
	switch segment {
	case "instr":
		src = &s.Driver.Instr
	case "data":
		src = &s.Driver.Data
	default:
		return MemoryRegion{}, fmt.Errorf("unknown segment %q", segment)
	}

	words := make([]uint16, 0, length)
	addr := address
	for i := 0; i < length; i++ {
		words = append(words, uint16(src[addr]))
		addr++
	}
	return MemoryRegion{Segment: segment, Address: uint16(address), Words: words}, nil
}

// Disassembly returns count disassembled instructions starting at address.
func (s *Session) Disassembly(address vm.Word, count int) []DisassemblyLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]DisassemblyLine, 0, count)
	addr := address
	for i := 0; i < count; i++ {
		w := s.Driver.Instr[addr]
		lines = append(lines, DisassemblyLine{
			Address: uint16(addr),
			Word:    uint16(w),
			Text:    vm.Disassemble(w),
		})
		addr++
	}
	return lines
}

// EvaluateExpression evaluates a debugger expression against the driver VM.
// Sessions have no notion of symbolic labels (that belongs to the
// interactive debugger), so symbol lookups in the expression always fail.
func (s *Session) EvaluateExpression(expr string) (vm.Word, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eval := debugger.NewExpressionEvaluator()
	return eval.EvaluateExpression(expr, s.Driver, nil)
}

// Events returns the session's event emitter for external subscription.
func (s *Session) Events() *EventEmitter {
	return s.events
}
