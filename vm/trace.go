package vm

import "fmt"

// TraceEntry is one recorded step: the program counter it executed at, the
// raw word, its disassembly, and register 0..3 afterward (the registers
// most protocols communicate through, kept narrow to bound entry size).
type TraceEntry struct {
	Sequence    uint64
	PC          Word
	Word        Word
	Disassembly string
	R0, R1, R2, R3 Word
}

// ExecutionTrace is an opt-in ring buffer of recent steps. It is off by
// default (a zero-value *ExecutionTrace is never installed on a VM; callers
// that want tracing construct one and assign it explicitly) so routine runs
// pay no recording cost.
type ExecutionTrace struct {
	MaxEntries int
	entries    []TraceEntry
	next       uint64
}

// NewExecutionTrace creates a trace that keeps at most maxEntries of the
// most recent steps, evicting the oldest once full.
func NewExecutionTrace(maxEntries int) *ExecutionTrace {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &ExecutionTrace{MaxEntries: maxEntries}
}

// Record appends one entry, evicting the oldest if the buffer is full.
func (t *ExecutionTrace) Record(v *VM, pc, word Word) {
	e := TraceEntry{
		Sequence:    t.next,
		PC:          pc,
		Word:        word,
		Disassembly: Disassemble(word),
		R0:          v.CPU.R[0],
		R1:          v.CPU.R[1],
		R2:          v.CPU.R[2],
		R3:          v.CPU.R[3],
	}
	t.next++
	if len(t.entries) < t.MaxEntries {
		t.entries = append(t.entries, e)
		return
	}
	copy(t.entries, t.entries[1:])
	t.entries[len(t.entries)-1] = e
}

// Entries returns the retained entries, oldest first.
func (t *ExecutionTrace) Entries() []TraceEntry {
	return t.entries
}

// String renders the retained entries as a human-readable log, the format
// a debugger's history pane or a CLI -trace dump prints directly.
func (t *ExecutionTrace) String() string {
	s := ""
	for _, e := range t.entries {
		s += fmt.Sprintf("[%06d] pc=0x%04X %-24s r0=0x%04X r1=0x%04X r2=0x%04X r3=0x%04X\n",
			e.Sequence, uint16(e.PC), e.Disassembly, uint16(e.R0), uint16(e.R1), uint16(e.R2), uint16(e.R3))
	}
	return s
}

// TracedStep executes one step and, if trace is non-nil, records it before
// returning. Callers that want tracing call this instead of v.Step directly;
// it changes nothing about Step's own contract.
func (v *VM) TracedStep(trace *ExecutionTrace) StepResult {
	pc := v.CPU.PC
	word := v.Instr[pc]
	result := v.Step()
	if trace != nil {
		trace.Record(v, pc, word)
	}
	return result
}
