package vm

import "fmt"

// Statistics accumulates simple per-VM performance counters across any
// number of RunUntilSuspension calls. Like ExecutionTrace, it is opt-in:
// a *Statistics is only touched if the caller passes one in.
type Statistics struct {
	StepsExecuted    uint64
	YieldCount       uint64
	ReturnCount      uint64
	IllegalCount     uint64
	TimeOutCount     uint64
	DebugDumpCount   uint64
	KindCounts       [16]uint64
}

// Observe folds one RunOutcome and the number of steps it took into the
// running totals.
func (s *Statistics) Observe(steps uint64, outcome RunOutcome) {
	s.StepsExecuted += steps
	switch outcome.Kind {
	case OutcomeYielded:
		s.YieldCount++
	case OutcomeReturned:
		s.ReturnCount++
	case OutcomeIllegal:
		s.IllegalCount++
	case OutcomeTimeOut:
		s.TimeOutCount++
	}
}

// ObserveKind tallies the decoded Kind of one executed instruction, for
// callers that want an opcode-family breakdown (main.go's headless run and
// service.Session).
func (s *Statistics) ObserveKind(k Kind) {
	if int(k) < len(s.KindCounts) {
		s.KindCounts[k]++
	}
	if k == KindDebugDump {
		s.DebugDumpCount++
	}
}

func (s *Statistics) String() string {
	return fmt.Sprintf(
		"steps=%d yields=%d returns=%d illegal=%d timeouts=%d debugdumps=%d",
		s.StepsExecuted, s.YieldCount, s.ReturnCount, s.IllegalCount, s.TimeOutCount, s.DebugDumpCount)
}
