package coordinate

import "tinyvm/vm"

// OutcomeKind classifies how a driver/testee session ended.
type OutcomeKind uint8

const (
	OutcomeDone OutcomeKind = iota
	OutcomeDriverIllegal
	OutcomeDriverTimeOut
	OutcomeDriverFatal
)

// Outcome summarizes a finished coordinator Run.
type Outcome struct {
	Kind OutcomeKind

	// Results holds the test-count result codes the driver wrote before
	// issuing ReqDone, present only when Kind == OutcomeDone.
	Results []vm.Word

	// IntegrityOK reports whether the magic pair followed Results exactly;
	// a driver that gets this wrong is not trusted, but failing the check
	// does not itself change Kind; callers decide how to treat it.
	IntegrityOK bool

	// FatalRequest holds the r0 value that triggered OutcomeDriverFatal,
	// zero otherwise.
	FatalRequest vm.Word
}

// Coordinator alternates running a driver VM until it yields, interprets
// the request in r0, applies it against the testee, and resumes the
// driver. Driver and testee share the driver's instruction budget: every
// step the testee retires under ReqExecuteTestee is debited from
// Driver.Budget, never from Testee.Budget directly.
type Coordinator struct {
	Driver *vm.VM
	Testee *vm.VM

	// TesteeLimit is the per-execute step cap set by ReqSetTesteeLimit.
	// Zero means "unset": the testee runs with the driver's entire
	// remaining budget as its cap.
	TesteeLimit uint64

	// Stats, if set, is folded with the outcome of every testee execute
	// round. Opt-in, like vm.Statistics itself.
	Stats *vm.Statistics
}

// NewCoordinator pairs a driver and a testee under one coordinator. The
// testee's data segment is seeded with the test-driver environment preamble
// (data[0xFFFF]/data[0xFFFE]); callers still arrange everything else
// (loaded programs, PCs, any testee-specific layout) before calling Run.
func NewCoordinator(driver, testee *vm.VM) *Coordinator {
	testee.SeedPreamble(vm.EnvTestDriver)
	return &Coordinator{Driver: driver, Testee: testee}
}

// Run drives the session to completion: OutcomeDone (the driver issued
// ReqDone), OutcomeDriverIllegal/OutcomeDriverTimeOut (the driver itself
// faulted), or OutcomeDriverFatal (the driver issued an unrecognized
// request code; a protocol bug).
func (c *Coordinator) Run() Outcome {
	for {
		res := c.Driver.RunUntilSuspension(0, nil)
		switch res.Kind {
		case vm.OutcomeIllegal:
			return Outcome{Kind: OutcomeDriverIllegal}
		case vm.OutcomeTimeOut:
			return Outcome{Kind: OutcomeDriverTimeOut}
		}

		// The driver must have budget left to have its request
		// interpreted; a driver that spends its last step yielding times
		// out before the request is applied.
		if c.Driver.Budget == 0 {
			return Outcome{Kind: OutcomeDriverTimeOut}
		}

		req := c.Driver.CPU.R[0]
		switch req {
		case ReqExecuteTestee:
			c.executeTestee()
			c.Driver.Resume()

		case ReqDone:
			out := c.finalizeDone()
			return out

		case ReqRegisterTransfer:
			bitmap := c.Driver.CPU.R[1]
			offset := c.Driver.CPU.R[2]
			transferRegisters(c.Testee, c.Driver, bitmap, offset)
			c.Driver.Resume()

		case ReqWriteTesteeData:
			dst, src, length := c.Driver.CPU.R[1], c.Driver.CPU.R[2], c.Driver.CPU.R[3]
			wrapCopy(&c.Testee.Data, dst, &c.Driver.Data, src, int(length))
			c.Driver.Resume()

		case ReqReadTesteeData:
			dst, src, length := c.Driver.CPU.R[1], c.Driver.CPU.R[2], c.Driver.CPU.R[3]
			wrapCopy(&c.Driver.Data, dst, &c.Testee.Data, src, int(length))
			c.Driver.Resume()

		case ReqReadTesteeInstr:
			dst, src, length := c.Driver.CPU.R[1], c.Driver.CPU.R[2], c.Driver.CPU.R[3]
			wrapCopy(&c.Driver.Data, dst, &c.Testee.Instr, src, int(length))
			c.Driver.Resume()

		case ReqResetTestee:
			c.Testee.Reset()
			c.Driver.Resume()

		case ReqSetTesteeLimit:
			n := pack48(c.Driver.CPU.R[1], c.Driver.CPU.R[2], c.Driver.CPU.R[3])
			if n == 0 {
				return Outcome{Kind: OutcomeDriverFatal, FatalRequest: req}
			}
			c.TesteeLimit = n
			c.Driver.Resume()

		case ReqSetTesteePC:
			c.Testee.CPU.PC = c.Driver.CPU.R[1]
			c.Driver.Resume()

		default:
			return Outcome{Kind: OutcomeDriverFatal, FatalRequest: req}
		}
	}
}

// executeTestee resumes the testee until it yields, faults, or exhausts
// its per-execute step cap, then reports the outcome into driver.r0/r1.
// Only the steps the testee actually retires are debited from the
// driver's shared budget.
func (c *Coordinator) executeTestee() {
	stepCap := c.TesteeLimit
	if stepCap == 0 || stepCap > c.Driver.Budget {
		stepCap = c.Driver.Budget
	}

	// The testee's own Budget field is fully owned by the coordinator
	// while under this protocol: it is reset to the per-execute cap on
	// every call, never accumulated, since the driver's budget is the
	// only persistent counter.
	c.Testee.Budget = stepCap

	out := c.Testee.RunUntilSuspension(0, nil)

	retired := stepCap - c.Testee.Budget
	if c.Driver.Budget >= retired {
		c.Driver.Budget -= retired
	} else {
		c.Driver.Budget = 0
	}

	if c.Stats != nil {
		c.Stats.Observe(retired, out)
	}

	switch out.Kind {
	case vm.OutcomeYielded, vm.OutcomeReturned:
		c.Driver.CPU.R[0] = TesteeYielded
		c.Driver.CPU.R[1] = out.Value
	case vm.OutcomeTimeOut:
		c.Driver.CPU.R[0] = TesteeTimeout
	case vm.OutcomeIllegal:
		c.Driver.CPU.R[0] = TesteeIllegal
	}
}

func (c *Coordinator) finalizeDone() Outcome {
	n := int(c.Driver.CPU.R[1])
	results := make([]vm.Word, n)
	for i := 0; i < n; i++ {
		results[i] = c.Driver.Data[vm.Word(i)]
	}
	integrity := c.Driver.Data[vm.Word(n)] == DoneMagicLow && c.Driver.Data[vm.Word(n+1)] == DoneMagicHigh
	return Outcome{Kind: OutcomeDone, Results: results, IntegrityOK: integrity}
}

func pack48(hi, mid, lo vm.Word) uint64 {
	return uint64(hi)<<32 | uint64(mid)<<16 | uint64(lo)
}
