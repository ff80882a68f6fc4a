package coordinate

import "tinyvm/vm"

// Judge data-segment offsets: a richer ReqDone-adjacent protocol where r0
// selects a player index instead of carrying a flat request code.
const (
	judgeOffsetTimeHi       = 0 // allotted time, words 0..3, MSW first
	judgeOffsetRegWriteback = 4 // address of a 16-word register dump area
	judgeOffsetNW           = 5
	judgeOffsetNR           = 6
	judgeOffsetR            = 7
	judgeDescriptorStart    = 8
)

// descriptor is one scatter/gather quadruple (player_begin, player_end,
// judge_begin, judge_end).
type descriptor struct {
	playerBegin, playerEnd vm.Word
	judgeBegin, judgeEnd   vm.Word
}

func (d descriptor) length() int { return int(d.playerEnd) - int(d.playerBegin) }

// JudgeOutcomeKind classifies how a judge session ended.
type JudgeOutcomeKind uint8

const (
	JudgeFinished JudgeOutcomeKind = iota
	JudgeDescriptorError
	JudgeIllegal
	JudgeTimeOut
)

// JudgeOutcome is the result of running a judge to completion.
type JudgeOutcome struct {
	Kind   JudgeOutcomeKind
	Scores []vm.Word
}

// JudgeCoordinator runs a judge VM against a fixed roster of player VMs,
// dispatching by player index in r0 rather than the flat driver/testee
// request table. It shares the same single-threaded, budget-debiting
// discipline as Coordinator: the judge's own budget pays for every step
// any player retires.
type JudgeCoordinator struct {
	Judge   *vm.VM
	Players []*vm.VM

	// PlayerLimit mirrors Coordinator.TesteeLimit: zero means "use the
	// judge's entire remaining budget".
	PlayerLimit uint64

	// Stats, if set, is folded with the outcome of every player round.
	Stats *vm.Statistics
}

// NewJudgeCoordinator pairs a judge with its roster of players, seeding
// each player's data segment with the judge environment preamble
// (data[0xFFFF]/data[0xFFFE]).
func NewJudgeCoordinator(judge *vm.VM, players []*vm.VM) *JudgeCoordinator {
	for _, p := range players {
		p.SeedPreamble(vm.EnvJudge)
	}
	return &JudgeCoordinator{Judge: judge, Players: players}
}

// Run drives the judge until it declares a verdict (index 0xFFFF), a
// descriptor fails validation, or the judge itself faults.
func (j *JudgeCoordinator) Run() JudgeOutcome {
	for {
		res := j.Judge.RunUntilSuspension(0, nil)
		switch res.Kind {
		case vm.OutcomeIllegal:
			return JudgeOutcome{Kind: JudgeIllegal}
		case vm.OutcomeTimeOut:
			return JudgeOutcome{Kind: JudgeTimeOut}
		}

		// Same discipline as the driver/testee protocol: the judge must
		// have budget left to have its yield interpreted.
		if j.Judge.Budget == 0 {
			return JudgeOutcome{Kind: JudgeTimeOut}
		}

		index := j.Judge.CPU.R[0]
		if index == JudgeFinalIndex {
			return JudgeOutcome{Kind: JudgeFinished, Scores: j.readScores()}
		}

		if int(index) >= len(j.Players) {
			return JudgeOutcome{Kind: JudgeDescriptorError}
		}

		if !j.runPlayer(int(index)) {
			return JudgeOutcome{Kind: JudgeDescriptorError}
		}
		j.Judge.Resume()
	}
}

func (j *JudgeCoordinator) readScores() []vm.Word {
	n := int(j.Judge.CPU.R[1])
	scores := make([]vm.Word, n)
	for i := 0; i < n; i++ {
		scores[i] = j.Judge.Data[vm.Word(i)]
	}
	return scores
}

// runPlayer applies one scatter/gather round against Players[index] per
// the descriptor layout at judgeDescriptorStart, then resumes the player
// until it yields, faults, or exhausts its allotted time. It returns false
// if any descriptor fails validation (sizes must be equal, in (0, 0x7FFF],
// and matched in length) or the wire-level allotted time is zero.
func (j *JudgeCoordinator) runPlayer(index int) bool {
	player := j.Players[index]
	data := &j.Judge.Data

	nw := int(data[judgeOffsetNW])
	nr := int(data[judgeOffsetNR])
	offset := judgeDescriptorStart

	for i := 0; i < nw; i++ {
		d, ok := readDescriptor(data, offset)
		if !ok {
			return false
		}
		wrapCopy(&player.Data, d.playerBegin, &j.Judge.Data, d.judgeBegin, d.length())
		offset += 4
	}
	for i := 0; i < nr; i++ {
		d, ok := readDescriptor(data, offset)
		if !ok {
			return false
		}
		wrapCopy(&j.Judge.Data, d.judgeBegin, &player.Data, d.playerBegin, d.length())
		offset += 4
	}

	allotted := readAllottedTime(data)
	if allotted == 0 {
		return false
	}

	limit := allotted
	if j.PlayerLimit != 0 && j.PlayerLimit < limit {
		limit = j.PlayerLimit
	}
	if limit > j.Judge.Budget {
		limit = j.Judge.Budget
	}
	player.Budget = limit

	out := player.RunUntilSuspension(0, nil)

	retired := limit - player.Budget
	if j.Judge.Budget >= retired {
		j.Judge.Budget -= retired
	} else {
		j.Judge.Budget = 0
	}

	writeback := data[judgeOffsetRegWriteback]
	for i := 0; i < vm.NumRegisters; i++ {
		data[writeback+vm.Word(i)] = player.CPU.R[i]
	}

	if j.Stats != nil {
		j.Stats.Observe(retired, out)
	}

	switch out.Kind {
	case vm.OutcomeYielded, vm.OutcomeReturned:
		j.Judge.CPU.R[0] = TesteeYielded
		j.Judge.CPU.R[1] = out.Value
	case vm.OutcomeTimeOut:
		j.Judge.CPU.R[0] = TesteeTimeout
	case vm.OutcomeIllegal:
		j.Judge.CPU.R[0] = TesteeIllegal
	}
	return true
}

// readAllottedTime assembles the 64-bit step budget from the four words at
// judgeOffsetTimeHi, most-significant word first.
func readAllottedTime(data *[vm.MemSize]vm.Word) uint64 {
	return uint64(data[judgeOffsetTimeHi])<<48 |
		uint64(data[judgeOffsetTimeHi+1])<<32 |
		uint64(data[judgeOffsetTimeHi+2])<<16 |
		uint64(data[judgeOffsetTimeHi+3])
}

func readDescriptor(data *[vm.MemSize]vm.Word, offset int) (descriptor, bool) {
	d := descriptor{
		playerBegin: data[vm.Word(offset)],
		playerEnd:   data[vm.Word(offset+1)],
		judgeBegin:  data[vm.Word(offset+2)],
		judgeEnd:    data[vm.Word(offset+3)],
	}
	playerLen := int(d.playerEnd) - int(d.playerBegin)
	judgeLen := int(d.judgeEnd) - int(d.judgeBegin)
	if playerLen <= 0 || playerLen > 0x7FFF || playerLen != judgeLen {
		return descriptor{}, false
	}
	return d, true
}
