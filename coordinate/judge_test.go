package coordinate

import (
	"testing"

	"tinyvm/vm"
)

func TestJudgeFinalVerdict(t *testing.T) {
	judge := vm.New()
	judge.Budget = 50
	judge.CPU.R[0] = JudgeFinalIndex
	judge.CPU.R[1] = 2
	judge.Data[0] = 10
	judge.Data[1] = 0xFFF6 // -10 as signed score
	judge.Instr[0] = 0x102A
	judge.CPU.PC = 0

	jc := NewJudgeCoordinator(judge, nil)
	out := jc.Run()

	if out.Kind != JudgeFinished {
		t.Fatalf("outcome.Kind = %d, want JudgeFinished", out.Kind)
	}
	if len(out.Scores) != 2 || out.Scores[0] != 10 || out.Scores[1] != 0xFFF6 {
		t.Fatalf("Scores = %v, want [10, 0xFFF6]", out.Scores)
	}
}

func TestJudgeUnknownPlayerIndexIsDescriptorError(t *testing.T) {
	judge := vm.New()
	judge.Budget = 10
	judge.CPU.R[0] = 5 // no players registered
	judge.Instr[0] = 0x102A
	judge.CPU.PC = 0

	jc := NewJudgeCoordinator(judge, nil)
	out := jc.Run()
	if out.Kind != JudgeDescriptorError {
		t.Fatalf("outcome.Kind = %d, want JudgeDescriptorError", out.Kind)
	}
}

func TestJudgeScatterGatherRound(t *testing.T) {
	judge := vm.New()
	player := vm.New()
	judge.Budget = 100

	judge.Data[judgeOffsetTimeHi+3] = 40 // allotted time = 40 steps
	judge.Data[judgeOffsetRegWriteback] = 300
	judge.Data[judgeOffsetNW] = 1
	judge.Data[judgeOffsetNR] = 1
	// write descriptor: judge[100:104) -> player[0:4)
	judge.Data[judgeDescriptorStart+0] = 0   // player begin
	judge.Data[judgeDescriptorStart+1] = 4   // player end
	judge.Data[judgeDescriptorStart+2] = 100 // judge begin
	judge.Data[judgeDescriptorStart+3] = 104 // judge end
	for i := 0; i < 4; i++ {
		judge.Data[100+vm.Word(i)] = vm.Word(1000 + i)
	}
	// read descriptor: player[0:4) -> judge[200:204)
	judge.Data[judgeDescriptorStart+4] = 0
	judge.Data[judgeDescriptorStart+5] = 4
	judge.Data[judgeDescriptorStart+6] = 200
	judge.Data[judgeDescriptorStart+7] = 204

	player.Instr[0] = 0x102A // player immediately yields
	player.CPU.R[0] = 0
	player.CPU.R[5] = 77

	jc := NewJudgeCoordinator(judge, []*vm.VM{player})
	jc.Judge.CPU.R[0] = 0 // address player 0

	ok := jc.runPlayer(0)
	if !ok {
		t.Fatalf("runPlayer returned false, want true")
	}
	for i := 0; i < 4; i++ {
		if got := player.Data[i]; got != vm.Word(1000+i) {
			t.Errorf("player.Data[%d] = %d, want %d (scatter)", i, got, 1000+i)
		}
	}
	for i := 0; i < 4; i++ {
		if got := judge.Data[200+vm.Word(i)]; got != vm.Word(1000+i) {
			t.Errorf("judge.Data[%d] = %d, want %d (gather back, unchanged by player)", 200+i, got, 1000+i)
		}
	}
	if judge.CPU.R[0] != TesteeYielded {
		t.Errorf("judge.R[0] = %d, want TesteeYielded", judge.CPU.R[0])
	}
	for i := 0; i < vm.NumRegisters; i++ {
		want := player.CPU.R[i]
		if got := judge.Data[300+vm.Word(i)]; got != want {
			t.Errorf("judge.Data[%d] = %d, want %d (register write-back for R%d)", 300+i, got, want, i)
		}
	}
}

func TestJudgeRunPlayerRespectsWireAllottedTime(t *testing.T) {
	judge := vm.New()
	player := vm.New()
	judge.Budget = 1000

	judge.Data[judgeOffsetTimeHi+3] = 3 // allotted time = 3 steps, far below judge.Budget
	judge.Data[judgeOffsetRegWriteback] = 300
	judge.Data[judgeOffsetNW] = 0
	judge.Data[judgeOffsetNR] = 0

	// An infinite loop bouncing between addresses 0 and 2 (unconditional
	// 12-bit jumps, +2 then -2). With a 3-step cap the player must time out
	// rather than run away with the judge's budget.
	player.Instr[0] = 0xA000 // jump +2 -> PC=2
	player.Instr[2] = 0xA801 // jump -2 -> PC=0
	player.CPU.PC = 0

	jc := NewJudgeCoordinator(judge, []*vm.VM{player})
	jc.Judge.CPU.R[0] = 0

	ok := jc.runPlayer(0)
	if !ok {
		t.Fatalf("runPlayer returned false, want true")
	}
	if player.Budget != 0 {
		t.Errorf("player.Budget = %d, want 0 (allotted time exhausted)", player.Budget)
	}
	if judge.Budget != 1000-3 {
		t.Errorf("judge.Budget = %d, want %d (only the wire-specified 3 steps debited)", judge.Budget, 1000-3)
	}
}

func TestNewJudgeCoordinatorSeedsPlayerPreamble(t *testing.T) {
	judge := vm.New()
	player := vm.New()

	NewJudgeCoordinator(judge, []*vm.VM{player})

	if player.Data[vm.PreambleEnvID] != vm.EnvJudge {
		t.Errorf("player.Data[0xFFFF] = 0x%04X, want EnvJudge", player.Data[vm.PreambleEnvID])
	}
	if player.Data[vm.PreambleMinorVer] != vm.MinorVersion {
		t.Errorf("player.Data[0xFFFE] = 0x%04X, want MinorVersion", player.Data[vm.PreambleMinorVer])
	}
}

func TestRunPlayerFeedsStatistics(t *testing.T) {
	judge := vm.New()
	player := vm.New()
	judge.Budget = 50
	judge.Data[judgeOffsetTimeHi+3] = 10
	judge.Data[judgeOffsetRegWriteback] = 300
	player.Instr[0] = 0x102A // immediate yield

	jc := NewJudgeCoordinator(judge, []*vm.VM{player})
	jc.Stats = &vm.Statistics{}

	if !jc.runPlayer(0) {
		t.Fatalf("runPlayer returned false, want true")
	}
	if jc.Stats.StepsExecuted != 1 {
		t.Errorf("Stats.StepsExecuted = %d, want 1", jc.Stats.StepsExecuted)
	}
	if jc.Stats.ReturnCount != 1 {
		t.Errorf("Stats.ReturnCount = %d, want 1", jc.Stats.ReturnCount)
	}
}

func TestJudgeRunPlayerZeroAllottedTimeIsFatal(t *testing.T) {
	judge := vm.New()
	player := vm.New()
	judge.Budget = 100
	judge.Data[judgeOffsetNW] = 0
	judge.Data[judgeOffsetNR] = 0
	// judgeOffsetTimeHi..+3 left at zero: no allotted time supplied.

	jc := NewJudgeCoordinator(judge, []*vm.VM{player})
	if jc.runPlayer(0) {
		t.Fatalf("runPlayer should reject a zero wire-level allotted time")
	}
}

func TestJudgeDescriptorLengthMismatchRejected(t *testing.T) {
	judge := vm.New()
	player := vm.New()
	judge.Budget = 10
	judge.Data[judgeOffsetNW] = 1
	judge.Data[judgeOffsetNR] = 0
	judge.Data[judgeDescriptorStart+0] = 0
	judge.Data[judgeDescriptorStart+1] = 4 // player length 4
	judge.Data[judgeDescriptorStart+2] = 100
	judge.Data[judgeDescriptorStart+3] = 103 // judge length 3: mismatch

	jc := NewJudgeCoordinator(judge, []*vm.VM{player})
	if jc.runPlayer(0) {
		t.Fatalf("runPlayer should reject a length-mismatched descriptor")
	}
}
