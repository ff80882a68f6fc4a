package vm

import "testing"

func TestPackedTimeBigEndianSplit(t *testing.T) {
	retired := uint64(0x0001_0002_0003_0004)
	r0, r1, r2, r3 := PackedTime(retired)
	if r0 != 0x0001 || r1 != 0x0002 || r2 != 0x0003 || r3 != 0x0004 {
		t.Fatalf("PackedTime(0x%016X) = %04X %04X %04X %04X, want 0001 0002 0003 0004",
			retired, r0, r1, r2, r3)
	}
}

func TestCPUResetClearsEverything(t *testing.T) {
	c := CPU{PC: 10, Retired: 99}
	c.R[3] = 7
	c.Reset()
	if c.PC != 0 || c.Retired != 0 || c.R[3] != 0 {
		t.Fatalf("Reset left state: %+v", c)
	}
}

func TestCPUIDOtherQueryZeroesAll(t *testing.T) {
	v := New()
	v.Instr[0] = wordCPUID
	v.CPU.R[0] = 1
	v.CPU.R[1], v.CPU.R[2], v.CPU.R[3] = 9, 9, 9
	v.Step()
	if v.CPU.R[0] != 0 || v.CPU.R[1] != 0 || v.CPU.R[2] != 0 || v.CPU.R[3] != 0 {
		t.Fatalf("CPUID with r0!=0 should zero r0..r3, got %v", v.CPU.R[:4])
	}
}

func TestTimeInstructionPacksRetiredCount(t *testing.T) {
	v := New()
	v.Instr[0] = Word(familyUnary<<12) | Word(UnaryMOV)<<8 // one cheap retiring instruction
	v.Instr[1] = wordTime
	v.Step()
	v.Step()
	// time packs the count retired before itself: only the MOV.
	if v.CPU.R[3] != 1 {
		t.Fatalf("after 1 retired step before time, time low word = %d, want 1", v.CPU.R[3])
	}
}

func TestVMResetPreservesInstructionSegmentAndBudget(t *testing.T) {
	v := New()
	v.Instr[0] = wordReturn
	v.Budget = 42
	v.CPU.R[0] = 5
	v.Step()
	v.Reset()
	if v.Halted() {
		t.Fatalf("Reset should clear the halted flag")
	}
	if v.Budget != 42 {
		t.Fatalf("Reset must not touch Budget, got %d", v.Budget)
	}
	if v.Instr[0] != wordReturn {
		t.Fatalf("Reset must not touch the instruction segment")
	}
	if v.CPU.R[0] != 0 {
		t.Fatalf("Reset must clear registers")
	}
}
