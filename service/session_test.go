package service

import (
	"testing"

	"tinyvm/debugger"
	"tinyvm/vm"
)

func TestSessionStepAndRegisterState(t *testing.T) {
	s := NewSession(10)
	s.Driver.Instr[0] = 0x3007 // lli r0, #7
	s.Driver.Instr[1] = 0x102A // return

	s.Step()
	rs := s.RegisterState()
	if rs.Registers[0] != 7 {
		t.Fatalf("r0 = %d, want 7", rs.Registers[0])
	}
	if rs.PC != 1 {
		t.Fatalf("PC = %d, want 1", rs.PC)
	}

	s.Step()
	if s.ExecutionState() != vm.StateHalted {
		t.Fatalf("state = %v, want halted", s.ExecutionState())
	}
}

func TestSessionBreakpoints(t *testing.T) {
	s := NewSession(10)
	s.AddBreakpoint(5, false)
	s.Driver.CPU.PC = 5
	if !s.AtBreakpoint() {
		t.Fatal("expected breakpoint at PC=5")
	}
	s.RemoveBreakpoint(5)
	if s.AtBreakpoint() {
		t.Fatal("breakpoint should have been removed")
	}
}

func TestSessionRunDriverToSuspensionWithTestee(t *testing.T) {
	s := NewSession(20)
	s.AttachTestee(0)

	// driver: request Done immediately (r0=2, magic in r1/r2)
	s.Driver.Instr[0] = 0x3002 // lli r0, #2
	s.Driver.Instr[1] = 0x102A // return
	s.Driver.CPU.R[1] = 0x650D
	s.Driver.CPU.R[2] = 0x4585

	s.RunDriverToSuspension()
	if s.IsRunning() {
		t.Fatal("session should have stopped running")
	}
}

func TestSessionMemoryWindow(t *testing.T) {
	s := NewSession(10)
	s.Driver.Data[100] = 0xBEEF
	region, err := s.Memory("data", 99, 3)
	if err != nil {
		t.Fatalf("Memory: %v", err)
	}
	if region.Words[1] != 0xBEEF {
		t.Fatalf("Words[1] = %#x, want 0xBEEF", region.Words[1])
	}
}

func TestSessionDisassembly(t *testing.T) {
	s := NewSession(10)
	s.Driver.Instr[0] = 0x102A // return
	lines := s.Disassembly(0, 1)
	if len(lines) != 1 || lines[0].Text == "" {
		t.Fatalf("expected one disassembled line, got %+v", lines)
	}
}

func TestSessionWatchpoints(t *testing.T) {
	s := NewSession(10)
	wp := s.AddWatchpoint("r0", debugger.WatchTarget{IsRegister: true, Register: 0})
	if !wp.Enabled {
		t.Fatal("watchpoint should start enabled")
	}
	if len(s.Watchpoints()) != 1 {
		t.Fatalf("expected 1 watchpoint, got %d", len(s.Watchpoints()))
	}
	if err := s.RemoveWatchpoint(wp.ID); err != nil {
		t.Fatalf("RemoveWatchpoint: %v", err)
	}
	if len(s.Watchpoints()) != 0 {
		t.Fatal("watchpoint should have been removed")
	}
}

func TestSessionEvaluateExpression(t *testing.T) {
	s := NewSession(10)
	s.Driver.CPU.R[3] = 42
	val, err := s.EvaluateExpression("r3 + 8")
	if err != nil {
		t.Fatalf("EvaluateExpression: %v", err)
	}
	if val != 50 {
		t.Fatalf("value = %d, want 50", val)
	}
}
