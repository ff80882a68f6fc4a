package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RunCLI runs the command-line debugger interface.
func RunCLI(dbg *Debugger) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("(tinyvm-dbg) ")

		if !scanner.Scan() {
			break
		}

		cmdLine := strings.TrimSpace(scanner.Text())

		if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
			fmt.Println("Exiting debugger...")
			break
		}

		if err := dbg.ExecuteCommand(cmdLine); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

		output := dbg.GetOutput()
		if output != "" {
			fmt.Print(output)
		}

		if dbg.Running {
			runUntilSuspended(dbg)
			if out := dbg.GetOutput(); out != "" {
				fmt.Print(out)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}

	return nil
}

// runUntilSuspended drives the driver (and, if attached, the full
// driver/testee coordination protocol) until a breakpoint, watchpoint, or
// halt suspends it. Output goes to the debugger's buffer, never straight to
// stdout, so the TUI can render it too.
func runUntilSuspended(dbg *Debugger) {
	for dbg.Running {
		if dbg.VM.Halted() {
			dbg.Running = false
			dbg.Println("Driver halted")
			return
		}

		// A single step always advances exactly one driver instruction,
		// even with a testee attached; 'continue' hands the whole
		// protocol to the coordinator.
		if dbg.StepMode != StepSingle && dbg.Coord != nil {
			outcome := dbg.Coord.Run()
			dbg.Running = false
			dbg.Printf("Coordinator finished: outcome kind %d\n", outcome.Kind)
			return
		}

		if dbg.VM.Budget == 0 {
			dbg.Running = false
			dbg.Println("Instruction budget exhausted")
			return
		}

		dbg.VM.Budget--
		dbg.VM.Step()

		if shouldBreak, reason := dbg.ShouldBreak(); shouldBreak {
			dbg.Running = false
			dbg.Printf("Stopped: %s at PC=0x%04X\n", reason, dbg.VM.CPU.PC)
			return
		}
	}
}

// RunTUI runs the TUI (Text User Interface) debugger.
func RunTUI(dbg *Debugger) error {
	tui := NewTUI(dbg)
	return tui.Run()
}
