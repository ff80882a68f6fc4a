package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"tinyvm/vm"
)

// Command handler implementations

// cmdRun resets the driver (and testee, if attached) and starts execution.
func (d *Debugger) cmdRun(args []string) error {
	d.VM.Reset()
	if d.Testee != nil {
		d.Testee.Reset()
	}
	d.Running = true
	d.StepMode = StepNone

	d.Println("Starting execution...")
	return nil
}

// cmdContinue continues execution from the current point.
func (d *Debugger) cmdContinue(args []string) error {
	if d.VM.Halted() {
		return fmt.Errorf("driver is halted; use 'run' or 'reset' first")
	}

	d.Running = true
	d.StepMode = StepNone

	d.Println("Continuing...")
	return nil
}

// cmdStep executes a single driver instruction.
func (d *Debugger) cmdStep(args []string) error {
	d.StepMode = StepSingle
	d.Running = true
	return nil
}

// cmdBreak sets a breakpoint.
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address|label> [if <condition>]")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	var condition string
	if len(args) > 1 && strings.ToLower(args[1]) == "if" {
		condition = strings.Join(args[2:], " ")
	}

	bp := d.Breakpoints.AddBreakpoint(address, false, condition)

	if condition != "" {
		d.Printf("Breakpoint %d at 0x%04X (condition: %s)\n", bp.ID, address, condition)
	} else {
		d.Printf("Breakpoint %d at 0x%04X\n", bp.ID, address)
	}

	return nil
}

// cmdTBreak sets a temporary breakpoint (auto-delete after hit).
func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <address|label>")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.AddBreakpoint(address, true, "")
	d.Printf("Temporary breakpoint %d at 0x%04X\n", bp.ID, address)

	return nil
}

// cmdDelete deletes breakpoint(s).
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

// cmdEnable enables a breakpoint.
func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: enable <breakpoint-id>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.EnableBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d enabled\n", id)
	return nil
}

// cmdDisable disables a breakpoint.
func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: disable <breakpoint-id>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.DisableBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d disabled\n", id)
	return nil
}

// cmdWatch sets a watchpoint on a register ("r3") or data word ("[0x1000]").
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <register|[address]>")
	}

	expression := strings.Join(args, " ")
	target, err := d.parseWatchExpression(expression)
	if err != nil {
		return err
	}

	wp := d.Watchpoints.AddWatchpoint(expression, target)
	if err := d.Watchpoints.InitializeWatchpoint(wp.ID, d.VM); err != nil {
		_ = d.Watchpoints.DeleteWatchpoint(wp.ID)
		return err
	}

	d.Printf("Watchpoint %d: %s\n", wp.ID, expression)
	return nil
}

// parseWatchExpression parses a watch expression into a register or a
// data-segment address.
func (d *Debugger) parseWatchExpression(expr string) (WatchTarget, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	if expr == "pc" {
		return WatchTarget{}, fmt.Errorf("pc cannot be watched; use a breakpoint instead")
	}

	if strings.HasPrefix(expr, "r") && len(expr) >= 2 {
		var regNum int
		if _, err := fmt.Sscanf(expr, "r%d", &regNum); err == nil && regNum >= 0 && regNum < vm.NumRegisters {
			return WatchTarget{IsRegister: true, Register: regNum}, nil
		}
	}

	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		addrStr := strings.TrimSuffix(strings.TrimPrefix(expr, "["), "]")
		addr, err := d.ResolveAddress(addrStr)
		if err != nil {
			return WatchTarget{}, err
		}
		return WatchTarget{Address: addr}, nil
	}

	return WatchTarget{}, fmt.Errorf("invalid watch expression: %s (want r0-r15 or [address])", expr)
}

// cmdPrint evaluates and prints an expression.
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expression>")
	}

	expression := strings.Join(args, " ")
	result, err := d.Evaluator.EvaluateExpression(expression, d.VM, d.Symbols)
	if err != nil {
		return err
	}

	d.Printf("$%d = 0x%04X (%d)\n", d.Evaluator.GetValueNumber(), result, int16(result))
	return nil
}

// cmdExamine examines a run of words at an address: x[/n] <address>, with an
// optional "i" suffix on the format character to examine the instruction
// segment instead of the data segment (e.g. "x/8i 0x0070").
func (d *Debugger) cmdExamine(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: x[/n[i]] <address>")
	}

	count := 1
	instrSegment := false
	addrArg := args[0]

	if strings.HasPrefix(args[0], "/") {
		spec := args[0][1:]
		if len(args) < 2 {
			return fmt.Errorf("missing address")
		}
		addrArg = args[1]

		i := 0
		for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
			i++
		}
		if i > 0 {
			if n, err := strconv.Atoi(spec[:i]); err == nil {
				count = n
			}
			spec = spec[i:]
		}
		if strings.Contains(spec, "i") {
			instrSegment = true
		}
	}

	address, err := d.ResolveAddress(addrArg)
	if err != nil {
		return err
	}

	seg := &d.VM.Data
	if instrSegment {
		seg = &d.VM.Instr
	}

	addr := address
	for i := 0; i < count; i++ {
		if instrSegment {
			d.Printf("0x%04X: 0x%04X  %s\n", addr, seg[addr], vm.Disassemble(seg[addr]))
		} else {
			d.Printf("0x%04X: 0x%04X (%d)\n", addr, seg[addr], int16(seg[addr]))
		}
		addr++
	}

	return nil
}

// cmdDisassemble prints a run of disassembled instructions starting at the
// current PC, or at an explicit address if given.
func (d *Debugger) cmdDisassemble(args []string) error {
	addr := d.VM.CPU.PC
	count := 10

	if len(args) > 0 {
		a, err := d.ResolveAddress(args[0])
		if err != nil {
			return err
		}
		addr = a
	}
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			count = n
		}
	}

	for i := 0; i < count; i++ {
		marker := "  "
		if addr == d.VM.CPU.PC {
			marker = "=>"
		}
		d.Printf("%s 0x%04X: %s\n", marker, addr, vm.Disassemble(d.VM.Instr[addr]))
		addr++
	}

	return nil
}

// cmdLabel assigns a symbolic name to an address for later break/print/set
// commands.
func (d *Debugger) cmdLabel(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: label <name> <address>")
	}

	addr, err := d.ResolveAddress(args[1])
	if err != nil {
		return err
	}

	d.Symbols[args[0]] = addr
	d.Printf("Label %s = 0x%04X\n", args[0], addr)
	return nil
}

// cmdInfo displays information about program state.
func (d *Debugger) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <registers|breakpoints|watchpoints>")
	}

	switch strings.ToLower(args[0]) {
	case "registers", "reg", "r":
		return d.showRegisters()
	case "breakpoints", "break", "b":
		return d.showBreakpoints()
	case "watchpoints", "watch", "w":
		return d.showWatchpoints()
	default:
		return fmt.Errorf("unknown info command: %s", args[0])
	}
}

// showRegisters displays all register values.
func (d *Debugger) showRegisters() error {
	d.Println("Registers:")
	for i := 0; i < vm.NumRegisters; i++ {
		d.Printf("  r%-2d = 0x%04X (%d)\n", i, d.VM.CPU.R[i], int16(d.VM.CPU.R[i]))
	}
	d.Printf("  pc  = 0x%04X\n", d.VM.CPU.PC)
	d.Printf("  retired = %d, budget = %d\n", d.VM.CPU.Retired, d.VM.Budget)

	return nil
}

// showBreakpoints displays all breakpoints.
func (d *Debugger) showBreakpoints() error {
	breakpoints := d.Breakpoints.GetAllBreakpoints()
	if len(breakpoints) == 0 {
		d.Println("No breakpoints")
		return nil
	}

	d.Println("Breakpoints:")
	for _, bp := range breakpoints {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}
		temp := ""
		if bp.Temporary {
			temp = " (temporary)"
		}
		condition := ""
		if bp.Condition != "" {
			condition = fmt.Sprintf(" if %s", bp.Condition)
		}
		hitInfo := fmt.Sprintf("hit %d times", bp.HitCount)
		if bp.HitCount > 0 {
			hitInfo = fmt.Sprintf("%s, last at step %d", hitInfo, bp.LastHitStep)
		}
		d.Printf("  %d: 0x%04X %s%s%s (%s)\n",
			bp.ID, bp.Address, status, temp, condition, hitInfo)
	}

	return nil
}

// showWatchpoints displays all watchpoints.
func (d *Debugger) showWatchpoints() error {
	watchpoints := d.Watchpoints.GetAllWatchpoints()
	if len(watchpoints) == 0 {
		d.Println("No watchpoints")
		return nil
	}

	d.Println("Watchpoints:")
	for _, wp := range watchpoints {
		status := "enabled"
		if !wp.Enabled {
			status = "disabled"
		}
		d.Printf("  %d: %s %s (hit %d times, last value: 0x%04X)\n",
			wp.ID, wp.Expression, status, wp.HitCount, wp.LastValue)
	}

	return nil
}

// cmdSet modifies a register or data word.
func (d *Debugger) cmdSet(args []string) error {
	if len(args) < 3 || args[1] != "=" {
		return fmt.Errorf("usage: set <register|[address]> = <value>")
	}

	target := strings.ToLower(args[0])
	valueStr := args[2]

	value, err := d.Evaluator.EvaluateExpression(valueStr, d.VM, d.Symbols)
	if err != nil {
		return err
	}

	if strings.HasPrefix(target, "[") && strings.HasSuffix(target, "]") {
		addrStr := strings.TrimSuffix(strings.TrimPrefix(target, "["), "]")
		address, err := d.ResolveAddress(addrStr)
		if err != nil {
			return err
		}
		d.VM.Data[address] = value
		d.Printf("data[0x%04X] set to 0x%04X\n", address, value)
		return nil
	}

	if target == "pc" {
		d.VM.CPU.PC = value
		d.Printf("pc set to 0x%04X\n", value)
		return nil
	}

	if strings.HasPrefix(target, "r") {
		var register int
		if _, err := fmt.Sscanf(target, "r%d", &register); err != nil || register < 0 || register >= vm.NumRegisters {
			return fmt.Errorf("invalid register: %s", target)
		}
		d.VM.CPU.R[register] = value
		d.Printf("%s set to 0x%04X\n", target, value)
		return nil
	}

	return fmt.Errorf("invalid target: %s", target)
}

// cmdLoad does not load anything: with a filename it returns an error saying
// that loading from a file is not available in the debugger, and without one
// it returns the usage message.
func (d *Debugger) cmdLoad(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: load <filename>")
	}
	return fmt.Errorf("load is not wired to a filesystem in this session; use the API's program upload instead")
}

// cmdReset resets the driver (and testee, if attached).
func (d *Debugger) cmdReset(args []string) error {
	d.VM.Reset()
	if d.Testee != nil {
		d.Testee.Reset()
	}
	d.Println("VM reset")
	return nil
}

// cmdHelp displays help information.
func (d *Debugger) cmdHelp(args []string) error {
	if len(args) > 0 {
		return d.showCommandHelp(args[0])
	}

	d.Println("TinyVM Debugger Commands:")
	d.Println()
	d.Println("Execution Control:")
	d.Println("  run (r)           - Reset and start execution")
	d.Println("  continue (c)      - Continue execution")
	d.Println("  step (s, si)      - Execute single instruction")
	d.Println("  next/finish       - Alias for step (no call/return convention to track)")
	d.Println()
	d.Println("Breakpoints:")
	d.Println("  break (b) <addr>   - Set breakpoint")
	d.Println("  tbreak (tb) <addr> - Set temporary breakpoint")
	d.Println("  delete (d) [id]    - Delete breakpoint(s)")
	d.Println("  enable/disable <id>")
	d.Println()
	d.Println("Watchpoints:")
	d.Println("  watch (w) <r0-r15|[addr]> - Watch a register or data word")
	d.Println()
	d.Println("Inspection:")
	d.Println("  print (p) <expr>  - Evaluate expression")
	d.Println("  x[/n[i]] <addr>   - Examine data (or instruction) words")
	d.Println("  disassemble <addr> [n]")
	d.Println("  info (i) <registers|breakpoints|watchpoints>")
	d.Println("  label <name> <addr>")
	d.Println()
	d.Println("Modification:")
	d.Println("  set <r0-r15|pc|[addr]> = <value>")
	d.Println()
	d.Println("Control:")
	d.Println("  reset             - Reset VM")
	d.Println("  help (h, ?)       - Show this help")

	return nil
}

// showCommandHelp shows detailed help for a specific command.
func (d *Debugger) showCommandHelp(cmd string) error {
	helpText := map[string]string{
		"break":       "break <address|label> [if <condition>]\n  Set a breakpoint, optionally conditional.",
		"step":        "step\n  Execute a single instruction.",
		"print":       "print <expression>\n  Evaluate and print an expression over registers, data[]/i[] words, and arithmetic.",
		"x":           "x[/n[i]] <address>\n  Examine n words of data (or, with 'i', instruction) memory.",
		"info":        "info <registers|breakpoints|watchpoints>\n  Display program state.",
		"disassemble": "disassemble [address] [count]\n  Disassemble instruction words.",
	}

	if help, exists := helpText[cmd]; exists {
		d.Println(help)
		return nil
	}

	return fmt.Errorf("no help available for command: %s", cmd)
}
