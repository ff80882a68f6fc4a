package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tinyvm/api"
	"tinyvm/config"
	"tinyvm/coordinate"
	"tinyvm/debugger"
	"tinyvm/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode (CLI)")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		apiServer   = flag.Bool("api-server", false, "Start HTTP API server mode")
		apiPort     = flag.Int("port", cfg.API.Port, "API server port (used with -api-server)")
		budget      = flag.Uint64("budget", cfg.Execution.Budget, "Driver instruction budget")
		testeeFile  = flag.String("testee", "", "Testee instruction image (enables driver/testee coordination)")
		testeeLimit = flag.Uint64("testee-limit", cfg.Execution.TesteeLimit, "Per-execute testee step cap (0 = driver's remaining budget)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")
		enableTrace = flag.Bool("trace", cfg.Execution.EnableTrace, "Enable execution trace and print it on halt")
		traceSize   = flag.Int("trace-entries", cfg.Trace.MaxEntries, "Execution trace ring buffer size")
		enableStats = flag.Bool("stats", cfg.Execution.EnableStats, "Enable instruction-mix statistics and print them on halt")
	)

	flag.Parse()

	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: using default configuration: %v\n", cfgErr)
	}

	if *showVersion {
		fmt.Printf("TinyVM %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if *apiServer {
		runAPIServer(*apiPort)
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	driverFile := flag.Arg(0)
	driverBytes, err := os.ReadFile(driverFile) // #nosec G304 -- user-specified program path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read driver image %s: %v\n", driverFile, err)
		os.Exit(1)
	}

	machine := vm.NewWithBudget(*budget)
	machine.ExpRootEnabled = cfg.Execution.EnableExpRoot
	if cfg.Execution.DeterministicRNG {
		machine.RNG = vm.NewRNG(cfg.Execution.RNGSeed)
	}
	machine.LoadInstructionBytes(driverBytes)

	if *verboseMode {
		fmt.Printf("Loaded driver image: %s (%d bytes, budget=%d)\n", driverFile, len(driverBytes), *budget)
	}

	var testee *vm.VM
	if *testeeFile != "" {
		testeeBytes, err := os.ReadFile(*testeeFile) // #nosec G304 -- user-specified program path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot read testee image %s: %v\n", *testeeFile, err)
			os.Exit(1)
		}
		testee = vm.New()
		testee.ExpRootEnabled = cfg.Execution.EnableExpRoot
		if cfg.Execution.DeterministicRNG {
			testee.RNG = vm.NewRNG(cfg.Execution.RNGSeed)
		}
		testee.LoadInstructionBytes(testeeBytes)
		if *verboseMode {
			fmt.Printf("Loaded testee image: %s (%d bytes)\n", *testeeFile, len(testeeBytes))
		}
	}

	if *debugMode || *tuiMode {
		dbg := debugger.NewDebugger(machine)
		if testee != nil {
			dbg.AttachTestee(testee, *testeeLimit)
		}

		if *tuiMode {
			if err := debugger.RunTUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Println("TinyVM Debugger - Type 'help' for commands")
			fmt.Printf("Driver loaded: %s\n", driverFile)
			fmt.Println()

			if err := debugger.RunCLI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	runHeadless(machine, testee, *testeeLimit, *verboseMode, *enableTrace, *traceSize, *enableStats)
}

// runHeadless drives a driver (optionally coordinating a testee) to
// completion without any interactive layer, mirroring the "direct execution
// mode" the debugger's CLI/TUI modes are an alternative to.
func runHeadless(machine, testee *vm.VM, testeeLimit uint64, verbose, trace bool, traceEntries int, stats bool) {
	var tr *vm.ExecutionTrace
	var st *vm.Statistics
	if trace {
		tr = vm.NewExecutionTrace(traceEntries)
	}
	if stats {
		st = &vm.Statistics{}
	}

	if testee == nil {
		if verbose {
			fmt.Println("Starting execution...")
			fmt.Println("----------------------------------------")
		}
		for !machine.Halted() && machine.Budget > 0 {
			machine.Budget--
			word := machine.Instr[machine.CPU.PC]
			if tr != nil {
				machine.TracedStep(tr)
			} else {
				machine.Step()
			}
			if st != nil {
				st.ObserveKind(vm.Decode(word).Kind)
			}
		}
		if verbose {
			fmt.Println("----------------------------------------")
			if machine.Halted() {
				fmt.Printf("Halted: value=%d\n", machine.CPU.R[0])
			} else {
				fmt.Println("Instruction budget exhausted")
			}
		}
	} else {
		coord := coordinate.NewCoordinator(machine, testee)
		coord.TesteeLimit = testeeLimit
		coord.Stats = st
		outcome := coord.Run()

		switch outcome.Kind {
		case coordinate.OutcomeDone:
			fmt.Printf("done: results=%v integrityOK=%v\n", outcome.Results, outcome.IntegrityOK)
		case coordinate.OutcomeDriverIllegal:
			fmt.Println("driver faulted: illegal instruction")
			os.Exit(1)
		case coordinate.OutcomeDriverTimeOut:
			fmt.Println("driver faulted: timed out")
			os.Exit(1)
		case coordinate.OutcomeDriverFatal:
			fmt.Printf("driver issued unrecognized request: %d\n", outcome.FatalRequest)
			os.Exit(1)
		}
	}

	if tr != nil {
		fmt.Println()
		fmt.Println(tr.String())
	}
	if st != nil {
		fmt.Println()
		fmt.Println(st.String())
	}
}

func runAPIServer(port int) {
	server := api.NewServer(port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	performShutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down API server...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
				os.Exit(1)
			}

			fmt.Println("API server stopped")
			os.Exit(0)
		})
	}

	// Start process monitor to detect parent death (a judge or orchestration
	// process that spawned this server dying without a clean shutdown).
	monitor := api.NewProcessMonitor(performShutdown)
	monitor.Start()

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	performShutdown()
}

func printHelp() {
	fmt.Printf(`TinyVM %s

Usage: tinyvm [options] <driver-image>
       tinyvm -api-server [-port N]

Options:
  -help               Show this help message
  -version            Show version information
  -api-server         Start HTTP API server mode (no image required)
  -port N             API server port (default: 8080, used with -api-server)
  -debug              Start in debugger mode (CLI)
  -tui                Start in TUI debugger mode
  -budget N           Driver instruction budget (default: 1000000)
  -testee FILE        Testee instruction image (enables driver/testee coordination)
  -testee-limit N     Per-execute testee step cap (default: driver's remaining budget)
  -verbose            Enable verbose output
  -trace              Enable execution trace, printed on halt
  -trace-entries N    Execution trace ring buffer size (default: 100000)
  -stats              Enable instruction-mix statistics, printed on halt

A driver/testee image is a flat byte stream of 16-bit instruction words:
two bytes per word, high byte first, up to 131072 bytes.

Examples:
  # Start API server for a frontend
  tinyvm -api-server
  tinyvm -api-server -port 3000

  # Run a driver image directly
  tinyvm driver.bin

  # Run a driver coordinating a testee
  tinyvm -testee testee.bin driver.bin

  # Run with debugger
  tinyvm -debug driver.bin

  # Run with TUI debugger
  tinyvm -tui -testee testee.bin driver.bin

  # Run with execution trace and statistics
  tinyvm -trace -stats -verbose driver.bin

Debugger Commands (when in -debug mode):
  run, r              Start/restart program execution
  continue, c         Continue execution
  step, s             Execute single instruction
  break ADDR          Set breakpoint at address/label
  watch EXPR          Set watchpoint on a register or memory cell
  info registers      Show all registers
  print EXPR          Evaluate and print expression
  help                Show debugger help
`, Version)
}
