package api

import (
	"time"

	"tinyvm/service"
	"tinyvm/vm"
)

// SessionCreateRequest represents a request to create a new session.
type SessionCreateRequest struct {
	Budget      uint64 `json:"budget,omitempty"`      // driver instruction budget (default: 1,000,000)
	TesteeLimit uint64 `json:"testeeLimit,omitempty"` // per-call testee budget; 0 = driver's remaining budget
	AttachTestee bool  `json:"attachTestee,omitempty"`
}

// SessionCreateResponse represents the response from creating a session.
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStatusResponse represents the current status of a session.
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	PC        uint16 `json:"pc"`
	Retired   uint64 `json:"retired"`
	Budget    uint64 `json:"budget"`
}

// LoadInstructionsRequest represents a request to load raw instruction words
// (big-endian byte pairs, high byte first) into a segment.
type LoadInstructionsRequest struct {
	Data []byte `json:"data"` // base64-decoded by encoding/json into a byte slice
}

// LoadInstructionsResponse confirms how many words were loaded.
type LoadInstructionsResponse struct {
	Success bool `json:"success"`
	Words   int  `json:"words"`
}

// RegistersResponse represents the current register state.
type RegistersResponse struct {
	R       [16]uint16 `json:"r"`
	PC      uint16     `json:"pc"`
	Retired uint64     `json:"retired"`
	Budget  uint64     `json:"budget"`
}

// MemoryRequest represents a request for a window of one VM segment.
type MemoryRequest struct {
	Segment string `json:"segment"` // "instr" or "data"
	Address uint16 `json:"address"`
	Length  int    `json:"length"`
}

// MemoryResponse represents a window of words from one VM segment.
type MemoryResponse struct {
	Segment string   `json:"segment"`
	Address uint16   `json:"address"`
	Words   []uint16 `json:"words"`
}

// DisassemblyRequest represents a request for disassembly.
type DisassemblyRequest struct {
	Address uint16 `json:"address"`
	Count   int    `json:"count"`
}

// DisassemblyResponse represents disassembled instructions.
type DisassemblyResponse struct {
	Instructions []InstructionInfo `json:"instructions"`
}

// InstructionInfo represents a single disassembled instruction word.
type InstructionInfo struct {
	Address uint16 `json:"address"`
	Word    uint16 `json:"word"`
	Text    string `json:"text"`
}

// BreakpointRequest represents a request to add a breakpoint.
type BreakpointRequest struct {
	Address   uint16 `json:"address"`
	Temporary bool   `json:"temporary,omitempty"`
}

// BreakpointResponse describes one breakpoint.
type BreakpointResponse struct {
	Address   uint16 `json:"address"`
	Enabled   bool   `json:"enabled"`
	Temporary bool   `json:"temporary"`
	HitCount  int    `json:"hitCount"`
}

// BreakpointsResponse represents a list of breakpoints.
type BreakpointsResponse struct {
	Breakpoints []BreakpointResponse `json:"breakpoints"`
}

// WatchpointRequest represents a request to add a watchpoint. Exactly one of
// Register or Address should be set; IsRegister selects which.
type WatchpointRequest struct {
	Expression string `json:"expression"`
	IsRegister bool   `json:"isRegister"`
	Register   int    `json:"register,omitempty"`
	Address    uint16 `json:"address,omitempty"`
}

// WatchpointResponse describes one watchpoint.
type WatchpointResponse struct {
	ID      int    `json:"id"`
	Target  string `json:"target"`
	Enabled bool   `json:"enabled"`
}

// WatchpointsResponse represents a list of watchpoints.
type WatchpointsResponse struct {
	Watchpoints []WatchpointResponse `json:"watchpoints"`
}

// TraceEntryInfo describes one recorded execution-trace step.
type TraceEntryInfo struct {
	Sequence    uint64 `json:"sequence"`
	PC          uint16 `json:"pc"`
	Word        uint16 `json:"word"`
	Disassembly string `json:"disassembly"`
	R0          uint16 `json:"r0"`
	R1          uint16 `json:"r1"`
	R2          uint16 `json:"r2"`
	R3          uint16 `json:"r3"`
}

// TraceDataResponse returns a snapshot of the recorded execution trace.
type TraceDataResponse struct {
	Entries []TraceEntryInfo `json:"entries"`
}

// StatisticsResponse reports instruction-mix counters for a session.
type StatisticsResponse struct {
	StepsExecuted  uint64    `json:"stepsExecuted"`
	YieldCount     uint64    `json:"yieldCount"`
	ReturnCount    uint64    `json:"returnCount"`
	IllegalCount   uint64    `json:"illegalCount"`
	TimeOutCount   uint64    `json:"timeOutCount"`
	DebugDumpCount uint64    `json:"debugDumpCount"`
	KindCounts     [16]uint64 `json:"kindCounts"`
}

// ExecutionConfig mirrors config.Config's execution section.
type ExecutionConfig struct {
	Budget           uint64 `json:"budget"`
	TesteeLimit      uint64 `json:"testeeLimit"`
	EnableExpRoot    bool   `json:"enableExpRoot"`
	EnableTrace      bool   `json:"enableTrace"`
	EnableStats      bool   `json:"enableStats"`
	RNGSeed          int64  `json:"rngSeed"`
	DeterministicRNG bool   `json:"deterministicRng"`
}

// DebuggerConfig mirrors config.Config's debugger section.
type DebuggerConfig struct {
	HistorySize    int  `json:"historySize"`
	AutoSaveBreaks bool `json:"autoSaveBreakpoints"`
	ShowRegisters  bool `json:"showRegisters"`
}

// DisplayConfig mirrors config.Config's display section.
type DisplayConfig struct {
	ColorOutput   bool   `json:"colorOutput"`
	DisasmContext int    `json:"disasmContext"`
	NumberFormat  string `json:"numberFormat"`
}

// TraceConfig mirrors config.Config's trace section.
type TraceConfig struct {
	MaxEntries int `json:"maxEntries"`
}

// StatisticsConfig controls whether statistics collection starts enabled.
type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
}

// ConfigResponse is the full session configuration, read or updated through
// /api/v1/config.
type ConfigResponse struct {
	Execution  ExecutionConfig  `json:"execution"`
	Debugger   DebuggerConfig   `json:"debugger"`
	Display    DisplayConfig    `json:"display"`
	Trace      TraceConfig      `json:"trace"`
	Statistics StatisticsConfig `json:"statistics"`
}

// ExampleInfo describes one bundled example program.
type ExampleInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ExamplesResponse lists the bundled example programs.
type ExamplesResponse struct {
	Examples []ExampleInfo `json:"examples"`
	Count    int           `json:"count"`
}

// ExampleContentResponse returns one example program's raw instruction bytes.
type ExampleContentResponse struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
	Size    int64  `json:"size"`
}

// EvaluateRequest represents a request to evaluate a debugger expression
// ("r3", "[0x1000]", "i[0x20]", "r0 + 4") against a session's driver VM.
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse carries the evaluated word value.
type EvaluateResponse struct {
	Value uint16 `json:"value"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Event represents a WebSocket event envelope.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StateEvent represents a state change event.
type StateEvent struct {
	State   string     `json:"state"`
	PC      uint16     `json:"pc"`
	R       [16]uint16 `json:"r"`
	Retired uint64     `json:"retired"`
	Budget  uint64     `json:"budget"`
}

// ExecutionEvent represents a driver-level notice: a breakpoint hit, a
// watchpoint firing, or a coordinator outcome. TinyVM has no console I/O, so
// this carries one formatted line rather than a stdout/stderr stream.
type ExecutionEvent struct {
	Line string `json:"line"`
}

// ToRegisterResponse converts service.RegisterState to an API response.
func ToRegisterResponse(regs *service.RegisterState) *RegistersResponse {
	return &RegistersResponse{
		R:       regs.Registers,
		PC:      regs.PC,
		Retired: regs.Retired,
		Budget:  regs.Budget,
	}
}

// ToInstructionInfo converts a service.DisassemblyLine to an API response.
func ToInstructionInfo(line service.DisassemblyLine) InstructionInfo {
	return InstructionInfo{
		Address: line.Address,
		Word:    line.Word,
		Text:    line.Text,
	}
}

// ToBreakpointResponse converts a service.BreakpointInfo to an API response.
func ToBreakpointResponse(bp service.BreakpointInfo) BreakpointResponse {
	return BreakpointResponse{
		Address:   bp.Address,
		Enabled:   bp.Enabled,
		Temporary: bp.Temporary,
		HitCount:  bp.HitCount,
	}
}

// ToWatchpointResponse converts a service.WatchpointInfo to an API response.
func ToWatchpointResponse(wp service.WatchpointInfo) WatchpointResponse {
	return WatchpointResponse{ID: wp.ID, Target: wp.Target, Enabled: wp.Enabled}
}

// ToStatisticsResponse converts vm.Statistics to an API response.
func ToStatisticsResponse(s *vm.Statistics) StatisticsResponse {
	return StatisticsResponse{
		StepsExecuted:  s.StepsExecuted,
		YieldCount:     s.YieldCount,
		ReturnCount:    s.ReturnCount,
		IllegalCount:   s.IllegalCount,
		TimeOutCount:   s.TimeOutCount,
		DebugDumpCount: s.DebugDumpCount,
		KindCounts:     s.KindCounts,
	}
}
