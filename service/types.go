package service

import "tinyvm/vm"

// RegisterState is a snapshot of a VM's register file for UI display.
type RegisterState struct {
	Registers [vm.NumRegisters]uint16
	PC        uint16
	Retired   uint64
	Budget    uint64
}

// BreakpointInfo describes a breakpoint for UI display.
type BreakpointInfo struct {
	Address   uint16 `json:"address"`
	Enabled   bool   `json:"enabled"`
	Temporary bool   `json:"temporary"`
	HitCount  int    `json:"hit_count"`
}

// WatchpointInfo describes a watchpoint for UI display. A watchpoint targets
// either a register ("r0".."r15") or a data-segment word ("data[0x1000]").
type WatchpointInfo struct {
	ID      int    `json:"id"`
	Target  string `json:"target"`
	Enabled bool   `json:"enabled"`
}

// MemoryRegion is a contiguous run of words from one of a VM's two segments.
type MemoryRegion struct {
	Segment string // "instr" or "data"
	Address uint16
	Words   []uint16
}

// DisassemblyLine is a single disassembled instruction word.
type DisassemblyLine struct {
	Address uint16 `json:"address"`
	Word    uint16 `json:"word"`
	Text    string `json:"text"`
}
