package vm

// Top-nibble opcode families. Every 16-bit word decodes via its top 4 bits
// into one of these families (or Illegal, for unassigned families and
// reserved sub-patterns within an assigned family).
const (
	familyMisc0    = 0x0 // unassigned: entirely illegal, including 0x0000
	familyArgless  = 0x1 // Return/CPUID/DebugDump/Time (only 0x102A-0x102D legal)
	familyMemory   = 0x2 // store/load word (data and instruction)
	familyLoadLow  = 0x3 // load immediate low
	familyLoadHigh = 0x4 // load immediate high
	familyUnary    = 0x5 // unary ops
	familyBinary   = 0x6 // binary ops
	familyMisc7    = 0x7 // unassigned: entirely illegal
	familyCompare  = 0x8 // compare-and-set
	familyBranchNZ = 0x9 // branch if nonzero
	familyJumpImm  = 0xA // jump by 12-bit immediate
	familyJumpReg  = 0xB // jump to register + 8-bit offset
	familyMiscC    = 0xC // unassigned: entirely illegal
	familyMiscD    = 0xD // unassigned: entirely illegal
	familyMiscE    = 0xE // unassigned: entirely illegal
	familyMisc15   = 0xF // unassigned: entirely illegal, including 0xFFFF
)

// Argless instruction words (family 0x1).
const (
	wordReturn    Word = 0x102A
	wordCPUID     Word = 0x102B
	wordDebugDump Word = 0x102C
	wordTime      Word = 0x102D
)

// Memory sub-family selector (second nibble of a familyMemory word).
const (
	memStoreWord      = 0x0 // 0x20rd
	memLoadWordData   = 0x1 // 0x21ad
	memLoadWordInstr  = 0x2 // 0x22ad
)

// Unary function selectors (family 0x5, second nibble). Values 6-15 are
// reserved and decode to Illegal.
const (
	UnaryNOT Word = iota
	UnaryPOPCNT
	UnaryCLZ
	UnaryCTZ
	UnaryRND
	UnaryMOV
	unaryReservedStart
)

// Binary function selectors (family 0x6, second nibble). All 16 values are
// assigned; EXPS and ROOT are the optional floating-point-backed operations
// advertised by the extended CPUID bit.
const (
	BinADD Word = iota
	BinSUB
	BinMUL
	BinMULH
	BinDIVU
	BinDIVS
	BinMODU
	BinMODS
	BinAND
	BinOR
	BinXOR
	BinSHL
	BinSHRU
	BinSHRS
	BinEXPS
	BinROOT
)

// Compare flag bits (family 0x8, second nibble), packed MSB-first as
// L(bit3) E(bit2) G(bit1) S(bit0).
const (
	CompareFlagG = 1 << 1
	CompareFlagE = 1 << 2
	CompareFlagL = 1 << 3
	CompareFlagS = 1 << 0
)

// CPUID feature bits, written to r0 when CPUID is queried with r0 == 0.
const (
	CPUIDConforming Word = 0x8000
	CPUIDExpRoot    Word = 0xC000
)

// Environment IDs seeded into a controlled VM's data segment preamble
// (the top-of-memory convention).
const (
	EnvConnect4   Word = 0x0001
	EnvJudge      Word = 0x0002
	EnvTestDriver Word = 0x0003
)

// MinorVersion is the minor version stamp written alongside the environment
// ID at data[0xFFFE].
const MinorVersion Word = 0x0001

// Preamble addresses in a controlled VM's data segment.
const (
	PreambleEnvID   Word = 0xFFFF
	PreambleMinorVer Word = 0xFFFE
)

// MemSize is the number of addressable words in each segment (instruction
// and data are each a full 65536-word linear space).
const MemSize = 1 << 16

// NumRegisters is the number of general-purpose registers.
const NumRegisters = 16
