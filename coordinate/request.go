// Package coordinate implements the inter-VM coordination layer: a thin
// host-level state machine that alternates running a controlling VM
// (driver or judge) until it yields, interprets the yield as a request
// against one or more controlled VMs (testee or player), applies the
// effect, and resumes the controller. No goroutines or locks are needed;
// exactly one VM advances at any moment.
package coordinate

// Request codes a driver selects via r0 after yielding.
const (
	ReqExecuteTestee     = 1
	ReqDone              = 2
	ReqRegisterTransfer  = 3
	ReqWriteTesteeData   = 4
	ReqReadTesteeData    = 5
	ReqReadTesteeInstr   = 6
	ReqResetTestee       = 7
	ReqSetTesteeLimit    = 8
	ReqSetTesteePC       = 9
)

// Testee outcome codes written into driver.r0 after ReqExecuteTestee.
const (
	TesteeYielded = 0
	TesteeTimeout = 1
	TesteeIllegal = 0xFFFF
)

// DoneMagicLow and DoneMagicHigh are the integrity pair a driver writes
// after its result codes when it issues ReqDone.
const (
	DoneMagicLow  = 0x650D
	DoneMagicHigh = 0x4585
)

// Judge player index meaning "making a judgment": the judge has finished
// and the first N words of its own data segment are signed scores.
const JudgeFinalIndex = 0xFFFF
