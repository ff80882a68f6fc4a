package vm

import "fmt"

// Disassemble renders a single instruction word as a short mnemonic text,
// matching the decoder's own interpretation exactly (it is built on Decode,
// never a second independent reading of the bit pattern). Illegal words
// render as a bare hex dump, never a guessed mnemonic.
func Disassemble(w Word) string {
	d := Decode(w)
	switch d.Kind {
	case KindIllegal:
		return fmt.Sprintf("0x%04X        .illegal", uint16(w))

	case KindReturn:
		return "return"
	case KindCPUID:
		return "cpuid"
	case KindDebugDump:
		return "debugdump"
	case KindTime:
		return "time"

	case KindStoreWord:
		return fmt.Sprintf("st   [r%d], r%d", d.RA, d.RB)
	case KindLoadWordData:
		return fmt.Sprintf("ld   r%d, [r%d]", d.RB, d.RA)
	case KindLoadWordInstr:
		return fmt.Sprintf("ldi  r%d, [r%d]", d.RB, d.RA)

	case KindLoadImmLow:
		return fmt.Sprintf("lli  r%d, #0x%02X", d.RA, d.Imm)
	case KindLoadImmHigh:
		return fmt.Sprintf("lhi  r%d, #0x%02X", d.RA, d.Imm)

	case KindUnary:
		return fmt.Sprintf("%-4s r%d, r%d", unaryMnemonic(d.Func), d.RB, d.RA)
	case KindBinary:
		return fmt.Sprintf("%-4s r%d, r%d", binaryMnemonic(d.Func), d.RB, d.RA)
	case KindCompare:
		return fmt.Sprintf("cmp%s r%d, r%d, r%d", compareSuffix(d.Func), d.RB, d.RA, d.RB)

	case KindBranchNZ:
		return fmt.Sprintf("bnz  r%d, %+d", d.RA, decodeBranchOffset(d.Imm))
	case KindJumpImm:
		return fmt.Sprintf("jmp  %+d", decodeJumpOffset(d.Imm))
	case KindJumpReg:
		return fmt.Sprintf("jmpr r%d, %+d", d.RA, int8(d.Imm))
	}

	return fmt.Sprintf("0x%04X        .illegal", uint16(w))
}

func unaryMnemonic(f uint8) string {
	switch Word(f) {
	case UnaryNOT:
		return "not"
	case UnaryPOPCNT:
		return "popcnt"
	case UnaryCLZ:
		return "clz"
	case UnaryCTZ:
		return "ctz"
	case UnaryRND:
		return "rnd"
	case UnaryMOV:
		return "mov"
	}
	return "?unary"
}

func binaryMnemonic(f uint8) string {
	switch Word(f) {
	case BinADD:
		return "add"
	case BinSUB:
		return "sub"
	case BinMUL:
		return "mul"
	case BinMULH:
		return "mulh"
	case BinDIVU:
		return "divu"
	case BinDIVS:
		return "divs"
	case BinMODU:
		return "modu"
	case BinMODS:
		return "mods"
	case BinAND:
		return "and"
	case BinOR:
		return "or"
	case BinXOR:
		return "xor"
	case BinSHL:
		return "shl"
	case BinSHRU:
		return "shru"
	case BinSHRS:
		return "shrs"
	case BinEXPS:
		return "exps"
	case BinROOT:
		return "root"
	}
	return "?bin"
}

func compareSuffix(f uint8) string {
	s := ""
	if f&CompareFlagL != 0 {
		s += "l"
	}
	if f&CompareFlagE != 0 {
		s += "e"
	}
	if f&CompareFlagG != 0 {
		s += "g"
	}
	if f&CompareFlagS != 0 {
		s += "s"
	}
	return s
}
