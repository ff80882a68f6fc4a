package coordinate

import "tinyvm/vm"

// wrapCopy copies length words from src[srcStart:] to dst[dstStart:], both
// addresses wrapping modulo 65536. Word is a uint16, so dstStart+vm.Word(i)
// and srcStart+vm.Word(i) wrap on their own; no modulo arithmetic is
// spelled out explicitly.
func wrapCopy(dst *[vm.MemSize]vm.Word, dstStart vm.Word, src *[vm.MemSize]vm.Word, srcStart vm.Word, length int) {
	for i := 0; i < length; i++ {
		dst[dstStart+vm.Word(i)] = src[srcStart+vm.Word(i)]
	}
}

// transferRegisters overwrites testee registers selected by bitmap from
// driver.Data[offset:], then writes all 16 testee registers back to
// driver.Data[offset:offset+16], per ReqRegisterTransfer. offset wraps the
// same as any other data-segment address.
func transferRegisters(testee *vm.VM, driver *vm.VM, bitmap vm.Word, offset vm.Word) {
	for i := 0; i < vm.NumRegisters; i++ {
		if bitmap&(1<<uint(i)) != 0 {
			testee.CPU.R[i] = driver.Data[offset+vm.Word(i)]
		}
	}
	for i := 0; i < vm.NumRegisters; i++ {
		driver.Data[offset+vm.Word(i)] = testee.CPU.R[i]
	}
}
