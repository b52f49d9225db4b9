package guest

// Instruction encoders for the handful of opcodes connector guests need.

func I32Const(v int32) []byte {
	return append([]byte{0x41}, EncodeSLEB128(v)...)
}

func LocalGet(idx uint32) []byte {
	return append([]byte{0x20}, EncodeULEB128(idx)...)
}

func GlobalGet(idx uint32) []byte {
	return append([]byte{0x23}, EncodeULEB128(idx)...)
}

func GlobalSet(idx uint32) []byte {
	return append([]byte{0x24}, EncodeULEB128(idx)...)
}

func Call(idx uint32) []byte {
	return append([]byte{0x10}, EncodeULEB128(idx)...)
}

// I32Load8U loads one byte at the address on the stack.
func I32Load8U() []byte {
	return []byte{0x2d, 0x00, 0x00}
}

// I32Load loads an aligned little-endian i32 at the address on the stack.
func I32Load() []byte {
	return []byte{0x28, 0x02, 0x00}
}

var (
	I32Add = []byte{0x6a}
	I32Eq  = []byte{0x46}
	I32Eqz = []byte{0x45}
	I32LtS = []byte{0x48}
	I32LeU = []byte{0x4d}
	I32And = []byte{0x71}

	// Select pops a condition and two values, keeping the first value when
	// the condition is non-zero.
	Select = []byte{0x1b}
)

// Seq concatenates instruction sequences.
func Seq(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
