package guest

import (
	"github.com/tetratelabs/wazero/api"
)

// EncodeULEB128 returns v as unsigned LEB128.
func EncodeULEB128(v uint32) []byte {
	out := make([]byte, 0, 5)
	for v >= 0x80 {
		out = append(out, byte(v)|0x80)
		v >>= 7
	}
	return append(out, byte(v))
}

// EncodeSLEB128 returns v as signed LEB128.
func EncodeSLEB128(v int32) []byte {
	out := make([]byte, 0, 5)
	for {
		low := byte(v) & 0x7f
		v >>= 7
		signBit := low&0x40 != 0
		if (v == 0 && !signBit) || (v == -1 && signBit) {
			return append(out, low)
		}
		out = append(out, low|0x80)
	}
}

func valType(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	default:
		return 0x7f
	}
}

func name(s string) []byte {
	out := EncodeULEB128(uint32(len(s)))
	return append(out, s...)
}

func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, EncodeULEB128(uint32(len(body)))...)
	return append(out, body...)
}
