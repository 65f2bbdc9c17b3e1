package xgb

// Pad rounds a length up to the next multiple of 4 bytes.
func Pad(n int) int { return (n + 3) & ^3 }

// PadBytes returns buf extended with zero bytes up to a 4 byte boundary.
func PadBytes(buf []byte) []byte {
	return append(buf, make([]byte, Pad(len(buf))-len(buf))...)
}

func Put16(buf []byte, v uint16) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
}

func Put32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

func Get16(buf []byte) uint16 {
	v := uint16(buf[0])
	v |= uint16(buf[1]) << 8
	return v
}

func Get32(buf []byte) uint32 {
	v := uint32(buf[0])
	v |= uint32(buf[1]) << 8
	v |= uint32(buf[2]) << 16
	v |= uint32(buf[3]) << 24
	return v
}

// BoolToByte is the wire form of a BOOL.
func BoolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Voodoo to count the number of bits set in a value list mask.
func PopCount(mask0 int) int {
	mask := uint32(mask0)
	n := 0
	for i := uint32(0); i < 32; i++ {
		if mask&(1<<i) != 0 {
			n++
		}
	}
	return n
}

// RequestHeader writes the four byte header shared by every extension
// request: major opcode, minor opcode and the length in 4-byte units.
// len(buf) must already be padded.
func RequestHeader(buf []byte, major, minor byte) {
	buf[0] = major
	buf[1] = minor
	Put16(buf[2:], uint16(len(buf)/4))
}
