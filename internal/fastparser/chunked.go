package fastparser

import (
	"bytes"
	"encoding/binary"
	"math/bits"
)

const (
	loMask = 0x0101010101010101
	hiMask = 0x8080808080808080
)

// broadcast repeats b in every byte of a uint64.
func broadcast(b byte) uint64 {
	return uint64(b) * loMask
}

// zeroBytes has the high bit set in every byte position where x has a zero
// byte. Bytes above the first zero byte may be false positives, so only the
// lowest set bit is meaningful.
func zeroBytes(x uint64) uint64 {
	return (x - loMask) & ^x & hiMask
}

// swarScanner scans unquoted runs 8 bytes at a time (SIMD within a register)
// for the fast tier, where the delimiter is one of a fixed set of ASCII bytes
// and the escape byte is the quote byte.
type swarScanner struct {
	delim uint64
	quote byte
}

func newSWARScanner(cfg *Config) swarScanner {
	return swarScanner{
		delim: broadcast(cfg.Delimiter[0]),
		quote: cfg.Quote,
	}
}

var (
	crMask = broadcast('\r')
	lfMask = broadcast('\n')
)

// scanPlain returns the length of the prefix of data that contains no
// delimiter, CR or LF. Whether a CR or LF actually terminates the record is
// decided by the caller for the configured line-ending mode.
func (s swarScanner) scanPlain(data []byte) int {
	i := 0
	for ; i+8 <= len(data); i += 8 {
		chunk := binary.LittleEndian.Uint64(data[i:])
		hits := zeroBytes(chunk^s.delim) | zeroBytes(chunk^crMask) | zeroBytes(chunk^lfMask)
		if hits != 0 {
			return i + bits.TrailingZeros64(hits)/8
		}
	}
	delim := byte(s.delim)
	for ; i < len(data); i++ {
		c := data[i]
		if c == delim || c == '\r' || c == '\n' {
			return i
		}
	}
	return len(data)
}

// scanQuoted returns the length of the prefix of data without a quote byte.
func (s swarScanner) scanQuoted(data []byte) int {
	if i := bytes.IndexByte(data, s.quote); i >= 0 {
		return i
	}
	return len(data)
}
