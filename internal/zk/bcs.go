package zk

import (
	"bytes"
	"encoding/binary"
)

// bcsWriter emits the subset of BCS needed for the zkLogin signature struct.
type bcsWriter struct{ buf bytes.Buffer }

func (w *bcsWriter) uleb128(v uint64) {
	for v >= 0x80 {
		w.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	w.buf.WriteByte(byte(v))
}

func (w *bcsWriter) u8(v uint8) { w.buf.WriteByte(v) }

func (w *bcsWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *bcsWriter) bytes(v []byte) {
	w.uleb128(uint64(len(v)))
	w.buf.Write(v)
}

func (w *bcsWriter) str(v string) { w.bytes([]byte(v)) }

func (w *bcsWriter) strs(v []string) {
	w.uleb128(uint64(len(v)))
	for _, s := range v {
		w.str(s)
	}
}
