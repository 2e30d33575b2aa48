// Package internal holds encoding helpers shared by the replay log and
// metadata stores in persist, kept unexported so callers only ever see
// the Logger/BoltDatabase/DeltaLog types persist exposes.
package internal

import "encoding/binary"

// EncodeSeq encodes a delta-log sequence number as a big-endian sortable
// key, so bolt's byte-ordered keys iterate deltas in commit order.
func EncodeSeq(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// DecodeSeq reverses EncodeSeq.
func DecodeSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
