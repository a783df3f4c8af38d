// Package format implements the binary record codec shared by the
// write-ahead log and the data files: header layout, CRC32C checksums, and
// the encode/decode routines that validate size limits before any
// allocation large enough to matter. Both on-disk formats are little-endian
// and share the same four-byte "CLAW" magic for corruption resync.
package format

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/clawstore/clawstore/internal/clawerr"
)

// Magic is the four ASCII bytes identifying a clawstore entry boundary.
var Magic = [4]byte{'C', 'L', 'A', 'W'}

// Kind distinguishes a Put from a Delete record.
type Kind uint8

const (
	// KindPut inserts or overwrites a key.
	KindPut Kind = 1
	// KindDelete removes a key. Its value is always zero-length.
	KindDelete Kind = 2
)

func (k Kind) Valid() bool { return k == KindPut || k == KindDelete }

// castagnoli is the CRC32C table (polynomial 0x1EDC6F41, reflected).
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the CRC32C of b.
func Checksum(b []byte) uint32 { return crc32.Checksum(b, castagnoli) }

const (
	// LogHeaderSize is the fixed size of a WAL record header.
	LogHeaderSize = 32
	// DataHeaderSize is the fixed size of a data-file record header.
	DataHeaderSize = 24
	// logPayloadPrefix is key_len(2) + value_len(4) + kind(1) + pad(1).
	logPayloadPrefix = 8
	// dataFlagTombstone marks a data record as a deletion marker.
	dataFlagTombstone = 0x01
)

// LogRecord is a decoded write-ahead log entry.
type LogRecord struct {
	Key   []byte
	Value []byte
	Kind  Kind
}

// EncodeLogRecord serializes key/value/kind into a complete WAL entry:
// a 32-byte header followed by the payload the header's CRC covers.
// Sizes are validated against maxKey/maxValue before any allocation.
func EncodeLogRecord(key, value []byte, kind Kind, maxKey, maxValue int) ([]byte, error) {
	if len(key) > maxKey {
		return nil, clawerr.Oversized("key", len(key), maxKey)
	}
	if len(value) > maxValue {
		return nil, clawerr.Oversized("value", len(value), maxValue)
	}

	payloadLen := logPayloadPrefix + len(key) + len(value)
	buf := make([]byte, LogHeaderSize+payloadLen)

	payload := buf[LogHeaderSize:]
	binary.LittleEndian.PutUint16(payload[0:2], uint16(len(key)))
	binary.LittleEndian.PutUint32(payload[2:6], uint32(len(value)))
	payload[6] = byte(kind)
	payload[7] = 0
	copy(payload[8:8+len(key)], key)
	copy(payload[8+len(key):], value)

	checksum := Checksum(payload)

	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], uint32(payloadLen))
	binary.LittleEndian.PutUint32(buf[8:12], checksum)
	buf[12] = byte(kind)
	// buf[13:16] reserved, buf[16:32] padding — left zero.

	return buf, nil
}

// DecodeLogRecord parses a complete WAL entry out of buf, which must
// contain at least the header and the full payload it claims. It does not
// scan for resync points — that is the WAL reader's job (spec.md §4.C) —
// it only reports whether the bytes at offset 0 form a valid record.
func DecodeLogRecord(buf []byte, path string, offset int64) (*LogRecord, error) {
	if len(buf) < LogHeaderSize {
		return nil, clawerr.TornWrite(path, offset, LogHeaderSize, len(buf))
	}
	if string(buf[0:4]) != string(Magic[:]) {
		return nil, clawerr.NoMagic(path, offset, buf[0:4])
	}

	length := int(binary.LittleEndian.Uint32(buf[4:8]))
	checksum := binary.LittleEndian.Uint32(buf[8:12])

	if len(buf) < LogHeaderSize+length {
		return nil, clawerr.TornWrite(path, offset, LogHeaderSize+length, len(buf))
	}
	payload := buf[LogHeaderSize : LogHeaderSize+length]

	if actual := Checksum(payload); actual != checksum {
		return nil, clawerr.BadChecksum(path, offset, checksum, actual)
	}

	if length < logPayloadPrefix {
		return nil, clawerr.Malformed(path, offset, "payload too short for key/value header")
	}

	keyLen := int(binary.LittleEndian.Uint16(payload[0:2]))
	valueLen := int(binary.LittleEndian.Uint32(payload[2:6]))
	kind := Kind(payload[6])
	if !kind.Valid() {
		return nil, clawerr.Malformed(path, offset, "invalid record kind byte")
	}

	want := logPayloadPrefix + keyLen + valueLen
	if length != want {
		return nil, clawerr.Malformed(path, offset, "payload length does not match key/value lengths")
	}

	key := append([]byte(nil), payload[8:8+keyLen]...)
	value := append([]byte(nil), payload[8+keyLen:8+keyLen+valueLen]...)

	return &LogRecord{Key: key, Value: value, Kind: kind}, nil
}

// DataHeader is the decoded fixed portion of a data-file record.
type DataHeader struct {
	KeyLen   uint16
	ValueLen uint32
	Checksum uint32
	Flags    uint8
}

func (h DataHeader) IsTombstone() bool { return h.Flags&dataFlagTombstone != 0 }

// EncodeDataRecord serializes a key/value pair (or tombstone, when
// isTombstone is true and value is ignored) into a complete data-file
// record: a 24-byte header followed by key then value bytes.
func EncodeDataRecord(key, value []byte, isTombstone bool, maxKey, maxValue int) ([]byte, error) {
	if len(key) > maxKey {
		return nil, clawerr.Oversized("key", len(key), maxKey)
	}
	if isTombstone {
		value = nil
	}
	if len(value) > maxValue {
		return nil, clawerr.Oversized("value", len(value), maxValue)
	}

	buf := make([]byte, DataHeaderSize+len(key)+len(value))
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(key)))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(len(value)))

	payload := buf[DataHeaderSize:]
	n := copy(payload, key)
	copy(payload[n:], value)
	checksum := Checksum(payload)
	binary.LittleEndian.PutUint32(buf[10:14], checksum)

	if isTombstone {
		buf[14] = dataFlagTombstone
	}
	// buf[15:24] reserved/padding — left zero.

	return buf, nil
}

// DecodeDataHeader parses the fixed 24-byte header of a data record.
func DecodeDataHeader(buf []byte, path string, offset int64) (DataHeader, error) {
	if len(buf) < DataHeaderSize {
		return DataHeader{}, clawerr.TornWrite(path, offset, DataHeaderSize, len(buf))
	}
	if string(buf[0:4]) != string(Magic[:]) {
		return DataHeader{}, clawerr.NoMagic(path, offset, buf[0:4])
	}
	return DataHeader{
		KeyLen:   binary.LittleEndian.Uint16(buf[4:6]),
		ValueLen: binary.LittleEndian.Uint32(buf[6:10]),
		Checksum: binary.LittleEndian.Uint32(buf[10:14]),
		Flags:    buf[14],
	}, nil
}
