package common

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Uint64ToBytes converts a uint64 to a byte slice
func Uint64ToBytes(num uint64) []byte {
	const uint64ByteSize = 8

	bytes := make([]byte, uint64ByteSize)
	binary.BigEndian.PutUint64(bytes, num)

	return bytes
}

// BytesToUint64 converts a byte slice to a uint64
func BytesToUint64(bytes []byte) uint64 {
	return binary.BigEndian.Uint64(bytes)
}

// Uint32ToBytes converts a uint32 to a byte slice in big-endian order
func Uint32ToBytes(num uint32) []byte {
	const uint32ByteSize = 4

	key := make([]byte, uint32ByteSize)
	binary.BigEndian.PutUint32(key, num)

	return key
}

// BytesToUint32 converts a byte slice to a uint32
func BytesToUint32(bytes []byte) uint32 {
	return binary.BigEndian.Uint32(bytes)
}

// Uint16ToBytes converts a uint16 to a byte slice in big-endian order
func Uint16ToBytes(num uint16) []byte {
	const uint16ByteSize = 2

	key := make([]byte, uint16ByteSize)
	binary.BigEndian.PutUint16(key, num)

	return key
}

// BytesToUint16 converts a byte slice to a uint16
func BytesToUint16(bytes []byte) uint16 {
	return binary.BigEndian.Uint16(bytes)
}

// SafeUint32 converts an int to uint32, failing when it doesn't fit
func SafeUint32(num int) (uint32, error) {
	if num < 0 || uint64(num) > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of uint32 range", num)
	}
	return uint32(num), nil
}

// SafeUint16 converts an int to uint16, failing when it doesn't fit
func SafeUint16(num int) (uint16, error) {
	if num < 0 || num > math.MaxUint16 {
		return 0, fmt.Errorf("value %d out of uint16 range", num)
	}
	return uint16(num), nil
}
