package protocol

import (
	"encoding/binary"
)

func readByte(data []byte) (byte, []byte) {
	return data[0], data[1:]
}

func readInt8(data []byte) (int8, []byte) {
	return int8(data[0]), data[1:]
}

func readUint32(data []byte) (uint32, []byte) {
	return binary.LittleEndian.Uint32(data), data[4:]
}

func readUint64(data []byte) (uint64, []byte) {
	return binary.LittleEndian.Uint64(data), data[8:]
}

func readInt64(data []byte) (int64, []byte) {
	return int64(binary.LittleEndian.Uint64(data)), data[8:]
}

func putByte(data []byte, v byte) []byte {
	data[0] = v
	return data[1:]
}

func putInt8(data []byte, v int8) []byte {
	data[0] = byte(v)
	return data[1:]
}

func putUint32(data []byte, v uint32) []byte {
	binary.LittleEndian.PutUint32(data, v)
	return data[4:]
}

func putUint64(data []byte, v uint64) []byte {
	binary.LittleEndian.PutUint64(data, v)
	return data[8:]
}

func putInt64(data []byte, v int64) []byte {
	binary.LittleEndian.PutUint64(data, uint64(v))
	return data[8:]
}
