package asar

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// The header frame is four little-endian uint32 fields followed by the
// JSON tree, NUL-padded to a 4-byte boundary:
//
//	dataSize         always 4
//	headerSize       alignedJSONSize + 8
//	headerObjectSize alignedJSONSize + 4
//	headerStringSize unpadded JSON length
//
// The data region begins at 16 + alignedJSONSize. This is a subset of
// Chromium's Pickle serialization, kept bit-compatible with Electron.
const (
	frameSize     = 16
	frameDataSize = 4
)

// roundUp rounds n up to the next multiple of m (a power of two).
func roundUp(n, m int64) int64 {
	return (n + m - 1) &^ (m - 1)
}

// encodeHeader serializes the directory tree into the framed header bytes
// and returns them with the base offset of the data region that follows.
// Encoding is deterministic: the same tree always yields identical bytes.
func encodeHeader(root *Dir) ([]byte, int64, error) {
	treeJSON, err := json.Marshal(root)
	if err != nil {
		return nil, 0, fmt.Errorf("encode header: %w", err)
	}

	stringSize := int64(len(treeJSON))
	alignedSize := roundUp(stringSize, frameDataSize)

	buf := make([]byte, frameSize+alignedSize)
	binary.LittleEndian.PutUint32(buf[0:], frameDataSize)
	binary.LittleEndian.PutUint32(buf[4:], uint32(alignedSize+8))
	binary.LittleEndian.PutUint32(buf[8:], uint32(alignedSize+4))
	binary.LittleEndian.PutUint32(buf[12:], uint32(stringSize))
	copy(buf[frameSize:], treeJSON)

	return buf, frameSize + alignedSize, nil
}

// decodeHeader reads the framed header from the start of r and returns the
// parsed tree and the base offset of the data region. The base offset is
// recomputed from the string size rather than trusting headerSize.
func decodeHeader(r io.Reader) (*Dir, int64, error) {
	frame := make([]byte, frameSize)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, 0, fmt.Errorf("%w: reading frame: %v", ErrFormat, err)
	}

	dataSize := binary.LittleEndian.Uint32(frame[0:])
	stringSize := int64(binary.LittleEndian.Uint32(frame[12:]))
	if dataSize != frameDataSize {
		return nil, 0, fmt.Errorf("%w: unexpected frame data size %d", ErrFormat, dataSize)
	}

	treeJSON := make([]byte, stringSize)
	if _, err := io.ReadFull(r, treeJSON); err != nil {
		return nil, 0, fmt.Errorf("%w: reading tree: %v", ErrFormat, err)
	}

	root, err := decodeNode(treeJSON)
	if err != nil {
		return nil, 0, err
	}
	dir, ok := root.(*Dir)
	if !ok {
		return nil, 0, fmt.Errorf("%w: root is not a directory", ErrFormat)
	}

	return dir, frameSize + roundUp(stringSize, frameDataSize), nil
}
