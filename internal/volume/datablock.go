package volume

import (
	"encoding/binary"

	"github.com/deploymenttheory/myfs/internal/myfserr"
)

// DataBlock is one 4096-byte unit in the data-block region (§3 "Data block").
type DataBlock struct {
	Status    BlockStatus
	NextBlock uint64 // AllOnes terminates the chain
	Content   [DataPayloadPerBlock]byte
}

// NewDataBlock builds a live block carrying chunk, right-padded with
// zero bytes, terminating the chain (callers relink non-last blocks).
func NewDataBlock(chunk []byte) DataBlock {
	b := DataBlock{Status: BlockLive, NextBlock: AllOnes}
	copy(b.Content[:], chunk)
	return b
}

// Pack serializes DataBlock to its fixed 4096-byte on-disk representation.
func (b DataBlock) Pack() []byte {
	buf := make([]byte, DataBlockSize)
	buf[0] = byte(b.Status)
	binary.BigEndian.PutUint64(buf[1:9], b.NextBlock)
	copy(buf[9:], b.Content[:])
	return buf
}

// UnpackDataBlock parses the fixed 4096-byte on-disk representation.
func UnpackDataBlock(data []byte) (DataBlock, error) {
	if len(data) != DataBlockSize {
		return DataBlock{}, myfserr.New(myfserr.KindIOError, "data block has the wrong size")
	}
	b := DataBlock{
		Status:    BlockStatus(data[0]),
		NextBlock: binary.BigEndian.Uint64(data[1:9]),
	}
	copy(b.Content[:], data[9:])
	return b, nil
}

// TrimmedContent returns Content with trailing zero padding stripped, used
// when reassembling a chain's concatenated payload (§3 invariants).
func (b DataBlock) TrimmedContent() []byte {
	i := len(b.Content)
	for i > 0 && b.Content[i-1] == 0 {
		i--
	}
	return b.Content[:i]
}
