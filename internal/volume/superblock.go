package volume

import (
	"bytes"

	"github.com/deploymenttheory/myfs/internal/myfserr"
)

// Superblock is the 88-byte record at offset 0 of a volume file (§3).
type Superblock struct {
	Signature   [8]byte
	VolumeSize  [16]byte // 128-bit big-endian integer, preserved but unused
	MetadataKey [32]byte
	MachineHash [32]byte
}

// Pack serializes Superblock to its fixed 88-byte on-disk representation,
// following the same manual big-endian offset layout the volume's other
// records use (superblocks mix an ASCII signature, a 128-bit counter, and
// two raw key/hash fields, which no single encoding/binary struct tag
// covers cleanly).
func (s Superblock) Pack() []byte {
	buf := make([]byte, SuperblockSize)
	copy(buf[0:8], s.Signature[:])
	copy(buf[8:24], s.VolumeSize[:])
	copy(buf[24:56], s.MetadataKey[:])
	copy(buf[56:88], s.MachineHash[:])
	return buf
}

// UnpackSuperblock parses the fixed 88-byte on-disk representation.
func UnpackSuperblock(data []byte) (Superblock, error) {
	if len(data) != SuperblockSize {
		return Superblock{}, myfserr.New(myfserr.KindIOError, "superblock has the wrong size")
	}
	var s Superblock
	copy(s.Signature[:], data[0:8])
	copy(s.VolumeSize[:], data[8:24])
	copy(s.MetadataKey[:], data[24:56])
	copy(s.MachineHash[:], data[56:88])
	return s, nil
}

// NewSuperblock builds a fresh superblock with the fixed signature, a
// zeroed volume_size, and the given metadata key and machine hash.
func NewSuperblock(metadataKey, machineHash [32]byte) Superblock {
	var sig [8]byte
	copy(sig[:], []byte(Signature))
	return Superblock{
		Signature:   sig,
		MetadataKey: metadataKey,
		MachineHash: machineHash,
	}
}

// HasValidSignature reports whether the signature field matches "IVOLFILE".
func (s Superblock) HasValidSignature() bool {
	want := make([]byte, 8)
	copy(want, []byte(Signature))
	return bytes.Equal(s.Signature[:], want)
}
