// Package volume implements the MyFS on-disk container: a superblock, a
// pair of redundant fixed-size entry tables, and a linked chain of data
// blocks (§3 and §4 of the format design). It owns the volume file handle
// for the duration of each operation and performs no caching across calls.
package volume

const (
	// SuperblockSize is the size in bytes of the superblock at offset 0.
	SuperblockSize = 88
	// EntrySize is the size in bytes of one entry record.
	EntrySize = 401
	// EntryTableCount is the fixed number of entry records per table.
	EntryTableCount = 100
	// EntryTableSize is the size in bytes of one entry table.
	EntryTableSize = EntrySize * EntryTableCount
	// DataBlockSize is the size in bytes of one data block, header included.
	DataBlockSize = 4096
	// DataPayloadPerBlock is the number of payload bytes a data block carries.
	DataPayloadPerBlock = DataBlockSize - 1 - 8
	// MaxFilename is the fixed width of the filename field.
	MaxFilename = 32
	// RootDirFieldSize is the fixed width of the root_dir field.
	RootDirFieldSize = 256

	// MainEntryTableOffset is the byte offset of the main entry table.
	MainEntryTableOffset = SuperblockSize
	// BackupEntryTableOffset is the byte offset of the backup entry table.
	BackupEntryTableOffset = MainEntryTableOffset + EntryTableSize
	// DataBlockRegionOffset is the byte offset where the data-block region begins.
	DataBlockRegionOffset = BackupEntryTableOffset + EntryTableSize

	// AllOnes marks "no block"/"end of chain" in first_block/next_block fields.
	AllOnes uint64 = 0xFFFFFFFFFFFFFFFF

	// Signature is the fixed ASCII signature written at the start of a new volume.
	Signature = "IVOLFILE"

	// DateFormat is the ISO-8601 UTC layout used for creation_date/modification_date.
	DateFormat = "2006-01-02T15:04:05Z"
)

// EntryStatus tags the lifecycle state of one entry record.
type EntryStatus uint8

const (
	// EntryFree marks an entry record as unused.
	EntryFree EntryStatus = 0x00
	// EntryLive marks an entry record as holding a live file.
	EntryLive EntryStatus = 0x01
)

// BlockStatus tags the lifecycle state of one data block.
type BlockStatus uint8

const (
	// BlockFree marks a data block as free/deleted and reusable.
	BlockFree BlockStatus = 0x00
	// BlockLive marks a data block as holding live chain content.
	BlockLive BlockStatus = 0x01
	// BlockTombstone is reserved for future use; allocation treats it as free.
	BlockTombstone BlockStatus = 0x02
)

// IsFreeForAllocation reports whether a block in this status can be
// handed out by the free-block allocator (§4.3.1).
func (s BlockStatus) IsFreeForAllocation() bool {
	return s == BlockFree || s == BlockTombstone
}
