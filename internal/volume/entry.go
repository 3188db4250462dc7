package volume

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/deploymenttheory/myfs/internal/myfserr"
)

// Entry is one 401-byte record in an entry table (§3 "Entry record").
type Entry struct {
	Status            EntryStatus
	FirstBlock        uint64 // AllOnes when the file has no blocks (empty file)
	Filename          string
	CreationDate      string // ISO-8601 UTC, e.g. "2024-01-02T03:04:05Z"
	ModificationDate  string
	PasswordHash      [32]byte // all-zero means the file has no password
	MD5Hash           [16]byte
	EncryptedSize     uint64
	OriginalSize      uint64
	RootDir           *string // nil means "unset"
}

// IsLive reports whether the entry holds a live file.
func (e Entry) IsLive() bool {
	return e.Status == EntryLive
}

// HasPassword reports whether the entry's payload is encrypted.
func (e Entry) HasPassword() bool {
	return e.PasswordHash != [32]byte{}
}

// Pack serializes Entry to its fixed 401-byte on-disk representation.
func (e Entry) Pack() []byte {
	buf := make([]byte, EntrySize)
	buf[0] = byte(e.Status)
	binary.BigEndian.PutUint64(buf[1:9], e.FirstBlock)
	copy(buf[9:41], fixedASCII(e.Filename, MaxFilename))
	copy(buf[41:61], fixedASCII(e.CreationDate, 20))
	copy(buf[61:81], fixedASCII(e.ModificationDate, 20))
	copy(buf[81:113], e.PasswordHash[:])
	copy(buf[113:129], e.MD5Hash[:])
	binary.BigEndian.PutUint64(buf[129:137], e.EncryptedSize)
	binary.BigEndian.PutUint64(buf[137:145], e.OriginalSize)
	if e.RootDir != nil {
		copy(buf[145:401], fixedASCII(*e.RootDir, RootDirFieldSize))
	}
	// else: already zero-filled, which round-trips back to RootDir == nil.
	return buf
}

// UnpackEntry parses the fixed 401-byte on-disk representation.
func UnpackEntry(data []byte) (Entry, error) {
	if len(data) != EntrySize {
		return Entry{}, myfserr.New(myfserr.KindIOError, "entry record has the wrong size")
	}
	e := Entry{
		Status:           EntryStatus(data[0]),
		FirstBlock:       binary.BigEndian.Uint64(data[1:9]),
		Filename:         trimASCII(data[9:41]),
		CreationDate:     trimASCII(data[41:61]),
		ModificationDate: trimASCII(data[61:81]),
		EncryptedSize:    binary.BigEndian.Uint64(data[129:137]),
		OriginalSize:     binary.BigEndian.Uint64(data[137:145]),
	}
	copy(e.PasswordHash[:], data[81:113])
	copy(e.MD5Hash[:], data[113:129])

	rootDirField := data[145:401]
	if bytes.ContainsFunc(rootDirField, func(r rune) bool { return r != 0 }) {
		s := trimASCII(rootDirField)
		e.RootDir = &s
	}
	return e, nil
}

// NewFreeEntry returns a zero-valued free entry with FirstBlock set to
// AllOnes, matching the original's default-constructed Entry.
func NewFreeEntry() Entry {
	return Entry{Status: EntryFree, FirstBlock: AllOnes}
}

// NowISO8601 renders the current UTC time in the format the format pins
// for creation_date/modification_date.
func NowISO8601() string {
	return time.Now().UTC().Format(DateFormat)
}

func fixedASCII(s string, width int) []byte {
	b := []byte(s)
	if len(b) > width {
		b = b[:width]
	}
	out := make([]byte, width)
	copy(out, b)
	return out
}

func trimASCII(field []byte) string {
	return string(bytes.TrimRight(field, "\x00"))
}
