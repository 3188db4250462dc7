package volume

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"
)

func TestSuperblockRoundTrip(t *testing.T) {
	sb := NewSuperblock([32]byte{1, 2, 3}, [32]byte{4, 5, 6})
	packed := sb.Pack()
	require.Len(t, packed, SuperblockSize)

	got, err := UnpackSuperblock(packed)
	require.NoError(t, err)
	if diff := deep.Equal(sb, got); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
	require.True(t, got.HasValidSignature())
}

func TestEntryRoundTripWithRootDir(t *testing.T) {
	rootDir := "/home/user/docs/report.pdf"
	e := Entry{
		Status:           EntryLive,
		FirstBlock:       42,
		Filename:         "report.pdf",
		CreationDate:     "2024-01-02T03:04:05Z",
		ModificationDate: "2024-01-02T03:04:06Z",
		PasswordHash:     [32]byte{9, 9, 9},
		MD5Hash:          [16]byte{1, 1, 1},
		EncryptedSize:    4096,
		OriginalSize:     4000,
		RootDir:          &rootDir,
	}

	packed := e.Pack()
	require.Len(t, packed, EntrySize)

	got, err := UnpackEntry(packed)
	require.NoError(t, err)
	if diff := deep.Equal(e, got); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestEntryRoundTripUnsetRootDir(t *testing.T) {
	e := NewFreeEntry()
	e.Status = EntryLive
	e.Filename = "noroot.txt"

	packed := e.Pack()
	got, err := UnpackEntry(packed)
	require.NoError(t, err)
	require.Nil(t, got.RootDir)
	if diff := deep.Equal(e, got); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestUnpackEntryRejectsShortRead(t *testing.T) {
	_, err := UnpackEntry(make([]byte, EntrySize-1))
	require.Error(t, err)
}

func TestEntryTableRoundTripPreservesLiveAndFreeOrder(t *testing.T) {
	table := NewEntryTable()
	table.Entries[3].Status = EntryLive
	table.Entries[3].Filename = "three.bin"
	table.Entries[3].FirstBlock = 7
	table.Entries[50].Status = EntryLive
	table.Entries[50].Filename = "fifty.bin"

	packed := table.Pack()
	require.Len(t, packed, EntryTableSize)

	got, err := UnpackEntryTable(packed)
	require.NoError(t, err)
	if diff := deep.Equal(table, got); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}

	require.Equal(t, 3, got.FindByName("three.bin"))
	require.Equal(t, 50, got.FindByName("fifty.bin"))
	require.Equal(t, -1, got.FindByName("missing.bin"))
	require.Equal(t, 0, got.FindFree())
}

func TestDataBlockRoundTrip(t *testing.T) {
	chunk := make([]byte, 1827)
	for i := range chunk {
		chunk[i] = 0x41
	}
	b := NewDataBlock(chunk)
	b.NextBlock = 5

	packed := b.Pack()
	require.Len(t, packed, DataBlockSize)

	got, err := UnpackDataBlock(packed)
	require.NoError(t, err)
	if diff := deep.Equal(b, got); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
	require.Equal(t, chunk, got.TrimmedContent())
}

func TestUnpackDataBlockRejectsShortRead(t *testing.T) {
	_, err := UnpackDataBlock(make([]byte, DataBlockSize-1))
	require.Error(t, err)
}
