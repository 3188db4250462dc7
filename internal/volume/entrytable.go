package volume

import "github.com/deploymenttheory/myfs/internal/myfserr"

// EntryTable is a fixed-length array of EntryTableCount entry records.
type EntryTable struct {
	Entries [EntryTableCount]Entry
}

// NewEntryTable returns a table of EntryTableCount free entries.
func NewEntryTable() EntryTable {
	var t EntryTable
	for i := range t.Entries {
		t.Entries[i] = NewFreeEntry()
	}
	return t
}

// Pack serializes the table to its fixed EntryTableSize on-disk representation.
func (t EntryTable) Pack() []byte {
	buf := make([]byte, 0, EntryTableSize)
	for _, e := range t.Entries {
		buf = append(buf, e.Pack()...)
	}
	return buf
}

// UnpackEntryTable parses the fixed EntryTableSize on-disk representation.
func UnpackEntryTable(data []byte) (EntryTable, error) {
	if len(data) != EntryTableSize {
		return EntryTable{}, myfserr.New(myfserr.KindIOError, "entry table has the wrong size")
	}
	var t EntryTable
	for i := 0; i < EntryTableCount; i++ {
		e, err := UnpackEntry(data[i*EntrySize : (i+1)*EntrySize])
		if err != nil {
			return EntryTable{}, err
		}
		t.Entries[i] = e
	}
	return t, nil
}

// FindByName returns the index of the live entry with the given filename,
// or -1 if none exists.
func (t EntryTable) FindByName(name string) int {
	for i, e := range t.Entries {
		if e.IsLive() && e.Filename == name {
			return i
		}
	}
	return -1
}

// FindFree returns the index of the first free entry, or -1 if the table is full.
func (t EntryTable) FindFree() int {
	for i, e := range t.Entries {
		if e.Status == EntryFree {
			return i
		}
	}
	return -1
}
