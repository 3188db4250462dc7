package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deploymenttheory/myfs/internal/myfserr"
	"github.com/stretchr/testify/require"
)

func newTestVolumePaths(t *testing.T) (volPath, metaPath string) {
	dir := t.TempDir()
	return filepath.Join(dir, "MyFS.dat"), filepath.Join(dir, "MyFS.meta")
}

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// Scenario 1: init -> add -> list -> export.
func TestScenarioInitAddListExport(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "")
	require.NoError(t, err)

	dir := t.TempDir()
	content := repeatByte(0x41, 10000)
	src := writeTempFile(t, dir, "plain.txt", content)

	require.NoError(t, v.AddFile(src, "doc", "pw"))

	entries, err := v.ListFiles()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "doc", entries[0].Filename)
	require.Equal(t, uint64(10000), entries[0].OriginalSize)
	require.Equal(t, uint64(10016), entries[0].EncryptedSize)

	outPath := filepath.Join(dir, "out.bin")
	require.NoError(t, v.ExportFile("doc", outPath, "pw"))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

// Scenario 2: wrong password export.
func TestScenarioWrongPasswordExport(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "")
	require.NoError(t, err)

	dir := t.TempDir()
	src := writeTempFile(t, dir, "plain.txt", repeatByte(0x41, 10000))
	require.NoError(t, v.AddFile(src, "doc", "pw"))

	outPath := filepath.Join(dir, "out.bin")
	err = v.ExportFile("doc", outPath, "wrong")
	require.Error(t, err)
	require.True(t, myfserr.Is(err, myfserr.KindAuthError))

	_, statErr := os.Stat(outPath)
	require.True(t, os.IsNotExist(statErr))
}

// Scenario 3: password change round trip.
func TestScenarioPasswordChangeRoundTrip(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "")
	require.NoError(t, err)

	dir := t.TempDir()
	content := repeatByte(0x41, 10000)
	src := writeTempFile(t, dir, "plain.txt", content)
	require.NoError(t, v.AddFile(src, "doc", "pw"))

	require.NoError(t, v.ResetPassword("doc", "pw", "pw2"))

	outPath := filepath.Join(dir, "out.bin")
	err = v.ExportFile("doc", outPath, "pw")
	require.Error(t, err)
	require.True(t, myfserr.Is(err, myfserr.KindAuthError))

	require.NoError(t, v.ExportFile("doc", outPath, "pw2"))
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

// Scenario 4: multi-block file chaining.
func TestScenarioMultiBlockFile(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "")
	require.NoError(t, err)

	dir := t.TempDir()
	content := repeatByte(0x42, 10000)
	src := writeTempFile(t, dir, "plain.txt", content)
	require.NoError(t, v.AddFile(src, "doc", ""))

	f, err := os.Open(volPath)
	require.NoError(t, err)
	defer f.Close()

	main, _, err := v.readEntryTables(f)
	require.NoError(t, err)
	idx := main.FindByName("doc")
	require.GreaterOrEqual(t, idx, 0)
	entry := main.Entries[idx]

	var blocks []DataBlock
	cur := entry.FirstBlock
	for {
		b, err := v.readDataBlock(f, cur)
		require.NoError(t, err)
		blocks = append(blocks, b)
		if b.NextBlock == AllOnes {
			break
		}
		cur = b.NextBlock
	}

	require.Len(t, blocks, 3)
	last := blocks[2]
	require.Equal(t, AllOnes, last.NextBlock)
	remainder := 10000 - 2*DataPayloadPerBlock
	require.Equal(t, 1826, remainder)
	for i := 0; i < remainder; i++ {
		require.Equal(t, byte(0x42), last.Content[i])
	}
	for i := remainder; i < DataPayloadPerBlock; i++ {
		require.Equal(t, byte(0), last.Content[i])
	}
}

// Scenario 5: full entry table, NoFreeEntry, delete and retry.
func TestScenarioFullEntryTable(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "")
	require.NoError(t, err)

	dir := t.TempDir()
	for i := 0; i < EntryTableCount; i++ {
		name := "f" + itoa(i)
		src := writeTempFile(t, dir, name, []byte{0x01})
		require.NoError(t, v.AddFile(src, name, ""))
	}

	extra := writeTempFile(t, dir, "overflow", []byte{0x02})
	err = v.AddFile(extra, "overflow", "")
	require.Error(t, err)
	require.True(t, myfserr.Is(err, myfserr.KindNoFreeEntry))

	require.NoError(t, v.DeleteFile("f0"))
	require.NoError(t, v.AddFile(extra, "overflow", ""))
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

// Scenario invariant: delete then re-add produces independent content.
func TestDeleteInvariance(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "")
	require.NoError(t, err)

	dir := t.TempDir()
	src1 := writeTempFile(t, dir, "a.txt", []byte("hello"))
	require.NoError(t, v.AddFile(src1, "doc", ""))
	require.NoError(t, v.DeleteFile("doc"))

	entries, err := v.ListFiles()
	require.NoError(t, err)
	for _, e := range entries {
		require.NotEqual(t, "doc", e.Filename)
	}

	src2 := writeTempFile(t, dir, "b.txt", []byte("goodbye world"))
	require.NoError(t, v.AddFile(src2, "doc", ""))

	outPath := filepath.Join(dir, "out.bin")
	require.NoError(t, v.ExportFile("doc", outPath, ""))
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, []byte("goodbye world"), got)
}

// Machine binding: tampering with the sidecar after creation must fail open.
func TestMachineBindingTamperDetection(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "")
	require.NoError(t, err)
	_ = v

	raw, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	tampered := make([]byte, len(raw))
	copy(tampered, raw)
	tampered[0] ^= 0xFF
	require.NoError(t, os.WriteFile(metaPath, tampered, 0o600))

	_, err = Open(volPath, metaPath, "")
	require.Error(t, err)
	require.True(t, myfserr.Is(err, myfserr.KindMetadataMismatch) || myfserr.Is(err, myfserr.KindCryptoError))
}

// AddFile/ExportFile idempotence for arbitrary content and password.
func TestAddExportIdempotence(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "")
	require.NoError(t, err)

	dir := t.TempDir()
	content := []byte("the quick brown fox jumps over the lazy dog")
	src := writeTempFile(t, dir, "in.txt", content)
	require.NoError(t, v.AddFile(src, "quick", "s3cret"))

	outPath := filepath.Join(dir, "out.bin")
	require.NoError(t, v.ExportFile("quick", outPath, "s3cret"))
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestIsPasswordMatch(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	_, err := Open(volPath, metaPath, "topsecret")
	require.NoError(t, err)

	v2 := &Volume{FilePath: volPath, MetadataPath: metaPath}
	ok, err := v2.IsPasswordMatch("topsecret")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v2.IsPasswordMatch("wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChangeAccessPassword(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "old")
	require.NoError(t, err)

	require.NoError(t, v.ChangeAccessPassword("old", "new"))
	ok, err := v.IsPasswordMatch("new")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v.IsPasswordMatch("old")
	require.NoError(t, err)
	require.False(t, ok)
}

// Known suspect behavior resolved: the sidecar is always re-encrypted even
// when the new access password is empty.
func TestChangeAccessPasswordToEmptyStillEncryptsSidecar(t *testing.T) {
	volPath, metaPath := newTestVolumePaths(t)
	v, err := Open(volPath, metaPath, "old")
	require.NoError(t, err)

	require.NoError(t, v.ChangeAccessPassword("old", ""))

	raw, err := os.ReadFile(metaPath)
	require.NoError(t, err)

	sb, err := v.readSuperblock()
	require.NoError(t, err)
	_, err = v.readSidecar(sb)
	require.NoError(t, err)
	require.NotEqual(t, 0, len(raw))

	ok, err := v.IsPasswordMatch("")
	require.NoError(t, err)
	require.True(t, ok)
}
