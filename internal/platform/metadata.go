// Package platform gathers host identifiers into the fixed-layout
// sidecar metadata blob and encrypts/decrypts it with the volume's
// metadata_key (§3, §4.3 of the format design).
package platform

import (
	"bytes"
	"runtime"

	"github.com/deploymenttheory/myfs/internal/cryptoutil"
	"github.com/deploymenttheory/myfs/internal/myfserr"
)

const (
	platformFieldLen  = 16
	archFieldLen      = 16
	releaseFieldLen   = 16
	machineFieldLen   = 16
	processorFieldLen = 64

	// MetadataSize is the exact packed size of a Metadata value (§3 "Sidecar metadata file").
	MetadataSize = platformFieldLen + archFieldLen + releaseFieldLen + machineFieldLen + processorFieldLen + 32
)

// Metadata describes the host a volume was created on, plus the SHA-256
// of the volume-access password (or all-zero when unset).
type Metadata struct {
	Platform          string
	Arch              string
	Release           string
	Machine           string
	Processor         string
	AccessPasswordHash [32]byte
}

// Current gathers the identifiers of the host this process is running on.
// passwordHash is carried through unchanged; callers fill it in separately
// because it is a property of the volume, not the host.
func Current(passwordHash [32]byte) Metadata {
	m := Metadata{
		Platform:           currentPlatform(),
		Arch:               currentArch(),
		Release:            currentRelease(),
		Machine:            currentMachine(),
		Processor:          currentProcessor(),
		AccessPasswordHash: passwordHash,
	}
	// Cut each host string to its on-disk field width, so the result
	// compares equal to the same host's metadata read back from a sidecar.
	m, _ = Unpack(m.Pack())
	return m
}

// currentPlatform mirrors Python's platform.system(): "Linux", "Windows", "Darwin".
func currentPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	default:
		return runtime.GOOS
	}
}

// currentArch mirrors Python's platform.architecture()[0], e.g. "64bit".
func currentArch() string {
	switch runtime.GOARCH {
	case "amd64", "arm64", "ppc64", "ppc64le", "mips64", "mips64le", "riscv64", "s390x":
		return "64bit"
	default:
		return "32bit"
	}
}

// SameHost reports whether two Metadata values describe the same host,
// ignoring the access-password hash (which is a volume property, not a
// host property) -- this matches the original PlatformMetadata.__eq__.
func (m Metadata) SameHost(other Metadata) bool {
	return m.Platform == other.Platform &&
		m.Arch == other.Arch &&
		m.Release == other.Release &&
		m.Machine == other.Machine &&
		m.Processor == other.Processor
}

// Pack serializes Metadata to its fixed 160-byte on-disk representation.
func (m Metadata) Pack() []byte {
	buf := make([]byte, 0, MetadataSize)
	buf = append(buf, fixedASCII(m.Platform, platformFieldLen)...)
	buf = append(buf, fixedASCII(m.Arch, archFieldLen)...)
	buf = append(buf, fixedASCII(m.Release, releaseFieldLen)...)
	buf = append(buf, fixedASCII(m.Machine, machineFieldLen)...)
	buf = append(buf, fixedASCII(m.Processor, processorFieldLen)...)
	buf = append(buf, m.AccessPasswordHash[:]...)
	return buf
}

// Unpack parses the fixed 160-byte on-disk representation into Metadata.
func Unpack(data []byte) (Metadata, error) {
	if len(data) != MetadataSize {
		return Metadata{}, myfserr.New(myfserr.KindIOError, "sidecar metadata has the wrong size")
	}
	off := 0
	platformStr := readASCII(data, &off, platformFieldLen)
	arch := readASCII(data, &off, archFieldLen)
	release := readASCII(data, &off, releaseFieldLen)
	machine := readASCII(data, &off, machineFieldLen)
	processor := readASCII(data, &off, processorFieldLen)
	var hash [32]byte
	copy(hash[:], data[off:off+32])

	return Metadata{
		Platform:           platformStr,
		Arch:               arch,
		Release:            release,
		Machine:            machine,
		Processor:          processor,
		AccessPasswordHash: hash,
	}, nil
}

// EncryptedPack encrypts the packed metadata with key (AES-ECB-PKCS#7).
func (m Metadata) EncryptedPack(key []byte) ([]byte, error) {
	return cryptoutil.AESECBEncrypt(key, m.Pack())
}

// DecryptMetadata decrypts an encrypted sidecar blob and unpacks it.
func DecryptMetadata(key, ciphertext []byte) (Metadata, error) {
	plaintext, err := cryptoutil.AESECBDecrypt(key, ciphertext)
	if err != nil {
		return Metadata{}, err
	}
	return Unpack(plaintext)
}

// Hash returns SHA-256 of the packed metadata, the value stored as
// machine_hash in the superblock.
func (m Metadata) Hash() [32]byte {
	return cryptoutil.SHA256(m.Pack())
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

func readASCII(data []byte, off *int, width int) string {
	field := data[*off : *off+width]
	*off += width
	return string(bytes.TrimRight(field, "\x00"))
}
