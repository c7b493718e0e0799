package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"imagededup/internal/faults"
)

// CryptographicFingerprint streams r through SHA-256. Two readers produce
// equal digests iff their bytes are identical.
func CryptographicFingerprint(r io.Reader) (Digest, error) {
	var d Digest
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return d, fmt.Errorf("hash content: %w", err)
	}
	copy(d[:], hasher.Sum(nil))
	return d, nil
}

func fileDigest(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, faults.Wrap(faults.ErrUnreadable, "fingerprint", "open", path, err)
	}
	defer file.Close()
	d, err := CryptographicFingerprint(file)
	if err != nil {
		return Digest{}, faults.Wrap(faults.ErrUnreadable, "fingerprint", "digest", path, err)
	}
	return d, nil
}
