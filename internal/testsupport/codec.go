package testsupport

import (
	"image"
	"sync/atomic"

	"imagededup/internal/fingerprint"
)

// CountingCodec wraps a codec and counts the expensive calls.
type CountingCodec struct {
	Inner   fingerprint.Codec
	Digests atomic.Int64
	Decodes atomic.Int64
	// OnDecode, when set, runs before each decode.
	OnDecode func(path string)
	// FailDigest, when set, is consulted before hashing; a non-nil error is
	// returned instead of a digest.
	FailDigest func(path string) error
}

// NewCountingCodec wraps the production codec.
func NewCountingCodec() *CountingCodec {
	return &CountingCodec{Inner: fingerprint.NewCodec()}
}

func (c *CountingCodec) FileDigest(path string) (fingerprint.Digest, error) {
	c.Digests.Add(1)
	if c.FailDigest != nil {
		if err := c.FailDigest(path); err != nil {
			return fingerprint.Digest{}, err
		}
	}
	return c.Inner.FileDigest(path)
}

func (c *CountingCodec) DecodeFile(path string) (image.Image, error) {
	c.Decodes.Add(1)
	if c.OnDecode != nil {
		c.OnDecode(path)
	}
	return c.Inner.DecodeFile(path)
}

func (c *CountingCodec) Perceptual(img image.Image) (fingerprint.Hash, fingerprint.Hash, error) {
	return c.Inner.Perceptual(img)
}
