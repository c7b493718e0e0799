package fingerprint

import "image"

// Codec computes the fingerprints the scan pipeline stores. Every failure
// wraps faults.ErrUnreadable.
type Codec interface {
	FileDigest(path string) (Digest, error)
	DecodeFile(path string) (image.Image, error)
	Perceptual(img image.Image) (phash, dhash Hash, err error)
}

// ImageCodec is the production Codec.
type ImageCodec struct{}

// NewCodec returns the production codec.
func NewCodec() ImageCodec {
	return ImageCodec{}
}

// FileDigest streams the file through SHA-256.
func (ImageCodec) FileDigest(path string) (Digest, error) {
	return fileDigest(path)
}

// DecodeFile decodes JPEG, PNG, GIF, BMP, TIFF, or WebP, applying EXIF orientation.
func (ImageCodec) DecodeFile(path string) (image.Image, error) {
	return decodeFile(path)
}

// Perceptual returns the pHash and dHash of img.
func (ImageCodec) Perceptual(img image.Image) (Hash, Hash, error) {
	return perceptualHashes(img)
}

// PerceptualFile decodes path with c and hashes the result.
func PerceptualFile(c Codec, path string) (Hash, Hash, error) {
	img, err := c.DecodeFile(path)
	if err != nil {
		return 0, 0, err
	}
	return c.Perceptual(img)
}
