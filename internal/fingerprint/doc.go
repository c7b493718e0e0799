// Package fingerprint computes the identity and perceptual fingerprints of
// image files.
//
// A SHA-256 digest identifies byte-identical files. Two 64-bit perceptual
// hashes describe what an image looks like: the DCT-based pHash and the
// gradient-based dHash. Both are compared by Hamming distance. Decoding goes
// through a registry covering JPEG, PNG, GIF, BMP, TIFF, and WebP, with EXIF
// orientation applied so rotated copies hash alike.
package fingerprint
