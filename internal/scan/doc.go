// Package scan orchestrates a duplicate scan: enumerate roots, fingerprint
// each image with a bounded worker pool, and group the results.
//
// Fingerprints are committed to the store one file at a time as soon as they
// are computed, so an interrupted scan loses at most the files in flight and
// a rerun recomputes nothing for unchanged files. Which fingerprints are
// computed depends on the mode: exact needs SHA-256, similar needs the
// perceptual hashes, both needs both. A stored record that lacks what the
// current mode needs is completed and replaced.
package scan
