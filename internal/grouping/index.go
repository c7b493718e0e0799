package grouping

import "imagededup/internal/fingerprint"

// maxIndexedBlocks bounds the multi-index. Beyond it blocks are narrower than
// four bits and nearly every pair collides, so the all-pairs scan is cheaper.
const maxIndexedBlocks = 16

// blockIndex finds every earlier item whose pHash or dHash may lie within a
// threshold T of a query. Each 64-bit hash is cut into T+1 disjoint blocks;
// two hashes differing in at most T bits agree exactly on at least one block,
// so candidates drawn from matching buckets include every true match.
type blockIndex struct {
	blocks  []bitBlock
	buckets map[bucketKey][]int
}

type bitBlock struct {
	shift uint
	mask  uint64
}

type bucketKey struct {
	kind  uint8
	block uint8
	value uint64
}

func usableIndex(threshold int) bool {
	return threshold >= 0 && threshold+1 <= maxIndexedBlocks
}

func newBlockIndex(threshold, capacity int) *blockIndex {
	n := threshold + 1
	blocks := make([]bitBlock, 0, n)
	base, extra := fingerprint.Bits/n, fingerprint.Bits%n
	shift := uint(0)
	for i := 0; i < n; i++ {
		width := base
		if i < extra {
			width++
		}
		mask := uint64(1)<<uint(width) - 1
		if width == 64 {
			mask = ^uint64(0)
		}
		blocks = append(blocks, bitBlock{shift: shift, mask: mask})
		shift += uint(width)
	}
	return &blockIndex{blocks: blocks, buckets: make(map[bucketKey][]int, capacity*2)}
}

func (ix *blockIndex) keys(p, d fingerprint.Hash, visit func(bucketKey)) {
	for i, b := range ix.blocks {
		visit(bucketKey{kind: 0, block: uint8(i), value: (uint64(p) >> b.shift) & b.mask})
		visit(bucketKey{kind: 1, block: uint8(i), value: (uint64(d) >> b.shift) & b.mask})
	}
}

// candidates appends every indexed item sharing a block with (p, d). stamp
// and mark deduplicate results across buckets.
func (ix *blockIndex) candidates(p, d fingerprint.Hash, stamp []int, mark int, dst []int) []int {
	ix.keys(p, d, func(k bucketKey) {
		for _, j := range ix.buckets[k] {
			if stamp[j] == mark {
				continue
			}
			stamp[j] = mark
			dst = append(dst, j)
		}
	})
	return dst
}

func (ix *blockIndex) add(item int, p, d fingerprint.Hash) {
	ix.keys(p, d, func(k bucketKey) {
		ix.buckets[k] = append(ix.buckets[k], item)
	})
}
