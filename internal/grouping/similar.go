package grouping

import (
	"fmt"
	"sort"

	"imagededup/internal/faults"
	"imagededup/internal/fingerprint"
	"imagededup/internal/store"
)

// DefaultBruteForceLimit is the input size up to which every pair is compared directly.
const DefaultBruteForceLimit = 256

// Clusterer groups perceptually similar images. Two images match when either
// their pHash or their dHash distance is at most Threshold; groups are the
// connected components of that relation.
type Clusterer struct {
	Threshold int
	// BruteForceLimit selects the all-pairs scan for inputs of at most this
	// many images. Zero means DefaultBruteForceLimit.
	BruteForceLimit int
}

// NewClusterer validates threshold and returns a Clusterer.
func NewClusterer(threshold, bruteForceLimit int) (Clusterer, error) {
	if threshold < 0 || threshold > fingerprint.Bits {
		return Clusterer{}, faults.Wrap(faults.ErrConfiguration, "grouping", "threshold",
			fmt.Sprintf("must be between 0 and %d (got %d)", fingerprint.Bits, threshold), nil)
	}
	return Clusterer{Threshold: threshold, BruteForceLimit: bruteForceLimit}, nil
}

type hashed struct {
	member Member
	phash  fingerprint.Hash
	dhash  fingerprint.Hash
}

// Cluster returns one Similar group per connected component with two or more
// members. Records without valid perceptual hashes are skipped.
func (c Clusterer) Cluster(records []store.Record) []Group {
	items := c.eligible(records)
	if len(items) < 2 {
		return nil
	}
	threshold := c.threshold()
	limit := c.BruteForceLimit
	if limit <= 0 {
		limit = DefaultBruteForceLimit
	}

	ds := newDisjointSet(len(items))
	var links []linkAt
	if len(items) <= limit || !usableIndex(threshold) {
		links = c.allPairs(items, ds, threshold)
	} else {
		links = c.indexed(items, ds, threshold)
	}
	return collect(items, ds, links)
}

func (c Clusterer) threshold() int {
	switch {
	case c.Threshold < 0:
		return 0
	case c.Threshold > fingerprint.Bits:
		return fingerprint.Bits
	default:
		return c.Threshold
	}
}

func (c Clusterer) eligible(records []store.Record) []hashed {
	items := make([]hashed, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.Perceptual != fingerprint.Valid {
			continue
		}
		if _, dup := seen[rec.Identity.Path]; dup {
			continue
		}
		seen[rec.Identity.Path] = struct{}{}
		items = append(items, hashed{
			member: Member{Path: rec.Identity.Path, Size: rec.Identity.Size},
			phash:  rec.PHash,
			dhash:  rec.DHash,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].member.Path < items[j].member.Path })
	return items
}

type linkAt struct {
	a, b   int
	pd, dd int
}

// try unions i and j when they match and records the edge if it merged two components.
func try(items []hashed, ds *disjointSet, threshold, i, j int, links []linkAt) []linkAt {
	if ds.find(i) == ds.find(j) {
		return links
	}
	pd := items[i].phash.Distance(items[j].phash)
	dd := items[i].dhash.Distance(items[j].dhash)
	if pd > threshold && dd > threshold {
		return links
	}
	if ds.union(i, j) {
		links = append(links, linkAt{a: j, b: i, pd: pd, dd: dd})
	}
	return links
}

func (c Clusterer) allPairs(items []hashed, ds *disjointSet, threshold int) []linkAt {
	var links []linkAt
	for i := 1; i < len(items); i++ {
		for j := 0; j < i; j++ {
			links = try(items, ds, threshold, i, j, links)
		}
	}
	return links
}

// indexed evaluates the same pairs as allPairs, in the same order, restricted
// to candidates sharing a hash block.
func (c Clusterer) indexed(items []hashed, ds *disjointSet, threshold int) []linkAt {
	ix := newBlockIndex(threshold, len(items))
	stamp := make([]int, len(items))
	for i := range stamp {
		stamp[i] = -1
	}
	var (
		links []linkAt
		cands []int
	)
	for i, it := range items {
		cands = ix.candidates(it.phash, it.dhash, stamp, i, cands[:0])
		sort.Ints(cands)
		for _, j := range cands {
			links = try(items, ds, threshold, i, j, links)
		}
		ix.add(i, it.phash, it.dhash)
	}
	return links
}

func collect(items []hashed, ds *disjointSet, links []linkAt) []Group {
	members := make(map[int][]Member)
	for i, it := range items {
		root := ds.find(i)
		members[root] = append(members[root], it.member)
	}
	edges := make(map[int][]Link)
	for _, l := range links {
		root := ds.find(l.a)
		edges[root] = append(edges[root], Link{
			From:          items[l.a].member.Path,
			To:            items[l.b].member.Path,
			PHashDistance: l.pd,
			DHashDistance: l.dd,
		})
	}

	var groups []Group
	for root, ms := range members {
		if len(ms) < 2 {
			continue
		}
		groups = append(groups, newGroup(Similar, ms, edges[root]))
	}
	sortGroups(groups)
	return groups
}
