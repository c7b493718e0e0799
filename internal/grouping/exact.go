package grouping

import (
	"imagededup/internal/fingerprint"
	"imagededup/internal/store"
)

// ExactGroups partitions records by SHA-256 digest. Records without a digest
// are ignored; a path listed twice counts once.
func ExactGroups(records []store.Record) []Group {
	byDigest := make(map[fingerprint.Digest][]Member)
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if !rec.HasDigest() {
			continue
		}
		if _, dup := seen[rec.Identity.Path]; dup {
			continue
		}
		seen[rec.Identity.Path] = struct{}{}
		byDigest[rec.SHA256] = append(byDigest[rec.SHA256], Member{Path: rec.Identity.Path, Size: rec.Identity.Size})
	}

	var groups []Group
	for _, members := range byDigest {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, newGroup(Exact, members, nil))
	}
	sortGroups(groups)
	return groups
}

// FirstPerDigest keeps only the lexicographically first path of each digest.
// Records without a digest pass through unchanged.
func FirstPerDigest(records []store.Record) []store.Record {
	first := make(map[fingerprint.Digest]string)
	for _, rec := range records {
		if !rec.HasDigest() {
			continue
		}
		if cur, ok := first[rec.SHA256]; !ok || rec.Identity.Path < cur {
			first[rec.SHA256] = rec.Identity.Path
		}
	}
	out := make([]store.Record, 0, len(records))
	for _, rec := range records {
		if rec.HasDigest() && first[rec.SHA256] != rec.Identity.Path {
			continue
		}
		out = append(out, rec)
	}
	return out
}
