// Package grouping partitions fingerprinted files into exact-duplicate groups
// and clusters of visually similar images.
package grouping

import (
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes how a group's members relate.
type Kind int

const (
	// Exact groups share a SHA-256 digest.
	Exact Kind = iota
	// Similar groups are connected by perceptual-hash matches.
	Similar
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Similar:
		return "similar"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind for JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "exact" or "similar".
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "exact":
		*k = Exact
	case "similar":
		*k = Similar
	default:
		return fmt.Errorf("unknown group kind %q", text)
	}
	return nil
}

// Member is one file in a group.
type Member struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Link is a match that joined two previously separate parts of a similar group.
type Link struct {
	From          string `json:"from"`
	To            string `json:"to"`
	PHashDistance int    `json:"phash_distance"`
	DHashDistance int    `json:"dhash_distance"`
}

// Group is a set of at least two related files.
type Group struct {
	Kind    Kind     `json:"kind"`
	Members []Member `json:"members"`
	// Representative is the member with the lexicographically smallest path.
	Representative Member `json:"representative"`
	Links          []Link `json:"links,omitempty"`
}

// ReclaimableBytes is the space freed by keeping only the representative.
func (g Group) ReclaimableBytes() int64 {
	var total int64
	for _, m := range g.Members {
		if m.Path != g.Representative.Path {
			total += m.Size
		}
	}
	return total
}

// MaxDistance is the loosest link in a similar group. Each link counts by
// whichever hash matched closer. Exact groups report 0.
func (g Group) MaxDistance() int {
	worst := 0
	for _, l := range g.Links {
		worst = max(worst, min(l.PHashDistance, l.DHashDistance))
	}
	return worst
}

// Duplicates returns every member except the representative.
func (g Group) Duplicates() []Member {
	out := make([]Member, 0, len(g.Members))
	for _, m := range g.Members {
		if m.Path != g.Representative.Path {
			out = append(out, m)
		}
	}
	return out
}

func newGroup(kind Kind, members []Member, links []Link) Group {
	sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })
	sort.Slice(links, func(i, j int) bool {
		if links[i].From != links[j].From {
			return links[i].From < links[j].From
		}
		return links[i].To < links[j].To
	})
	return Group{Kind: kind, Members: members, Representative: members[0], Links: links}
}

func sortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Representative.Path < groups[j].Representative.Path
	})
}

// TotalReclaimable sums ReclaimableBytes over groups.
func TotalReclaimable(groups []Group) int64 {
	var total int64
	for _, g := range groups {
		total += g.ReclaimableBytes()
	}
	return total
}
