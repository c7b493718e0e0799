// Package organizer moves duplicate files out of the scanned trees.
//
// Every group keeps its representative in place. Other members are moved
// into a single destination directory, with name clashes resolved by _N
// suffixes. A file that represents any group is never moved, so a similar
// group never loses its keeper to an exact group. Moves across filesystems
// fall back to a verified copy. Dry runs plan the same targets without
// touching the disk.
package organizer
