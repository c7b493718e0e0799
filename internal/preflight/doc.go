// Package preflight provides readiness checks for the filesystem paths and
// fingerprint cache a scan depends on.
//
// The CLI "imagededup check" command runs RunAll and prints every result.
// Checks only report; they never create directories or modify the cache.
package preflight
