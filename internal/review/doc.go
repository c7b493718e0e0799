// Package review renders a saved scan report as a self-contained HTML page.
//
// Every group member gets an inline JPEG thumbnail (and optionally a larger
// preview for the lightbox) so the page can be opened and shared without the
// original files. When a fingerprint store is supplied, members whose file
// changed since the scan, or disappeared, are flagged so stale decisions are
// not made from an old report.
package review
