// Command imagededup reports byte-identical and visually similar images
// across one or more directories and can move the redundant copies aside.
//
// Fingerprints are cached in a SQLite database so repeated scans only hash
// new or changed files; an interrupted scan resumes where it stopped.
package main
