// Package vfs is the in-memory projection of an artifact's files: a path-keyed file map,
// the active file, the project title, the install dependencies seen in shell commands and the
// folder tree derived from the paths.
//
// The FileSystem never touches disk. It is written by a single replay loop and may be read
// concurrently (HTTP handlers, the FUSE mount).
package vfs
