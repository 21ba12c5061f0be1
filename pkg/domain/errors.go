package domain

import "errors"

// ErrSessionNotFound is returned when a session ID has no workspace.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when creating a session whose ID is taken.
var ErrSessionExists = errors.New("session already exists")

// ErrFileNotFound is returned by outer surfaces (HTTP, MCP, FUSE) when a path is not in the
// virtual file system yet. Inside the core an unknown path is simply absent, never an error.
var ErrFileNotFound = errors.New("file not found")
