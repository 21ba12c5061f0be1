/*
Package session manages the live workspaces of a server: one Workspace per session ID.

It serializes mutating access per session across goroutines (and, with a distributed locker,
across replicas) and turns every workspace change into a domain.SnapshotEvent carrying the
diff against the previously published snapshot, handed to the configured publishers.
*/
package session
