/*
Package ports defines the driven ports (interfaces) of the sakura workspace server.

These interfaces decouple session handling from the infrastructure that fans snapshots out to
readers and coordinates replicas.

# Key Interfaces

  - SnapshotPublisher: receives every snapshot event of every session.
  - SnapshotFeed: a publisher that readers can subscribe to per session (SSE, MCP).
  - DistributedLocker: provides distributed locking for concurrent session access.
*/
package ports
