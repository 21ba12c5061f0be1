// Package redis holds the Redis adapters: a snapshot feed that fans session events out
// across server replicas over Pub/Sub, and the distributed session locker.
package redis
