// Package quota tracks how many free submissions a user has left.
//
// The counter lives under a single key in a Store and is stored as a plain
// integer string. Every mutation is written through synchronously.
//
// # Stores
//
//   - BlobStore keeps the key as an object in a gocloud.dev bucket. With a
//     file:// bucket in the user's config directory this is the local,
//     per-user storage the tracker was designed for.
//   - RedisStore keeps the key in Redis, for installations that share one
//     counter between machines.
//
// # Limitations
//
// The tracker assumes a single writer. Two processes sharing one store can
// race on the counter; nothing guards against that. The quota is a soft
// usage nudge: deleting the key resets it.
package quota
