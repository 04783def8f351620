// Package cache defines the reference stores that remember where a ready-to-send
// copy of a book file already lives (a message inside a cache channel). Two
// independent tiers exist, the primary cache service and the buffer service,
// and both are exposed through the Tier interface so the delivery engine can
// resolve, forward and invalidate references without knowing the backend.
// HTTP-backed tiers talk to the cache services; RedisTier serves the buffer
// tier from a Redis instance when one is configured.
package cache
