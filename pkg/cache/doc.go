// Package cache provides MemoryBoundLRU, an LRU map whose capacity is a byte
// budget over its keys and values. It backs serving-path caches such as the
// partition data an agent keeps hot after an update.
package cache
