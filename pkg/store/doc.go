// Package store implements the Durable State Store (spec.md §4.2): a
// bbolt-backed key-value store holding, for every resource, its current
// input and output State, keyed by an 8-byte little-endian numeric id.
//
// Two buckets stand in for the original two-sub-database LMDB layout:
// "input" and "output". A single bbolt.DB file plays the role of the one
// LMDB environment directory described in spec.md §5's on-disk layout
// note; bbolt has no NO_SUBDIR/WRITE_MAP flags to set; it always
// memory-maps its single file and takes an OS advisory lock for the
// duration of Open.
package store
