// Package trajectory owns the particle trajectory data model.
//
// A Dataset is loaded once from a simulator ".pt" file and is read-only
// afterwards, so it can be shared by any number of readers without locking.
// Samples sharing a time value form a frame; samples sharing a track id,
// ordered by time, form a track. Frames partition the dataset exactly.
//
// Key types: Sample, Dataset, Link, Stats.
//
// File schema: one whitespace-delimited record per line in the simulator's
// column order "t x y z r duration tid state". A header comment such as
// "# tid t x y z r" on the first non-blank line remaps the columns. Paths
// ending in .zst or .gz are decompressed transparently.
package trajectory
