// Package hub implements a catalog of shared study materials.
//
// The Engine runs filtered catalog reads and sorts and aggregates the held
// result without going back to the store. The Pipeline stores an uploaded
// file and then records the material, deleting the file again when the record
// cannot be written. The Tracker counts a download at most once per user and
// material. The Sweeper removes stored files no material refers to.
//
// Stores are reached through the Repository and BlobStore interfaces; see the
// repo and storage subpackages for implementations.
package hub
