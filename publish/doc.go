// Package publish mirrors finished archives to a blob store.
//
// Every Publish uploads the archive under a new, content-addressed name and
// then commits the version to a Ledger. The ledger provides the atomic
// compare-and-swap that object stores lack, so two operators publishing at
// the same time cannot both claim a version: the loser gets
// ErrConcurrentModification and its upload is removed again.
package publish
