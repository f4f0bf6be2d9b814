// Package anon de-identifies platform identifiers before they are stored.
//
// A Hasher applies a salted hash repeatedly; the same identifier always maps
// to the same digest within one configuration, so one reviewer can be
// cross-referenced across records without revealing who they are.
package anon
