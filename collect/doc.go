// Package collect runs one collection of a venue's consented peer reviews.
//
// A run fetches the reviewers' registration responses, keeps the reviewers
// who agreed and actually reviewed, anonymizes every identifier of their
// reviews, computes aggregate statistics and appends the result to the
// venue's vault archive under two password domains.
//
// The review platform is reached through the Source interface only;
// SnapshotSource serves a JSON export of it for offline runs.
// Source errors abort the run unchanged; the only rows skipped locally are
// malformed registration responses and reviews lacking a known submission
// or a signature, and each skip is logged and counted.
package collect
