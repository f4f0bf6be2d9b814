// Package dataset is the in-memory model of a collected peer-review corpus.
//
// A VenueDataset stores submissions and their reviews keyed by submission id
// and exposes two views over the same backing maps:
//
//   - PerSubmission: sid -> (Submission, {rid: Review}), the primary view.
//   - PerReviewer: reviewer -> ([]Submission, {sid: {rid: Review}}), backed by a
//     secondary index that writes through either view keep current.
//
// Datasets merge left-biased with MergeWith: the left operand's data is never
// overwritten and every collision is reported in the result's description.
// Merges never mutate their inputs.
package dataset
