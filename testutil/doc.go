// Package testutil provides testing utilities for yyy.
//
// This package is intended for use in tests only. It provides an in-memory
// review platform (FakeSource) that implements collect.Source, fixture
// builders for common venues, and a seeded RNG for generating larger ones.
//
// # Fixtures
//
//	src := testutil.TwoReviewerVenue()
//	res, err := collect.Run(ctx, src, cfg)
//
// # Random Venues
//
//	rng := testutil.NewRNG(seed)
//	src := rng.Venue(50, 20, 0.6)
package testutil
