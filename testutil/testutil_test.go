package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoReviewerVenue(t *testing.T) {
	src := TwoReviewerVenue()
	ctx := context.Background()

	responses, err := src.RegistrationResponses(ctx, "V")
	require.NoError(t, err)
	assert.Len(t, responses, 3)

	reviews, subs, err := src.ReviewsByReviewer(ctx, "V")
	require.NoError(t, err)
	assert.Len(t, reviews, 3)
	assert.Len(t, subs, 2)

	rev := reviews["~Bob_Anonymous1"][0]
	author, err := src.ReviewerIDForReview(ctx, "V", subs[1], rev)
	require.NoError(t, err)
	assert.Equal(t, "~Bob_Anonymous1", author)

	members, err := src.Reviewers(ctx, "V")
	require.NoError(t, err)
	assert.Len(t, members, 4)
}

func TestFakeSourceFailAndCalls(t *testing.T) {
	src := NewFakeSource()
	boom := errors.New("boom")
	src.Fail(OpReviewers, boom)

	_, err := src.Reviewers(context.Background(), "V")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, src.Calls(OpReviewers))
	assert.Equal(t, 0, src.Calls(OpReviewerID))
}

func TestRNGVenueDeterministic(t *testing.T) {
	a := NewRNG(4711).Venue(30, 10, 0.5)
	rng := NewRNG(4711)
	b := rng.Venue(30, 10, 0.5)

	assert.Equal(t, a.Members, b.Members)
	assert.Equal(t, len(a.Responses), len(b.Responses))
	assert.Equal(t, len(a.Reviews), len(b.Reviews))

	rng.Reset()
	c := rng.Venue(30, 10, 0.5)
	assert.Equal(t, len(a.Reviews), len(c.Reviews))
	assert.Equal(t, int64(4711), rng.Seed())
}
