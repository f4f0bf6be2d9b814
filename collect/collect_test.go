package collect_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/peerdata/yyy/anon"
	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/codec"
	"github.com/peerdata/yyy/collect"
	"github.com/peerdata/yyy/testutil"
	"github.com/peerdata/yyy/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const venue = "ICLR.cc/2024/Conference"

type recordingObserver struct {
	mu      sync.Mutex
	fetches map[string]int
	skips   map[string]int
	stores  int
}

func (o *recordingObserver) OnFetch(op string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches[op]++
}

func (o *recordingObserver) OnSkip(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skips[reason]++
}

func (o *recordingObserver) OnStore(int, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stores++
}

func newObserver() *recordingObserver {
	return &recordingObserver{fetches: map[string]int{}, skips: map[string]int{}}
}

func testConfig(t *testing.T) collect.Config {
	t.Helper()
	return collect.Config{
		Venue:           venue,
		TargetDir:       filepath.Join(t.TempDir(), "out"),
		Anonymizer:      testutil.FastHasher(),
		StoreAgreements: true,
		Passwords:       vault.Passwords{Data: []byte("data-pw"), Licenses: []byte("lic-pw")},
		Now:             func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) },
		ArchiveOptions:  []func(*archive.Options){archive.WithKDFIterations(archive.MinKDFIterations)},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	src := testutil.TwoReviewerVenue()
	cfg := testConfig(t)
	obs := newObserver()
	cfg.Metrics = obs

	res, err := collect.Run(context.Background(), src, cfg)
	require.NoError(t, err)

	st := res.Stats
	assert.Equal(t, 2, st.NumReviewersAgreed)
	assert.Equal(t, 2, st.NumActiveReviewersAgreed)
	assert.Equal(t, 1, st.NumActiveResponsesAttributed)
	assert.Equal(t, 4, st.NumReviewers)
	assert.Equal(t, 3, st.NumActiveReviewers)
	assert.Equal(t, 3, st.NumResponses)
	assert.Equal(t, 1, st.NumResponsesAttributed)
	assert.Equal(t, 3, st.NumActiveResponses)
	assert.Equal(t, 2, st.NumSubs)
	assert.Equal(t, 2, st.NumSubsAgreed)
	assert.Equal(t, 2, st.NumRevsAgreedEffective)
	assert.Zero(t, res.Skipped)

	assert.Equal(t, filepath.Join(cfg.TargetDir, vault.DefaultArchiveName), res.ArchivePath)
	assert.Equal(t, "2024/06/01, 09:30:00", res.Params.Time)
	assert.Equal(t, "~Program_Chair1", res.Params.User)
	assert.Equal(t, testutil.FastHasher().String(), res.Params.Hash)

	// Read rev_data.json back with the data password only.
	arc := archive.Open(res.ArchivePath)
	blobs, err := arc.Read([]string{vault.Prefix(venue) + vault.RevDataName}, cfg.Passwords.Data)
	require.NoError(t, err)

	var revData map[string][]map[string]any
	require.NoError(t, codec.Default.Unmarshal(blobs[0], &revData))
	require.Len(t, revData, 2)

	h := testutil.FastHasher()
	aliceForum := revData[h.Hash("forum1")]
	bobForum := revData[h.Hash("forum2")]
	require.Len(t, aliceForum, 1)
	require.Len(t, bobForum, 1)

	alice := aliceForum[0]
	assert.NotNil(t, alice["attribution"])
	assert.Equal(t, h.Hash("~Alice_Attributed1"), alice["tauthor"])
	assert.Equal(t, h.Hash("rev001"), alice["id"])
	assert.Equal(t, "6: marginally above", alice["rating"])
	assert.Contains(t, alice, "license_date")
	assert.Contains(t, alice, "cdate")
	assert.Contains(t, alice, "tmdate")

	bob := bobForum[0]
	v, ok := bob["attribution"]
	require.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, string(blobs[0]), "~Bob_Anonymous1")

	// The declined reviewer's review is not stored.
	assert.NotContains(t, string(blobs[0]), h.Hash("rev003"))

	// Licenses are under their own password.
	_, err = arc.Read([]string{vault.Prefix(venue) + vault.RevLicensesName}, cfg.Passwords.Data)
	assert.ErrorIs(t, err, archive.ErrAuthFailure)

	bundle, err := vault.Load(arc, vault.Prefix(venue), cfg.Passwords, true)
	require.NoError(t, err)
	require.Len(t, bundle.RevLicenses, 2)
	assert.Equal(t, "~Alice_Attributed1", bundle.RevLicenses[0].RID)
	assert.Equal(t, "Yes, please name me", bundle.RevLicenses[0].Attribution)
	assert.Equal(t, [][2]string{{"forum1", "rev001"}}, bundle.RevLicenses[0].Reviews)
	assert.Equal(t, res.Stats, bundle.Stats)

	// In-memory dataset mirrors the stored one.
	assert.Equal(t, 2, res.Dataset.NumReviews())
	assert.Len(t, res.Dataset.PerReviewer().Keys(), 2)

	assert.Equal(t, 1, obs.fetches["registration_responses"])
	assert.Equal(t, 2, obs.fetches["reviewer_id"])
	assert.Equal(t, 1, obs.stores)
}

func TestRun_RequireAttribution(t *testing.T) {
	cfg := testConfig(t)
	cfg.RequireAttribution = true

	res, err := collect.Run(context.Background(), testutil.TwoReviewerVenue(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dataset.NumReviews())
	assert.Len(t, res.Licenses, 1)
	// Cohort statistics do not depend on the filter.
	assert.Equal(t, 2, res.Stats.NumActiveReviewersAgreed)
	assert.Equal(t, 1, res.Stats.NumRevsAgreedEffective)
}

func TestRun_NoResponsesIsConfigurationError(t *testing.T) {
	src := testutil.NewFakeSource()
	src.AddSubmission("forum1")
	cfg := testConfig(t)

	_, err := collect.Run(context.Background(), src, cfg)
	require.ErrorIs(t, err, collect.ErrConfiguration)

	_, statErr := os.Stat(filepath.Join(cfg.TargetDir, vault.DefaultArchiveName))
	assert.True(t, os.IsNotExist(statErr), "nothing may be written")
}

func TestRun_InvalidConfig(t *testing.T) {
	for name, mutate := range map[string]func(*collect.Config){
		"venue":       func(c *collect.Config) { c.Venue = "" },
		"target":      func(c *collect.Config) { c.TargetDir = "" },
		"anonymizer":  func(c *collect.Config) { c.Anonymizer = nil },
		"concurrency": func(c *collect.Config) { c.Concurrency = -1 },
		"rate":        func(c *collect.Config) { c.RequestsPerSecond = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(&cfg)
			_, err := collect.Run(context.Background(), testutil.TwoReviewerVenue(), cfg)
			assert.ErrorIs(t, err, collect.ErrConfiguration)
		})
	}
}

func TestRun_SourceErrorsBubbleUp(t *testing.T) {
	boom := errors.New("platform unavailable")
	for _, op := range []string{testutil.OpRegistrationResponses, testutil.OpReviewsByReviewer, testutil.OpReviewerID, testutil.OpReviewers} {
		t.Run(op, func(t *testing.T) {
			src := testutil.TwoReviewerVenue()
			src.Fail(op, boom)
			cfg := testConfig(t)

			_, err := collect.Run(context.Background(), src, cfg)
			require.ErrorIs(t, err, boom)

			_, statErr := os.Stat(filepath.Join(cfg.TargetDir, vault.DefaultArchiveName))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRun_SkipAndLog(t *testing.T) {
	src := testutil.TwoReviewerVenue()
	// Malformed response: agreement is not text.
	src.Responses["~Erin_Malformed1"] = collect.RegistrationResponse{ID: "resp-erin", Content: map[string]any{collect.FieldAgreement: 42}}
	// Review of a submission the platform does not list.
	src.AddReview("~Alice_Attributed1", "forum-missing")

	cfg := testConfig(t)
	obs := newObserver()
	cfg.Metrics = obs

	res, err := collect.Run(context.Background(), src, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, obs.skips[collect.SkipMalformedResponse])
	assert.Equal(t, 1, obs.skips[collect.SkipUnknownSubmission])
	assert.Equal(t, 2, res.Dataset.NumReviews())
	assert.Equal(t, 4, res.Stats.NumResponses)
}

func TestRun_AppendsSecondVenue(t *testing.T) {
	cfg := testConfig(t)
	_, err := collect.Run(context.Background(), testutil.TwoReviewerVenue(), cfg)
	require.NoError(t, err)

	cfg2 := cfg
	cfg2.Venue = "NeurIPS.cc/2024/Conference"
	_, err = collect.Run(context.Background(), testutil.NewRNG(7).Venue(20, 8, 0.7), cfg2)
	require.NoError(t, err)

	venues, err := vault.DiscoverVenues(archive.Open(filepath.Join(cfg.TargetDir, vault.DefaultArchiveName)), cfg.Passwords.Data)
	require.NoError(t, err)
	assert.Equal(t, []string{"ICLRcc2024Conference", "NeurIPScc2024Conference"}, venues)
}

func TestRun_RateLimitedConcurrentLookups(t *testing.T) {
	src := testutil.NewRNG(11).Venue(40, 15, 0.9)
	cfg := testConfig(t)
	cfg.Concurrency = 8
	cfg.RequestsPerSecond = 10_000

	res, err := collect.Run(context.Background(), src, cfg)
	require.NoError(t, err)
	assert.Equal(t, res.Dataset.NumReviews(), src.Calls(testutil.OpReviewerID))
	assert.Equal(t, res.Stats.NumRevsAgreedEffective, res.Dataset.NumReviews())
}

func TestRun_Deterministic(t *testing.T) {
	a, err := collect.Run(context.Background(), testutil.NewRNG(3).Venue(25, 10, 0.6), testConfig(t))
	require.NoError(t, err)
	b, err := collect.Run(context.Background(), testutil.NewRNG(3).Venue(25, 10, 0.6), testConfig(t))
	require.NoError(t, err)

	ra, _ := a.Dataset.Flat()
	rb, _ := b.Dataset.Flat()
	assert.Equal(t, ra, rb)
	assert.Equal(t, a.Stats, b.Stats)
}

func TestRun_WipeSecrets(t *testing.T) {
	cfg := testConfig(t)
	salt := []byte("WIPEME")
	cfg.Anonymizer = anon.New(anon.SHA256, salt, 1)
	data := cfg.Passwords.Data
	cfg.WipeSecrets = true

	_, err := collect.Run(context.Background(), testutil.TwoReviewerVenue(), cfg)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, len(salt)), salt)
	assert.Equal(t, make([]byte, len(data)), data)
}

func TestRegistrationResponse(t *testing.T) {
	r := collect.RegistrationResponse{Content: map[string]any{collect.FieldAgreement: "  I AGREE ", collect.FieldAttribution: " yes"}}
	ok, err := r.Agreed()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, r.Attributed())
	assert.Equal(t, " yes", r.AttributionAnswer())

	r = collect.RegistrationResponse{Content: map[string]any{collect.FieldAgreement: "I agree to nothing"}}
	ok, err = r.Agreed()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, r.Attributed())
	assert.Equal(t, "No", r.AttributionAnswer())

	_, err = collect.RegistrationResponse{}.Agreed()
	assert.Error(t, err)
}
