package collect

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/dataset"
	"github.com/peerdata/yyy/internal/cohort"
	"github.com/peerdata/yyy/vault"
)

// Stored review fields set by the collector.
const (
	FieldCDate       = "cdate"
	FieldTMDate      = "tmdate"
	FieldSignature   = "signature"
	FieldLicenseDate = "license_date"
	FieldAttributed  = "attribution"
)

// Result is the outcome of a run.
type Result struct {
	Venue       string
	ArchivePath string
	Params      vault.Params
	Stats       vault.Stats
	Dataset     *dataset.VenueDataset
	Licenses    []vault.License
	// Skipped counts rows dropped by the skip-and-log policy.
	Skipped int
}

// cohorts are the reviewer sets statistics are computed from.
type cohorts struct {
	respondents *cohort.Cohort
	agreed      *cohort.Cohort
	attributed  *cohort.Cohort
	active      *cohort.Cohort
}

type run struct {
	cfg     Config
	src     Source
	log     *slog.Logger
	skipped int
}

// Run performs one collection of cfg.Venue from src and appends it to the
// archive. Nothing is written unless every fetch succeeded.
func Run(ctx context.Context, src Source, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if cfg.WipeSecrets {
		defer wipe(&cfg)
	}

	r := &run{cfg: cfg, src: src, log: cfg.Logger.With("venue", cfg.Venue)}
	return r.collect(ctx)
}

func (r *run) collect(ctx context.Context) (*Result, error) {
	venue := r.cfg.Venue
	user, baseURL := r.src.Identity()
	params := vault.NewParams(user, baseURL, r.cfg.Now(), r.cfg.Anonymizer.String())

	r.log.InfoContext(ctx, "retrieving registration responses")
	var responses map[string]RegistrationResponse
	err := r.fetch("registration_responses", func() (err error) {
		responses, err = r.src.RegistrationResponses(ctx, venue)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("%w: no registration responses for %s (is the registration task set up?)", ErrConfiguration, venue)
	}

	var (
		byReviewer map[string][]ReviewNote
		subs       []SubmissionNote
	)
	err = r.fetch("reviews_by_reviewer", func() (err error) {
		byReviewer, subs, err = r.src.ReviewsByReviewer(ctx, venue)
		return err
	})
	if err != nil {
		return nil, err
	}

	var allReviewers []string
	err = r.fetch("reviewers", func() (err error) {
		allReviewers, err = r.src.Reviewers(ctx, venue)
		return err
	})
	if err != nil {
		return nil, err
	}

	c := r.buildCohorts(ctx, responses, byReviewer)
	selected := c.agreed.And(c.active)
	if r.cfg.RequireAttribution {
		selected = selected.And(c.attributed)
	}

	r.log.InfoContext(ctx, "retrieving agreed reviews", "reviewers", selected.Len())
	jobs := r.plan(ctx, selected.Members(), byReviewer, subs)
	if err := r.resolveAuthors(ctx, jobs); err != nil {
		return nil, err
	}

	reviews := make(map[string]dataset.ReviewSet)
	for _, j := range jobs {
		rev := r.anonymize(j, responses[j.reviewer])
		sid := r.cfg.Anonymizer.Hash(j.review.Forum)
		if reviews[sid] == nil {
			reviews[sid] = dataset.ReviewSet{}
		}
		reviews[sid][rev.RID()] = rev
	}

	licenses := make([]vault.License, 0, selected.Len())
	for _, reviewer := range selected.Members() {
		licenses = append(licenses, license(reviewer, responses[reviewer], byReviewer[reviewer]))
	}

	stats := computeStats(c, len(allReviewers), len(subs), reviews)
	d := dataset.NewVenueDataset(nil, reviews, map[string]any{
		"full_name":  vault.EscapeVenueID(venue) + "_full_" + params.Time,
		"full_stats": stats,
		"params":     params,
	})

	path := filepath.Join(r.cfg.TargetDir, r.cfg.ArchiveName)
	if err := r.store(ctx, path, d, params, stats, licenses); err != nil {
		return nil, err
	}

	return &Result{
		Venue:       venue,
		ArchivePath: path,
		Params:      params,
		Stats:       stats,
		Dataset:     d,
		Licenses:    licenses,
		Skipped:     r.skipped,
	}, nil
}

func (r *run) fetch(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.cfg.Metrics.OnFetch(op, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *run) skip(ctx context.Context, reason, msg string, args ...any) {
	r.skipped++
	r.cfg.Metrics.OnSkip(reason)
	r.log.WarnContext(ctx, msg, append([]any{"reason", reason}, args...)...)
}

func (r *run) buildCohorts(ctx context.Context, responses map[string]RegistrationResponse, byReviewer map[string][]ReviewNote) cohorts {
	reg := cohort.NewRegistry()
	c := cohorts{
		respondents: cohort.New(reg),
		agreed:      cohort.New(reg),
		attributed:  cohort.New(reg),
		active:      cohort.New(reg),
	}

	ids := make([]string, 0, len(responses))
	for id := range responses {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		resp := responses[id]
		c.respondents.Add(id)
		if resp.Attributed() {
			c.attributed.Add(id)
		}
		ok, err := resp.Agreed()
		if err != nil {
			r.skip(ctx, SkipMalformedResponse, "skipping malformed registration response", "error", err)
			continue
		}
		if ok {
			c.agreed.Add(id)
		}
	}
	for id, revs := range byReviewer {
		if len(revs) > 0 {
			c.active.Add(id)
		}
	}
	return c
}

// job is one review to store.
type job struct {
	reviewer string
	review   ReviewNote
	sub      SubmissionNote
	author   string // resolved true author
}

func (r *run) plan(ctx context.Context, reviewers []string, byReviewer map[string][]ReviewNote, subs []SubmissionNote) []*job {
	subByID := make(map[string]SubmissionNote, len(subs))
	for _, s := range subs {
		subByID[s.ID] = s
	}

	var jobs []*job
	for _, reviewer := range reviewers {
		for _, rev := range byReviewer[reviewer] {
			sub, ok := subByID[rev.Forum]
			if !ok {
				r.skip(ctx, SkipUnknownSubmission, "skipping review of unknown submission", "review", rev.ID, "forum", rev.Forum)
				continue
			}
			if len(rev.Signatures) == 0 {
				r.skip(ctx, SkipUnsignedReview, "skipping review without signature", "review", rev.ID)
				continue
			}
			jobs = append(jobs, &job{reviewer: reviewer, review: rev, sub: sub})
		}
	}
	return jobs
}

// resolveAuthors looks up the true author of every job with bounded
// concurrency. Results land in the jobs, so output order is unaffected.
func (r *run) resolveAuthors(ctx context.Context, jobs []*job) error {
	var limiter *rate.Limiter
	if r.cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			start := time.Now()
			author, err := r.src.ReviewerIDForReview(gctx, r.cfg.Venue, j.sub, j.review)
			r.cfg.Metrics.OnFetch("reviewer_id", time.Since(start), err)
			if err != nil {
				return fmt.Errorf("reviewer_id for review %s: %w", j.review.ID, err)
			}
			j.author = author
			return nil
		})
	}
	return g.Wait()
}

// anonymize builds the stored review. Identifier fields are set after the
// platform content so content can never override them.
func (r *run) anonymize(j *job, resp RegistrationResponse) *dataset.Review {
	h := r.cfg.Anonymizer
	content := make(dataset.Content, len(j.review.Content)+7)
	for k, v := range j.review.Content {
		content[k] = v
	}

	rid := h.Hash(j.review.ID)
	author := h.Hash(j.author)
	content[FieldCDate] = j.review.CDate
	content[FieldTMDate] = j.review.TMDate
	content[dataset.FieldAuthor] = author
	content[FieldSignature] = h.Hash(j.review.Signatures[0])
	content[dataset.FieldID] = rid
	content[FieldLicenseDate] = resp.CDate
	if resp.Attributed() {
		content[FieldAttributed] = j.review.Signatures[0]
	} else {
		content[FieldAttributed] = nil
	}
	return dataset.NewReview(rid, author, content)
}

func license(reviewer string, resp RegistrationResponse, reviews []ReviewNote) vault.License {
	pairs := make([][2]string, 0, len(reviews))
	for _, rev := range reviews {
		pairs = append(pairs, [2]string{rev.Forum, rev.ID})
	}
	return vault.License{
		RID:         reviewer,
		Signature:   resp.Signatures,
		Writers:     resp.Writers,
		Date:        resp.CDate,
		Attribution: resp.AttributionAnswer(),
		Reviews:     pairs,
	}
}

func (r *run) store(ctx context.Context, path string, d *dataset.VenueDataset, params vault.Params, stats vault.Stats, licenses []vault.License) error {
	rev, _ := d.Flat()
	b := &vault.Bundle{
		RevData:     rev,
		SubData:     dataset.SubData{},
		Params:      params,
		Stats:       stats,
		RevLicenses: licenses,
	}

	entries := len(vault.DataGroup())
	if r.cfg.StoreAgreements {
		entries += len(vault.LicenseGroup())
	}

	start := time.Now()
	arc := archive.Open(path, append([]func(*archive.Options){archive.WithLogger(r.cfg.Logger)}, r.cfg.ArchiveOptions...)...)
	err := vault.Store(arc, vault.Prefix(r.cfg.Venue), b, r.cfg.Passwords, r.cfg.StoreAgreements)
	r.cfg.Metrics.OnStore(entries, time.Since(start), err)
	if err != nil {
		return err
	}
	r.log.InfoContext(ctx, "stored collection", "path", path, "entries", entries, "reviews", d.NumReviews())
	return nil
}

func computeStats(c cohorts, numReviewers, numSubs int, reviews map[string]dataset.ReviewSet) vault.Stats {
	stored := 0
	subsWithReviews := 0
	for _, rs := range reviews {
		stored += len(rs)
		if len(rs) > 0 {
			subsWithReviews++
		}
	}
	return vault.Stats{
		NumSubs:       numSubs,
		NumSubsAgreed: subsWithReviews,

		NumReviewers:       numReviewers,
		NumReviewersAgreed: c.agreed.Len(),

		NumActiveReviewers:       c.active.Len(),
		NumActiveReviewersAgreed: c.agreed.And(c.active).Len(),

		NumResponses:                 c.respondents.Len(),
		NumResponsesAttributed:       c.attributed.Len(),
		NumActiveResponses:           c.respondents.And(c.active).Len(),
		NumActiveResponsesAttributed: c.attributed.And(c.active).Len(),

		NumRevsAgreedEffective: stored,
	}
}

type wiper interface{ Wipe() }

func wipe(cfg *Config) {
	cfg.Passwords.Wipe()
	if w, ok := cfg.Anonymizer.(wiper); ok {
		w.Wipe()
	}
}
