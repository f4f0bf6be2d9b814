package yyy

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/peerdata/yyy/collect"
	"github.com/peerdata/yyy/dataset"
	"github.com/peerdata/yyy/vault"
)

// Collect runs one collection of cfg.Venue from src and appends it to the
// vault archive in cfg.TargetDir. Logger, metrics and archive options set
// on cfg take precedence over opts.
func Collect(ctx context.Context, src collect.Source, cfg collect.Config, opts ...Option) (*collect.Result, error) {
	o := applyOptions(opts)
	log := o.logger.WithVenue(cfg.Venue)
	if cfg.Logger == nil {
		cfg.Logger = o.logger.Logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = collectObserver{m: o.metricsCollector, logger: log}
	}
	cfg.ArchiveOptions = append(o.archiveOpts(), cfg.ArchiveOptions...)

	start := time.Now()
	res, err := collect.Run(ctx, src, cfg)

	var (
		stats   vault.Stats
		skipped int
	)
	if res != nil {
		stats, skipped = res.Stats, res.Skipped
		entries := len(vault.DataGroup())
		if cfg.StoreAgreements {
			entries += len(vault.LicenseGroup())
		}
		log.LogArchiveWrite(ctx, res.ArchivePath, entries, nil)
	}
	o.metricsCollector.RecordCollect(cfg.Venue, stats.NumRevsAgreedEffective, time.Since(start), err)
	log.LogCollect(ctx, cfg.Venue, stats, skipped, err)
	return res, translateError(err)
}

// LoadProtectedData loads the raw bundles of venues from the archive in
// dir, keyed by venue. A nil venues loads every venue found. The license
// group is read (with pw.Licenses) only with withLicenses.
func LoadProtectedData(dir string, venues []string, pw vault.Passwords, withLicenses bool, opts ...Option) (map[string]*vault.Bundle, error) {
	o := applyOptions(opts)
	ctx := context.Background()

	start := time.Now()
	bundles, err := vault.LoadAcrossVenues(dir, venues, pw, withLicenses, o.archiveOpts()...)
	o.metricsCollector.RecordArchiveRead(len(bundles), time.Since(start), err)
	o.logger.LogLoad(ctx, dir, len(bundles), err)
	if err != nil {
		return nil, translateError(err)
	}
	return bundles, nil
}

// LoadVault loads every venue in dir as a dataset. Each dataset's
// description carries full_name, full_stats and params.
func LoadVault(dir string, pw vault.Passwords, opts ...Option) (*dataset.MultiVenueDataset[string], error) {
	bundles, err := LoadProtectedData(dir, nil, pw, false, opts...)
	if err != nil {
		return nil, err
	}

	venues := make(map[string]*dataset.VenueDataset, len(bundles))
	for v, b := range bundles {
		d, err := dataset.FromFlat(b.RevData, b.SubData, map[string]any{
			"full_name":  v + "_full_" + b.Params.Time,
			"full_stats": b.Stats,
			"params":     b.Params,
		})
		if err != nil {
			return nil, fmt.Errorf("venue %q: %w", v, err)
		}
		venues[v] = d
	}
	return dataset.NewMultiVenueDataset(venues), nil
}

// Merge merges b into a (a preferred) and logs the collisions per venue.
func Merge(a, b *dataset.MultiVenueDataset[string], opts ...Option) *dataset.MultiVenueDataset[string] {
	o := applyOptions(opts)
	ctx := context.Background()

	start := time.Now()
	out := a.MergeWith(b)

	collisions := 0
	if b != nil {
		for _, v := range a.Keys() {
			if _, ok := b.Get(v); !ok {
				continue
			}
			d, _ := out.Get(v)
			report, _ := d.MergeReport()
			collisions += len(report.ConflictingSubmissions) + len(report.OverlappingSubmissions) + len(report.OverlappingReviews)
			o.logger.LogMerge(ctx, v, report)
		}
	}
	o.metricsCollector.RecordMerge(out.Len(), collisions, time.Since(start))
	return out
}

// exportedVenue is the Export form of one venue.
type exportedVenue struct {
	RevData dataset.RevData `json:"rev_data"`
	SubData dataset.SubData `json:"sub_data"`
	Desc    map[string]any  `json:"desc"`
}

// Export writes the datasets as one JSON document keyed by venue, in the
// flat rev_data/sub_data form.
func Export(w io.Writer, m *dataset.MultiVenueDataset[string], opts ...Option) error {
	o := applyOptions(opts)
	out := make(map[string]exportedVenue, m.Len())
	for v, d := range m.All() {
		rev, sub := d.Flat()
		out[v] = exportedVenue{RevData: rev, SubData: sub, Desc: d.Desc()}
	}
	data, err := o.codec.Marshal(out)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
