// Command yyy-collect collects the consented reviews of one venue into a
// vault archive.
//
//	yyy-collect -snapshot iclr2024.json -out ./vault -metrics-file yyy.prom
//
// Passwords are read from YYY_DATA_PASSWORD and YYY_LICENSE_PASSWORD or
// prompted for on the terminal. The anonymizer salt is random unless
// YYY_ANON_SALT is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peerdata/yyy"
	"github.com/peerdata/yyy/anon"
	"github.com/peerdata/yyy/codec"
	"github.com/peerdata/yyy/collect"
	"github.com/peerdata/yyy/internal/cliutil"
	"github.com/peerdata/yyy/metrics/prom"
	"github.com/peerdata/yyy/publish"
	"github.com/peerdata/yyy/vault"
)

const envSalt = "YYY_ANON_SALT"

var (
	snapshot        = flag.String("snapshot", "", "platform snapshot (JSON) to collect from")
	venue           = flag.String("venue", "", "venue id; defaults to the snapshot's venue")
	outDir          = flag.String("out", ".", "vault directory")
	archiveName     = flag.String("archive", vault.DefaultArchiveName, "archive file name inside -out")
	storeAgreements = flag.Bool("store-agreements", true, "also store the consent records under the license password")
	singlePassword  = flag.Bool("single-password", false, "use the data password for the license entries too")
	requireAttrib   = flag.Bool("require-attribution", false, "keep only reviewers who agreed to be named")
	hashAlg         = flag.String("hash", "sha512", "anonymizer algorithm (sha512, sha256, sha3-512)")
	repetitions     = flag.Int("repetitions", anon.DefaultRepetitions, "anonymizer hash repetitions")
	concurrency     = flag.Int("concurrency", collect.DefaultConcurrency, "concurrent reviewer lookups")
	rps             = flag.Float64("rps", 0, "reviewer lookups per second (0 = unlimited)")
	metricsFile     = flag.String("metrics-file", "", "write Prometheus metrics to this textfile")
	publishTo       = flag.String("publish", "", "publish the archive to a directory, s3:// or minio:// target")
	publishBase     = flag.String("publish-base", "vault", "name prefix of published versions")
	ledgerFlag      = flag.String("ledger", "", "version ledger: empty keeps it in the target, or dynamodb:<table>")
	logLevel        = flag.String("log-level", "info", "log level")
	logJSON         = flag.Bool("log-json", false, "log as JSON")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "yyy-collect:", err)
		os.Exit(1)
	}
}

func run() error {
	if *snapshot == "" {
		return fmt.Errorf("-snapshot is required")
	}
	logger, err := cliutil.NewLogger(*logLevel, *logJSON)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := collect.LoadSnapshot(*snapshot)
	if err != nil {
		return err
	}
	if *venue == "" {
		*venue = src.Venue()
	}

	hasher, err := newHasher()
	if err != nil {
		return err
	}

	pw, err := cliutil.ReadPasswords(cliutil.PasswordRequest{
		Licenses: *storeAgreements && !*singlePassword,
		Confirm:  true,
		Prompt:   cliutil.TerminalPrompt(os.Stdin, os.Stderr),
	})
	if err != nil {
		return err
	}
	if *storeAgreements && *singlePassword {
		pw = vault.Single(pw.Data)
	}
	if *storeAgreements && pw.Shared() {
		logger.Warn("data and license entries share one password")
	}

	opts := []yyy.Option{yyy.WithLogger(logger)}
	reg := prometheus.NewRegistry()
	if *metricsFile != "" {
		mc, err := prom.New(reg)
		if err != nil {
			return err
		}
		opts = append(opts, yyy.WithMetricsCollector(mc))
	}

	res, err := yyy.Collect(ctx, src, collect.Config{
		Venue:              *venue,
		TargetDir:          *outDir,
		ArchiveName:        *archiveName,
		Anonymizer:         hasher,
		StoreAgreements:    *storeAgreements,
		Passwords:          pw,
		RequireAttribution: *requireAttrib,
		Concurrency:        *concurrency,
		RequestsPerSecond:  *rps,
		WipeSecrets:        true,
	}, opts...)
	if *metricsFile != "" {
		if werr := prom.WriteTextfile(*metricsFile, reg); werr != nil {
			logger.Error("writing metrics failed", "path", *metricsFile, "error", werr)
		}
	}
	if err != nil {
		return err
	}

	if *publishTo != "" {
		if err := publishArchive(ctx, logger, res.ArchivePath); err != nil {
			return err
		}
	}

	out, err := codec.Default.Marshal(map[string]any{
		"archive": res.ArchivePath,
		"params":  res.Params,
		"stats":   res.Stats,
		"skipped": res.Skipped,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(out))
	return err
}

func newHasher() (*anon.Hasher, error) {
	alg, err := anon.AlgorithmByName(*hashAlg)
	if err != nil {
		return nil, err
	}
	salt := []byte(os.Getenv(envSalt))
	if len(salt) == 0 {
		if salt, err = anon.RandomSalt(anon.DefaultSaltLength); err != nil {
			return nil, err
		}
	}
	return anon.New(alg, salt, *repetitions), nil
}

func publishArchive(ctx context.Context, logger *yyy.Logger, path string) error {
	target, err := cliutil.ParseTarget(*publishTo)
	if err != nil {
		return err
	}
	store, err := cliutil.OpenStore(ctx, target)
	if err != nil {
		return err
	}
	ledger, err := cliutil.OpenLedger(ctx, *ledgerFlag, store)
	if err != nil {
		return err
	}
	v, err := publish.New(store, ledger, *publishBase, publish.WithLogger(logger.Logger)).Publish(ctx, path)
	if err != nil {
		return err
	}
	logger.Info("archive published", "target", *publishTo, "version", v.Number, "name", v.Name)
	return nil
}
