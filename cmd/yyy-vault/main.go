// Command yyy-vault inspects, exports and publishes vault archives.
//
//	yyy-vault list    -dir ./vault
//	yyy-vault verify  -dir ./vault
//	yyy-vault venues  -dir ./vault
//	yyy-vault export  -dir ./vault [-venue V]... [-o data.json]
//	yyy-vault merge   -o merged.json ./vault-a ./vault-b
//	yyy-vault publish -dir ./vault -to s3://bucket/prefix [-ledger dynamodb:table]
//	yyy-vault fetch   -dir ./vault -from s3://bucket/prefix
//	yyy-vault license-check -role reviewers task.yaml
//
// Passwords are read from YYY_DATA_PASSWORD and YYY_LICENSE_PASSWORD or
// prompted for on the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/peerdata/yyy"
	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/dataset"
	"github.com/peerdata/yyy/internal/cliutil"
	"github.com/peerdata/yyy/license"
	"github.com/peerdata/yyy/publish"
	"github.com/peerdata/yyy/vault"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string) error
}

var commands = []command{
	{"list", "list archive entries (no password needed)", runList},
	{"verify", "check that the archive scans cleanly", runVerify},
	{"venues", "list the venues stored in the archive", runVenues},
	{"export", "decrypt venues to one JSON document", runExport},
	{"merge", "merge the venues of several vaults into one JSON document", runMerge},
	{"publish", "upload the archive as a new version", runPublish},
	{"fetch", "download the latest published version", runFetch},
	{"license-check", "validate a license task configuration", runLicenseCheck},
}

var logger = yyy.NoopLogger()

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, c := range commands {
		if c.name == os.Args[1] {
			if err := c.run(ctx, os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "yyy-vault %s: %v\n", c.name, err)
				os.Exit(1)
			}
			return
		}
	}
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: yyy-vault <command> [flags]")
	w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\t%s\n", c.name, c.usage)
	}
	_ = w.Flush()
}

// flagSet adds the flags every command shares.
func flagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	dir := fs.String("dir", ".", "vault directory")
	fs.StringVar(&logLevel, "log-level", "warn", "log level")
	fs.BoolVar(&logJSON, "log-json", false, "log as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: yyy-vault %s [flags]\n", name)
		fs.PrintDefaults()
	}
	return fs, dir
}

var (
	logLevel string
	logJSON  bool
)

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	l, err := cliutil.NewLogger(logLevel, logJSON)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func readPasswords(licenses bool) (vault.Passwords, error) {
	return cliutil.ReadPasswords(cliutil.PasswordRequest{
		Licenses: licenses,
		Prompt:   cliutil.TerminalPrompt(os.Stdin, os.Stderr),
	})
}

func archivePath(dir string) string { return filepath.Join(dir, vault.DefaultArchiveName) }

func runList(_ context.Context, args []string) error {
	fs, dir := flagSet("list")
	if err := parse(fs, args); err != nil {
		return err
	}
	entries, err := archive.Open(archivePath(*dir), archive.WithLogger(logger.Logger)).Entries()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tSTORED\tENCRYPTED\tCOMPRESSION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n", e.Name, e.Size, e.StoredSize, e.Encrypted, e.Compression)
	}
	return w.Flush()
}

func runVerify(_ context.Context, args []string) error {
	fs, dir := flagSet("verify")
	if err := parse(fs, args); err != nil {
		return err
	}
	arc := archive.Open(archivePath(*dir), archive.WithLogger(logger.Logger))
	if err := arc.Verify(); err != nil {
		return err
	}
	entries, err := arc.Entries()
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok, %d entries\n", arc.Path(), len(entries))
	return nil
}

func runVenues(_ context.Context, args []string) error {
	fs, dir := flagSet("venues")
	if err := parse(fs, args); err != nil {
		return err
	}
	pw, err := readPasswords(false)
	if err != nil {
		return err
	}
	defer pw.Wipe()
	venues, err := vault.DiscoverVenues(archive.Open(archivePath(*dir), archive.WithLogger(logger.Logger)), pw.Data)
	if err != nil {
		return err
	}
	for _, v := range venues {
		fmt.Println(v)
	}
	return nil
}

// venueList collects repeated -venue flags.
type venueList []string

func (v *venueList) String() string     { return strings.Join(*v, ",") }
func (v *venueList) Set(s string) error { *v = append(*v, vault.EscapeVenueID(s)); return nil }

func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func export(path string, m *dataset.MultiVenueDataset[string]) (err error) {
	w, err := output(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return yyy.Export(w, m, yyy.WithLogger(logger))
}

func runExport(_ context.Context, args []string) error {
	fs, dir := flagSet("export")
	var venues venueList
	fs.Var(&venues, "venue", "venue to export (repeatable); default all")
	out := fs.String("o", "", "output file (default stdout)")
	if err := parse(fs, args); err != nil {
		return err
	}
	pw, err := readPasswords(false)
	if err != nil {
		return err
	}
	defer pw.Wipe()

	m, err := yyy.LoadVault(*dir, pw, yyy.WithLogger(logger))
	if err != nil {
		return err
	}
	if len(venues) > 0 {
		for _, k := range m.Keys() {
			if !slices.Contains(venues, k) {
				m.Delete(k)
			}
		}
	}
	return export(*out, m)
}

func runMerge(_ context.Context, args []string) error {
	fs, _ := flagSet("merge")
	out := fs.String("o", "", "output file (default stdout)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("need at least two vault directories")
	}
	pw, err := readPasswords(false)
	if err != nil {
		return err
	}
	defer pw.Wipe()

	var merged *dataset.MultiVenueDataset[string]
	for _, dir := range fs.Args() {
		m, err := yyy.LoadVault(dir, pw, yyy.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
		if merged == nil {
			merged = m
			continue
		}
		merged = yyy.Merge(merged, m, yyy.WithLogger(logger))
	}
	return export(*out, merged)
}

func publisher(ctx context.Context, target, base, ledgerFlag string) (*publish.Publisher, error) {
	t, err := cliutil.ParseTarget(target)
	if err != nil {
		return nil, err
	}
	store, err := cliutil.OpenStore(ctx, t)
	if err != nil {
		return nil, err
	}
	ledger, err := cliutil.OpenLedger(ctx, ledgerFlag, store)
	if err != nil {
		return nil, err
	}
	return publish.New(store, ledger, base, publish.WithLogger(logger.Logger)), nil
}

func runPublish(ctx context.Context, args []string) error {
	fs, dir := flagSet("publish")
	to := fs.String("to", "", "publish target: directory, s3:// or minio://")
	base := fs.String("base", "vault", "name prefix of published versions")
	ledgerFlag := fs.String("ledger", "", "version ledger: empty keeps it in the target, or dynamodb:<table>")
	if err := parse(fs, args); err != nil {
		return err
	}
	p, err := publisher(ctx, *to, *base, *ledgerFlag)
	if err != nil {
		return err
	}
	v, err := p.Publish(ctx, archivePath(*dir))
	if err != nil {
		return err
	}
	fmt.Printf("version %d: %s (%d bytes, sha256 %s)\n", v.Number, v.Name, v.Size, v.SHA256)
	return nil
}

func runFetch(ctx context.Context, args []string) error {
	fs, dir := flagSet("fetch")
	from := fs.String("from", "", "publish target: directory, s3:// or minio://")
	base := fs.String("base", "vault", "name prefix of published versions")
	ledgerFlag := fs.String("ledger", "", "version ledger: empty keeps it in the target, or dynamodb:<table>")
	if err := parse(fs, args); err != nil {
		return err
	}
	p, err := publisher(ctx, *from, *base, *ledgerFlag)
	if err != nil {
		return err
	}
	v, err := p.Fetch(ctx, archivePath(*dir))
	if err != nil {
		return err
	}
	fmt.Printf("fetched version %d into %s\n", v.Number, archivePath(*dir))
	return nil
}

func runLicenseCheck(_ context.Context, args []string) error {
	fs, _ := flagSet("license-check")
	role := fs.String("role", string(license.RoleReviewers), "task role: Reviewers or Authors")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("need exactly one task configuration file")
	}
	r, err := license.ParseRole(*role)
	if err != nil {
		return err
	}
	c, err := license.LoadConfigFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := c.Validate(r); err != nil {
		return err
	}
	fmt.Printf("%s: valid %s task, open %s to %s (expires %s)\n", fs.Arg(0), r,
		license.FormatDate(c.Start), license.FormatDate(c.Due), license.FormatDate(c.Expiry))
	return nil
}
