// Package yyy collects peer-review data from reviewers who consented to
// donate it, and keeps it in a password-protected vault.
//
// A collection run reads the registration responses of a venue, keeps the
// reviews of reviewers who agreed, replaces every identifier by a salted
// iterated hash and appends the result to an encrypted archive. Consent
// records are stored in the same archive under a second password.
//
// # Quick Start
//
//	h, _ := anon.NewRandom()
//	res, err := yyy.Collect(ctx, platform, collect.Config{
//	    Venue:           "ICLR.cc/2024/Conference",
//	    TargetDir:       "./vault",
//	    Anonymizer:      h,
//	    StoreAgreements: true,
//	    Passwords:       vault.Passwords{Data: dataPW, Licenses: licensePW},
//	})
//
// Loading:
//
//	venues, err := yyy.LoadVault("./vault", vault.Passwords{Data: dataPW})
//	for name, d := range venues.All() {
//	    fmt.Println(name, d.NumReviews())
//	}
//
// # Packages
//
//   - archive: the encrypted, appendable container file
//   - anon: identifier anonymization
//   - dataset: the in-memory data model and left-biased merges
//   - vault: entry naming and the two password domains
//   - collect: the collection pipeline and the data source contract
//   - license: registration task configuration
//   - publish: mirroring archives to blob storage
//   - metrics/prom: Prometheus metrics for the operations of this package
//
// # Errors
//
// Package-level operations translate errors to the sentinels of this
// package (ErrAuthFailure, ErrNotFound, ErrEntryMissing, ErrConfiguration,
// ErrValidation, ErrCorrupt); the package errors stay reachable through
// errors.Is.
package yyy
