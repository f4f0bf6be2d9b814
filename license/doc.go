// Package license configures the registration tasks through which reviewers
// and authors grant (or refuse) a license to their data.
//
// A task is described by a TaskConfig, usually loaded from YAML:
//
//	start: 2024-05-01T00:00:00AOE
//	due: 2024-05-15T23:59:59AOE
//	expiry: 2024-06-01T23:59:59AOE
//	title: Data donation
//	instructions: Please read the license below.
//	license_form:
//	  Agreement:
//	    order: 1
//	    value-radio: [I agree, I do not agree]
//
// Dates are given in Anywhere on Earth time (UTC-12) and kept in UTC.
// Configurations are validated before anything is posted to the platform.
package license
