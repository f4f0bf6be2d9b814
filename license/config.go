package license

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the accepted date format. The literal AOE suffix marks
// Anywhere on Earth time.
const DateLayout = "2006-01-02T15:04:05AOE"

// aoeOffset converts AOE wall time to UTC.
const aoeOffset = 12 * time.Hour

// ErrValidation is returned for task configurations that must not be posted.
var ErrValidation = errors.New("validation error")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Role selects who a task is set up for.
type Role string

const (
	RoleReviewers Role = "Reviewers"
	RoleAuthors   Role = "Authors"
)

// ParseRole accepts "Reviewers" or "Authors", ignoring case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "reviewers":
		return RoleReviewers, nil
	case "authors":
		return RoleAuthors, nil
	}
	return "", &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", s)}
}

// ParseDate parses an AOE date and returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q does not match %s", ErrValidation, s, DateLayout)
	}
	return t.Add(aoeOffset), nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.UTC().Add(-aoeOffset).Format(DateLayout)
}

// TaskConfig describes one license task.
type TaskConfig struct {
	Start  time.Time
	Due    time.Time
	Expiry time.Time

	// Title and Instructions are shown above the reviewer task.
	Title        string
	Instructions string

	// Form is the platform form definition of the license questions.
	Form map[string]any
}

type rawConfig struct {
	Start        string         `yaml:"start"`
	Due          string         `yaml:"due"`
	Expiry       string         `yaml:"expiry"`
	Title        string         `yaml:"title"`
	Instructions string         `yaml:"instructions"`
	Form         map[string]any `yaml:"license_form"`
}

// UnmarshalYAML decodes the file form, parsing AOE dates.
func (c *TaskConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw rawConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out := TaskConfig{Title: raw.Title, Instructions: raw.Instructions, Form: raw.Form}
	for _, d := range []struct {
		name string
		src  string
		dst  *time.Time
	}{
		{"start", raw.Start, &out.Start},
		{"due", raw.Due, &out.Due},
		{"expiry", raw.Expiry, &out.Expiry},
	} {
		if d.src == "" {
			continue
		}
		t, err := ParseDate(d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = t
	}
	*c = out
	return nil
}

// MarshalYAML encodes dates back to AOE.
func (c TaskConfig) MarshalYAML() (any, error) {
	raw := rawConfig{Title: c.Title, Instructions: c.Instructions, Form: c.Form}
	if !c.Start.IsZero() {
		raw.Start = FormatDate(c.Start)
	}
	if !c.Due.IsZero() {
		raw.Due = FormatDate(c.Due)
	}
	if !c.Expiry.IsZero() {
		raw.Expiry = FormatDate(c.Expiry)
	}
	return raw, nil
}

// ParseConfig decodes a YAML (or JSON) task configuration.
func ParseConfig(data []byte) (TaskConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return TaskConfig{}, fmt.Errorf("license: task config is empty")
	}
	var c TaskConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return TaskConfig{}, fmt.Errorf("license: decode task config: %w", err)
	}
	return c, nil
}

// LoadConfigFile reads a task configuration from path.
func LoadConfigFile(path string) (TaskConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TaskConfig{}, fmt.Errorf("license: read %s: %w", path, err)
	}
	c, err := ParseConfig(data)
	if err != nil {
		return TaskConfig{}, fmt.Errorf("license: %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the configuration for role: every date and the form are
// mandatory, reviewer tasks also need a title and instructions. The due date
// must lie after the start, the expiry at or after the due date.
func (c *TaskConfig) Validate(role Role) error {
	switch role {
	case RoleReviewers, RoleAuthors:
	default:
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}

	type requirement struct {
		field   string
		missing bool
	}
	required := []requirement{
		{"start", c.Start.IsZero()},
		{"due", c.Due.IsZero()},
		{"expiry", c.Expiry.IsZero()},
		{"license_form", len(c.Form) == 0},
	}
	if role == RoleReviewers {
		required = append(required,
			requirement{"title", strings.TrimSpace(c.Title) == ""},
			requirement{"instructions", strings.TrimSpace(c.Instructions) == ""},
		)
	}
	for _, r := range required {
		if r.missing {
			return &ValidationError{Field: r.field, Reason: "is mandatory"}
		}
	}

	if !c.Due.After(c.Start) {
		return &ValidationError{Field: "due", Reason: "must lie after the start date"}
	}
	if c.Expiry.Before(c.Due) {
		return &ValidationError{Field: "expiry", Reason: "must not lie before the due date"}
	}
	return nil
}
