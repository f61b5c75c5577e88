package aggregation

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSetup marks setup validation failures. They are the only errors besides
// cancellation that an aggregation run reports to its caller.
var ErrInvalidSetup = errors.New("invalid aggregation setup")

// SetupError describes one invalid setup field.
type SetupError struct {
	Setup   string
	Field   string
	Message string
}

func (e *SetupError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("setup %q: field '%s': %s", e.Setup, e.Field, e.Message)
	}
	return fmt.Sprintf("setup %q: %s", e.Setup, e.Message)
}

func (e *SetupError) Unwrap() error { return ErrInvalidSetup }

func setupErrorf(setup, field, format string, args ...any) *SetupError {
	return &SetupError{Setup: setup, Field: field, Message: fmt.Sprintf(format, args...)}
}

// rawSetup is the on-disk YAML shape.
type rawSetup struct {
	Name         string           `yaml:"name"`
	Begin        string           `yaml:"begin"` // optional, yyyy-mm-dd
	End          string           `yaml:"end"`   // optional, yyyy-mm-dd
	Force        bool             `yaml:"force"`
	Aggregations []rawAggregation `yaml:"aggregations"`
}

type rawAggregation struct {
	CatalogID string       `yaml:"catalog_id"`
	Filters   Filters      `yaml:"filters"`
	Periods   []string     `yaml:"periods"`
	Methods   []MethodSpec `yaml:"methods"`
}

// ParseSetup decodes and validates one setup document. The date range is only
// validated when present.
func ParseSetup(data []byte) (Setup, error) {
	var raw rawSetup
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Setup{}, fmt.Errorf("parsing setup: %w", err)
	}

	setup := Setup{
		Name:        raw.Name,
		Force:       raw.Force,
		Fingerprint: fmt.Sprintf("%x", sha256.Sum256(data)),
	}

	var err error
	if setup.Begin, err = parseDate(raw.Name, "begin", raw.Begin); err != nil {
		return Setup{}, err
	}
	if setup.End, err = parseDate(raw.Name, "end", raw.End); err != nil {
		return Setup{}, err
	}

	for i, ra := range raw.Aggregations {
		agg := Aggregation{
			CatalogID: ra.CatalogID,
			Filters:   ra.Filters,
			Methods:   ra.Methods,
		}
		for _, p := range ra.Periods {
			period, err := ParsePeriod(p)
			if err != nil {
				return Setup{}, setupErrorf(raw.Name, fmt.Sprintf("aggregations[%d].periods", i), "%v", err)
			}
			agg.Periods = append(agg.Periods, period)
		}
		setup.Aggregations = append(setup.Aggregations, agg)
	}

	if err := setup.ValidateAggregations(); err != nil {
		return Setup{}, err
	}
	if !setup.Begin.IsZero() || !setup.End.IsZero() {
		if err := setup.Validate(); err != nil {
			return Setup{}, err
		}
	}
	return setup, nil
}

func parseDate(setup, field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
	}
	if err != nil {
		return time.Time{}, setupErrorf(setup, field, "invalid date %q", value)
	}
	return t.UTC(), nil
}

// Validate checks the whole setup including its date range.
func (s Setup) Validate() error {
	if s.Begin.IsZero() || s.End.IsZero() {
		return setupErrorf(s.Name, "", "begin and end are required")
	}
	if !IsMidnight(s.Begin) {
		return setupErrorf(s.Name, "begin", "%s is not aligned to midnight UTC", s.Begin.Format(time.RFC3339))
	}
	if !IsMidnight(s.End) {
		return setupErrorf(s.Name, "end", "%s is not aligned to midnight UTC", s.End.Format(time.RFC3339))
	}
	if !s.Begin.Before(s.End) {
		return setupErrorf(s.Name, "end", "must be after begin")
	}
	return s.ValidateAggregations()
}

// ValidateAggregations checks every aggregation entry independent of the date range.
func (s Setup) ValidateAggregations() error {
	if len(s.Aggregations) == 0 {
		return setupErrorf(s.Name, "aggregations", "at least one aggregation is required")
	}
	for i, agg := range s.Aggregations {
		prefix := fmt.Sprintf("aggregations[%d]", i)
		if strings.TrimSpace(agg.CatalogID) == "" {
			return setupErrorf(s.Name, prefix+".catalog_id", "must not be empty")
		}
		if _, err := agg.Filters.Compile(); err != nil {
			return setupErrorf(s.Name, prefix+".filters", "%v", err)
		}
		if len(agg.Periods) == 0 {
			return setupErrorf(s.Name, prefix+".periods", "at least one period is required")
		}
		for _, p := range agg.Periods {
			if !DividesDay(p) {
				return setupErrorf(s.Name, prefix+".periods", "period %s does not divide one day", PeriodString(p))
			}
		}
		if len(agg.Methods) == 0 {
			return setupErrorf(s.Name, prefix+".methods", "at least one method is required")
		}
		for _, m := range agg.Methods {
			if !ValidMethod(m.Method) {
				return setupErrorf(s.Name, prefix+".methods", "unsupported method %q", m.Method)
			}
			if m.Method == MethodMeanPolar {
				if _, err := ParsePolarLimit(m.Argument); err != nil {
					return setupErrorf(s.Name, prefix+".methods", "%v", err)
				}
			}
		}
	}
	return nil
}

// Days returns the midnight timestamps of every day in [Begin, End).
func (s Setup) Days() []time.Time {
	var days []time.Time
	for d := s.Begin.UTC(); d.Before(s.End); d = d.Add(day) {
		days = append(days, d)
	}
	return days
}

// FilterSet holds compiled filter patterns. A nil pattern does not constrain.
type FilterSet struct {
	includeResource, excludeResource *regexp.Regexp
	includeGroup, excludeGroup       *regexp.Regexp
	includeUnit, excludeUnit         *regexp.Regexp
}

// Compile compiles all non-empty patterns.
func (f Filters) Compile() (*FilterSet, error) {
	var set FilterSet
	targets := []struct {
		name    string
		pattern string
		dst     **regexp.Regexp
	}{
		{"include_resource", f.IncludeResource, &set.includeResource},
		{"exclude_resource", f.ExcludeResource, &set.excludeResource},
		{"include_group", f.IncludeGroup, &set.includeGroup},
		{"exclude_group", f.ExcludeGroup, &set.excludeGroup},
		{"include_unit", f.IncludeUnit, &set.includeUnit},
		{"exclude_unit", f.ExcludeUnit, &set.excludeUnit},
	}
	for _, target := range targets {
		if target.pattern == "" {
			continue
		}
		re, err := regexp.Compile(target.pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", target.name, err)
		}
		*target.dst = re
	}
	return &set, nil
}

// Match applies all filters as a logical AND. Group filters match when any of the
// resource's groups matches; a resource without groups fails an include_group filter.
func (f *FilterSet) Match(resourceID string, groups []string, unit string) bool {
	if !includes(f.includeResource, resourceID) || excludes(f.excludeResource, resourceID) {
		return false
	}
	if f.includeGroup != nil && !anyMatch(f.includeGroup, groups) {
		return false
	}
	if f.excludeGroup != nil && anyMatch(f.excludeGroup, groups) {
		return false
	}
	return includes(f.includeUnit, unit) && !excludes(f.excludeUnit, unit)
}

func includes(re *regexp.Regexp, s string) bool { return re == nil || re.MatchString(s) }
func excludes(re *regexp.Regexp, s string) bool { return re != nil && re.MatchString(s) }

func anyMatch(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// SetupRepository defines the interface for loading aggregation setups.
type SetupRepository interface {
	// Get returns the setup with the given name, or an error if not found.
	Get(name string) (Setup, error)

	// GetSetups returns all setups ordered by name.
	GetSetups() []Setup
}

// FileSystemSetupRepository loads aggregation setups from *.yaml files in a directory.
// Each file contains exactly one setup. Setups are loaded once at startup.
type FileSystemSetupRepository struct {
	dir    string
	setups map[string]Setup // keyed by Name
}

// NewFileSystemSetupRepository creates a new repository and eagerly loads all setups
// from dir. Returns an error if any setup file is malformed or invalid.
func NewFileSystemSetupRepository(dir string) (*FileSystemSetupRepository, error) {
	repo := &FileSystemSetupRepository{
		dir:    dir,
		setups: make(map[string]Setup),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemSetupRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // zero setups configured
	}
	if err != nil {
		return fmt.Errorf("aggregation setup dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("aggregation setup path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading aggregation setup dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading setup file %s: %w", path, err)
		}

		var probe struct {
			Name string `yaml:"name"`
		}
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return fmt.Errorf("parsing setup file %s: %w", path, err)
		}
		if probe.Name == "" {
			continue // skip empty / comment-only files
		}

		setup, err := ParseSetup(data)
		if err != nil {
			return fmt.Errorf("setup file %s: %w", path, err)
		}
		if _, exists := r.setups[setup.Name]; exists {
			return fmt.Errorf("setup %q: duplicate setup name (check multiple YAML files)", setup.Name)
		}
		r.setups[setup.Name] = setup
	}
	return nil
}

// Get returns the setup with the given name, or an error if not found.
func (r *FileSystemSetupRepository) Get(name string) (Setup, error) {
	setup, ok := r.setups[name]
	if !ok {
		return Setup{}, fmt.Errorf("aggregation setup %q not found", name)
	}
	return setup, nil
}

// GetSetups returns all setups ordered by name.
func (r *FileSystemSetupRepository) GetSetups() []Setup {
	setups := make([]Setup, 0, len(r.setups))
	for _, setup := range r.setups {
		setups = append(setups, setup)
	}
	sort.Slice(setups, func(i, j int) bool { return setups[i].Name < setups[j].Name })
	return setups
}
