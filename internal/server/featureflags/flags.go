// Package featureflags is the read-only registry of runtime feature flags.
//
// Raw values come from the environment through the config layer and are
// resolved once at start; the resulting Registry is immutable and safe for
// concurrent use.
package featureflags

import "sort"

// Flag names a runtime feature flag.
type Flag string

const (
	LegacyMigration Flag = "legacyMigration"
	ModernAuth      Flag = "modernAuth"
)

// Definition binds a flag to the environment variable it is read from.
type Definition struct {
	Flag Flag
	Env  string
}

// Definitions lists every known flag. Adding a flag means adding a line here.
var Definitions = []Definition{
	{Flag: LegacyMigration, Env: "ENABLE_LEGACY_MIGRATION"},
	{Flag: ModernAuth, Env: "ENABLE_MODERN_AUTH"},
}

const (
	WarnLegacyUsersLockedOut = "modern auth is enabled but legacy migration is disabled: existing legacy users cannot log in"
	WarnAuthUnusable         = "both modern auth and legacy migration are disabled: authentication is unusable"
)

// Validation is the advisory result of Validate.
type Validation struct {
	OK       bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

// Registry is an immutable view over resolved flag values.
type Registry struct {
	values map[Flag]bool
}

// Parse coerces a raw value: exactly "true" enables, anything else disables.
func Parse(value string) bool {
	return value == "true"
}

// New resolves raw string values keyed by flag. Known flags missing from raw
// resolve to false; unknown keys are kept so the set stays extensible.
func New(raw map[Flag]string) *Registry {
	values := make(map[Flag]bool, len(Definitions)+len(raw))
	for _, d := range Definitions {
		values[d.Flag] = false
	}
	for f, v := range raw {
		values[f] = Parse(v)
	}
	return &Registry{values: values}
}

// FromLookup resolves every known flag through lookup, usually a koanf or
// os.LookupEnv accessor keyed by environment variable name.
func FromLookup(lookup func(env string) (string, bool)) *Registry {
	raw := make(map[Flag]string, len(Definitions))
	for _, d := range Definitions {
		if v, ok := lookup(d.Env); ok {
			raw[d.Flag] = v
		}
	}
	return New(raw)
}

// IsEnabled reports whether f is on. Unknown flags are off.
func (r *Registry) IsEnabled(f Flag) bool {
	if r == nil {
		return false
	}
	return r.values[f]
}

// Snapshot returns a copy of all flag values keyed by name.
func (r *Registry) Snapshot() map[string]bool {
	out := make(map[string]bool, len(r.values))
	for f, v := range r.values {
		out[string(f)] = v
	}
	return out
}

// Names returns the flag names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.values))
	for f := range r.values {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// Validate checks for incoherent combinations. It never fails.
func (r *Registry) Validate() Validation {
	modern := r.IsEnabled(ModernAuth)
	legacy := r.IsEnabled(LegacyMigration)

	warnings := []string{}
	if modern && !legacy {
		warnings = append(warnings, WarnLegacyUsersLockedOut)
	}
	if !modern && !legacy {
		warnings = append(warnings, WarnAuthUnusable)
	}
	return Validation{OK: len(warnings) == 0, Warnings: warnings}
}

// AuthUsable reports whether at least one login path is open.
func (r *Registry) AuthUsable() bool {
	return r.IsEnabled(ModernAuth) || r.IsEnabled(LegacyMigration)
}
