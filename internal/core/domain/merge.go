package domain

import (
	"encoding/json"
	"maps"
	"slices"
)

// LicenseChange records a package whose license set differs from its previous cache entry.
type LicenseChange struct {
	Identifier PackageIdentifier
	Previous   []string
	Current    []string
}

// MergeResult is the outcome of merging fresh entries into a cache.
type MergeResult struct {
	Cache    Cache
	Replaced int
	Added    int
	Changes  []LicenseChange
}

// Merge folds fresh entries into an existing cache.
//
// An entry whose identifier already exists replaces the old one at the same position and
// inherits its unknown fields. All other existing entries are kept untouched. New identifiers
// are appended in the order given. The existing cache is not modified.
func Merge(existing Cache, fresh []CacheEntry) MergeResult {
	entries := slices.Clone(existing.Entries)
	index := make(map[string]int, len(entries)+len(fresh))
	for i, e := range entries {
		index[e.Package.Identifier.Key()] = i
	}

	result := MergeResult{}
	seenFresh := make(map[string]bool, len(fresh))
	for _, f := range fresh {
		key := f.Package.Identifier.Key()
		pos, ok := index[key]
		if !ok {
			index[key] = len(entries)
			entries = append(entries, f)
			seenFresh[key] = true
			result.Added++
			continue
		}

		old := entries[pos]
		f.Extension = carryExtension(old.Extension, f.Extension)
		entries[pos] = f
		if seenFresh[key] {
			continue
		}
		seenFresh[key] = true
		result.Replaced++
		if change, changed := licenseChange(old.Package, f.Package); changed {
			result.Changes = append(result.Changes, change)
		}
	}

	result.Cache = Cache{Entries: entries, Extension: existing.Extension}
	return result
}

func carryExtension(old, fresh Extension) Extension {
	out := Extension{
		Fields:     make(map[string]json.RawMessage, len(old.Fields)+len(fresh.Fields)),
		Properties: slices.Clone(old.Properties),
	}
	maps.Copy(out.Fields, old.Fields)
	maps.Copy(out.Fields, fresh.Fields)
	if len(out.Fields) == 0 {
		out.Fields = nil
	}
	for _, p := range fresh.Properties {
		if !slices.Contains(out.Properties, p) {
			out.Properties = append(out.Properties, p)
		}
	}
	return out
}

func licenseChange(prev, cur ResolvedPackage) (LicenseChange, bool) {
	if prev.Status != StatusResolved || cur.Status != StatusResolved {
		return LicenseChange{}, false
	}
	a := sortedLicenses(prev.Licenses)
	b := sortedLicenses(cur.Licenses)
	if slices.Equal(a, b) {
		return LicenseChange{}, false
	}
	return LicenseChange{Identifier: cur.Identifier, Previous: a, Current: b}, true
}

func sortedLicenses(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
