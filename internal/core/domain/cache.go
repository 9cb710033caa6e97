package domain

import (
	"encoding/json"
	"time"
)

// Provenance records which tool produced a cache entry and when.
type Provenance struct {
	Tool        string
	ToolVersion string
	ResolvedAt  time.Time
}

// Property is a name/value pair as stored in the cache document.
type Property struct {
	Name  string
	Value string
}

// Extension carries the parts of a cache document this tool does not interpret.
// They are written back unchanged.
type Extension struct {
	// Fields are unknown keys of the JSON object.
	Fields map[string]json.RawMessage

	// Properties are properties outside the tool's namespace.
	Properties []Property

	// Raw is the entry exactly as it was loaded. It is cleared once the entry is replaced.
	Raw json.RawMessage
}

// IsEmpty reports whether the extension holds nothing.
func (e Extension) IsEmpty() bool {
	return len(e.Fields) == 0 && len(e.Properties) == 0 && len(e.Raw) == 0
}

// CacheEntry is one persisted package record.
type CacheEntry struct {
	Package    ResolvedPackage
	Provenance Provenance
	Extension  Extension
}

// NewCacheEntry wraps a freshly resolved package with provenance for the running tool.
func NewCacheEntry(pkg ResolvedPackage, toolVersion string) CacheEntry {
	return CacheEntry{
		Package: pkg,
		Provenance: Provenance{
			Tool:        ToolName,
			ToolVersion: toolVersion,
			ResolvedAt:  pkg.ResolvedAt,
		},
	}
}

// Cache is the ordered set of persisted entries plus unknown document-level fields.
type Cache struct {
	Entries   []CacheEntry
	Extension Extension
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return len(c.Entries)
}

// Lookup returns the entry for an identifier.
func (c *Cache) Lookup(id PackageIdentifier) (CacheEntry, bool) {
	for _, e := range c.Entries {
		if e.Package.Identifier.Key() == id.Key() {
			return e, true
		}
	}
	return CacheEntry{}, false
}

// Index maps identifier keys to their entry position.
func (c *Cache) Index() map[string]int {
	idx := make(map[string]int, len(c.Entries))
	for i, e := range c.Entries {
		idx[e.Package.Identifier.Key()] = i
	}
	return idx
}

// Packages returns the packages of all entries in cache order.
func (c *Cache) Packages() []ResolvedPackage {
	out := make([]ResolvedPackage, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e.Package)
	}
	return out
}

// Identifiers returns the identifiers of all entries in cache order.
func (c *Cache) Identifiers() []PackageIdentifier {
	out := make([]PackageIdentifier, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e.Package.Identifier)
	}
	return out
}

// CacheStats summarizes the contents of a cache.
type CacheStats struct {
	Entries            int
	Resolved           int
	Failed             int
	Skipped            int
	WithoutLicense     int
	WithoutCopyright   int
	DistinctLicenses   int
	DistinctCopyrights int
}

// Stats counts entries by status and completeness.
func (c *Cache) Stats() CacheStats {
	stats := CacheStats{Entries: len(c.Entries)}
	licenses := make(map[string]struct{})
	copyrights := make(map[string]struct{})
	for _, e := range c.Entries {
		switch e.Package.Status {
		case StatusResolved:
			stats.Resolved++
		case StatusFailed:
			stats.Failed++
		case StatusSkipped:
			stats.Skipped++
		}
		if e.Package.Status == StatusSkipped {
			continue
		}
		if len(e.Package.Licenses) == 0 {
			stats.WithoutLicense++
		}
		if len(e.Package.Copyrights) == 0 {
			stats.WithoutCopyright++
		}
		for _, l := range e.Package.Licenses {
			licenses[l] = struct{}{}
		}
		for _, cr := range e.Package.Copyrights {
			copyrights[NormalizeStatement(cr)] = struct{}{}
		}
	}
	stats.DistinctLicenses = len(licenses)
	stats.DistinctCopyrights = len(copyrights)
	return stats
}
