package domain

import (
	"slices"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Status is the resolution outcome of a package.
type Status string

const (
	// StatusResolved means all collaborators answered and the facts are usable.
	StatusResolved Status = "resolved"
	// StatusFailed means resolution failed after all retries.
	StatusFailed Status = "failed"
	// StatusSkipped marks an entry curated by hand that should neither be resolved nor rendered.
	StatusSkipped Status = "skipped"
)

// ParseStatus converts a string to a Status. Unknown values report false.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusResolved, StatusFailed, StatusSkipped:
		return Status(s), true
	default:
		return "", false
	}
}

// ResolvedPackage is the fact record for one identifier.
type ResolvedPackage struct {
	Identifier PackageIdentifier

	// Name and Version as declared by the package. They default to the identifier's.
	Name    string
	Version string

	// Licenses holds distinct SPDX atoms in first-seen order.
	Licenses []string

	// Copyrights holds distinct statements in first-seen order.
	Copyrights []string

	// LicenseTexts maps a license identifier to its full text.
	LicenseTexts map[string]string

	Homepage    string
	SourceURL   string
	Description string

	Status     Status
	Error      string
	ResolvedAt time.Time
}

// DisplayName returns "name@version".
func (p *ResolvedPackage) DisplayName() string {
	return displayName(p.DisplayBaseName(), p.DisplayVersion())
}

// DisplayBaseName returns the declared name or the identifier's name.
func (p *ResolvedPackage) DisplayBaseName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Identifier.Name()
}

// DisplayVersion returns the declared version or the identifier's version.
func (p *ResolvedPackage) DisplayVersion() string {
	if p.Version != "" {
		return p.Version
	}
	return p.Identifier.Version()
}

// AddLicense appends a normalized license identifier unless it is empty or already present.
func (p *ResolvedPackage) AddLicense(id string) {
	id = NormalizeLicenseID(id)
	if id == "" {
		return
	}
	for _, existing := range p.Licenses {
		if existing == id {
			return
		}
	}
	p.Licenses = append(p.Licenses, id)
}

// AddCopyright appends a statement unless an equal statement (after whitespace
// normalization) is already present.
func (p *ResolvedPackage) AddCopyright(statement string) {
	normalized := NormalizeStatement(statement)
	if normalized == "" {
		return
	}
	for _, existing := range p.Copyrights {
		if NormalizeStatement(existing) == normalized {
			return
		}
	}
	p.Copyrights = append(p.Copyrights, normalized)
}

// AddLicenseText records the text for a license unless one is already known.
func (p *ResolvedPackage) AddLicenseText(id, text string) {
	id = NormalizeLicenseID(id)
	if id == "" || strings.TrimSpace(text) == "" {
		return
	}
	if p.LicenseTexts == nil {
		p.LicenseTexts = make(map[string]string)
	}
	if _, ok := p.LicenseTexts[id]; !ok {
		p.LicenseTexts[id] = text
	}
}

// SourceLocation is where the source of a package can be obtained.
type SourceLocation struct {
	Identifier    PackageIdentifier
	DownloadURL   string
	RepositoryURL string
	Homepage      string

	// LocalPath is the downloaded archive, or a local file for scanned inputs.
	LocalPath string
}

// LicenseFinding is a license reported by a collaborator, optionally with its text.
type LicenseFinding struct {
	ID   string
	Text string
}

// Metadata is what the metadata extractor reports for a package archive.
type Metadata struct {
	Name        string
	Version     string
	Description string
	Homepage    string
	Repository  string

	// PURL is the identifier the extractor derived from the archive, if any.
	PURL string

	DeclaredLicenses []LicenseFinding
	Copyrights       []string
}

// Detection is what the license and copyright detector reports.
type Detection struct {
	Licenses   []LicenseFinding
	Copyrights []string
}

// ComposePackage merges the answers of the three collaborators into one resolved package.
// Declared licenses come before detected ones; copyrights are deduplicated by normalized text.
func ComposePackage(
	id PackageIdentifier,
	loc SourceLocation,
	meta Metadata,
	det Detection,
	at time.Time,
) ResolvedPackage {
	pkg := ResolvedPackage{
		Identifier:  id,
		Name:        meta.Name,
		Version:     meta.Version,
		Homepage:    firstNonEmpty(meta.Homepage, loc.Homepage),
		SourceURL:   firstNonEmpty(loc.DownloadURL, meta.Repository, loc.RepositoryURL),
		Description: strings.TrimSpace(meta.Description),
		Status:      StatusResolved,
		ResolvedAt:  at.UTC(),
	}
	if pkg.Name == "" {
		pkg.Name = id.Name()
	}
	if pkg.Version == "" {
		pkg.Version = id.Version()
	}

	for _, lic := range meta.DeclaredLicenses {
		pkg.AddLicense(lic.ID)
		pkg.AddLicenseText(lic.ID, lic.Text)
	}
	for _, lic := range det.Licenses {
		pkg.AddLicense(lic.ID)
		pkg.AddLicenseText(lic.ID, lic.Text)
	}
	for _, c := range meta.Copyrights {
		pkg.AddCopyright(c)
	}
	for _, c := range det.Copyrights {
		pkg.AddCopyright(c)
	}

	return pkg
}

// FailedPackage returns the record of an identifier whose resolution failed.
func FailedPackage(id PackageIdentifier, err error, at time.Time) ResolvedPackage {
	return ResolvedPackage{
		Identifier: id,
		Name:       id.Name(),
		Version:    id.Version(),
		Status:     StatusFailed,
		Error:      Describe(err),
		ResolvedAt: at.UTC(),
	}
}

// markers are joined to errors only to classify them.
var markers = []error{ErrNotRetryable, ErrInput, ErrResolution, ErrCacheCorrupt, ErrPersist, ErrBatchFailure}

// Describe renders err on one line and leaves out the classification markers.
func Describe(err error) string {
	switch e := err.(type) {
	case nil:
		return ""
	case interface{ Unwrap() []error }:
		var parts []string
		for _, inner := range e.Unwrap() {
			if slices.Contains(markers, inner) {
				continue
			}
			if s := Describe(inner); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case *zerr.Error:
		cause := Describe(e.Unwrap())
		switch {
		case e.Message() == "":
			return cause
		case cause == "":
			return e.Message()
		default:
			return e.Message() + ": " + cause
		}
	default:
		return err.Error()
	}
}

// NormalizeStatement collapses all runs of whitespace to single spaces and trims the ends.
// Case is preserved.
func NormalizeStatement(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var licenseAliases = map[string]string{
	"mit license":                 "MIT",
	"the mit license":             "MIT",
	"apache 2.0":                  "Apache-2.0",
	"apache-2":                    "Apache-2.0",
	"apache2":                     "Apache-2.0",
	"apache license 2.0":          "Apache-2.0",
	"apache license, version 2.0": "Apache-2.0",
	"apache software license":     "Apache-2.0",
	"bsd 3-clause":                "BSD-3-Clause",
	"bsd-3":                       "BSD-3-Clause",
	"new bsd":                     "BSD-3-Clause",
	"bsd 2-clause":                "BSD-2-Clause",
	"bsd-2":                       "BSD-2-Clause",
	"simplified bsd":              "BSD-2-Clause",
	"isc license":                 "ISC",
	"mozilla public license 2.0":  "MPL-2.0",
	"gnu lgpl v3":                 "LGPL-3.0-only",
	"the unlicense":               "Unlicense",
	"python software foundation":  "PSF-2.0",
	"eclipse public license 2.0":  "EPL-2.0",
}

// NormalizeLicenseID trims a license identifier and maps well-known spellings to SPDX ids.
// Placeholders such as NOASSERTION normalize to the empty string.
func NormalizeLicenseID(id string) string {
	id = strings.TrimSpace(id)
	switch strings.ToUpper(id) {
	case "", "NOASSERTION", "NONE", "UNKNOWN":
		return ""
	}
	if alias, ok := licenseAliases[strings.ToLower(id)]; ok {
		return alias
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
