// Package aggregate turns resolved packages into the presentation model handed to renderers.
package aggregate

import (
	"cmp"
	"slices"
	"strings"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
)

// Options are the display toggles plus the source of license texts no package carries.
type Options struct {
	IncludeCopyright   bool
	IncludeLicenseText bool
	GroupByLicense     bool
	// FallbackTexts may be nil.
	FallbackTexts ports.LicenseTextProvider
}

// OptionsFrom builds Options from the output configuration.
func OptionsFrom(cfg domain.OutputConfig, texts ports.LicenseTextProvider) Options {
	return Options{
		IncludeCopyright:   cfg.IncludeCopyright,
		IncludeLicenseText: cfg.IncludeLicenseText,
		GroupByLicense:     cfg.GroupByLicense,
		FallbackTexts:      texts,
	}
}

// Build groups packages by license set. packages must be in the order the identifiers
// were requested; copyright statements keep their first-seen position in that order.
// Failed packages are listed as unresolved and skipped packages are left out.
func Build(packages []domain.ResolvedPackage, opts Options) domain.PresentationModel {
	model := domain.PresentationModel{
		Options: domain.PresentationOptions{
			GroupByLicense:     opts.GroupByLicense,
			IncludeCopyright:   opts.IncludeCopyright,
			IncludeLicenseText: opts.IncludeLicenseText,
		},
	}

	var resolved []domain.ResolvedPackage
	for i := range packages {
		pkg := &packages[i]
		switch pkg.Status {
		case domain.StatusSkipped:
			continue
		case domain.StatusFailed:
			model.Unresolved = append(model.Unresolved, domain.UnresolvedPackage{
				Identifier:  pkg.Identifier.Key(),
				DisplayName: pkg.DisplayName(),
				Error:       pkg.Error,
			})
		default:
			resolved = append(resolved, *pkg)
		}
	}
	slices.SortStableFunc(model.Unresolved, func(a, b domain.UnresolvedPackage) int {
		return cmp.Or(cmp.Compare(a.DisplayName, b.DisplayName), cmp.Compare(a.Identifier, b.Identifier))
	})

	all := newStatements()
	groups := make(map[string]*domain.LicenseGroup)
	groupCopyrights := make(map[string]*statements)

	for i := range resolved {
		pkg := &resolved[i]
		notice := noticeFor(pkg, opts.IncludeCopyright)
		model.Packages = append(model.Packages, notice)

		if opts.IncludeCopyright {
			all.add(pkg.Copyrights...)
		}

		key := groupKey(notice.Licenses)
		group, ok := groups[key]
		if !ok {
			group = &domain.LicenseGroup{
				Key:       key,
				Licenses:  notice.Licenses,
				NoLicense: len(notice.Licenses) == 0,
			}
			groups[key] = group
			groupCopyrights[key] = newStatements()
		}
		group.Packages = append(group.Packages, notice)
		if opts.IncludeCopyright {
			groupCopyrights[key].add(pkg.Copyrights...)
		}
	}

	slices.SortStableFunc(model.Packages, comparePackages)
	model.Copyrights = all.list

	if opts.GroupByLicense {
		for key, group := range groups {
			slices.SortStableFunc(group.Packages, comparePackages)
			group.Copyrights = groupCopyrights[key].list
			model.Groups = append(model.Groups, *group)
		}
		slices.SortFunc(model.Groups, compareGroups)
	}

	licenseIDs := distinctLicenses(resolved)
	if opts.IncludeLicenseText {
		model.LicenseTexts = licenseTexts(licenseIDs, resolved, opts.FallbackTexts)
	}

	model.Summary = domain.Summary{
		Packages:   len(model.Packages),
		Groups:     len(groups),
		Licenses:   len(licenseIDs),
		Copyrights: len(model.Copyrights),
		Unresolved: len(model.Unresolved),
	}
	return model
}

func noticeFor(pkg *domain.ResolvedPackage, withCopyright bool) domain.PackageNotice {
	notice := domain.PackageNotice{
		Identifier:  pkg.Identifier.Key(),
		DisplayName: pkg.DisplayName(),
		Name:        pkg.DisplayBaseName(),
		Version:     pkg.DisplayVersion(),
		Licenses:    sortedLicenses(pkg.Licenses),
		Homepage:    pkg.Homepage,
	}
	if withCopyright {
		notice.Copyrights = slices.Clone(pkg.Copyrights)
	}
	return notice
}

// groupKey joins the sorted license set. The empty set maps to domain.NoLicenseGroupKey.
func groupKey(licenses []string) string {
	if len(licenses) == 0 {
		return domain.NoLicenseGroupKey
	}
	return strings.Join(licenses, ", ")
}

func sortedLicenses(ids []string) []string {
	var out []string
	for _, id := range ids {
		id = domain.NormalizeLicenseID(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func distinctLicenses(packages []domain.ResolvedPackage) []string {
	var ids []string
	for i := range packages {
		ids = append(ids, packages[i].Licenses...)
	}
	return sortedLicenses(ids)
}

// licenseTexts prefers the first text carried by a package over the fallback provider.
// Licenses without any known text are left out.
func licenseTexts(ids []string, packages []domain.ResolvedPackage, fallback ports.LicenseTextProvider) []domain.LicenseText {
	var out []domain.LicenseText
	for _, id := range ids {
		text := ""
		for i := range packages {
			if t, ok := packages[i].LicenseTexts[id]; ok && strings.TrimSpace(t) != "" {
				text = t
				break
			}
		}
		if text == "" && fallback != nil {
			text, _ = fallback.Text(id)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, domain.LicenseText{ID: id, Text: text})
	}
	return out
}

func comparePackages(a, b domain.PackageNotice) int {
	return cmp.Or(
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Version, b.Version),
		cmp.Compare(a.Identifier, b.Identifier),
	)
}

// compareGroups orders by key byte-wise and puts the no-license group last.
func compareGroups(a, b domain.LicenseGroup) int {
	if a.NoLicense != b.NoLicense {
		if a.NoLicense {
			return 1
		}
		return -1
	}
	return cmp.Compare(a.Key, b.Key)
}

// statements collects copyright statements, deduplicated by whitespace-collapsed text.
type statements struct {
	seen map[string]struct{}
	list []string
}

func newStatements() *statements {
	return &statements{seen: make(map[string]struct{})}
}

func (s *statements) add(values ...string) {
	for _, v := range values {
		normalized := domain.NormalizeStatement(v)
		if normalized == "" {
			continue
		}
		if _, ok := s.seen[normalized]; ok {
			continue
		}
		s.seen[normalized] = struct{}{}
		s.list = append(s.list, normalized)
	}
}
