package aggregate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports/mocks"
	"go.trai.ch/purl2notices/internal/engine/aggregate"
	"go.uber.org/mock/gomock"
)

func resolved(purl string, licenses []string, copyrights ...string) domain.ResolvedPackage {
	id := domain.MustParseIdentifier(purl)
	pkg := domain.ComposePackage(id, domain.SourceLocation{}, domain.Metadata{}, domain.Detection{}, time.Time{})
	for _, l := range licenses {
		pkg.AddLicense(l)
	}
	for _, c := range copyrights {
		pkg.AddCopyright(c)
	}
	return pkg
}

func allOn() aggregate.Options {
	return aggregate.Options{IncludeCopyright: true, IncludeLicenseText: true, GroupByLicense: true}
}

func TestBuild_Groups(t *testing.T) {
	packages := []domain.ResolvedPackage{
		resolved("pkg:npm/left-pad@1.3.0", nil),
		resolved("pkg:npm/express@4.18.0", []string{"MIT"}, "Copyright (c) 2009-2014 TJ Holowaychuk"),
		resolved("pkg:pypi/requests@2.31.0", []string{"Apache-2.0"}, "Copyright 2019 Kenneth Reitz"),
		resolved("pkg:npm/body-parser@1.20.2", []string{"MIT"},
			"Copyright (c) 2014 Jonathan Ong", "Copyright (c)   2009-2014 TJ Holowaychuk"),
		resolved("pkg:npm/dual@1.0.0", []string{"MIT", "Apache-2.0"}),
	}

	model := aggregate.Build(packages, allOn())

	require.Len(t, model.Groups, 4)
	assert.Equal(t, "Apache-2.0", model.Groups[0].Key)
	assert.Equal(t, "Apache-2.0, MIT", model.Groups[1].Key)
	assert.Equal(t, []string{"Apache-2.0", "MIT"}, model.Groups[1].Licenses)
	assert.Equal(t, "MIT", model.Groups[2].Key)
	assert.Equal(t, domain.NoLicenseGroupKey, model.Groups[3].Key)
	assert.True(t, model.Groups[3].NoLicense)

	mit := model.Groups[2]
	require.Len(t, mit.Packages, 2)
	assert.Equal(t, "body-parser@1.20.2", mit.Packages[0].DisplayName)
	assert.Equal(t, "express@4.18.0", mit.Packages[1].DisplayName)
	// Input order, not display order.
	assert.Equal(t, []string{
		"Copyright (c) 2009-2014 TJ Holowaychuk",
		"Copyright (c) 2014 Jonathan Ong",
	}, mit.Copyrights)

	assert.Equal(t, []string{
		"Copyright (c) 2009-2014 TJ Holowaychuk",
		"Copyright 2019 Kenneth Reitz",
		"Copyright (c) 2014 Jonathan Ong",
	}, model.Copyrights)

	names := make([]string, 0, len(model.Packages))
	for _, p := range model.Packages {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"body-parser", "dual", "express", "left-pad", "requests"}, names)

	assert.Equal(t, domain.Summary{Packages: 5, Groups: 4, Licenses: 2, Copyrights: 3}, model.Summary)
}

func TestBuild_PackageOrderTiesOnVersionAndIdentifier(t *testing.T) {
	packages := []domain.ResolvedPackage{
		resolved("pkg:npm/lib@2.0.0", []string{"MIT"}),
		resolved("pkg:pypi/lib@1.0.0", []string{"MIT"}),
		resolved("pkg:npm/lib@1.0.0", []string{"MIT"}),
	}

	model := aggregate.Build(packages, allOn())

	require.Len(t, model.Groups, 1)
	var got []string
	for _, p := range model.Groups[0].Packages {
		got = append(got, p.Identifier)
	}
	assert.Equal(t, []string{"pkg:npm/lib@1.0.0", "pkg:pypi/lib@1.0.0", "pkg:npm/lib@2.0.0"}, got)
}

func TestBuild_FailedAndSkipped(t *testing.T) {
	skipped := resolved("pkg:npm/internal@1.0.0", []string{"Proprietary"})
	skipped.Status = domain.StatusSkipped

	packages := []domain.ResolvedPackage{
		domain.FailedPackage(domain.MustParseIdentifier("pkg:npm/zombie@1.0.0"), domain.ErrDownloadFailed, time.Time{}),
		resolved("pkg:npm/express@4.18.0", []string{"MIT"}),
		skipped,
		domain.FailedPackage(domain.MustParseIdentifier("pkg:npm/ghost@0.0.1"), domain.ErrNoSourceLocation, time.Time{}),
	}

	model := aggregate.Build(packages, allOn())

	require.Len(t, model.Unresolved, 2)
	assert.Equal(t, domain.UnresolvedPackage{
		Identifier:  "pkg:npm/ghost@0.0.1",
		DisplayName: "ghost@0.0.1",
		Error:       domain.ErrNoSourceLocation.Error(),
	}, model.Unresolved[0])
	assert.Equal(t, "zombie@1.0.0", model.Unresolved[1].DisplayName)

	require.Len(t, model.Packages, 1)
	assert.Equal(t, "express@4.18.0", model.Packages[0].DisplayName)
	assert.Equal(t, 1, model.Summary.Licenses)
	assert.Equal(t, 2, model.Summary.Unresolved)
}

func TestBuild_Toggles(t *testing.T) {
	pkg := resolved("pkg:npm/express@4.18.0", []string{"MIT"}, "Copyright (c) TJ")
	pkg.AddLicenseText("MIT", "MIT License\n")

	model := aggregate.Build([]domain.ResolvedPackage{pkg}, aggregate.Options{})

	assert.Empty(t, model.Groups)
	assert.Empty(t, model.Copyrights)
	assert.Empty(t, model.LicenseTexts)
	require.Len(t, model.Packages, 1)
	assert.Empty(t, model.Packages[0].Copyrights)
	assert.Equal(t, []string{"MIT"}, model.Packages[0].Licenses)
	assert.Equal(t, domain.PresentationOptions{}, model.Options)
}

func TestBuild_LicenseTexts(t *testing.T) {
	ctrl := gomock.NewController(t)
	texts := mocks.NewMockLicenseTextProvider(ctrl)
	texts.EXPECT().Text("Apache-2.0").Return("Apache License\n", true)
	texts.EXPECT().Text("Unknown-1.0").Return("", false)

	carried := resolved("pkg:npm/express@4.18.0", []string{"MIT"})
	carried.AddLicenseText("MIT", "MIT text from the package\n")
	other := resolved("pkg:npm/koa@2.0.0", []string{"MIT"})
	other.AddLicenseText("MIT", "another MIT text\n")

	opts := allOn()
	opts.FallbackTexts = texts
	model := aggregate.Build([]domain.ResolvedPackage{
		carried,
		other,
		resolved("pkg:pypi/requests@2.31.0", []string{"Apache-2.0"}),
		resolved("pkg:npm/odd@1.0.0", []string{"Unknown-1.0"}),
	}, opts)

	assert.Equal(t, []domain.LicenseText{
		{ID: "Apache-2.0", Text: "Apache License\n"},
		{ID: "MIT", Text: "MIT text from the package\n"},
	}, model.LicenseTexts)
}

func TestBuild_Empty(t *testing.T) {
	model := aggregate.Build(nil, allOn())

	assert.Empty(t, model.Groups)
	assert.Empty(t, model.Packages)
	assert.Empty(t, model.Unresolved)
	assert.Equal(t, domain.Summary{}, model.Summary)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	packages := []domain.ResolvedPackage{
		resolved("pkg:npm/b@1.0.0", []string{"MIT", "Apache-2.0"}),
		resolved("pkg:npm/a@1.0.0", []string{"MIT"}),
	}

	first := aggregate.Build(packages, allOn())
	second := aggregate.Build(packages, allOn())

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"MIT", "Apache-2.0"}, packages[0].Licenses)
	assert.Equal(t, "pkg:npm/b@1.0.0", packages[0].Identifier.Key())
}

func TestOptionsFrom(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Output.IncludeCopyright = false

	opts := aggregate.OptionsFrom(cfg.Output, nil)

	assert.False(t, opts.IncludeCopyright)
	assert.Equal(t, cfg.Output.GroupByLicense, opts.GroupByLicense)
	assert.Equal(t, cfg.Output.IncludeLicenseText, opts.IncludeLicenseText)
}
