package domain

// NoLicenseGroupKey is the key of the group holding packages without any detected license.
const NoLicenseGroupKey = "no license detected"

// PresentationOptions are the display toggles honored by the aggregator and renderers.
type PresentationOptions struct {
	GroupByLicense     bool
	IncludeCopyright   bool
	IncludeLicenseText bool
}

// DefaultPresentationOptions enables every section of the document.
func DefaultPresentationOptions() PresentationOptions {
	return PresentationOptions{
		GroupByLicense:     true,
		IncludeCopyright:   true,
		IncludeLicenseText: true,
	}
}

// PackageNotice is one package as shown in the document.
type PackageNotice struct {
	Identifier  string
	DisplayName string
	Name        string
	Version     string
	Licenses    []string
	Copyrights  []string
	Homepage    string
}

// LicenseGroup is a set of packages sharing exactly the same license set.
type LicenseGroup struct {
	// Key is the sorted license ids joined with ", ", or NoLicenseGroupKey.
	Key        string
	Licenses   []string
	NoLicense  bool
	Packages   []PackageNotice
	Copyrights []string
}

// UnresolvedPackage is a package listed separately because resolution failed.
type UnresolvedPackage struct {
	Identifier  string
	DisplayName string
	Error       string
}

// LicenseText is the full text of one license shown in the document.
type LicenseText struct {
	ID   string
	Text string
}

// Summary counts what went into the document.
type Summary struct {
	Packages   int
	Groups     int
	Licenses   int
	Copyrights int
	Unresolved int
}

// PresentationModel is the normalized input handed to renderers.
type PresentationModel struct {
	Groups       []LicenseGroup
	Packages     []PackageNotice
	Unresolved   []UnresolvedPackage
	LicenseTexts []LicenseText
	Copyrights   []string
	Options      PresentationOptions
	Summary      Summary
}
