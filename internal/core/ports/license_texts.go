package ports

// LicenseTextProvider supplies full license texts by SPDX identifier.
//
//go:generate mockgen -source=license_texts.go -destination=mocks/mock_license_texts.go -package=mocks
type LicenseTextProvider interface {
	// Text returns the text for id and whether one is known.
	Text(id string) (string, bool)
}
