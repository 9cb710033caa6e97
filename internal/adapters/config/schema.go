package config

// File represents the structure of the purl2notices.yaml configuration file.
// Pointer fields distinguish "not set" from zero values.
type File struct {
	General  *GeneralDTO  `yaml:"general"`
	Cache    *CacheDTO    `yaml:"cache"`
	Scanning *ScanningDTO `yaml:"scanning"`
	Output   *OutputDTO   `yaml:"output"`
	Tools    *ToolsDTO    `yaml:"tools"`
	Licenses *LicensesDTO `yaml:"licenses"`
}

// GeneralDTO represents the general section.
type GeneralDTO struct {
	Parallel        *int    `yaml:"parallel"`
	Timeout         *string `yaml:"timeout"`
	Retries         *int    `yaml:"retries"`
	Backoff         *string `yaml:"backoff"`
	GracePeriod     *string `yaml:"grace_period"`
	RunTimeout      *string `yaml:"run_timeout"`
	ContinueOnError *bool   `yaml:"continue_on_error"`
}

// CacheDTO represents the cache section.
type CacheDTO struct {
	Enabled       *bool   `yaml:"enabled"`
	Path          *string `yaml:"path"`
	CacheFailures *bool   `yaml:"cache_failures"`
}

// ScanningDTO represents the scanning section.
type ScanningDTO struct {
	Recursive *bool    `yaml:"recursive"`
	MaxDepth  *int     `yaml:"max_depth"`
	Exclude   []string `yaml:"exclude"`
}

// OutputDTO represents the output section.
type OutputDTO struct {
	Format             *string `yaml:"format"`
	GroupByLicense     *bool   `yaml:"group_by_license"`
	IncludeCopyright   *bool   `yaml:"include_copyright"`
	IncludeLicenseText *bool   `yaml:"include_license_text"`
	Template           *string `yaml:"template"`
}

// ToolsDTO represents the tools section.
type ToolsDTO struct {
	Purl2Src      []string `yaml:"purl2src"`
	Upmex         []string `yaml:"upmex"`
	Oslili        []string `yaml:"oslili"`
	DownloadsDir  *string  `yaml:"downloads_dir"`
	KeepDownloads *bool    `yaml:"keep_downloads"`
	UserAgent     *string  `yaml:"user_agent"`
}

// LicensesDTO represents the licenses section.
type LicensesDTO struct {
	TextsDir *string `yaml:"texts_dir"`
}
