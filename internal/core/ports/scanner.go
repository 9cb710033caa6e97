package ports

import "context"

// ScanOptions bound a directory walk.
type ScanOptions struct {
	Recursive bool
	MaxDepth  int
	Exclude   []string
}

// DirectoryScanner finds package manifests and archives below a directory.
//
//go:generate mockgen -source=scanner.go -destination=mocks/mock_scanner.go -package=mocks
type DirectoryScanner interface {
	// Scan returns candidate files in lexical walk order.
	Scan(ctx context.Context, root string, opts ScanOptions) ([]string, error)
}
