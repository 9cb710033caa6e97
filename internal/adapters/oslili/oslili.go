// Package oslili detects licenses and copyright statements in package sources with the
// oslili tool.
package oslili

import (
	"bytes"
	"context"
	"errors"

	"go.trai.ch/purl2notices/internal/adapters/shell"
	"go.trai.ch/purl2notices/internal/adapters/toolout"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
)

const toolName = "oslili"

var _ ports.LicenseDetector = (*Detector)(nil)

type result struct {
	Path       string              `json:"path"`
	Licenses   []toolout.License   `json:"licenses"`
	Copyrights []toolout.Copyright `json:"copyrights"`
}

// Detector implements ports.LicenseDetector over oslili.
type Detector struct {
	runner  ports.CommandRunner
	command []string
}

// NewDetector creates a Detector. command is the oslili command template.
func NewDetector(runner ports.CommandRunner, command []string) *Detector {
	return &Detector{runner: runner, command: command}
}

// Detect scans the archive or directory at loc.LocalPath.
func (d *Detector) Detect(ctx context.Context, loc domain.SourceLocation) (domain.Detection, error) {
	if loc.LocalPath == "" {
		return domain.Detection{}, errors.Join(domain.ErrNotRetryable,
			zerr.With(zerr.New("no local source to scan"), "purl", loc.Identifier.Key()))
	}

	argv := shell.Expand(d.command, map[string]string{
		"path": loc.LocalPath,
		"purl": loc.Identifier.Key(),
	})
	out, err := d.runner.Run(ctx, argv)
	if err != nil {
		return domain.Detection{}, zerr.With(err, "path", loc.LocalPath)
	}

	results, err := decode(out)
	if err != nil {
		return domain.Detection{}, zerr.With(err, "path", loc.LocalPath)
	}

	var det domain.Detection
	for _, r := range results {
		det.Licenses = append(det.Licenses, toolout.Findings(r.Licenses)...)
		det.Copyrights = append(det.Copyrights, toolout.Statements(r.Copyrights)...)
	}
	return det, nil
}

// decode accepts a single result object or one object per scanned path.
func decode(out []byte) ([]result, error) {
	if bytes.HasPrefix(bytes.TrimSpace(out), []byte("[")) {
		var results []result
		if err := toolout.Decode(toolName, out, &results); err != nil {
			return nil, err
		}
		return results, nil
	}

	var single result
	if err := toolout.Decode(toolName, out, &single); err != nil {
		return nil, err
	}
	return []result{single}, nil
}

