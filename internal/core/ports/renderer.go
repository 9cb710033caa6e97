package ports

import (
	"io"

	"go.trai.ch/purl2notices/internal/core/domain"
)

// RenderOptions select the output format and an optional custom template.
type RenderOptions struct {
	Format       domain.Format
	TemplatePath string
}

// NoticeRenderer turns a presentation model into a document.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type NoticeRenderer interface {
	Render(w io.Writer, model *domain.PresentationModel, opts RenderOptions) error
}
