// Package render turns the presentation model into a notice document.
package render

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports"
	"go.trai.ch/zerr"
)

//go:embed templates/*.tmpl
var templates embed.FS

var _ ports.NoticeRenderer = (*Renderer)(nil)

var funcs = map[string]any{
	"join": strings.Join,
	"rule": strings.Repeat,
	"trim": strings.TrimSpace,
}

// executor is satisfied by both text/template and html/template templates.
type executor interface {
	Execute(w io.Writer, data any) error
}

// Renderer implements ports.NoticeRenderer with text/template and html/template.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes the document for model to w. Nothing is written when rendering fails.
func (r *Renderer) Render(w io.Writer, model *domain.PresentationModel, opts ports.RenderOptions) error {
	format, err := domain.ParseFormat(string(opts.Format))
	if err != nil {
		return err
	}

	tmpl, err := load(format, opts.TemplatePath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, model); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrRenderFailed.Error()), "format", string(format))
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return zerr.Wrap(err, domain.ErrOutputWriteFailed.Error())
	}
	return nil
}

func load(format domain.Format, path string) (executor, error) {
	name := "default." + extension(format) + ".tmpl"
	var source []byte
	var err error
	if path == "" {
		source, err = templates.ReadFile("templates/" + name)
	} else {
		name = filepath.Base(path)
		source, err = os.ReadFile(path) //nolint:gosec // G304: template path is chosen by the user
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrTemplateParseFailed.Error()), "template", name)
	}

	var tmpl executor
	if format == domain.FormatHTML {
		tmpl, err = htmltemplate.New(name).Funcs(funcs).Parse(string(source))
	} else {
		tmpl, err = texttemplate.New(name).Funcs(funcs).Parse(string(source))
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrTemplateParseFailed.Error()), "template", name)
	}
	return tmpl, nil
}

func extension(format domain.Format) string {
	if format == domain.FormatHTML {
		return "html"
	}
	return "txt"
}
