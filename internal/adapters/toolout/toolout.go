// Package toolout decodes the JSON printed by the external extraction tools. The tools
// are loose about shapes: licenses and copyrights may be plain strings or objects.
package toolout

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/zerr"
)

// Decode unmarshals tool output into v. Decoding failures are not retryable.
func Decode(tool string, out []byte, v any) error {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return Invalid(tool, zerr.New("empty output"))
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return Invalid(tool, err)
	}
	return nil
}

// Invalid classifies err as a broken tool contract.
func Invalid(tool string, err error) error {
	return errors.Join(domain.ErrNotRetryable,
		zerr.With(zerr.Wrap(err, domain.ErrToolOutputInvalid.Error()), "tool", tool))
}

// License is a license entry given either as a string or as an object.
type License struct {
	ID   string
	Name string
	Text string
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *License) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = License{ID: s, Name: s}
		return nil
	}

	var obj struct {
		SPDXID string `json:"spdx_id"`
		ID     string `json:"id"`
		Name   string `json:"name"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return zerr.Wrap(err, "license must be a string or an object")
	}
	*l = License{ID: firstNonEmpty(obj.SPDXID, obj.ID, obj.Name), Name: obj.Name, Text: obj.Text}
	return nil
}

// Finding converts the entry to a domain license finding.
func (l License) Finding() domain.LicenseFinding {
	return domain.LicenseFinding{ID: l.ID, Text: l.Text}
}

// Copyright is a copyright entry given either as a string or as an object.
type Copyright struct {
	Statement string
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Copyright) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Statement = s
		return nil
	}

	var obj struct {
		Statement string `json:"statement"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return zerr.Wrap(err, "copyright must be a string or an object")
	}
	c.Statement = obj.Statement
	return nil
}

// StringOrList accepts a single string or a list of strings.
type StringOrList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringOrList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*s = nil
		} else {
			*s = StringOrList{single}
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return zerr.Wrap(err, "value must be a string or a list of strings")
	}
	*s = list
	return nil
}

// Findings converts licenses to findings, dropping entries without an identifier.
func Findings(licenses []License) []domain.LicenseFinding {
	out := make([]domain.LicenseFinding, 0, len(licenses))
	for _, l := range licenses {
		if strings.TrimSpace(l.ID) == "" {
			continue
		}
		out = append(out, l.Finding())
	}
	return out
}

// Statements converts copyrights to statements, dropping empty ones.
func Statements(copyrights []Copyright) []string {
	out := make([]string, 0, len(copyrights))
	for _, c := range copyrights {
		if strings.TrimSpace(c.Statement) == "" {
			continue
		}
		out = append(out, c.Statement)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
