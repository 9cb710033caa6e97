package cachefile

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	bomFormat   = "CycloneDX"
	specVersion = "1.6"

	propertyPrefix = "purl2notices:"

	propStatus      = propertyPrefix + "status"
	propCopyright   = propertyPrefix + "copyright"
	propResolvedAt  = propertyPrefix + "resolvedAt"
	propTool        = propertyPrefix + "tool"
	propToolVersion = propertyPrefix + "toolVersion"
	propError       = propertyPrefix + "error"
	propHomepage    = propertyPrefix + "homepage"
	propSourceURL   = propertyPrefix + "sourceUrl"
)

// Keys of a component object that are decoded into the package. Everything else is
// carried as an extension field.
var componentKeys = []string{"type", "bom-ref", "name", "version", "description", "purl", "licenses", "properties"}

// Keys of the document object that are owned by the codec.
var documentKeys = []string{"bomFormat", "specVersion", "version", "metadata", "components"}

type propertyJSON struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type licenseTextJSON struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
}

type licenseJSON struct {
	ID   string           `json:"id,omitempty"`
	Name string           `json:"name,omitempty"`
	Text *licenseTextJSON `json:"text,omitempty"`
}

type licenseChoiceJSON struct {
	License    *licenseJSON `json:"license,omitempty"`
	Expression string       `json:"expression,omitempty"`
}

// decode parses a validated cache document.
func decode(data []byte) (*domain.Cache, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(err, domain.ErrCacheUnmarshalFailed.Error())
	}

	var rawComponents []json.RawMessage
	if raw, ok := doc["components"]; ok {
		if err := json.Unmarshal(raw, &rawComponents); err != nil {
			return nil, zerr.Wrap(err, domain.ErrCacheUnmarshalFailed.Error())
		}
	}

	cache := &domain.Cache{
		Entries:   make([]domain.CacheEntry, 0, len(rawComponents)),
		Extension: domain.Extension{Fields: unknownFields(doc, documentKeys, "metadata")},
	}

	seen := make(map[string]int, len(rawComponents))
	for i, raw := range rawComponents {
		entry, err := decodeComponent(raw)
		if err != nil {
			return nil, zerr.With(err, "component", i)
		}

		key := entry.Package.Identifier.Key()
		if first, dup := seen[key]; dup {
			return nil, zerr.With(zerr.With(domain.ErrCacheDuplicateIdentifier, "purl", key), "components", []int{first, i})
		}
		seen[key] = i

		cache.Entries = append(cache.Entries, entry)
	}

	return cache, nil
}

func decodeComponent(raw json.RawMessage) (domain.CacheEntry, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, domain.ErrCacheUnmarshalFailed.Error())
	}

	var component struct {
		Name        string              `json:"name"`
		Version     string              `json:"version"`
		Description string              `json:"description"`
		Purl        string              `json:"purl"`
		Licenses    []licenseChoiceJSON `json:"licenses"`
		Properties  []propertyJSON      `json:"properties"`
	}
	if err := json.Unmarshal(raw, &component); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, domain.ErrCacheUnmarshalFailed.Error())
	}

	id, err := domain.ParseIdentifier(component.Purl)
	if err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, domain.ErrCacheSchemaViolation.Error())
	}

	pkg := domain.ResolvedPackage{
		Identifier:  id,
		Name:        component.Name,
		Version:     component.Version,
		Description: component.Description,
		Status:      domain.StatusResolved,
	}
	if pkg.Name == "" {
		pkg.Name = id.Name()
	}
	if pkg.Version == "" {
		pkg.Version = id.Version()
	}

	for _, choice := range component.Licenses {
		if choice.Expression != "" {
			pkg.AddLicense(choice.Expression)
			continue
		}
		if choice.License == nil {
			continue
		}
		licenseID := choice.License.ID
		if licenseID == "" {
			licenseID = choice.License.Name
		}
		pkg.AddLicense(licenseID)
		if choice.License.Text != nil {
			text, err := licenseText(choice.License.Text)
			if err != nil {
				return domain.CacheEntry{}, zerr.With(err, "purl", id.Key())
			}
			pkg.AddLicenseText(licenseID, text)
		}
	}

	entry := domain.CacheEntry{Package: pkg}
	for _, p := range component.Properties {
		switch p.Name {
		case propStatus:
			status, ok := domain.ParseStatus(p.Value)
			if !ok {
				return domain.CacheEntry{}, zerr.With(zerr.With(domain.ErrCacheSchemaViolation, "purl", id.Key()), "status", p.Value)
			}
			entry.Package.Status = status
		case propCopyright:
			entry.Package.AddCopyright(p.Value)
		case propResolvedAt:
			at, err := time.Parse(time.RFC3339, p.Value)
			if err != nil {
				return domain.CacheEntry{}, zerr.With(zerr.Wrap(err, domain.ErrCacheSchemaViolation.Error()), "purl", id.Key())
			}
			entry.Package.ResolvedAt = at.UTC()
			entry.Provenance.ResolvedAt = at.UTC()
		case propTool:
			entry.Provenance.Tool = p.Value
		case propToolVersion:
			entry.Provenance.ToolVersion = p.Value
		case propError:
			entry.Package.Error = p.Value
		case propHomepage:
			entry.Package.Homepage = p.Value
		case propSourceURL:
			entry.Package.SourceURL = p.Value
		default:
			entry.Extension.Properties = append(entry.Extension.Properties, domain.Property{Name: p.Name, Value: p.Value})
		}
	}

	entry.Extension.Fields = unknownFields(fields, componentKeys)
	entry.Extension.Raw = slices.Clone(raw)

	return entry, nil
}

func licenseText(t *licenseTextJSON) (string, error) {
	if t.Encoding != "base64" {
		return t.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(t.Content)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrCacheSchemaViolation.Error())
	}
	return string(decoded), nil
}

// unknownFields returns the entries of obj whose keys are not in known. Keys listed in keep
// are returned even though they are known.
func unknownFields(obj map[string]json.RawMessage, known []string, keep ...string) map[string]json.RawMessage {
	var out map[string]json.RawMessage
	for k, v := range obj {
		if slices.Contains(known, k) && !slices.Contains(keep, k) {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage)
		}
		out[k] = v
	}
	return out
}

// encode renders the cache as a deterministic, indented CycloneDX document.
func encode(cache *domain.Cache, toolVersion string) ([]byte, error) {
	components := make([]json.RawMessage, 0, len(cache.Entries))
	for _, entry := range cache.Entries {
		raw, err := encodeComponent(entry)
		if err != nil {
			return nil, zerr.With(err, "purl", entry.Package.Identifier.Key())
		}
		components = append(components, raw)
	}

	doc := orderedObject{}
	doc.set("bomFormat", bomFormat)
	doc.set("specVersion", specVersion)
	doc.set("version", 1)
	if md, ok := cache.Extension.Fields["metadata"]; ok {
		doc.setRaw("metadata", md)
	} else {
		doc.set("metadata", defaultMetadata(toolVersion))
	}
	doc.set("components", components)
	doc.extend(cache.Extension.Fields, documentKeys)

	compact, err := doc.MarshalJSON()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrCacheMarshalFailed.Error())
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, zerr.Wrap(err, domain.ErrCacheMarshalFailed.Error())
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

func encodeComponent(entry domain.CacheEntry) (json.RawMessage, error) {
	if len(entry.Extension.Raw) > 0 {
		return entry.Extension.Raw, nil
	}

	pkg := entry.Package
	key := pkg.Identifier.Key()

	obj := orderedObject{}
	obj.set("type", "library")
	obj.set("bom-ref", key)
	obj.set("name", pkg.DisplayBaseName())
	if v := pkg.DisplayVersion(); v != "" {
		obj.set("version", v)
	}
	if pkg.Description != "" {
		obj.set("description", pkg.Description)
	}
	obj.set("purl", key)
	if len(pkg.Licenses) > 0 {
		obj.set("licenses", encodeLicenses(pkg))
	}
	obj.set("properties", encodeProperties(entry))
	obj.extend(entry.Extension.Fields, componentKeys)

	raw, err := obj.MarshalJSON()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrCacheMarshalFailed.Error())
	}
	return raw, nil
}

func encodeLicenses(pkg domain.ResolvedPackage) []licenseChoiceJSON {
	out := make([]licenseChoiceJSON, 0, len(pkg.Licenses))
	for _, id := range pkg.Licenses {
		if isExpression(id) {
			out = append(out, licenseChoiceJSON{Expression: id})
			continue
		}

		lic := &licenseJSON{}
		if isSPDXID(id) {
			lic.ID = id
		} else {
			lic.Name = id
		}
		if text, ok := pkg.LicenseTexts[id]; ok {
			lic.Text = &licenseTextJSON{Content: text, ContentType: "text/plain"}
		}
		out = append(out, licenseChoiceJSON{License: lic})
	}
	return out
}

func encodeProperties(entry domain.CacheEntry) []propertyJSON {
	pkg := entry.Package
	status := pkg.Status
	if status == "" {
		status = domain.StatusResolved
	}

	props := []propertyJSON{{Name: propStatus, Value: string(status)}}
	for _, c := range pkg.Copyrights {
		props = append(props, propertyJSON{Name: propCopyright, Value: c})
	}
	if pkg.Error != "" {
		props = append(props, propertyJSON{Name: propError, Value: pkg.Error})
	}
	if pkg.Homepage != "" {
		props = append(props, propertyJSON{Name: propHomepage, Value: pkg.Homepage})
	}
	if pkg.SourceURL != "" {
		props = append(props, propertyJSON{Name: propSourceURL, Value: pkg.SourceURL})
	}

	at := entry.Provenance.ResolvedAt
	if at.IsZero() {
		at = pkg.ResolvedAt
	}
	if !at.IsZero() {
		props = append(props, propertyJSON{Name: propResolvedAt, Value: at.UTC().Format(time.RFC3339)})
	}
	if entry.Provenance.Tool != "" {
		props = append(props, propertyJSON{Name: propTool, Value: entry.Provenance.Tool})
	}
	if entry.Provenance.ToolVersion != "" {
		props = append(props, propertyJSON{Name: propToolVersion, Value: entry.Provenance.ToolVersion})
	}

	for _, p := range entry.Extension.Properties {
		props = append(props, propertyJSON{Name: p.Name, Value: p.Value})
	}
	return props
}

func defaultMetadata(toolVersion string) map[string]any {
	return map[string]any{
		"tools": map[string]any{
			"components": []map[string]string{{
				"type":    "application",
				"name":    domain.ToolName,
				"version": toolVersion,
			}},
		},
	}
}

func isExpression(id string) bool {
	for _, op := range []string{" OR ", " AND ", " WITH "} {
		if strings.Contains(id, op) {
			return true
		}
	}
	return false
}

// isSPDXID reports whether id looks like an SPDX license identifier. LicenseRef ids and
// free-form names are written as license names.
func isSPDXID(id string) bool {
	if id == "" || strings.HasPrefix(id, "LicenseRef-") {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '.', r == '+':
		default:
			return false
		}
	}
	return true
}

// orderedObject is a JSON object that keeps insertion order.
type orderedObject struct {
	keys   []string
	values map[string]json.RawMessage
	err    error
}

func (o *orderedObject) set(key string, v any) {
	if o.err != nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		o.err = err
		return
	}
	o.setRaw(key, raw)
}

func (o *orderedObject) setRaw(key string, raw json.RawMessage) {
	if o.values == nil {
		o.values = make(map[string]json.RawMessage)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
}

// extend appends fields not already present, in sorted key order. Keys in skip are ignored.
func (o *orderedObject) extend(fields map[string]json.RawMessage, skip []string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if slices.Contains(skip, k) {
			continue
		}
		if _, ok := o.values[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		o.setRaw(k, fields[k])
	}
}

// MarshalJSON implements json.Marshaler.
func (o orderedObject) MarshalJSON() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(o.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
