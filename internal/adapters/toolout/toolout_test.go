package toolout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/adapters/toolout"
	"go.trai.ch/purl2notices/internal/core/domain"
)

type report struct {
	Licenses   []toolout.License    `json:"licenses"`
	Copyrights []toolout.Copyright  `json:"copyrights"`
	Authors    toolout.StringOrList `json:"authors"`
}

func TestDecode_MixedShapes(t *testing.T) {
	out := []byte(`{
		"licenses": [
			"MIT",
			{"spdx_id": "Apache-2.0", "name": "Apache License 2.0", "text": "Apache text"},
			{"id": "ISC"},
			{"name": "Custom License"},
			{"confidence": 0.2}
		],
		"copyrights": [
			"Copyright (c) 2020 Foo",
			{"statement": "Copyright 2021 Bar", "holders": ["Bar"]},
			{"year_start": 2020}
		],
		"authors": "Jane Doe"
	}`)

	var r report
	require.NoError(t, toolout.Decode("oslili", out, &r))

	assert.Equal(t, []domain.LicenseFinding{
		{ID: "MIT"},
		{ID: "Apache-2.0", Text: "Apache text"},
		{ID: "ISC"},
		{ID: "Custom License"},
	}, toolout.Findings(r.Licenses))
	assert.Equal(t, []string{"Copyright (c) 2020 Foo", "Copyright 2021 Bar"}, toolout.Statements(r.Copyrights))
	assert.Equal(t, toolout.StringOrList{"Jane Doe"}, r.Authors)
}

func TestDecode_StringOrList(t *testing.T) {
	var r report
	require.NoError(t, toolout.Decode("upmex", []byte(`{"authors": ["A", "B"]}`), &r))
	assert.Equal(t, toolout.StringOrList{"A", "B"}, r.Authors)

	r = report{}
	require.NoError(t, toolout.Decode("upmex", []byte(`{"authors": null}`), &r))
	assert.Nil(t, r.Authors)
}

func TestDecode_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":           "  \n",
		"not json":        "Traceback (most recent call last):",
		"license number":  `{"licenses": [42]}`,
		"copyright array": `{"copyrights": [["x"]]}`,
	}

	for name, out := range tests {
		t.Run(name, func(t *testing.T) {
			var r report
			err := toolout.Decode("oslili", []byte(out), &r)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrNotRetryable)
			assert.ErrorContains(t, err, domain.ErrToolOutputInvalid.Error())
		})
	}
}
