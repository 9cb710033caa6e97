package oslili_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/adapters/oslili"
	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/purl2notices/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

var command = []string{"oslili", "{path}", "--format", "json"}

func location() domain.SourceLocation {
	return domain.SourceLocation{
		Identifier: domain.MustParseIdentifier("pkg:npm/express@4.18.0"),
		LocalPath:  "/downloads/express.tgz",
	}
}

func TestDetector_Detect(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   domain.Detection
	}{
		{
			name: "object",
			output: `{
				"licenses": [
					{"spdx_id": "MIT", "name": "MIT License", "text": "Permission is hereby granted", "confidence": 0.98},
					{"name": "NOASSERTION"},
					{"spdx_id": "", "name": ""}
				],
				"copyrights": [
					{"statement": "Copyright (c) 2009-2014 TJ Holowaychuk", "holder": "TJ Holowaychuk"},
					"Copyright (c) 2013 Roman Shtylman",
					{"statement": ""}
				]
			}`,
			want: domain.Detection{
				Licenses: []domain.LicenseFinding{
					{ID: "MIT", Text: "Permission is hereby granted"},
					{ID: "NOASSERTION"},
				},
				Copyrights: []string{
					"Copyright (c) 2009-2014 TJ Holowaychuk",
					"Copyright (c) 2013 Roman Shtylman",
				},
			},
		},
		{
			name: "one result per path",
			output: `[
				{"path": "LICENSE", "licenses": ["MIT"]},
				{"path": "lib/vendor.js", "licenses": ["ISC"], "copyrights": ["Copyright Isaac Z. Schlueter"]}
			]`,
			want: domain.Detection{
				Licenses:   []domain.LicenseFinding{{ID: "MIT"}, {ID: "ISC"}},
				Copyrights: []string{"Copyright Isaac Z. Schlueter"},
			},
		},
		{
			name:   "nothing found",
			output: `{"licenses": [], "copyrights": []}`,
			want:   domain.Detection{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			runner := mocks.NewMockCommandRunner(ctrl)
			runner.EXPECT().
				Run(gomock.Any(), []string{"oslili", "/downloads/express.tgz", "--format", "json"}).
				Return([]byte(tt.output), nil)

			got, err := oslili.NewDetector(runner, command).Detect(context.Background(), location())

			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want.Licenses, got.Licenses)
			assert.ElementsMatch(t, tt.want.Copyrights, got.Copyrights)
		})
	}
}

func TestDetector_Detect_Errors(t *testing.T) {
	t.Run("no local path", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		_, err := oslili.NewDetector(mocks.NewMockCommandRunner(ctrl), command).
			Detect(context.Background(), domain.SourceLocation{})

		assert.ErrorIs(t, err, domain.ErrNotRetryable)
	})

	t.Run("invalid output", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mocks.NewMockCommandRunner(ctrl)
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return([]byte("scanning...\n"), nil)

		_, err := oslili.NewDetector(runner, command).Detect(context.Background(), location())

		assert.ErrorIs(t, err, domain.ErrNotRetryable)
		assert.ErrorContains(t, err, domain.ErrToolOutputInvalid.Error())
	})

	t.Run("tool failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mocks.NewMockCommandRunner(ctrl)
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, domain.ErrToolFailed)

		_, err := oslili.NewDetector(runner, command).Detect(context.Background(), location())

		assert.ErrorContains(t, err, domain.ErrToolFailed.Error())
		assert.NotErrorIs(t, err, domain.ErrNotRetryable)
	})
}
