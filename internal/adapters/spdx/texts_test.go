package spdx_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/purl2notices/internal/adapters/spdx"
	"go.trai.ch/purl2notices/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestTexts_Text(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MIT.txt"), []byte("MIT License\n\nPermission is hereby granted\n\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LicenseRef-Acme"), []byte("Acme terms"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Empty.txt"), []byte(" \n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(t.TempDir(), "secret.txt"), []byte("secret"), 0o600))

	ctrl := gomock.NewController(t)
	texts, err := spdx.NewTexts(dir, mocks.NewMockLogger(ctrl))
	require.NoError(t, err)

	tests := []struct {
		id    string
		want  string
		found bool
	}{
		{id: "MIT", want: "MIT License\n\nPermission is hereby granted\n", found: true},
		{id: " MIT ", want: "MIT License\n\nPermission is hereby granted\n", found: true},
		{id: "LicenseRef-Acme", want: "Acme terms\n", found: true},
		{id: "Apache-2.0"},
		{id: "Empty"},
		{id: "../secret"},
		{id: ".."},
		{id: ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, found := texts.Text(tt.id)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTexts_CachesLookups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ISC.txt")
	require.NoError(t, os.WriteFile(path, []byte("ISC License"), 0o600))

	ctrl := gomock.NewController(t)
	texts, err := spdx.NewTexts(dir, mocks.NewMockLogger(ctrl))
	require.NoError(t, err)

	_, found := texts.Text("ISC")
	require.True(t, found)
	_, found = texts.Text("BSD-2-Clause")
	require.False(t, found)

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BSD-2-Clause.txt"), []byte("BSD"), 0o600))

	got, found := texts.Text("ISC")
	assert.True(t, found)
	assert.Equal(t, "ISC License\n", got)
	_, found = texts.Text("BSD-2-Clause")
	assert.False(t, found)
}

func TestTexts_NoDirectory(t *testing.T) {
	ctrl := gomock.NewController(t)
	texts, err := spdx.NewTexts("", mocks.NewMockLogger(ctrl))
	require.NoError(t, err)

	_, found := texts.Text("MIT")
	assert.False(t, found)
}

func TestTexts_ReadErrorIsLogged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "MIT.txt"), 0o750))

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Error(gomock.Any()).Times(1)

	texts, err := spdx.NewTexts(dir, logger)
	require.NoError(t, err)

	_, found := texts.Text("MIT")
	assert.False(t, found)
	_, found = texts.Text("MIT")
	assert.False(t, found)
}
