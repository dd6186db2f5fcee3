package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSnippet(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		code    string
		line    int
		want    string
		wantErr bool
	}{
		{name: "append", doc: "a\nb\n", code: "X", line: 0, want: "a\nb\nX\n"},
		{name: "append without trailing newline", doc: "a\nb", code: "X\n", line: 0, want: "a\nb\nX\n"},
		{name: "append to empty", doc: "", code: "X", line: 0, want: "X\n"},
		{name: "first line", doc: "a\nb\n", code: "X", line: 1, want: "X\na\nb\n"},
		{name: "middle", doc: "a\nb\n", code: "X", line: 2, want: "a\nX\nb\n"},
		{name: "after last newline", doc: "a\nb\n", code: "X", line: 3, want: "a\nb\nX\n"},
		{name: "past end", doc: "a\nb\n", code: "X", line: 4, wantErr: true},
		{name: "past end without newline", doc: "a\nb", code: "X", line: 3, wantErr: true},
		{name: "negative", doc: "a", code: "X", line: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InsertSnippet(tt.doc, tt.code, tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInsertIntoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, InsertIntoFile(path, "<button/>", 0))
	require.NoError(t, InsertIntoFile(path, "<form/>", 1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<form/>\n<button/>\n", string(data))

	assert.Error(t, InsertIntoFile(path, "x", 10))
}
