package raster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRasterizeRejectsBadDPI(t *testing.T) {
	_, err := New().Rasterize(context.Background(), "unused.pdf", 0)
	require.Error(t, err)
}

func TestRasterizeCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o600))

	_, err := New().Rasterize(context.Background(), path, 72)
	require.Error(t, err)
}

// minimalPDF has two blank pages of 144x72 points. The xref table is left
// out; MuPDF rebuilds it on open.
const minimalPDF = `%PDF-1.4
1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj
2 0 obj << /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >> endobj
3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 144 72] >> endobj
4 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 144 72] >> endobj
trailer << /Root 1 0 R /Size 5 >>
%%EOF
`

func TestRasterizePages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.pdf")
	require.NoError(t, os.WriteFile(path, []byte(minimalPDF), 0o600))

	pages, err := New().Rasterize(context.Background(), path, 144)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	for _, p := range pages {
		require.Equal(t, 288, p.Bounds().Dx())
		require.Equal(t, 144, p.Bounds().Dy())
	}
}
