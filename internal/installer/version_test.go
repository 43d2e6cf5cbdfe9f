package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("4.12.0.233")
	require.NoError(t, err)
	assert.Equal(t, Version{4, 12, 0, 233}, v)
	assert.Equal(t, "4.12.0.233", v.String())

	v, err = ParseVersion(" 4.12 \n")
	require.NoError(t, err)
	assert.Equal(t, Version{4, 12}, v)
}

func TestParseVersionErrors(t *testing.T) {
	for _, s := range []string{"", "four.twelve", "4.12.x", "4..12"} {
		_, err := ParseVersion(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"4.12.0", "4.12.0", 0},
		{"4.12", "4.12.0", 0},
		{"4.12.0.233", "4.12.0.234", -1},
		{"4.12.1", "4.12.0.999", 1},
		{"5.0", "4.99.99", 1},
		{"4.12", "4.12.0.1", -1},
	}

	for _, tt := range tests {
		a, err := ParseVersion(tt.a)
		require.NoError(t, err)
		b, err := ParseVersion(tt.b)
		require.NoError(t, err)

		assert.Equal(t, tt.want, a.Compare(b), "%s vs %s", tt.a, tt.b)
	}
}

const downloadPageHTML = `<html>
<body>
<h1>Cloud Drive Client Downloads</h1>
<p>Current version: 4.12.0.233 (released 2026-07-01)</p>
<a href="https://downloads.example.com/client/clouddrive-4.12.0.233.msi">Windows installer</a>
<a href="https://downloads.example.com/client/clouddrive-4.12.0.233.dmg">macOS installer</a>
</body>
</html>`

func TestParseDownloadPage(t *testing.T) {
	v, url, err := ParseDownloadPage([]byte(downloadPageHTML))
	require.NoError(t, err)

	assert.Equal(t, "4.12.0.233", v.String())
	assert.Equal(t, "https://downloads.example.com/client/clouddrive-4.12.0.233.msi", url)
}

func TestParseDownloadPageVersionCaseInsensitive(t *testing.T) {
	page := `CURRENT VERSION 2.5.1 <a href="http://x.example/pkg.msi">dl</a>`

	v, _, err := ParseDownloadPage([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "2.5.1", v.String())
}

func TestParseDownloadPageMissingPieces(t *testing.T) {
	_, _, err := ParseDownloadPage([]byte("<html>nothing here</html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no version found")

	_, _, err = ParseDownloadPage([]byte("Current version: 4.12.0 but no link"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no package URL")
}
