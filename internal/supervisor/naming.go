package supervisor

import (
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
)

// PlaylistExt is the extension of the HLS manifest each worker writes.
const PlaylistExt = ".m3u8"

// SafeName derives the filesystem-safe stem used for a camera's output files.
// Letters and digits in any script are kept, as are '.', '_' and '-'; anything
// else (whitespace, path separators, shell and URL punctuation, control
// characters) becomes an underscore, so "Front Door" becomes "Front_Door".
func SafeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// PlaylistPath is where the worker for name writes its manifest.
func PlaylistPath(outputDir, name string) string {
	return filepath.Join(outputDir, SafeName(name)+PlaylistExt)
}

// StreamURL is the public playback URL of the manifest for name. Non-ASCII
// stems are percent-encoded.
func StreamURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/streams/" + url.PathEscape(SafeName(name)+PlaylistExt)
}
