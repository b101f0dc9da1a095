package camera

import (
	"fmt"
	"strings"
)

// BuildPendingPlaylist returns a valid, empty live HLS playlist. It stands in
// for a camera's manifest until ffmpeg has written the first one, so players
// keep polling instead of giving up on a 404. No #EXT-X-ENDLIST is written.
func BuildPendingPlaylist(targetDuration int) string {
	if targetDuration <= 0 {
		targetDuration = 1
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString(fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", targetDuration))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	return b.String()
}
