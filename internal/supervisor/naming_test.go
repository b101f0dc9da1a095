package supervisor

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"Front Door":       "Front_Door",
		"garage":           "garage",
		"cam-1.main":       "cam-1.main",
		"a/b\\c":           "a_b_c",
		"Hof  Süd":         "Hof__Süd",
		"  leading spaces": "__leading_spaces",
		"Кухня":            "Кухня",
		"cam?id=1#x":       "cam_id_1_x",
		"a:b*c|d<e>\"f":    "a_b_c_d_e__f",
		"tab\tnew\nline":   "tab_new_line",
	}
	for in, want := range cases {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q): got %q want %q", in, got, want)
		}
	}
}

func TestStreamURL(t *testing.T) {
	got := StreamURL("https://abc.ngrok.io/", "Front Door")
	if got != "https://abc.ngrok.io/streams/Front_Door.m3u8" {
		t.Errorf("StreamURL: got %q", got)
	}
	if !strings.HasSuffix(StreamURL("http://localhost:8000", "Front Door"), "/streams/Front_Door.m3u8") {
		t.Error("expected space-to-underscore substitution in URL")
	}
}

func TestSafeName_distinct_non_ascii(t *testing.T) {
	if a, b := SafeName("Кухня"), SafeName("Гараж"); a == b {
		t.Errorf("distinct names share stem %q", a)
	}
}

func TestStreamURL_escapes_non_ascii(t *testing.T) {
	got := StreamURL("https://abc.ngrok.io", "Кухня 2")
	want := "https://abc.ngrok.io/streams/%D0%9A%D1%83%D1%85%D0%BD%D1%8F_2.m3u8"
	if got != want {
		t.Errorf("StreamURL: got %q want %q", got, want)
	}
}

func TestPlaylistPath(t *testing.T) {
	if got, want := PlaylistPath("streams", "Front Door"), filepath.Join("streams", "Front_Door.m3u8"); got != want {
		t.Errorf("PlaylistPath: got %q want %q", got, want)
	}
}
