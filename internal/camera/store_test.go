package camera

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleRegistry() Registry {
	return Registry{Data: []Camera{
		{Name: "Front Door", SourceURL: "rtsp://10.0.0.5/stream1", Sequence: 1, Active: true, StreamURL: "https://abc.ngrok.io/streams/Front_Door.m3u8"},
		{Name: "garage", SourceURL: "rtsp://10.0.0.6/h264", Sequence: 2, Active: false, StreamURL: "https://abc.ngrok.io/streams/garage.m3u8"},
	}}
}

func TestFileStore_round_trip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "config", "cameras.json"))

	cases := map[string]Registry{
		"empty":   {Data: []Camera{}},
		"two":     sampleRegistry(),
		"unicode": {Data: []Camera{{Name: "Hof Süd", SourceURL: "rtsp://h", Sequence: -3}}},
	}
	for name, reg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(reg); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(reg, got); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileStore_Load_missing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope", "cameras.json"))
	reg, err := store.Load()
	if err != nil {
		t.Fatalf("missing registry should not be an error: %v", err)
	}
	if reg.Data == nil || len(reg.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %#v", reg.Data)
	}
}

func TestFileStore_Load_malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.json")
	if err := os.WriteFile(path, []byte(`{"data": [ {"cam_name": `), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path).Load()
	if !errors.Is(err, ErrMalformedRegistry) {
		t.Errorf("expected ErrMalformedRegistry, got %v", err)
	}
}

func TestFileStore_Load_null_data(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.json")
	if err := os.WriteFile(path, []byte(`{"data": null}`), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Data == nil {
		t.Error("expected empty non-nil data")
	}
}

func TestFileStore_Save_document_format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.json")
	if err := NewFileStore(path).Save(sampleRegistry()); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(b)
	for _, want := range []string{`"data": [`, `"cam_name": "Front Door"`, `"rtsp_url"`, `"stream_url"`, `"sequence": 2`, `"active": false`} {
		if !strings.Contains(doc, want) {
			t.Errorf("expected %s in document:\n%s", want, doc)
		}
	}

	// No temporary files are left next to the document.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the registry document, got %d entries", len(entries))
	}
}

func TestInMemoryStore(t *testing.T) {
	store := NewInMemoryStore()
	reg := sampleRegistry()
	if err := store.Save(reg); err != nil {
		t.Fatal(err)
	}
	reg.Data[0].Name = "mutated"

	got, _ := store.Load()
	if got.Data[0].Name != "Front Door" {
		t.Error("store should keep its own copy of the snapshot")
	}
	if store.Saves() != 1 {
		t.Errorf("Saves: got %d", store.Saves())
	}
}
