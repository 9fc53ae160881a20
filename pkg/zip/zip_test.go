package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	data, err := ArchiveAssets([]Asset{
		{Filename: "p1.jpg", MIME: "image/jpeg", Data: []byte("one")},
		{Filename: "nested/p1.jpg", MIME: "image/jpeg", Data: []byte("two")},
		{Filename: "manifest.json", MIME: "application/json", Data: []byte(`[]`)},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets() error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	want := map[string]string{"p1.jpg": "one", "p1-1.jpg": "two", "manifest.json": "[]"}
	if len(zr.File) != len(want) {
		t.Fatalf("entries = %d", len(zr.File))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if want[f.Name] != string(body) {
			t.Fatalf("%s = %q", f.Name, body)
		}
		if f.Name == "p1.jpg" && f.Method != zip.Store {
			t.Fatalf("images should be stored, got method %d", f.Method)
		}
	}
}
