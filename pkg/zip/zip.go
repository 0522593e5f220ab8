package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// File is one entry of an in-memory archive.
type File struct {
	Name string
	Data []byte
}

// Archive packs the given files into a zip held entirely in memory. Session
// exports are small enough that buffering beats streaming here.
func Archive(files []File) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("zip: add %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize: %w", err)
	}
	return buf.Bytes(), nil
}
