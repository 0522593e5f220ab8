// Package formdata decodes multipart/form-data request bodies.
//
// The decoder operates on a fully buffered body: it scans for boundary
// markers, splits each part into a header block and content bytes, and
// classifies parts as text fields or file uploads based on the
// Content-Disposition filename attribute. It deliberately avoids streaming;
// the caller is responsible for capping the body size before decoding.
package formdata

import (
	"bytes"
	"errors"
	"mime"
	"strings"
)

// ErrNoBoundary indicates the Content-Type header carried no usable
// multipart boundary token.
var ErrNoBoundary = errors.New("formdata: boundary not found in content type")

// File is one uploaded file part.
type File struct {
	FieldName string
	Filename  string
	MimeType  string
	Data      []byte
}

// Form is the decoded body: named text fields plus uploaded files.
type Form struct {
	Fields map[string]string
	Files  []File
}

var (
	crlf       = []byte("\r\n")
	doubleCRLF = []byte("\r\n\r\n")
)

// Decode parses a buffered multipart/form-data body using the boundary from
// contentType. Parts lacking a parseable Content-Disposition header are
// skipped rather than failing the whole body.
func Decode(contentType string, body []byte) (*Form, error) {
	boundary := boundaryFrom(contentType)
	if boundary == "" {
		return nil, ErrNoBoundary
	}

	form := &Form{Fields: make(map[string]string)}

	// Boundary delimiters appear as "--boundary"; the segment before the
	// first delimiter is the preamble and the one after the final
	// "--boundary--" marker is the epilogue. Both are discarded.
	segments := splitBytes(body, []byte("--"+boundary))
	for i := 1; i < len(segments)-1; i++ {
		part := bytes.TrimPrefix(segments[i], crlf)
		headerEnd := bytes.Index(part, doubleCRLF)
		if headerEnd < 0 {
			continue
		}
		content := bytes.TrimSuffix(part[headerEnd+len(doubleCRLF):], crlf)

		name, filename, mimeType, ok := parsePartHeaders(string(part[:headerEnd]))
		if !ok {
			continue
		}
		if filename != "" {
			form.Files = append(form.Files, File{
				FieldName: name,
				Filename:  filename,
				MimeType:  mimeType,
				Data:      content,
			})
		} else {
			form.Fields[name] = string(content)
		}
	}

	return form, nil
}

func boundaryFrom(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["boundary"]
}

// splitBytes splits buf on every occurrence of sep, always returning at
// least one segment.
func splitBytes(buf, sep []byte) [][]byte {
	var parts [][]byte
	start := 0
	for {
		idx := bytes.Index(buf[start:], sep)
		if idx < 0 {
			break
		}
		parts = append(parts, buf[start:start+idx])
		start += idx + len(sep)
	}
	return append(parts, buf[start:])
}

// parsePartHeaders extracts the field name, optional filename and declared
// content type from a part's header block. ok is false when no usable
// Content-Disposition header is present.
func parsePartHeaders(block string) (name, filename, mimeType string, ok bool) {
	mimeType = "application/octet-stream"
	for _, line := range strings.Split(block, "\r\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "content-disposition":
			disposition, params, err := mime.ParseMediaType(value)
			if err != nil || disposition != "form-data" || params["name"] == "" {
				continue
			}
			name = params["name"]
			filename = params["filename"]
			ok = true
		case "content-type":
			if value != "" {
				mimeType = value
			}
		}
	}
	return name, filename, mimeType, ok
}
