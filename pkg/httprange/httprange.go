// Package httprange serves large media bodies with single-range resume
// support. Multi-range requests collapse to their first clause; invalid or
// unsatisfiable Range headers degrade to a full 200 response.
package httprange

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ChunkSize is the copy buffer used when streaming bodies.
const ChunkSize = 8 * 1024

// ByteRange is a half-open request window resolved against a known size.
type ByteRange struct {
	Start  int64
	End    int64 // inclusive
	Length int64
}

// ContentRange formats the Content-Range header value for a 206 response.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Parse resolves a Range header against the resource size. It returns nil
// when the full body should be served: no header, malformed header,
// multi-range request, or a start at or past the end of the resource.
func Parse(header string, size int64) *ByteRange {
	header = strings.TrimSpace(header)
	if header == "" || size <= 0 {
		return nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil
	}
	// Multi-range requests are not supported; only the first clause counts.
	if idx := strings.Index(spec, ","); idx >= 0 {
		spec = spec[:idx]
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	// Suffix ranges (bytes=-N) are treated as unsatisfiable here; clients
	// resuming downloads always send an explicit start offset.
	if startStr == "" {
		return nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil
	}
	if start >= size {
		return nil
	}

	end := size - 1
	if endStr != "" {
		parsed, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || parsed < start {
			return nil
		}
		if parsed < end {
			end = parsed
		}
	}

	return &ByteRange{Start: start, End: end, Length: end - start + 1}
}

// Serve writes the body honoring an optional single Range header. Partial
// responses get 206 with Content-Range; everything else streams the full
// body as 200. The body is copied in fixed-size chunks.
func Serve(w http.ResponseWriter, r *http.Request, body io.ReadSeeker, size int64, contentType string) error {
	w.Header().Set("Accept-Ranges", "bytes")
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	byteRange := Parse(r.Header.Get("Range"), size)
	if byteRange == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return copyChunks(w, body, size)
	}

	w.Header().Set("Content-Range", byteRange.ContentRange(size))
	w.Header().Set("Content-Length", strconv.FormatInt(byteRange.Length, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := body.Seek(byteRange.Start, io.SeekStart); err != nil {
		return err
	}
	return copyChunks(w, body, byteRange.Length)
}

func copyChunks(w io.Writer, body io.Reader, n int64) error {
	buf := make([]byte, ChunkSize)
	_, err := io.CopyBuffer(w, io.LimitReader(body, n), buf)
	return err
}
