package httprange

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		size   int64
		want   *ByteRange
	}{
		{"no header", "", 1000, nil},
		{"bounded", "bytes=100-199", 1000, &ByteRange{Start: 100, End: 199, Length: 100}},
		{"open ended", "bytes=950-", 1000, &ByteRange{Start: 950, End: 999, Length: 50}},
		{"end clamped to size", "bytes=900-5000", 1000, &ByteRange{Start: 900, End: 999, Length: 100}},
		{"start at size", "bytes=1000-", 1000, nil},
		{"start past size", "bytes=2000-", 1000, nil},
		{"multi range honors first clause", "bytes=0-10,20-30", 1000, &ByteRange{Start: 0, End: 10, Length: 11}},
		{"suffix range", "bytes=-100", 1000, nil},
		{"inverted", "bytes=200-100", 1000, nil},
		{"not bytes unit", "items=0-10", 1000, nil},
		{"garbage", "bytes=abc-def", 1000, nil},
		{"zero size", "bytes=0-10", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.header, tt.size))
		})
	}
}

func serve(t *testing.T, body string, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/download/x", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	reader := bytes.NewReader([]byte(body))
	require.NoError(t, Serve(rec, req, reader, int64(len(body)), "audio/mpeg"))
	return rec
}

func TestServe_FullBody(t *testing.T) {
	body := strings.Repeat("a", 1000)
	rec := serve(t, body, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Len(t, rec.Body.Bytes(), 1000)
}

func TestServe_BoundedRange(t *testing.T) {
	body := strings.Repeat("a", 100) + strings.Repeat("b", 100) + strings.Repeat("c", 800)
	rec := serve(t, body, "bytes=100-199")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes 100-199/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, strings.Repeat("b", 100), rec.Body.String())
}

func TestServe_OpenEndedRange(t *testing.T) {
	body := strings.Repeat("x", 950) + strings.Repeat("y", 50)
	rec := serve(t, body, "bytes=950-")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "50", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes 950-999/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, strings.Repeat("y", 50), rec.Body.String())
}

func TestServe_UnsatisfiableStartFallsBackToFull(t *testing.T) {
	body := strings.Repeat("z", 1000)
	rec := serve(t, body, "bytes=2000-")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Header().Get("Content-Range"))
	assert.Len(t, rec.Body.Bytes(), 1000)
}

func TestServe_BodyLargerThanChunk(t *testing.T) {
	body := strings.Repeat("q", ChunkSize*3+17)
	rec := serve(t, body, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Body.Bytes(), ChunkSize*3+17)
}

func TestServe_HeadOmitsBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodHead, "/download/x", nil)
	req.Header.Set("Range", "bytes=0-9")
	rec := httptest.NewRecorder()
	reader := bytes.NewReader(make([]byte, 100))
	require.NoError(t, Serve(rec, req, reader, 100, "application/zip"))

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Zero(t, rec.Body.Len())
}
