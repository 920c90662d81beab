package controllers

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/proffmusic/proffmusic-backend/api/responses"
	"github.com/proffmusic/proffmusic-backend/internal/catalog"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/httprange"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
	"github.com/proffmusic/proffmusic-backend/pkg/storage/local"
)

// TrackPreview streams the public low-quality preview with range support so
// the storefront player can seek.
func TrackPreview(catalogSvc catalog.Service, public *local.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		track, err := catalogSvc.GetTrackBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if track.PreviewPath == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "no preview for this track"))
			return
		}

		file, err := public.Open(track.PreviewPath)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "preview file unavailable"))
			return
		}
		defer file.Close()

		if err := httprange.Serve(w, r, file, file.Size, previewContentType(track.PreviewPath)); err != nil {
			logg.Warn(logg.WithField(r.Context(), "track", track.Slug), "preview stream interrupted")
		}
	}
}

func previewContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".mp3" {
		return "audio/mpeg"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
