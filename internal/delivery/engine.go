package delivery

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/proffmusic/proffmusic-backend/internal/catalog"
	"github.com/proffmusic/proffmusic-backend/pkg/config"
	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
	"github.com/proffmusic/proffmusic-backend/pkg/storage/local"
)

// Payload is a fully materialized download body ready for range streaming.
// Callers must Close it; closing a spilled archive also removes its temp file.
type Payload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeekCloser
	Archive     bool
}

// Close releases the underlying file or buffer.
func (p *Payload) Close() error {
	if p == nil || p.Body == nil {
		return nil
	}
	return p.Body.Close()
}

// entry is one file slated for the payload. ArchivePath is where it lands
// inside a ZIP; collection tracks live under the collection's slug.
type entry struct {
	StorePath   string
	ArchivePath string
}

// Service assembles download payloads for paid orders.
type Service interface {
	BuildPayload(ctx context.Context, order *models.Order) (*Payload, error)
}

type service struct {
	catalog   catalog.Service
	protected *local.Store
	cfg       config.StorageConfig
	logger    *logger.Logger
}

// NewService builds the delivery engine over the protected media store.
func NewService(catalogSvc catalog.Service, protected *local.Store, cfg config.StorageConfig, logg *logger.Logger) (Service, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if protected == nil {
		return nil, fmt.Errorf("protected media store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{catalog: catalogSvc, protected: protected, cfg: cfg, logger: logg}, nil
}

// BuildPayload resolves every order item to files on disk. An order whose
// sole item is a track streams that file directly; anything else, including
// a lone collection, is zipped. Dangling item references and missing files
// are skipped, not fatal; an order with nothing left to deliver is an error.
func (s *service) BuildPayload(ctx context.Context, order *models.Order) (*Payload, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	entries := s.collectEntries(ctx, order)
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "nothing left to deliver for this order")
	}

	if isSingleTrackOrder(order) {
		return s.singleFilePayload(ctx, entries[0])
	}
	return s.archivePayload(ctx, order, entries)
}

// isSingleTrackOrder gates the direct-stream fast path: exactly one item,
// and that item is a track. A one-track collection still ships as a ZIP so
// the buyer gets the collection folder.
func isSingleTrackOrder(order *models.Order) bool {
	if len(order.Items) != 1 {
		return false
	}
	kind, _, ok := order.Items[0].Ref()
	return ok && kind == enums.ProductKindTrack
}

func (s *service) collectEntries(ctx context.Context, order *models.Order) []entry {
	var entries []entry
	seen := map[string]bool{}

	add := func(storePath, archivePath string) {
		if storePath == "" || seen[archivePath] {
			return
		}
		if !s.protected.Exists(storePath) {
			s.logger.Warn(s.logger.WithField(ctx, "path", storePath), "media file missing on disk, skipping")
			return
		}
		seen[archivePath] = true
		entries = append(entries, entry{StorePath: storePath, ArchivePath: archivePath})
	}

	for _, item := range order.Items {
		kind, id, ok := item.Ref()
		if !ok {
			s.logger.Warn(s.logger.WithField(ctx, "order_item_id", item.ID.String()), "order item references deleted product, skipping")
			continue
		}

		switch kind {
		case enums.ProductKindTrack:
			track, err := s.catalog.GetTrack(ctx, id)
			if err != nil {
				s.logger.Warn(s.logger.WithField(ctx, "track_id", id.String()), "purchased track no longer in catalog, skipping")
				continue
			}
			add(track.FullPath, trackFileName(track))
		case enums.ProductKindCollection:
			collection, err := s.catalog.GetCollection(ctx, id)
			if err != nil {
				s.logger.Warn(s.logger.WithField(ctx, "collection_id", id.String()), "purchased collection no longer in catalog, skipping")
				continue
			}
			for _, track := range collection.Tracks {
				add(track.FullPath, path.Join(collection.Slug, trackFileName(&track)))
			}
		}
	}
	return entries
}

func (s *service) singleFilePayload(ctx context.Context, e entry) (*Payload, error) {
	file, err := s.protected.Open(e.StorePath)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open media file")
	}
	return &Payload{
		Name:        path.Base(e.ArchivePath),
		ContentType: contentTypeFor(e.StorePath),
		Size:        file.Size,
		Body:        file,
	}, nil
}

func (s *service) archivePayload(ctx context.Context, order *models.Order, entries []entry) (*Payload, error) {
	var totalInput int64
	for _, e := range entries {
		if file, err := s.protected.Open(e.StorePath); err == nil {
			totalInput += file.Size
			file.Close()
		}
	}

	limit := int64(s.cfg.ArchiveMemoryLimitMB) * 1024 * 1024
	spill := limit > 0 && totalInput > limit

	var sink archiveSink
	if spill {
		tmp, err := os.CreateTemp("", "proffmusic-archive-*.zip")
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create archive temp file")
		}
		sink = &fileSink{file: tmp}
	} else {
		sink = &bufferSink{}
	}

	zw := zip.NewWriter(sink)
	written := 0
	for _, e := range entries {
		ok, err := s.writeArchiveEntry(ctx, zw, e)
		if err != nil {
			zw.Close()
			sink.Discard()
			return nil, err
		}
		if ok {
			written++
		}
	}
	if err := zw.Close(); err != nil {
		sink.Discard()
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalize archive")
	}
	if written == 0 {
		sink.Discard()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "nothing left to deliver for this order")
	}

	body, size, err := sink.Finish()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finish archive")
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"entries": written,
		"bytes":   size,
		"spilled": spill,
	}), "archive assembled")

	return &Payload{
		Name:        fmt.Sprintf("order_%s.zip", order.ShortID()),
		ContentType: "application/zip",
		Size:        size,
		Body:        body,
		Archive:     true,
	}, nil
}

// writeArchiveEntry reports whether the entry landed in the archive. A file
// that vanished since collection is skipped, same as at collection time.
func (s *service) writeArchiveEntry(ctx context.Context, zw *zip.Writer, e entry) (bool, error) {
	file, err := s.protected.Open(e.StorePath)
	if errors.Is(err, local.ErrNotFound) {
		s.logger.Warn(s.logger.WithField(ctx, "path", e.StorePath), "media file disappeared during packaging, skipping")
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open media file")
	}
	defer file.Close()

	w, err := zw.Create(e.ArchivePath)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create archive entry")
	}
	if _, err := io.Copy(w, file); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write archive entry")
	}
	return true, nil
}

// trackFileName keeps the source extension but names the file by slug so
// the buyer sees a stable, readable name.
func trackFileName(track *models.Track) string {
	ext := filepath.Ext(track.FullPath)
	if ext == "" {
		ext = ".mp3"
	}
	return track.Slug + ext
}

var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aiff": "audio/aiff",
}

func contentTypeFor(storePath string) string {
	ext := strings.ToLower(filepath.Ext(storePath))
	if ct, ok := audioContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
