package core

import (
	"context"
	"fmt"

	"github.com/sparklabs/sparksearch/internal/logging"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

// UploadSummary reports the outcome of an upload. A parse failure aborts the
// upload with an error; an ingestion failure is user-visible but leaves the
// parsed table on the session, so IngestError is a message rather than an
// error return.
type UploadSummary struct {
	FileName string   `json:"fileName"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns"`

	// Ingested reports whether the persistence adapter accepted the file.
	Ingested      bool   `json:"ingested"`
	IngestMessage string `json:"ingestMessage,omitempty"`
	IngestError   string `json:"ingestError,omitempty"`
}

// HandleUpload parses an uploaded file, snapshots the resulting table onto
// the session, and hands the raw bytes to the persistence adapter through a
// transient file that is guaranteed removal.
//
// Unsupported extensions fail before any file I/O or ingestion. Parse
// failures fail the upload. Ingestion failures are reported in the summary
// and do not fail the upload.
func (s *Service) HandleUpload(ctx context.Context, sess *Session, filename string, data []byte) (*UploadSummary, error) {
	logger := logging.WithFields(ctx, "file", filename, "session", sess.ID)

	if len(data) == 0 {
		return nil, ErrNoFile
	}
	if int64(len(data)) > s.cfg.Upload.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), s.cfg.Upload.MaxFileSize)
	}
	if !tabular.SupportedExtension(filename) {
		return nil, fmt.Errorf("%w: %s", tabular.ErrUnsupportedFormat, filename)
	}

	tbl, err := tabular.Load(filename, data)
	if err != nil {
		logger.Error("upload parse failed", "error", err)
		return nil, err
	}

	sess.FileName = filename
	sess.Table = tbl
	sess.Ingested = false
	sess.LastSpec.Filters = nil
	sess.LastResult = nil

	summary := &UploadSummary{
		FileName: filename,
		Rows:     len(tbl.Rows),
		Columns:  tbl.Columns,
	}

	if s.store == nil {
		logger.Info("upload parsed (no store attached)", "rows", summary.Rows)
		return summary, nil
	}

	ingestCtx, cancel := context.WithTimeout(ctx, s.cfg.Upload.Timeout)
	defer cancel()

	err = withTempFile(s.cfg.Upload.TempDir, filename, data, func(path string) error {
		res, err := s.store.Ingest(ingestCtx, path)
		if err != nil {
			return err
		}
		summary.Ingested = true
		summary.IngestMessage = res.Message
		sess.Ingested = true
		return nil
	})
	if err != nil {
		// The session keeps the parsed table; searches fall back to it.
		logger.Error("ingestion failed", "error", err)
		summary.IngestError = MapError(err).Message
		return summary, nil
	}

	logger.Info("upload ingested", "rows", summary.Rows, "columns", len(summary.Columns))
	return summary, nil
}
