package orders

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"bookreport-backend/internal/shared/metrics"
	"bookreport-backend/internal/shared/storage/object"
	"bookreport-backend/internal/shared/telemetry"
)

const reportContentType = "text/markdown; charset=utf-8"

var fileNameUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func reportKey(orderID string) string {
	return "reports/" + orderID + ".md"
}

// ReportDownload is a report rendered as a file attachment.
type ReportDownload struct {
	FileName    string
	ContentType string
	Body        []byte
}

// archive copies a completed report to the object store. Failures are logged;
// the order row stays authoritative.
func (s *Service) archive(ctx context.Context, order Order) {
	if s.Store == nil {
		return
	}
	if _, err := s.Store.SaveWithKey(ctx, reportKey(order.ID), reportContentType, strings.NewReader(order.ReportText)); err != nil {
		telemetry.Warn("order.archive_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"order_id":   order.ID,
			"error":      err.Error(),
		})
	}
}

// DownloadReport returns the archived report, or the stored text when no
// archive copy can be read.
func (s *Service) DownloadReport(ctx context.Context, orderID string) (ReportDownload, error) {
	text, err := s.GetReport(ctx, orderID)
	if err != nil {
		return ReportDownload{}, err
	}
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return ReportDownload{}, err
	}

	body := []byte(text)
	if archived, err := s.readArchive(ctx, orderID); err == nil {
		body = archived
	} else if !errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("order.archive_read_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"order_id":   orderID,
			"error":      err.Error(),
		})
	}

	metrics.IncReportDownloads()
	return ReportDownload{
		FileName:    reportFileName(order.BookTitle),
		ContentType: reportContentType,
		Body:        body,
	}, nil
}

func (s *Service) readArchive(ctx context.Context, orderID string) ([]byte, error) {
	if s.Store == nil {
		return nil, object.ErrNotFound
	}
	rc, err := s.Store.Open(ctx, reportKey(orderID))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func reportFileName(title string) string {
	slug := strings.Trim(fileNameUnsafe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "book"
	}
	return slug + "-report.md"
}
