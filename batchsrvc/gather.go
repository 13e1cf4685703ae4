package batchsrvc

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/programme-lv/ojcore/record"
)

func isOriginal(rec record.Record) bool {
	return len(rec.JudgeCategory) == 0
}

// GatherLatest returns each contestant's latest original record per problem,
// the set handed to the plagiarism service.
func (s *BatchSrvc) GatherLatest(ctx context.Context, tid uuid.UUID) ([]record.Record, error) {
	return s.SelectLatest(ctx, tid, nil, func(rec record.Record) bool {
		return !isOriginal(rec)
	})
}

// SavePlagiarismResult stores the report link the plagiarism service
// returned for a contest.
func (s *BatchSrvc) SavePlagiarismResult(ctx context.Context, tid uuid.UUID, url string) error {
	if err := s.contests.SetPlagiarismURL(ctx, tid, url); err != nil {
		return err
	}
	s.logger.Info("plagiarism result stored", slog.String("tid", tid.String()), slog.String("url", url))
	return nil
}

// ArchiveName is the zip entry name of a record's code.
func ArchiveName(rec record.Record) string {
	return fmt.Sprintf("U%s_P%s_R%s.%s", rec.UID, rec.ProblemID, rec.ID, rec.Lang)
}

// ExportCode writes a zip of the gathered records' inline code to w.
// Records whose code lives in external storage are skipped and counted.
func (s *BatchSrvc) ExportCode(ctx context.Context, tid uuid.UUID, w io.Writer) (written, skipped int, err error) {
	recs, err := s.GatherLatest(ctx, tid)
	if err != nil {
		return 0, 0, err
	}

	zw := zip.NewWriter(w)
	for _, rec := range recs {
		if rec.CodeType != record.CodeTypeText || rec.Code == "" {
			skipped++
			continue
		}
		f, err := zw.Create(ArchiveName(rec))
		if err != nil {
			return written, skipped, fmt.Errorf("failed to add %s to archive: %w", rec.ID, err)
		}
		if _, err := io.WriteString(f, rec.Code); err != nil {
			return written, skipped, fmt.Errorf("failed to write %s to archive: %w", rec.ID, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return written, skipped, fmt.Errorf("failed to finish archive: %w", err)
	}
	return written, skipped, nil
}
