package spreadsheet

import (
	"context"

	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/validation"
)

// HistorySubmitter writes timestamped records through the validated write path.
type HistorySubmitter interface {
	SubmitHistory(ctx context.Context, recs []models.MaintenanceRecord) (int, []validation.Rejection, error)
}

// ImportResult summarizes an import.
type ImportResult struct {
	Imported int
	Rejected []RowError
}

// Import submits rows in order, keeping each row's completion time. Rows
// with lower hours than the boom lift's latest reading, or that predate it,
// are rejected and skipped. A forwarding failure stops the import and is
// returned with the partial result.
func Import(ctx context.Context, rows []Row, sub HistorySubmitter) (ImportResult, error) {
	recs := make([]models.MaintenanceRecord, len(rows))
	for i, row := range rows {
		recs[i] = row.Record
	}

	var res ImportResult
	n, rejected, err := sub.SubmitHistory(ctx, recs)
	res.Imported = n
	for _, rj := range rejected {
		res.Rejected = append(res.Rejected, RowError{Row: rows[rj.Index].Number, Err: rj.Err})
	}
	return res, err
}
