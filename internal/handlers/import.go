package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boomlift-maintenance/internal/spreadsheet"
	"github.com/ukydev/boomlift-maintenance/internal/transport"
	"github.com/ukydev/boomlift-maintenance/internal/validation"
)

// maxWorkbookBytes caps uploaded workbooks.
const maxWorkbookBytes = 32 << 20

// ImportHandler loads historical records from a spreadsheet upload
type ImportHandler struct {
	submitter *validation.Submitter
	location  *time.Location
}

// NewImportHandler creates a new import handler. Rows are written through
// submitter, the same path live submissions take.
func NewImportHandler(submitter *validation.Submitter, loc *time.Location) *ImportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ImportHandler{
		submitter: submitter,
		location:  loc,
	}
}

// ImportRowError describes a spreadsheet row that was not imported
type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResponse reports the outcome of an import
type ImportResponse struct {
	Imported int              `json:"imported"`
	Rejected []ImportRowError `json:"rejected"`
	Error    string           `json:"error,omitempty"`
}

// Import reads a workbook from a multipart "file" field or the raw request
// body and appends its rows in submission order.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxWorkbookBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file upload", http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
	}

	sheet := r.URL.Query().Get("sheet")
	rows, rowErrs, err := spreadsheet.ReadWorkbook(body, spreadsheet.Options{Sheet: sheet, Location: h.location})
	if err != nil {
		log.WithError(err).Info("Rejected workbook upload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := spreadsheet.Import(r.Context(), rows, h.submitter)

	resp := ImportResponse{Imported: res.Imported, Rejected: []ImportRowError{}}
	for _, re := range append(rowErrs, res.Rejected...) {
		resp.Rejected = append(resp.Rejected, ImportRowError{Row: re.Row, Error: re.Err.Error()})
	}

	fields := log.Fields{
		"imported": resp.Imported,
		"rejected": len(resp.Rejected),
		"rows":     len(rows),
	}
	if err != nil {
		status := http.StatusInternalServerError
		var transportErr *transport.Error
		if errors.As(err, &transportErr) {
			status = http.StatusBadGateway
		}
		log.WithError(err).WithFields(fields).Error("Spreadsheet import stopped")
		resp.Error = err.Error()
		writeJSON(w, status, resp)
		return
	}
	log.WithFields(fields).Info("Spreadsheet imported")
	writeJSON(w, http.StatusOK, resp)
}
