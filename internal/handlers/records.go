package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boomlift-maintenance/internal/middleware"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/records"
	"github.com/ukydev/boomlift-maintenance/internal/transport"
	"github.com/ukydev/boomlift-maintenance/internal/validation"
	"github.com/ukydev/boomlift-maintenance/internal/warnings"
)

// RecordHandler handles maintenance record submission and lookup
type RecordHandler struct {
	store     *records.Store
	submitter *validation.Submitter
	evaluator *warnings.Evaluator
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(store *records.Store, submitter *validation.Submitter, evaluator *warnings.Evaluator) *RecordHandler {
	if evaluator == nil {
		evaluator = warnings.New()
	}
	return &RecordHandler{
		store:     store,
		submitter: submitter,
		evaluator: evaluator,
	}
}

// Submit accepts a flat form submission and stores it as a maintenance record
func (h *RecordHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var fields models.Fields
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if fields == nil {
		fields = models.Fields{}
	}
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		applyClaims(fields, claims)
	}

	candidate, err := models.RecordFromFields(fields)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.submitter.Submit(r.Context(), candidate)
	if err != nil {
		status := submitStatus(err)
		entry := log.WithError(err).WithFields(log.Fields{
			"asset_id":   candidate.AssetID,
			"hours":      candidate.Hours,
			"request_id": middleware.RequestID(r.Context()),
		})
		if status >= http.StatusInternalServerError {
			entry.Error("Failed to submit maintenance record")
		} else {
			entry.Info("Maintenance record rejected")
		}
		http.Error(w, err.Error(), status)
		return
	}

	state := h.evaluator.Evaluate(rec)
	log.WithFields(log.Fields{
		"asset_id":           rec.AssetID,
		"hours":              rec.Hours,
		"submitter":          rec.SubmitterName,
		"oil_change_overdue": state.OilChangeOverdue,
		"inspection_overdue": state.InspectionOverdue,
	}).Info("Maintenance record accepted")

	writeJSON(w, http.StatusCreated, models.AnnotatedRecord{Record: rec, Warnings: state, Expiry: state.ExpiryText()})
}

// List returns records with their warnings, newest first. The optional
// asset and limit query parameters narrow the result.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	asset := strings.TrimSpace(r.URL.Query().Get("asset"))

	all := h.store.All()
	out := make([]models.MaintenanceRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if asset != "" && all[i].AssetID != asset {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, h.evaluator.Annotate(out))
}

// Latest returns the most recent record for one boom lift
func (h *RecordHandler) Latest(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	rec, ok := h.store.LatestFor(assetID)
	if !ok {
		http.Error(w, "Boom lift not found", http.StatusNotFound)
		return
	}
	state := h.evaluator.Evaluate(rec)
	writeJSON(w, http.StatusOK, models.AnnotatedRecord{Record: rec, Warnings: state, Expiry: state.ExpiryText()})
}

// applyClaims fills the submitter from the caller's token. Technicians always
// submit under their own role; admins may submit for either role.
func applyClaims(f models.Fields, claims *models.Claims) {
	if !f.Has(models.FieldSubmitterName) {
		name := claims.DisplayName
		if name == "" {
			name = claims.Username
		}
		f[models.FieldSubmitterName] = name
	}
	if models.IsSubmitterRole(claims.Role) {
		f[models.FieldRole] = string(claims.Role)
	}
}

func submitStatus(err error) int {
	var (
		fieldErr     *models.FieldError
		tooLow       *validation.HoursTooLowError
		transportErr *transport.Error
	)
	switch {
	case errors.As(err, &fieldErr), errors.Is(err, validation.ErrNegativeHours):
		return http.StatusBadRequest
	case errors.As(err, &tooLow), errors.Is(err, records.ErrInvariantViolation):
		return http.StatusConflict
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}
