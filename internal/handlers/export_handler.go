package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"census-backend/internal/models"
	"census-backend/internal/monitoring"
	"census-backend/internal/services"
)

// ExportHandler serves the password-gated bulk downloads
type ExportHandler struct {
	Service *services.ExportService
}

func NewExportHandler(service *services.ExportService) *ExportHandler {
	return &ExportHandler{Service: service}
}

// ExportCSV streams the whole database as one sectioned CSV file
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "csv", "text/csv; charset=utf-8", h.Service.ExportCSV)
}

// ExportExcel streams the whole database as a multi-sheet workbook
func (h *ExportHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", h.Service.ExportExcel)
}

func (h *ExportHandler) serve(w http.ResponseWriter, r *http.Request, format, contentType string, export func(ctx context.Context, password string) (string, []byte, error)) {
	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	filename, data, err := export(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPassword) {
			monitoring.RecordExport(format, "denied")
			http.Error(w, "Invalid export password", http.StatusUnauthorized)
			return
		}
		monitoring.RecordExport(format, "error")
		log.Printf("Export (%s) failed: %v", format, err)
		http.Error(w, "Export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	monitoring.RecordExport(format, "success")
	log.Printf("Export (%s) served: %s (%d bytes)", format, filename, len(data))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
