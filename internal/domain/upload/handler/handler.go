// Package handler exposes the upload pipeline over REST.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vrbank/batch-upload/internal/domain/account"
	"github.com/vrbank/batch-upload/internal/domain/upload"
	"github.com/vrbank/batch-upload/internal/domain/upload/service"
)

// entryDateLayout is the wire format of the entry date form field.
const entryDateLayout = "2006-01-02"

// UploadHandler handles the upload REST endpoints.
type UploadHandler struct {
	svc           *service.UploadService
	refData       *account.Validator
	maxFileSizeMB int64
	logger        *slog.Logger
}

// NewUploadHandler creates the upload handler.
func NewUploadHandler(svc *service.UploadService, refData *account.Validator, maxFileSizeMB int64, logger *slog.Logger) *UploadHandler {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 10
	}
	return &UploadHandler{
		svc:           svc,
		refData:       refData,
		maxFileSizeMB: maxFileSizeMB,
		logger:        logger,
	}
}

// Routes mounts the upload endpoints on a chi router.
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", h.Upload)
	r.Get("/template", h.Template)
	r.Get("/batches", h.Batches)
	r.Get("/batch/{batchNo}/exists", h.BatchExists)
	r.Get("/batch/{batchNo}/statistics", h.BatchStatistics)
	r.Delete("/batch/{batchNo}", h.DeleteBatch)
	r.Put("/batch/{batchNo}/status", h.UpdateBatchStatus)
	r.Get("/branches", h.Branches)
	r.Get("/source-codes", h.SourceCodes)
	r.Get("/working-day/{branchCode}", h.WorkingDay)
	return r
}

// Upload accepts a multipart form with the workbook and batch
// parameters and runs one upload invocation.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSizeMB<<20)
	if err := r.ParseMultipartForm(h.maxFileSizeMB << 20); err != nil {
		h.writeResult(w, http.StatusBadRequest, upload.ErrorResult(r.FormValue("batchNo"),
			fmt.Sprintf("File exceeds the %d MB limit or the form is malformed", h.maxFileSizeMB)))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeResult(w, http.StatusBadRequest, upload.ErrorResult(r.FormValue("batchNo"), "Excel file is required"))
		return
	}
	defer file.Close()

	params, err := parseParams(r)
	if err != nil {
		h.writeResult(w, http.StatusBadRequest, upload.ErrorResult(r.FormValue("batchNo"), err.Error()))
		return
	}

	result, err := h.svc.ProcessUpload(r.Context(), header.Filename, file, params)
	if err != nil {
		h.logger.Error("upload invocation failed",
			slog.String("batch_no", params.BatchNo),
			slog.Any("error", err),
		)
		h.writeError(w, http.StatusInternalServerError, "Upload processing failed")
		return
	}

	// Operators reviewing large batches can ask for the row errors as a
	// CSV attachment instead of the JSON result.
	if r.URL.Query().Get("errorReport") == "csv" && result.HasErrors() {
		report, err := result.ErrorReportCSV()
		if err != nil {
			h.logger.Error("failed to render error report", slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, "Failed to render error report")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s_errors.csv"`, params.BatchNo))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(report)
		return
	}

	status := http.StatusOK
	if !result.Success && result.TotalRows == 0 {
		status = http.StatusBadRequest
	}
	h.writeResult(w, status, result)
}

// parseParams reads the batch parameters from the multipart form.
func parseParams(r *http.Request) (upload.Params, error) {
	var params upload.Params
	params.BatchNo = r.FormValue("batchNo")
	params.BranchCode = r.FormValue("branchCode")
	params.SourceCode = r.FormValue("sourceCode")

	if raw := r.FormValue("exchRate"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return params, fmt.Errorf("exchange rate %q is not a valid number", raw)
		}
		params.ExchRate = rate
	}
	if raw := r.FormValue("entryDate"); raw != "" {
		day, err := time.Parse(entryDateLayout, raw)
		if err != nil {
			return params, fmt.Errorf("entry date %q must be in YYYY-MM-DD format", raw)
		}
		params.EntryDate = day
	}
	return params, nil
}

// Template streams an empty upload workbook.
func (h *UploadHandler) Template(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Template()
	if err != nil {
		h.logger.Error("failed to render template", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to generate template")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="upload_template.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Batches lists the stored batches, most recent first.
func (h *UploadHandler) Batches(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.BatchSummary(r.Context())
	if err != nil {
		h.logger.Error("failed to list batches", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to list batches")
		return
	}
	if summaries == nil {
		summaries = []upload.BatchSummary{}
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

// BatchExists reports whether a batch number is already stored.
func (h *UploadHandler) BatchExists(w http.ResponseWriter, r *http.Request) {
	batchNo := chi.URLParam(r, "batchNo")
	exists, err := h.svc.BatchExists(r.Context(), batchNo)
	if err != nil {
		h.logger.Error("failed to check batch", slog.String("batch_no", batchNo), slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to check batch")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"batchNo": batchNo, "exists": exists})
}

// BatchStatistics returns processing counters for one batch.
func (h *UploadHandler) BatchStatistics(w http.ResponseWriter, r *http.Request) {
	batchNo := chi.URLParam(r, "batchNo")
	stats, err := h.svc.BatchStatistics(r.Context(), batchNo)
	if err != nil {
		if errors.Is(err, upload.ErrBatchNotFound) {
			h.writeError(w, http.StatusNotFound, fmt.Sprintf("Batch %s not found", batchNo))
			return
		}
		h.logger.Error("failed to get batch statistics", slog.String("batch_no", batchNo), slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to get batch statistics")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// DeleteBatch removes a pending batch.
func (h *UploadHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	batchNo := chi.URLParam(r, "batchNo")
	deleted, err := h.svc.DeleteBatch(r.Context(), batchNo)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrBatchNotFound):
			h.writeError(w, http.StatusNotFound, fmt.Sprintf("Batch %s not found", batchNo))
		case errors.Is(err, upload.ErrBatchProcessed):
			h.writeError(w, http.StatusConflict, fmt.Sprintf("Batch %s has processed records and cannot be deleted", batchNo))
		default:
			h.logger.Error("failed to delete batch", slog.String("batch_no", batchNo), slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, "Failed to delete batch")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"batchNo": batchNo, "deletedRows": deleted})
}

// UpdateBatchStatus flips the upload status of a whole batch.
func (h *UploadHandler) UpdateBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchNo := chi.URLParam(r, "batchNo")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Request body must be JSON with a status field")
		return
	}

	updated, err := h.svc.UpdateBatchStatus(r.Context(), batchNo, body.Status)
	if err != nil {
		if errors.Is(err, upload.ErrBatchNotFound) {
			h.writeError(w, http.StatusNotFound, fmt.Sprintf("Batch %s not found", batchNo))
			return
		}
		h.logger.Error("failed to update batch status", slog.String("batch_no", batchNo), slog.Any("error", err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"batchNo": batchNo, "updatedRows": updated})
}

// Branches lists active branches for the upload form.
func (h *UploadHandler) Branches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.refData.Branches(r.Context())
	if err != nil {
		h.logger.Error("failed to list branches", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to list branches")
		return
	}
	if branches == nil {
		branches = []account.Branch{}
	}
	h.writeJSON(w, http.StatusOK, branches)
}

// SourceCodes lists active source codes for the upload form.
func (h *UploadHandler) SourceCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.refData.SourceCodes(r.Context())
	if err != nil {
		h.logger.Error("failed to list source codes", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "Failed to list source codes")
		return
	}
	if codes == nil {
		codes = []string{}
	}
	h.writeJSON(w, http.StatusOK, codes)
}

// WorkingDay returns the current processing date for a branch.
func (h *UploadHandler) WorkingDay(w http.ResponseWriter, r *http.Request) {
	branchCode := chi.URLParam(r, "branchCode")
	day := h.refData.WorkingDay(r.Context(), branchCode)
	h.writeJSON(w, http.StatusOK, map[string]string{
		"branchCode": branchCode,
		"workingDay": day.Format(entryDateLayout),
	})
}

func (h *UploadHandler) writeResult(w http.ResponseWriter, status int, result *upload.Result) {
	h.writeJSON(w, status, result)
}

func (h *UploadHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func (h *UploadHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}
