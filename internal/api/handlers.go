// Package api provides HTTP API handlers.
package api

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/adcompliance/auditor/internal/database"
	"github.com/adcompliance/auditor/internal/extract"
	"github.com/adcompliance/auditor/internal/fingerprint"
	"github.com/adcompliance/auditor/internal/models"
	"github.com/adcompliance/auditor/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const maxUploadSize = 100 * 1024 * 1024

// TextTooLong is returned when a text/URL submission's Text field exceeds
// MAX_TEXT_LENGTH (§6, §7, §8).
type TextTooLong struct {
	Length, Limit int
}

func (e *TextTooLong) Error() string {
	return fmt.Sprintf("text length %d exceeds MAX_TEXT_LENGTH %d", e.Length, e.Limit)
}

// Handler contains all HTTP handlers.
type Handler struct {
	pipeline      *pipeline.Pipeline
	store         database.Store
	maxTextLength int
}

// NewHandler creates a new handler.
func NewHandler(p *pipeline.Pipeline, store database.Store, maxTextLength int) *Handler {
	return &Handler{
		pipeline:      p,
		store:         store,
		maxTextLength: maxTextLength,
	}
}

// HealthCheck returns the service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

// auditRequestBody is the JSON shape for text/URL audit submissions.
type auditRequestBody struct {
	Text         string `json:"text"`
	URL          string `json:"url"`
	Category     string `json:"category"`
	AnalysisMode string `json:"analysisMode"`
	Country      string `json:"country"`
	Region       string `json:"region"`
}

// Audit handles POST /api/v1/audit: either a JSON body with text/url, or a
// multipart/form-data upload with a single "file" part plus the same
// category/analysisMode/country/region fields, per §6.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	input, err := h.parseAuditInput(w, r)
	if err != nil {
		var tooLong *TextTooLong
		if errors.As(err, &tooLong) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	input.Options.UserID = requestUserID(r)

	report, err := h.pipeline.Audit(r.Context(), input)
	if err != nil {
		var unauth *pipeline.Unauthenticated
		if errors.As(err, &unauth) {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		var unsupported *fingerprint.UnsupportedInput
		if errors.As(err, &unsupported) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("audit failed")
		var exhausted *extract.ExtractionExhausted
		if errors.As(err, &exhausted) {
			writeError(w, http.StatusBadGateway, "Audit failed: "+err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Audit failed: "+err.Error())
		return
	}

	status := http.StatusCreated
	if report.Error != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, report)
}

func (h *Handler) parseAuditInput(w http.ResponseWriter, r *http.Request) (models.Input, error) {
	contentType := r.Header.Get("Content-Type")

	if len(contentType) >= len("multipart/form-data") && contentType[:len("multipart/form-data")] == "multipart/form-data" {
		return parseMultipartAuditInput(w, r)
	}

	var body auditRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return models.Input{}, fmt.Errorf("invalid request body")
	}

	options := models.Options{
		Category:     body.Category,
		AnalysisMode: body.AnalysisMode,
		Country:      body.Country,
		Region:       body.Region,
	}

	switch {
	case body.Text != "":
		if n := len([]rune(body.Text)); n > h.maxTextLength {
			return models.Input{}, &TextTooLong{Length: n, Limit: h.maxTextLength}
		}
		return models.Input{Kind: models.InputText, Body: body.Text, Options: options}, nil
	case body.URL != "":
		return models.Input{Kind: models.InputURL, Href: body.URL, Options: options}, nil
	default:
		return models.Input{}, fmt.Errorf("one of text or url is required")
	}
}

func parseMultipartAuditInput(w http.ResponseWriter, r *http.Request) (models.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return models.Input{}, fmt.Errorf("invalid multipart upload: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return models.Input{}, fmt.Errorf("file part is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.Input{}, fmt.Errorf("failed to read uploaded file")
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}

	return models.Input{
		Kind:      models.InputFile,
		FileBytes: data,
		Filename:  header.Filename,
		MIME:      mime,
		Options: models.Options{
			Category:     r.FormValue("category"),
			AnalysisMode: r.FormValue("analysisMode"),
			Country:      r.FormValue("country"),
			Region:       r.FormValue("region"),
		},
	}, nil
}

// GetAudit returns a persisted audit record by ID.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}

	record, err := h.store.GetAudit(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("failed to get audit record")
		writeError(w, http.StatusInternalServerError, "Failed to get audit record")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Audit record not found")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// ListHistory returns paginated audit records, filtered by the userId query
// parameter when one is given.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if skip < 0 {
		skip = 0
	}

	userID := r.URL.Query().Get("userId")

	records, err := h.store.ListAudits(r.Context(), userID, limit, skip)
	if err != nil {
		log.Error().Err(err).Msg("failed to list audit history")
		writeError(w, http.StatusInternalServerError, "Failed to list audit history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": records,
		"limit":   limit,
		"skip":    skip,
	})
}

// ExportHistoryXLSX streams audit history (filtered by the userId query
// parameter when one is given) as an Excel workbook, one row per audit record.
func (h *Handler) ExportHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	records, err := h.store.ListAudits(r.Context(), userID, 1000, 0)
	if err != nil {
		log.Error().Err(err).Msg("failed to list audit history for export")
		writeError(w, http.StatusInternalServerError, "Failed to export audit history")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Audit History"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "User", "Content Type", "Created At", "Status", "Score", "Risk Level", "Violations"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, record := range records {
		values := []interface{}{
			record.ID,
			record.UserID,
			string(record.ContentType),
			record.CreatedAt.Format(time.RFC3339),
			string(record.Report.Status),
			record.Report.Score,
			string(record.Report.FinancialPenalty.RiskLevel),
			len(record.Report.Violations),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-history.xlsx"`)
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("failed to write xlsx export")
	}
}

// ExportReportPDF renders a single audit record's Report as a one-page PDF.
func (h *Handler) ExportReportPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := h.store.GetAudit(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("failed to get audit record for pdf export")
		writeError(w, http.StatusInternalServerError, "Failed to export report")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Audit record not found")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(190, 10, "Compliance Audit Report")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(190, 8, fmt.Sprintf("Status: %s    Score: %d/100", record.Report.Status, record.Report.Score))
	pdf.Ln(8)
	pdf.Cell(190, 8, fmt.Sprintf("Financial penalty risk: %s", record.Report.FinancialPenalty.RiskLevel))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, "Summary")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(190, 6, record.Report.Summary, "", "", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(190, 8, fmt.Sprintf("Violations (%d)", len(record.Report.Violations)))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	for _, v := range record.Report.Violations {
		pdf.MultiCell(190, 6, fmt.Sprintf("[%s] %s — %s", v.Severity, v.Regulation, v.ViolationTitle), "", "", false)
		pdf.MultiCell(190, 6, "Evidence: "+v.Evidence, "", "", false)
		pdf.Ln(2)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="audit-%s.pdf"`, record.ID))
	if err := pdf.Output(w); err != nil {
		log.Error().Err(err).Msg("failed to write pdf export")
	}
}

// GetAuditLogs returns paginated HTTP audit logs (request bookkeeping).
func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	logs, err := h.store.GetAuditLogs(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get audit logs")
		writeError(w, http.StatusInternalServerError, "Failed to get audit logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}

// CreateAPIKey creates a new API key.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              string `json:"name"`
		RequestsPerMinute int    `json:"requests_per_minute"`
		TokensPerDay      int    `json:"tokens_per_day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate key")
		return
	}
	rawKey := "adt_" + base64.URLEncoding.EncodeToString(keyBytes)

	hash := sha256.Sum256([]byte(rawKey))
	keyHash := hex.EncodeToString(hash[:])

	if req.RequestsPerMinute <= 0 {
		req.RequestsPerMinute = 60
	}
	if req.TokensPerDay <= 0 {
		req.TokensPerDay = 100000
	}

	apiKey := &models.APIKey{
		ID:                uuid.New().String(),
		KeyHash:           keyHash,
		Name:              req.Name,
		RequestsPerMinute: req.RequestsPerMinute,
		TokensPerDay:      req.TokensPerDay,
		CreatedAt:         time.Now(),
	}

	if err := h.store.CreateAPIKey(r.Context(), apiKey); err != nil {
		log.Error().Err(err).Msg("Failed to create API key")
		writeError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":                  apiKey.ID,
		"key":                 rawKey,
		"name":                apiKey.Name,
		"requests_per_minute": apiKey.RequestsPerMinute,
		"tokens_per_day":      apiKey.TokensPerDay,
		"created_at":          apiKey.CreatedAt,
	})
}

// ListAPIKeys lists all API keys (without the actual keys).
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list API keys")
		writeError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys": keys,
	})
}

// DeleteAPIKey deletes an API key.
func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}

	if err := h.store.DeleteAPIKey(r.Context(), id); err != nil {
		log.Error().Err(err).Msg("Failed to delete API key")
		writeError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requestUserID resolves the authenticated caller's user ID. The API key's
// own ID stands in for userId until a separate end-user identity layer
// exists; a dedicated X-User-Id header can override it for multi-tenant
// callers sharing one API key.
func requestUserID(r *http.Request) string {
	if userID := r.Header.Get("X-User-Id"); userID != "" {
		return userID
	}
	if key := getAPIKey(r.Context()); key != nil {
		return key.ID
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
