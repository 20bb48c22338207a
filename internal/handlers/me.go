package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/types"
)

const (
	maxReceiptBytes    = 10 << 20
	maxMultipartMemory = 32 << 20
	formFieldReceipt   = "receipt"
)

// MeHandler serves the self-service routes of an authenticated neighbor.
// The neighbor is always the token subject.
type MeHandler struct {
	ledgerService  *services.LedgerService
	receiptService *services.ReceiptService
}

func NewMeHandler(ledgerService *services.LedgerService, receiptService *services.ReceiptService) *MeHandler {
	return &MeHandler{ledgerService: ledgerService, receiptService: receiptService}
}

// MeRouter registers the self-service routes. The caller mounts it behind
// the neighbor role check.
func MeRouter(r chi.Router, ledgerService *services.LedgerService, receiptService *services.ReceiptService) {
	handler := NewMeHandler(ledgerService, receiptService)

	r.Get("/balance", handler.GetBalance)
	r.Get("/period-dues", handler.ListPeriodDues)
	r.Get("/payments", handler.ListPayments)
	r.Post("/payments", handler.CreatePayment)
	r.Route("/payments/{paymentID}/receipt", func(r chi.Router) {
		r.Put("/", handler.UploadReceipt)
		r.Get("/", handler.DownloadReceipt)
	})
}

func (h *MeHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustSubject(w, r)
	if !ok {
		return
	}

	balance, err := h.ledgerService.Balance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *MeHandler) ListPeriodDues(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustSubject(w, r)
	if !ok {
		return
	}

	var period types.Period
	if raw := strings.TrimSpace(r.URL.Query().Get("period")); raw != "" {
		parsed, err := types.ParsePeriod(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "period must be the first day of a month (YYYY-MM-01)")
			return
		}
		period = parsed
	}

	dues, err := h.ledgerService.PeriodDues(r.Context(), userID, period)
	if err != nil {
		writeServiceError(w, r, err, "failed to compute period dues")
		return
	}
	if dues == nil {
		dues = []types.PeriodDue{}
	}
	writeJSON(w, http.StatusOK, dues)
}

func (h *MeHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustSubject(w, r)
	if !ok {
		return
	}

	payments, err := h.ledgerService.Payments(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *MeHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustSubject(w, r)
	if !ok {
		return
	}
	recordPayment(w, r, h.ledgerService, userID)
}

// UploadReceipt attaches a file sent in the multipart field "receipt" to one
// of the caller's payments.
func (h *MeHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustSubject(w, r)
	if !ok {
		return
	}
	if !h.receiptService.Enabled() {
		writeServiceError(w, r, services.ErrStorageDisabled, "")
		return
	}
	paymentID, err := parseInt64Param(r, "paymentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes+1<<20)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldReceipt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	data, err := readFileLimited(file, maxReceiptBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := h.receiptService.Upload(r.Context(), userID, paymentID, header.Filename, data)
	if err != nil {
		writeServiceError(w, r, err, "failed to store receipt")
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// DownloadReceipt streams the receipt of one of the caller's payments.
func (h *MeHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustSubject(w, r)
	if !ok {
		return
	}
	paymentID, err := parseInt64Param(r, "paymentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := h.receiptService.Open(r.Context(), userID, paymentID)
	if err != nil {
		writeServiceError(w, r, err, "failed to open receipt")
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}

func mustSubject(w http.ResponseWriter, r *http.Request) (string, bool) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "token required")
		return "", false
	}
	return subject, true
}
