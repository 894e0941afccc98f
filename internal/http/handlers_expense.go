package http

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"expensetracker/internal/codec"
	"expensetracker/internal/log"
)

// handleCreateExpense decodes the body in the format named by Content-Type
// and hands it to the ledger. The reply is always JSON.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	format, err := codec.ResolveDecoder(r.Header.Get("Content-Type"))
	if err != nil {
		logger.Warn("Unsupported request content type",
			"content_type", r.Header.Get("Content-Type"))
		writeError(w, r, http.StatusUnsupportedMediaType, msgUnsupportedMediaType)
		return
	}

	expense, err := codec.Decode(format, r.Body)
	if err != nil {
		logger.Warn("Request body does not match content type",
			log.NewFields().WithOperation(log.OpDecode).WithError(err).Args()...,
		)
		writeError(w, r, http.StatusConflict, msgFormatMismatch)
		return
	}

	result, err := s.ledger.Record(r.Context(), expense)
	if err != nil {
		logger.Error("Failed to record expense",
			log.NewFields().WithOperation(log.OpRecord).WithError(err).Args()...,
		)
		writeError(w, r, http.StatusInternalServerError, msgInternalServerError)
		return
	}
	if !result.Success {
		logger.Info("Expense rejected by ledger", log.FieldError, result.ErrorMessage)
		writeError(w, r, http.StatusUnprocessableEntity, result.ErrorMessage)
		return
	}

	logger.Debug("Expense recorded",
		log.FieldFormat, format.String(),
		log.FieldExpenseID, result.ExpenseID,
	)
	writeJSON(w, r, http.StatusOK, recordedResponse{ExpenseID: result.ExpenseID})
}

// handleListExpenses returns the expenses recorded on the date path token,
// encoded in the best format the Accept header allows.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	format, err := codec.ResolveEncoder(r.Header.Get("Accept"))
	if err != nil {
		logger.Warn("No acceptable response format", "accept", r.Header.Get("Accept"))
		writeError(w, r, http.StatusUnsupportedMediaType, msgUnsupportedMediaType)
		return
	}

	date := chi.URLParam(r, "date")
	expenses, err := s.ledger.ExpensesOn(r.Context(), date)
	if err != nil {
		logger.Error("Failed to list expenses",
			log.NewFields().WithOperation(log.OpList).WithError(err).Args()...,
		)
		writeError(w, r, http.StatusInternalServerError, msgInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := codec.EncodeList(format, &buf, expenses); err != nil {
		logger.Error("Failed to encode expenses",
			log.NewFields().WithOperation(log.OpEncode).WithError(err).Args()...,
		)
		writeError(w, r, http.StatusInternalServerError, msgInternalServerError)
		return
	}

	logger.Debug("Listed expenses",
		log.FieldExpenseDate, date,
		log.FieldCount, len(expenses),
		log.FieldFormat, format.String(),
	)
	writeBody(w, http.StatusOK, format.ContentType(), buf.Bytes())
}
