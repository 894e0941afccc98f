package http

import (
	"bytes"
	"net/http"

	"expensetracker/internal/codec"
	"expensetracker/internal/log"
)

// Error bodies clients match on; keep them stable.
const (
	msgUnsupportedMediaType = "Unsupported Media Type"
	msgFormatMismatch       = "The expense format does not match the advertised"
	msgInternalServerError  = "Internal Server Error"
)

type errorResponse struct {
	Error string `json:"error"`
}

type recordedResponse struct {
	ExpenseID int64 `json:"expense_id"`
}

// writeJSON buffers the body so an encoding failure never leaves a half
// written response behind.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := codec.WriteJSON(&buf, v); err != nil {
		log.FromContext(r.Context()).Error("Failed to encode response",
			log.NewFields().WithOperation(log.OpEncode).WithError(err).Args()...)
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"` + msgInternalServerError + `"}` + "\n")
	}
	writeBody(w, status, codec.JSON.ContentType(), buf.Bytes())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Error: message})
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
