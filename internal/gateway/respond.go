package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eddiefleurent/angel_gateway/internal/broker"
)

// envelope is the uniform response shape every handler emits.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, errorCode string) {
	s.writeJSON(w, status, envelope{Success: false, Message: message, ErrorCode: errorCode})
}

// writeUpstreamError maps a broker-client failure to the envelope: the
// upstream's embedded message/errorcode when present, the local error text
// otherwise. fallbackCode fills errorCode when the upstream gave none.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error, fallbackCode string) {
	message := err.Error()
	errorCode := fallbackCode

	var apiErr *broker.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message
		if apiErr.ErrorCode != "" {
			errorCode = apiErr.ErrorCode
		}
	}

	s.writeError(w, http.StatusBadRequest, message, errorCode)
}
