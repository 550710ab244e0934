package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eddiefleurent/angel_gateway/internal/broker"
	"github.com/eddiefleurent/angel_gateway/internal/chain"
	"github.com/eddiefleurent/angel_gateway/internal/session"
)

// bearerToken extracts the Authorization bearer token, if any.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func decodeBody(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(into)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Angel One gateway is running",
		Data:    map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)},
	})
}

type authRequest struct {
	APIKey   string `json:"apiKey"`
	ClientID string `json:"clientId"`
	Password string `json:"password"`
	TOTP     string `json:"totp"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if req.APIKey == "" || req.ClientID == "" || req.Password == "" || req.TOTP == "" {
		s.writeError(w, http.StatusBadRequest,
			"All fields are required: apiKey, clientId, password, totp", "")
		return
	}

	login, err := s.broker.Login(r.Context(), broker.Credentials{
		APIKey:   req.APIKey,
		ClientID: req.ClientID,
		Password: req.Password,
		TOTP:     req.TOTP,
	})
	if err != nil {
		s.logger.WithError(err).WithField("client_id", req.ClientID).Warn("Login failed")
		s.writeUpstreamError(w, err, "AUTH_FAILED")
		return
	}

	rec := session.Record{
		ID:           uuid.New().String(),
		ClientID:     req.ClientID,
		APIKey:       req.APIKey,
		JWTToken:     login.JWTToken,
		FeedToken:    login.FeedToken,
		RefreshToken: login.RefreshToken,
		CreatedAt:    time.Now(),
	}
	if err := s.sessions.Put(rec); err != nil {
		s.logger.WithError(err).Error("Failed to store session")
		s.writeError(w, http.StatusInternalServerError, "Failed to store session", "")
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"client_id": req.ClientID,
		"session":   rec.ID,
	}).Info("Client authenticated")

	s.writeData(w, map[string]string{
		"jwtToken":  login.JWTToken,
		"feedToken": login.FeedToken,
	})
}

type ltpRequest struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

func (s *Server) handleLTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "Authorization token required", "")
		return
	}

	var req ltpRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if req.Symbol == "" {
		s.writeError(w, http.StatusBadRequest, "Symbol is required", "")
		return
	}
	if req.Exchange == "" {
		req.Exchange = broker.DefaultExchange
	}

	data, err := s.broker.GetLTP(r.Context(), token, broker.LTPRequest{
		Exchange:      req.Exchange,
		TradingSymbol: req.Symbol,
		SymbolToken:   s.tokens.Token(req.Symbol),
	})
	if err != nil {
		s.logger.WithError(err).WithField("symbol", req.Symbol).Warn("LTP lookup failed")
		s.writeUpstreamError(w, err, "")
		return
	}

	s.writeData(w, json.RawMessage(data))
}

// ltpPayload extracts the price field from the upstream LTP data object.
type ltpPayload struct {
	LTP float64 `json:"ltp"`
}

type optionsChainResponse struct {
	CurrentPrice float64       `json:"currentPrice"`
	Strikes      []chain.Entry `json:"strikes"`
	Timestamp    string        `json:"timestamp"`
	Symbol       string        `json:"symbol"`
	Expiry       string        `json:"expiry"`
}

func (s *Server) handleOptionsChain(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "Authorization token required", "")
		return
	}

	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	expiryParam := r.URL.Query().Get("expiry")
	if expiryParam == "" {
		s.writeError(w, http.StatusBadRequest, "Expiry date is required", "")
		return
	}
	expiry, err := chain.ParseExpiry(expiryParam)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	// Underlying price lookup. Unknown symbols fall back to the NIFTY
	// instrument token.
	data, err := s.broker.GetLTP(r.Context(), token, broker.LTPRequest{
		Exchange:      broker.DefaultExchange,
		TradingSymbol: symbol,
		SymbolToken:   s.tokens.Token(symbol),
	})
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Underlying price lookup failed")
		s.writeUpstreamError(w, err, "")
		return
	}

	var payload ltpPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.LTP <= 0 {
		s.writeError(w, http.StatusBadRequest, "Upstream returned no usable price for "+symbol, "")
		return
	}

	entries, err := chain.BuildLadder(r.Context(), payload.LTP, symbol)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	s.writeData(w, optionsChainResponse{
		CurrentPrice: payload.LTP,
		Strikes:      entries,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Symbol:       symbol,
		Expiry:       chain.FormatExpiry(expiry),
	})
}

type refreshRequest struct {
	ClientID     string `json:"clientId"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if req.ClientID == "" || req.RefreshToken == "" {
		s.writeError(w, http.StatusBadRequest, "clientId and refreshToken are required", "")
		return
	}

	rec, ok := s.sessions.Get(req.ClientID)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "No active session for client", "AUTH_FAILED")
		return
	}

	tokens, err := s.broker.RefreshTokens(r.Context(), rec.APIKey, req.RefreshToken)
	if err != nil {
		s.logger.WithError(err).WithField("client_id", req.ClientID).Warn("Token refresh failed")
		s.writeUpstreamError(w, err, "AUTH_FAILED")
		return
	}

	// Replace the token pair in place; everything else is preserved.
	rec.JWTToken = tokens.JWTToken
	rec.FeedToken = tokens.FeedToken
	if err := s.sessions.Put(rec); err != nil {
		s.logger.WithError(err).Error("Failed to update session")
		s.writeError(w, http.StatusInternalServerError, "Failed to update session", "")
		return
	}

	s.writeData(w, map[string]string{
		"jwtToken":  tokens.JWTToken,
		"feedToken": tokens.FeedToken,
	})
}

type logoutRequest struct {
	ClientID string `json:"clientId"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if req.ClientID == "" {
		s.writeError(w, http.StatusBadRequest, "clientId is required", "")
		return
	}

	// Upstream logout is best-effort: its outcome is observed only for
	// logging and never affects the response, so the caller can always
	// terminate its local session.
	token := bearerToken(r)
	if token == "" {
		if rec, ok := s.sessions.Get(req.ClientID); ok {
			token = rec.JWTToken
		}
	}
	if token != "" {
		if err := s.broker.Logout(r.Context(), token, req.ClientID); err != nil {
			s.logger.WithError(err).WithField("client_id", req.ClientID).Warn("Upstream logout failed")
		}
	}

	if err := s.sessions.Delete(req.ClientID); err != nil {
		s.logger.WithError(err).Error("Failed to delete session")
	}

	s.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Logged out successfully"})
}
