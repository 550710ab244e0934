// Package broker provides the Angel One SmartAPI client used by the gateway.
// It shapes outbound REST calls (login, LTP lookup, token refresh, logout)
// with the header set the SmartAPI expects and surfaces upstream failures as
// typed errors the handlers can translate.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Upstream endpoint paths, relative to the SmartAPI base URL.
const (
	loginPath   = "/rest/auth/angelbroking/user/v1/loginByPassword"
	ltpPath     = "/rest/secure/angelbroking/order/v1/getLtpData"
	refreshPath = "/rest/auth/angelbroking/jwt/v1/generateTokens"
	logoutPath  = "/rest/secure/angelbroking/user/v1/logout"
)

// Per-operation timeouts. Login is the slowest upstream call (TOTP
// verification); market data lookups are expected to be fast.
const (
	loginTimeout  = 10 * time.Second
	marketTimeout = 5 * time.Second
)

// DefaultExchange is used when a request does not name one.
const DefaultExchange = "NSE"

// APIError represents an upstream SmartAPI failure. Status is the HTTP
// status code (200 when the upstream returned status=false in the body).
type APIError struct {
	Status    int
	Message   string
	ErrorCode string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("smartapi error %d [%s]: %s", e.Status, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("smartapi error %d: %s", e.Status, e.Message)
}

// apiEnvelope is the wire shape every SmartAPI response uses.
type apiEnvelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

// Credentials carries everything the SmartAPI password login needs.
type Credentials struct {
	APIKey   string
	ClientID string
	Password string
	TOTP     string
}

// LoginData is the token set returned by a successful login.
type LoginData struct {
	JWTToken     string `json:"jwtToken"`
	RefreshToken string `json:"refreshToken"`
	FeedToken    string `json:"feedToken"`
}

// TokenData is the token pair returned by a refresh.
type TokenData struct {
	JWTToken  string `json:"jwtToken"`
	FeedToken string `json:"feedToken"`
}

// LTPRequest identifies the instrument for a last-traded-price lookup.
type LTPRequest struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

// AngelAPI is the SmartAPI REST client.
type AngelAPI struct {
	client  *http.Client
	baseURL string

	// Client identity headers the SmartAPI requires on every call.
	localIP    string
	publicIP   string
	macAddress string
}

// NewAngelAPI creates a SmartAPI client with default settings.
func NewAngelAPI(baseURL string) *AngelAPI {
	return NewAngelAPIWithClient(baseURL, nil)
}

// NewAngelAPIWithClient creates a SmartAPI client with a custom HTTP client
// (tests, custom transport).
func NewAngelAPIWithClient(baseURL string, client *http.Client) *AngelAPI {
	if baseURL == "" {
		baseURL = "https://apiconnect.angelbroking.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &AngelAPI{
		client:     client,
		baseURL:    baseURL,
		localIP:    "127.0.0.1",
		publicIP:   "127.0.0.1",
		macAddress: "00:00:00:00:00:00",
	}
}

// WithClientIdentity overrides the client IP/MAC identity headers.
func (a *AngelAPI) WithClientIdentity(localIP, publicIP, macAddress string) *AngelAPI {
	if localIP != "" {
		a.localIP = localIP
	}
	if publicIP != "" {
		a.publicIP = publicIP
	}
	if macAddress != "" {
		a.macAddress = macAddress
	}
	return a
}

// Login authenticates a client against the SmartAPI password login endpoint.
func (a *AngelAPI) Login(ctx context.Context, creds Credentials) (*LoginData, error) {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	payload := map[string]string{
		"clientcode": creds.ClientID,
		"password":   creds.Password,
		"totp":       creds.TOTP,
	}

	var data LoginData
	if err := a.call(ctx, loginPath, payload, headerOpts{apiKey: creds.APIKey}, &data); err != nil {
		return nil, err
	}
	if data.JWTToken == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "login succeeded but no tokens returned"}
	}
	return &data, nil
}

// GetLTP retrieves the last traded price payload for an instrument. The
// upstream data object is passed through untouched.
func (a *AngelAPI) GetLTP(ctx context.Context, bearerToken string, req LTPRequest) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, marketTimeout)
	defer cancel()

	if req.Exchange == "" {
		req.Exchange = DefaultExchange
	}

	var data json.RawMessage
	if err := a.call(ctx, ltpPath, req, headerOpts{bearerToken: bearerToken}, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// RefreshTokens exchanges a refresh token for a fresh jwt/feed token pair.
func (a *AngelAPI) RefreshTokens(ctx context.Context, apiKey, refreshToken string) (*TokenData, error) {
	payload := map[string]string{"refreshToken": refreshToken}

	var data TokenData
	if err := a.call(ctx, refreshPath, payload, headerOpts{apiKey: apiKey}, &data); err != nil {
		return nil, err
	}
	if data.JWTToken == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "refresh succeeded but no tokens returned"}
	}
	return &data, nil
}

// Logout terminates the upstream session for a client.
func (a *AngelAPI) Logout(ctx context.Context, bearerToken, clientID string) error {
	payload := map[string]string{"clientcode": clientID}
	return a.call(ctx, logoutPath, payload, headerOpts{bearerToken: bearerToken}, nil)
}

type headerOpts struct {
	apiKey      string
	bearerToken string
}

// call posts a JSON payload to a SmartAPI endpoint and decodes the envelope.
// A non-2xx status or an envelope with status=false becomes an *APIError.
func (a *AngelAPI) call(ctx context.Context, path string, payload interface{}, opts headerOpts, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-ClientLocalIP", a.localIP)
	req.Header.Set("X-ClientPublicIP", a.publicIP)
	req.Header.Set("X-MACAddress", a.macAddress)
	if opts.apiKey != "" {
		req.Header.Set("X-PrivateKey", opts.apiKey)
	}
	if opts.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.bearerToken)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 64KB cap to avoid huge payloads
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var envelope apiEnvelope
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if decodeErr == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
			apiErr.ErrorCode = envelope.ErrorCode
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decoding response: %w", decodeErr)
	}
	if !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = "upstream rejected the request"
		}
		return &APIError{Status: resp.StatusCode, Message: msg, ErrorCode: envelope.ErrorCode}
	}

	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 || bytes.Equal(bytes.TrimSpace(envelope.Data), []byte("null")) {
		return &APIError{Status: resp.StatusCode, Message: "upstream returned no data"}
	}
	return json.Unmarshal(envelope.Data, out)
}
