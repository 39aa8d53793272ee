package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blockvault/walletcore/internal/logger"
	"github.com/blockvault/walletcore/models"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

// HTTPClientConfig carries the settings of the HTTP wallet transport.
type HTTPClientConfig struct {
	// BaseURL is the wallet API root, e.g. "https://api.example.com".
	BaseURL string
	// APICode identifies the client application to the server and is sent
	// with every request.
	APICode string
	// Timeout bounds every outbound request.
	Timeout time.Duration
}

type httpServerAdapter struct {
	client  *resty.Client
	apiCode string
	log     *logger.Logger

	mu        sync.RWMutex
	token     string
	guid      string
	sharedKey string
}

// NewHTTPServerAdapter constructs the resty-backed [ServerAdapter].
func NewHTTPServerAdapter(cfg HTTPClientConfig, log *logger.Logger) ServerAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpServerAdapter{client: cli, apiCode: cfg.APICode, log: log}
}

func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// SetCredentials stores the wallet identity presented on secure calls
// (payload fetch, update, checksum verification). The login flow calls this
// once the server has confirmed the guid.
func (h *httpServerAdapter) SetCredentials(guid, sharedKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.guid = guid
	h.sharedKey = sharedKey
}

func (h *httpServerAdapter) credentials() (guid, sharedKey string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.guid, h.sharedKey
}

// TokenExpiresAt inspects the session token's exp claim without verifying
// the signature (verification is the server's job; the client only wants to
// know when to expect a renewal). Returns the zero time when no token is
// held or the claim is absent.
func (h *httpServerAdapter) TokenExpiresAt() time.Time {
	token := h.Token()
	if token == "" {
		return time.Time{}
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (h *httpServerAdapter) FetchWallet(ctx context.Context, guid, sharedKey string) (models.WalletResponse, error) {
	req := h.authedRequest(ctx).
		SetQueryParam("format", "json").
		SetQueryParam("resend_code", "false").
		SetQueryParam("ct", strconv.FormatInt(time.Now().UnixMilli(), 10)).
		SetQueryParam("api_code", h.apiCode)
	if sharedKey != "" {
		req.SetQueryParam("sharedKey", sharedKey)
	}

	resp, err := req.Get("/wallet/" + guid)
	if err != nil {
		return models.WalletResponse{}, fmt.Errorf("fetch wallet request: %w", err)
	}
	if err = mapWalletError(resp); err != nil {
		return models.WalletResponse{}, err
	}

	if bearer := resp.Header().Get("Authorization"); bearer != "" {
		if token, tokenErr := parseBearerToken(bearer); tokenErr == nil {
			h.SetToken(token)
			if exp := h.TokenExpiresAt(); !exp.IsZero() {
				h.log.Debug().Time("expires_at", exp).Msg("session token captured")
			}
		}
	}

	var wr models.WalletResponse
	if err = json.Unmarshal(resp.Body(), &wr); err != nil {
		return models.WalletResponse{}, fmt.Errorf("decode wallet response: %w", err)
	}
	return wr, nil
}

func (h *httpServerAdapter) FetchWalletWith2FA(ctx context.Context, guid, code string) (string, error) {
	resp, err := h.authedRequest(ctx).
		SetFormData(map[string]string{
			"guid":     guid,
			"payload":  code,
			"length":   strconv.Itoa(len(code)),
			"method":   "get-wallet",
			"format":   "plain",
			"api_code": h.apiCode,
		}).
		Post("/wallet")
	if err != nil {
		return "", fmt.Errorf("two factor request: %w", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		body := strings.TrimSpace(string(resp.Body()))
		if body == "" {
			body = http.StatusText(resp.StatusCode())
		}
		return "", fmt.Errorf("%w: %s", ErrWrongTwoFactor, body)
	}

	return string(resp.Body()), nil
}

func (h *httpServerAdapter) GetWallet(ctx context.Context, checksum string) (models.WalletResponse, error) {
	form := h.secureForm(map[string]string{
		"method": "wallet.aes.json",
		"format": "json",
	})
	if checksum != "" {
		form["checksum"] = checksum
	}

	resp, err := h.authedRequest(ctx).SetFormData(form).Post("/wallet")
	if err != nil {
		return models.WalletResponse{}, fmt.Errorf("get wallet request: %w", err)
	}
	if err = mapWalletError(resp); err != nil {
		return models.WalletResponse{}, err
	}

	var wr models.WalletResponse
	if err = json.Unmarshal(resp.Body(), &wr); err != nil {
		return models.WalletResponse{}, fmt.Errorf("decode wallet response: %w", err)
	}
	return wr, nil
}

func (h *httpServerAdapter) UpdateWallet(ctx context.Context, req models.UpdateWalletRequest) error {
	req.Length = len(req.Payload)

	form := h.secureForm(map[string]string{
		"method":   "update",
		"format":   "plain",
		"payload":  req.Payload,
		"length":   strconv.Itoa(req.Length),
		"checksum": req.Checksum,
	})
	if req.OldChecksum != "" {
		form["old_checksum"] = req.OldChecksum
	}
	if req.Active != "" {
		form["active"] = req.Active
	}
	if req.Language != "" {
		form["language"] = req.Language
	}

	resp, err := h.authedRequest(ctx).SetFormData(form).Post("/wallet")
	if err != nil {
		return fmt.Errorf("update wallet request: %w", err)
	}

	return mapWalletError(resp)
}

// CheckChecksum re-validates a push: it issues a checksum-conditioned fetch
// and expects the server to answer "Not modified". Anything else means the
// server holds a different payload than the one just submitted.
func (h *httpServerAdapter) CheckChecksum(ctx context.Context, checksum string) error {
	wr, err := h.GetWallet(ctx, checksum)
	if err != nil {
		return err
	}
	if wr.Payload != models.NotModified {
		return ErrChecksumMismatch
	}
	return nil
}

func (h *httpServerAdapter) PollSessionGUID(ctx context.Context) (models.SessionPollResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetQueryParam("format", "json").
		SetQueryParam("api_code", h.apiCode).
		Get("/wallet/poll-for-session-guid")
	if err != nil {
		return models.SessionPollResponse{}, fmt.Errorf("poll session request: %w", err)
	}
	if err = mapWalletError(resp); err != nil {
		return models.SessionPollResponse{}, err
	}

	var pr models.SessionPollResponse
	if err = json.Unmarshal(resp.Body(), &pr); err != nil {
		return models.SessionPollResponse{}, fmt.Errorf("decode poll response: %w", err)
	}
	return pr, nil
}

func (h *httpServerAdapter) Logout(ctx context.Context) error {
	resp, err := h.authedRequest(ctx).
		SetQueryParam("format", "plain").
		SetQueryParam("api_code", h.apiCode).
		Get("/wallet/logout")
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	return mapWalletError(resp)
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// secureForm merges the stored wallet identity into a request form.
func (h *httpServerAdapter) secureForm(form map[string]string) map[string]string {
	guid, sharedKey := h.credentials()
	if guid != "" {
		form["guid"] = guid
	}
	if sharedKey != "" {
		form["sharedKey"] = sharedKey
	}
	if h.apiCode != "" {
		form["api_code"] = h.apiCode
	}
	return form
}

// walletErrorBody is the JSON error shape of the wallet API. The
// authorization_required marker distinguishes a pending out-of-band
// approval from a hard failure.
type walletErrorBody struct {
	InitialError          string `json:"initial_error"`
	AuthorizationRequired bool   `json:"authorization_required"`
}

func mapWalletError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	var parsed walletErrorBody
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		if parsed.AuthorizationRequired {
			if parsed.InitialError != "" {
				return fmt.Errorf("%w: %s", ErrAuthorizationRequired, parsed.InitialError)
			}
			return ErrAuthorizationRequired
		}
		if parsed.InitialError != "" {
			if resp.StatusCode() == http.StatusUnauthorized {
				return fmt.Errorf("%w: %s", ErrUnauthorized, parsed.InitialError)
			}
			return fmt.Errorf("http %d: %s", resp.StatusCode(), parsed.InitialError)
		}
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
}

func parseBearerToken(value string) (string, error) {
	parts := strings.Split(strings.TrimSpace(value), " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
