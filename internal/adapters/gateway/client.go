// Package gateway talks to the external payment gateway that collects deposits and
// confirms wallet-to-wallet settlements.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/tracing"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultRateLimit = 20
	defaultBurst     = 5
	statusSucceeded  = "succeeded"
)

type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit int // requests per second (0 = default)
	Burst     int
}

type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaultRateLimit
	}
	if config.Burst == 0 {
		config.Burst = defaultBurst
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
		logger:     logger,
	}
}

// Submit collects a deposit. The external reference is sent as the idempotency key so
// a retried submission is never charged twice.
func (c *Client) Submit(ctx context.Context, req entities.DepositSubmission) (*entities.PaymentReceipt, error) {
	body := depositRequest{
		DepositID:   req.DepositID,
		Principal:   req.Principal.String(),
		Method:      string(req.Method),
		ExternalRef: req.ExternalRef,
		Amount:      req.Amount,
	}
	idemKey := string(req.Method) + ":" + req.ExternalRef

	var resp depositResponse
	if err := c.do(ctx, http.MethodPost, "/v1/deposits", idemKey, body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusSucceeded {
		return nil, apperrors.NewValidationErrorf("deposit %s was %s", req.DepositID, resp.Status)
	}

	c.logger.Info("Deposit collected by gateway",
		zap.String("deposit_id", req.DepositID),
		zap.String("payment_id", resp.PaymentID),
		zap.String("rate", resp.Rate.String()))

	return &entities.PaymentReceipt{
		ExternalID: resp.PaymentID,
		Amount:     resp.Amount,
		Rate:       resp.Rate,
		SettledAt:  resp.SettledAt,
	}, nil
}

// Settle confirms a transfer, keyed by its transaction id
func (c *Client) Settle(ctx context.Context, req entities.SettlementRequest) (*entities.PaymentReceipt, error) {
	body := settlementRequest{
		TransactionID: req.TransactionID,
		From:          req.From.String(),
		To:            req.To.String(),
		Amount:        req.Amount,
	}

	var resp settlementResponse
	if err := c.do(ctx, http.MethodPost, "/v1/settlements", req.TransactionID, body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusSucceeded {
		return nil, apperrors.NewValidationErrorf("settlement %s was %s", req.TransactionID, resp.Status)
	}

	c.logger.Info("Transfer settled by gateway",
		zap.String("transaction_id", req.TransactionID),
		zap.String("settlement_id", resp.SettlementID))

	return &entities.PaymentReceipt{
		ExternalID: resp.SettlementID,
		SettledAt:  resp.SettledAt,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, idemKey string, body, response interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.WrapWithType(err, apperrors.ErrorTypeRateLimit, "GATEWAY_THROTTLED", "gateway rate limit wait aborted")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", idemKey)
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	tracing.InjectTraceContext(ctx, req.Header)

	c.logger.Debug("Sending gateway request", zap.String("method", method), zap.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.WrapWithType(err, apperrors.ErrorTypeTransient, "GATEWAY_UNREACHABLE", "gateway request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.WrapWithType(err, apperrors.ErrorTypeTransient, "GATEWAY_UNREACHABLE", "failed to read gateway response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return classify(apiErr)
	}

	if response != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// classify maps a gateway status onto the error taxonomy; only throttling and
// server-side failures are retryable
func classify(apiErr *APIError) error {
	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return apperrors.WrapWithType(apiErr, apperrors.ErrorTypeRateLimit, "GATEWAY_THROTTLED", "gateway rate limited the request")
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return apperrors.WrapWithType(apiErr, apperrors.ErrorTypeTransient, "GATEWAY_UNAVAILABLE", "gateway is unavailable")
	case apiErr.StatusCode == http.StatusConflict:
		return apperrors.WrapWithType(apiErr, apperrors.ErrorTypeConflict, "GATEWAY_CONFLICT", apiErr.Message)
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return apperrors.WrapWithType(apiErr, apperrors.ErrorTypeInternal, "GATEWAY_AUTH", "gateway rejected credentials")
	default:
		return apperrors.WrapWithType(apiErr, apperrors.ErrorTypeValidation, "GATEWAY_REJECTED", apiErr.Message)
	}
}
