package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/merchantkit/unionpay-bridge/internal/domain/errors"
	"github.com/shopspring/decimal"
)

const (
	productionBaseURL = "https://api.yedpay.com/v1"
	stagingBaseURL    = "https://sandbox.yedpay.com/v1"

	defaultRequestTimeout = 30 * time.Second
)

// YedpayClient talks to the Yedpay API over HTTP. Transport failures and
// timeouts surface as ErrGatewayUnreachable; explicit provider rejections
// come back as a Result with Success false.
type YedpayClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// YedpayOption configures a YedpayClient.
type YedpayOption func(*YedpayClient)

// WithHTTPClient overrides the underlying HTTP client (used in tests).
func WithHTTPClient(c *http.Client) YedpayOption {
	return func(y *YedpayClient) { y.httpClient = c }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) YedpayOption {
	return func(y *YedpayClient) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout bounds every gateway request.
func WithTimeout(d time.Duration) YedpayOption {
	return func(y *YedpayClient) { y.httpClient.Timeout = d }
}

// NewYedpayClient creates a client for the given operation mode.
func NewYedpayClient(mode Mode, token string, opts ...YedpayOption) *YedpayClient {
	baseURL := stagingBaseURL
	if mode == ModeProduction {
		baseURL = productionBaseURL
	}

	c := &YedpayClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *YedpayClient) Name() string { return "yedpay" }

// CreateTransaction pre-creates a transaction for later checkout.
func (c *YedpayClient) CreateTransaction(ctx context.Context, req CreateRequest) (*Result, error) {
	form := url.Values{}
	form.Set("amount", centsToDecimalString(req.AmountCents))
	form.Set("currency", strconv.Itoa(req.CurrencyIndex))
	form.Set("gateway_code", strconv.Itoa(req.GatewayCode))
	form.Set("return_url", req.ReturnURL)
	form.Set("notify_url", req.NotifyURL)
	form.Set("extra_parameters", req.Extra)

	endpoint := fmt.Sprintf("%s/precreate/%s", c.baseURL, url.PathEscape(req.StoreID))
	return c.do(ctx, endpoint, form)
}

// Refund refunds the full amount of a settled transaction.
func (c *YedpayClient) Refund(ctx context.Context, transactionID string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s/refund", c.baseURL, url.PathEscape(transactionID))
	return c.do(ctx, endpoint, url.Values{})
}

// apiEnvelope is the provider's response envelope.
type apiEnvelope struct {
	Success   bool            `json:"success"`
	Status    int             `json:"status"`
	Data      TransactionData `json:"data"`
	ErrorCode json.Number     `json:"error_code"`
	Message   string          `json:"message"`
}

func (c *YedpayClient) do(ctx context.Context, endpoint string, form url.Values) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w: %v", domainErrors.ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w: %v", domainErrors.ErrGatewayUnreachable, err)
	}

	if !envelope.Success {
		return &Result{
			Success:      false,
			ErrorCode:    envelope.ErrorCode.String(),
			ErrorMessage: envelope.Message,
		}, nil
	}

	return &Result{Success: true, Data: envelope.Data}, nil
}

// centsToDecimalString renders a cent amount the way the provider expects,
// e.g. 12345 -> "123.45".
func centsToDecimalString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
