package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-analytics-api/internal/config"
	"portfolio-analytics-api/internal/models"
)

// BrokerClient fetches account holdings, dividend records and historical
// prices from the upstream brokerage service.
type BrokerClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	retries    int
	retryDelay time.Duration
}

func NewBrokerClient(cfg config.BrokerAPIConfig) *BrokerClient {
	return &BrokerClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:     cfg.APIKey,
		retries:    cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// GetAccounts retrieves the identifiers of all serviced accounts
func (bc *BrokerClient) GetAccounts(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/accounts", bc.baseURL)

	var response struct {
		Data []string `json:"data"`
	}

	if err := bc.makeRequest(ctx, http.MethodGet, url, &response); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return response.Data, nil
}

// GetPositions retrieves the current positions of an account
func (bc *BrokerClient) GetPositions(ctx context.Context, accountID string) ([]models.Position, error) {
	url := fmt.Sprintf("%s/accounts/%s/positions", bc.baseURL, accountID)

	var response struct {
		Data []models.Position `json:"data"`
	}

	if err := bc.makeRequest(ctx, http.MethodGet, url, &response); err != nil {
		return nil, fmt.Errorf("failed to get positions for account %s: %w", accountID, err)
	}

	return response.Data, nil
}

// GetDividends retrieves the dividend history of an account
func (bc *BrokerClient) GetDividends(ctx context.Context, accountID string, from, to time.Time) ([]models.Dividend, error) {
	url := fmt.Sprintf("%s/accounts/%s/dividends?from=%s&to=%s",
		bc.baseURL, accountID,
		from.Format("2006-01-02"),
		to.Format("2006-01-02"))

	var response struct {
		Data []models.Dividend `json:"data"`
	}

	if err := bc.makeRequest(ctx, http.MethodGet, url, &response); err != nil {
		return nil, fmt.Errorf("failed to get dividends for account %s: %w", accountID, err)
	}

	return response.Data, nil
}

// GetPies retrieves the named sub-portfolios of an account
func (bc *BrokerClient) GetPies(ctx context.Context, accountID string) ([]models.Pie, error) {
	url := fmt.Sprintf("%s/accounts/%s/pies", bc.baseURL, accountID)

	var response struct {
		Data []models.Pie `json:"data"`
	}

	if err := bc.makeRequest(ctx, http.MethodGet, url, &response); err != nil {
		return nil, fmt.Errorf("failed to get pies for account %s: %w", accountID, err)
	}

	return response.Data, nil
}

// GetPieReturns retrieves the daily return series of a single pie
func (bc *BrokerClient) GetPieReturns(ctx context.Context, accountID, pieID string, from, to time.Time) ([]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/accounts/%s/pies/%s/returns?from=%s&to=%s",
		bc.baseURL, accountID, pieID,
		from.Format("2006-01-02"),
		to.Format("2006-01-02"))

	var response struct {
		Data []decimal.Decimal `json:"data"`
	}

	if err := bc.makeRequest(ctx, http.MethodGet, url, &response); err != nil {
		return nil, fmt.Errorf("failed to get returns for pie %s: %w", pieID, err)
	}

	return response.Data, nil
}

// GetHistoricalPrices retrieves daily price history for a symbol
func (bc *BrokerClient) GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time) (*models.HistoricalData, error) {
	url := fmt.Sprintf("%s/prices/%s/history?from=%s&to=%s",
		bc.baseURL,
		strings.ToUpper(symbol),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"))

	var response struct {
		Data []models.PricePoint `json:"data"`
	}

	if err := bc.makeRequest(ctx, http.MethodGet, url, &response); err != nil {
		return nil, fmt.Errorf("failed to get historical prices for %s: %w", symbol, err)
	}

	return &models.HistoricalData{
		Symbol: strings.ToUpper(symbol),
		Points: response.Data,
	}, nil
}

// GetPortfolioReturns retrieves the account's daily return series
func (bc *BrokerClient) GetPortfolioReturns(ctx context.Context, accountID string, from, to time.Time) ([]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/accounts/%s/returns?from=%s&to=%s",
		bc.baseURL, accountID,
		from.Format("2006-01-02"),
		to.Format("2006-01-02"))

	var response struct {
		Data []decimal.Decimal `json:"data"`
	}

	if err := bc.makeRequest(ctx, http.MethodGet, url, &response); err != nil {
		return nil, fmt.Errorf("failed to get returns for account %s: %w", accountID, err)
	}

	return response.Data, nil
}

// IsHealthy checks if the brokerage service answers its health endpoint
func (bc *BrokerClient) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bc.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := bc.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// makeRequest performs HTTP request with retry logic
func (bc *BrokerClient) makeRequest(ctx context.Context, method, url string, response interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= bc.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt*attempt) * bc.retryDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Portfolio-Analytics-API/1.0")
		if bc.apiKey != "" {
			req.Header.Set("X-API-Key", bc.apiKey)
		}

		resp, err := bc.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited")
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: request failed", resp.StatusCode)
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(response)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to decode response: %w", err)
			continue
		}

		return nil
	}

	return fmt.Errorf("request failed after %d attempts: %w", bc.retries+1, lastErr)
}
