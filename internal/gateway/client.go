package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/infra"

	"github.com/shopspring/decimal"
)

// Client is the OpenAPI REST client (boundary layer). Every call goes
// through the shared limiter, including retries.
type Client struct {
	baseURL    string
	creds      infra.Credentials
	limiter    *Limiter
	httpClient *http.Client
}

// NewClient creates a new OpenAPI client sharing the given limiter with
// the push stream.
func NewClient(baseURL string, creds infra.Credentials, limiter *Limiter) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		limiter: limiter,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// QueryQuotes fetches full quote snapshots (including prev_close, which
// push frames never carry) for the given instruments.
func (c *Client) QueryQuotes(ctx context.Context, instruments []domain.Instrument) ([]QuotePayload, error) {
	symbols := make([]string, len(instruments))
	for i, inst := range instruments {
		symbols[i] = inst.String()
	}

	var payloads []QuotePayload
	err := c.limiter.Execute(ctx, "query_quotes", func(ctx context.Context) error {
		return c.getJSON(ctx, "/v1/quote", url.Values{"symbols": {strings.Join(symbols, ",")}}, &payloads)
	})
	return payloads, err
}

// QueryCandles fetches the most recent bars for one instrument and period.
func (c *Client) QueryCandles(ctx context.Context, inst domain.Instrument, period domain.CandlePeriod, count int) ([]CandlePayload, error) {
	var payloads []CandlePayload
	err := c.limiter.Execute(ctx, "query_candles", func(ctx context.Context) error {
		return c.getJSON(ctx, "/v1/candles", url.Values{
			"symbol": {inst.String()},
			"period": {string(period)},
			"count":  {fmt.Sprint(count)},
		}, &payloads)
	})
	return payloads, err
}

// QueryStaticInfo fetches instrument metadata (names, lot sizes).
func (c *Client) QueryStaticInfo(ctx context.Context, instruments []domain.Instrument) ([]StaticInfoPayload, error) {
	symbols := make([]string, len(instruments))
	for i, inst := range instruments {
		symbols[i] = inst.String()
	}

	var payloads []StaticInfoPayload
	err := c.limiter.Execute(ctx, "query_static_info", func(ctx context.Context) error {
		return c.getJSON(ctx, "/v1/static", url.Values{"symbols": {strings.Join(symbols, ",")}}, &payloads)
	})
	return payloads, err
}

// QueryAccount fetches account balance and positions.
func (c *Client) QueryAccount(ctx context.Context) (*AccountPayload, error) {
	var payload AccountPayload
	err := c.limiter.Execute(ctx, "query_account", func(ctx context.Context) error {
		return c.getJSON(ctx, "/v1/account", nil, &payload)
	})
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.creds.AppKey)
	req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError("get "+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError("read "+path, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("429 too many requests: %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.NewFatalNetworkError("get "+path, fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &domain.DecodeError{Source: "api", Err: err}
	}
	if envelope.Code != 0 {
		return fmt.Errorf("api error %d: %s", envelope.Code, envelope.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &domain.DecodeError{Source: "api", Err: err}
	}
	return nil
}

// ToQuote converts a REST quote payload into the domain type.
func (p QuotePayload) ToQuote() (domain.Quote, error) {
	lastDone, err := decimal.NewFromString(p.LastDone)
	if err != nil {
		return domain.Quote{}, &domain.DecodeError{Source: "api", Err: err}
	}
	prevClose, err := decimal.NewFromString(p.PrevClose)
	if err != nil {
		return domain.Quote{}, &domain.DecodeError{Source: "api", Err: err}
	}
	open, _ := decimal.NewFromString(p.Open)
	high, _ := decimal.NewFromString(p.High)
	low, _ := decimal.NewFromString(p.Low)
	turnover, _ := decimal.NewFromString(p.Turnover)

	return domain.Quote{
		LastDone:  lastDone,
		PrevClose: prevClose,
		Open:      open,
		High:      high,
		Low:       low,
		Volume:    p.Volume,
		Turnover:  turnover,
		Timestamp: time.UnixMilli(p.Timestamp),
	}, nil
}

// ToCandle converts a REST candle payload into the domain type.
func (p CandlePayload) ToCandle() (domain.Candle, error) {
	open, err := decimal.NewFromString(p.Open)
	if err != nil {
		return domain.Candle{}, &domain.DecodeError{Source: "api", Err: err}
	}
	high, _ := decimal.NewFromString(p.High)
	low, _ := decimal.NewFromString(p.Low)
	cls, err := decimal.NewFromString(p.Close)
	if err != nil {
		return domain.Candle{}, &domain.DecodeError{Source: "api", Err: err}
	}

	return domain.Candle{
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    p.Volume,
		Timestamp: time.UnixMilli(p.Timestamp),
	}, nil
}
