package gateway

import (
	"encoding/json"
)

// ReadyState mirrors the push connection lifecycle, consumed by the
// status-bar region.
type ReadyState int32

const (
	StateClosed ReadyState = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// PushFrame is the envelope of one push message. The payload shape
// depends on Type and is decoded by the ingestion loop.
type PushFrame struct {
	Type      string          `json:"type"` // "quote", "depth", "trade", "candle"
	Symbol    string          `json:"symbol"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	Data      json.RawMessage `json:"data"`
}

// PushQuote is the payload of a "quote" frame
type PushQuote struct {
	LastDone string `json:"last_done"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Volume   int64  `json:"volume"`
	Turnover string `json:"turnover"`
}

// PushDepthLevel is one order book level in a "depth" frame
type PushDepthLevel struct {
	Position   int    `json:"position"`
	Price      string `json:"price"`
	Volume     int64  `json:"volume"`
	OrderCount int64  `json:"order_num"`
}

// PushDepth is the payload of a "depth" frame
type PushDepth struct {
	Asks []PushDepthLevel `json:"asks"`
	Bids []PushDepthLevel `json:"bids"`
}

// PushTrade is the payload of a "trade" frame
type PushTrade struct {
	Price     string `json:"price"`
	Volume    int64  `json:"volume"`
	Direction string `json:"direction"`
}

// PushCandle is the payload of a "candle" frame
type PushCandle struct {
	Period string `json:"period"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume int64  `json:"volume"`
}

// subscribeCommand is the outbound subscribe/unsubscribe message
type subscribeCommand struct {
	Op      string   `json:"op"` // "subscribe" or "unsubscribe"
	Symbols []string `json:"symbols"`
	SubType []string `json:"sub_type"` // "quote", "depth", "trade"
}

// apiResponse is the REST envelope: code 0 means success
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// QuotePayload is one instrument's snapshot from the quote query
type QuotePayload struct {
	Symbol    string `json:"symbol"`
	LastDone  string `json:"last_done"`
	PrevClose string `json:"prev_close"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Volume    int64  `json:"volume"`
	Turnover  string `json:"turnover"`
	Timestamp int64  `json:"timestamp"`
}

// CandlePayload is one bar from the history query
type CandlePayload struct {
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    int64  `json:"volume"`
	Timestamp int64  `json:"timestamp"`
}

// StaticInfoPayload is instrument metadata from the static-info query
type StaticInfoPayload struct {
	Symbol  string `json:"symbol"`
	NameEn  string `json:"name_en"`
	LotSize int    `json:"lot_size"`
}

// AccountPayload is the account/portfolio query response
type AccountPayload struct {
	Currency    string            `json:"currency"`
	TotalCash   string            `json:"total_cash"`
	NetAssets   string            `json:"net_assets"`
	MarketValue string            `json:"market_value"`
	Positions   []PositionPayload `json:"positions"`
}

// PositionPayload is one holding inside AccountPayload
type PositionPayload struct {
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
	CostPrice string `json:"cost_price"`
}
