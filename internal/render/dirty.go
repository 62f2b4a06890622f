package render

import (
	"strings"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
)

// Region is a bitset over the closed enumeration of UI areas. Union is
// the only mutation until the scheduler flushes and clears it.
type Region uint32

const (
	// RegionList is the watch-list table
	RegionList Region = 1 << iota
	// RegionDetail is the instrument detail pane
	RegionDetail
	// RegionPortfolio is the holdings/account pane
	RegionPortfolio
	// RegionQuote is the current-quote header
	RegionQuote
	// RegionDepth is the order book pane
	RegionDepth
	// RegionChart is the candle chart
	RegionChart
	// RegionTrades is the recent-trades feed
	RegionTrades
	// RegionNav is the navigation bar
	RegionNav
	// RegionStatus is the connection/recency status bar
	RegionStatus

	// RegionNone marks nothing
	RegionNone Region = 0
	// RegionAll marks a full redraw
	RegionAll Region = 1<<9 - 1
)

// Union returns r with the given regions added.
func (r Region) Union(other Region) Region {
	return r | other
}

// Has reports whether all bits of other are marked.
func (r Region) Has(other Region) bool {
	return r&other == other
}

// Empty reports whether nothing is marked.
func (r Region) Empty() bool {
	return r == RegionNone
}

func (r Region) String() string {
	if r == RegionAll {
		return "all"
	}
	names := []struct {
		bit  Region
		name string
	}{
		{RegionList, "list"},
		{RegionDetail, "detail"},
		{RegionPortfolio, "portfolio"},
		{RegionQuote, "quote"},
		{RegionDepth, "depth"},
		{RegionChart, "chart"},
		{RegionTrades, "trades"},
		{RegionNav, "nav"},
		{RegionStatus, "status"},
	}
	var parts []string
	for _, n := range names {
		if r.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// RegionsFor maps a change category to the regions it dirties. A quote
// change also dirties aggregated views (watch-list, detail header,
// status recency); depth, trades and candles dirty their own pane plus
// the detail view that embeds them.
func RegionsFor(category domain.Category) Region {
	switch category {
	case domain.CategoryQuote:
		return RegionQuote | RegionList | RegionDetail | RegionStatus
	case domain.CategoryDepth:
		return RegionDepth | RegionDetail
	case domain.CategoryTrade:
		return RegionTrades | RegionDetail
	case domain.CategoryCandle:
		return RegionChart | RegionDetail
	default:
		return RegionNone
	}
}
