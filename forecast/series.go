package forecast

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SERIES HELPERS - Views derived from a sparse projection
// =============================================================================

// DailySeries expands a sparse series into one point per account per day of
// window. Days without events repeat the previous balance (Balance ==
// PreviousBalance). Points outside window are dropped.
func DailySeries(points []ProjectionPoint, window Window) []ProjectionPoint {
	byAccount := make(map[AccountID][]ProjectionPoint)
	for _, p := range points {
		byAccount[p.AccountID] = append(byAccount[p.AccountID], p)
	}
	ids := make([]AccountID, 0, len(byAccount))
	for id := range byAccount {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var dense []ProjectionPoint
	for _, id := range ids {
		series := byAccount[id]
		sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

		// Balance at the end of the day before the window.
		i := 0
		running := series[0].PreviousBalance
		for ; i < len(series) && series[i].Date.Before(window.Start); i++ {
			running = series[i].Balance
		}

		for _, day := range window.Days() {
			p := ProjectionPoint{AccountID: id, Date: day, Balance: running, PreviousBalance: running}
			if i < len(series) && series[i].Date == day {
				p.PreviousBalance = series[i].PreviousBalance
				p.Balance = series[i].Balance
				i++
			}
			running = p.Balance
			dense = append(dense, p)
		}
	}

	sort.SliceStable(dense, func(i, j int) bool { return dense[i].Date.Before(dense[j].Date) })
	return dense
}

// LowPoint is the lowest projected balance of an account.
type LowPoint struct {
	AccountID AccountID
	Date      LogicalDate
	Balance   decimal.Decimal
}

// LowestBalances returns, for every account in points, its minimum balance
// and the earliest date it is reached. Sorted by account ID.
func LowestBalances(points []ProjectionPoint) []LowPoint {
	lows := make(map[AccountID]LowPoint)
	for _, p := range points {
		cur, ok := lows[p.AccountID]
		if !ok || p.Balance.LessThan(cur.Balance) ||
			(p.Balance.Equal(cur.Balance) && p.Date.Before(cur.Date)) {
			lows[p.AccountID] = LowPoint{AccountID: p.AccountID, Date: p.Date, Balance: p.Balance}
		}
	}

	result := make([]LowPoint, 0, len(lows))
	for _, lp := range lows {
		result = append(result, lp)
	}
	slices.SortFunc(result, func(a, b LowPoint) int {
		switch {
		case a.AccountID < b.AccountID:
			return -1
		case a.AccountID > b.AccountID:
			return 1
		}
		return 0
	})
	return result
}
