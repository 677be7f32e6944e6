package factory

import (
	"encoding/csv"
	"io"

	"github.com/warp/cashflow-engine/forecast"
)

// ProjectionHeader is the first row written by WriteProjectionTSV.
var ProjectionHeader = []string{"account_id", "date", "previous_balance", "balance"}

// WriteProjectionTSV writes points as tab-separated values with a header row.
// Balances are written with their full decimal precision.
func WriteProjectionTSV(w io.Writer, points []forecast.ProjectionPoint) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(ProjectionHeader); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			string(p.AccountID),
			p.Date.String(),
			p.PreviousBalance.String(),
			p.Balance.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
