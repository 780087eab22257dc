// Package export renders request history as CSV for download.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
)

// Header is the fixed column order of an exported history file.
var Header = []string{
	"ID",
	"Item",
	"Quantity",
	"Status",
	"Requested By",
	"Requested At",
	"Processed By",
	"Processed At",
	"Refilled By",
	"Refilled At",
	"No Stock By",
	"No Stock At",
}

const timestampLayout = "Jan 2, 2006, 3:04 PM"

// WriteCSV writes the given requests as CSV. Missing attributions render as
// "N/A" so spreadsheet rows stay aligned.
func WriteCSV(w io.Writer, reqs []models.RefillRequest) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}

	for i := range reqs {
		if err := cw.Write(row(&reqs[i])); err != nil {
			return errors.Wrap(err, "failed to write CSV row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush CSV")
}

func row(req *models.RefillRequest) []string {
	return []string{
		strconv.FormatInt(req.ID, 10),
		req.Item,
		strconv.Itoa(req.Quantity),
		string(req.Status),
		orNA(&req.RequestedBy),
		timeOrNA(req.RequestedAt),
		orNA(req.ProcessedBy),
		timeOrNA(req.ProcessedAt),
		orNA(req.RefilledBy),
		timeOrNA(req.RefilledAt),
		orNA(req.NoStockBy),
		timeOrNA(req.NoStockAt),
	}
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func timeOrNA(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(timestampLayout)
}
