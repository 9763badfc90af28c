package datasource

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/podds"
)

// ParseHTML reads match records from the first html table whose header row
// carries the same column names ParseCSV accepts
func ParseHTML(r io.Reader) ([]podds.MatchRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		out      []podds.MatchRecord
		found    bool
		firstErr error
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}
		idx, err := newColumnIndex(cellTexts(rows.First()))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		found = true
		rows.Slice(1, rows.Length()).Each(func(i int, tr *goquery.Selection) {
			cells := cellTexts(tr)
			if isEmptyRow(cells) {
				return
			}
			rec, err := idx.parseRow(cells)
			if err != nil {
				logger.Warn("Skipping table row", i+2, err)
				return
			}
			out = append(out, rec)
		})
		return false
	})

	if !found {
		if firstErr != nil {
			return nil, fmt.Errorf("no usable results table: %w", firstErr)
		}
		return nil, fmt.Errorf("no results table found")
	}
	logger.Debug("Parsed HTML records", len(out))
	return out, nil
}

func cellTexts(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(c.Text()))
	})
	return cells
}
