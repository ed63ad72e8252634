package seo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseCSV reads path,engine,impressions,clicks,ctr records. A header row
// whose first column is "path" is skipped. Blank clicks or ctr read as 0.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var rows []Row
	line := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line++
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "path") {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want at least path,engine,impressions", line)
		}

		row := Row{Path: strings.TrimSpace(rec[0]), Engine: strings.TrimSpace(rec[1])}
		if row.Impressions, err = parseCount(rec[2]); err != nil {
			return nil, fmt.Errorf("line %d: impressions: %w", line, err)
		}
		if len(rec) > 3 {
			if row.Clicks, err = parseCount(rec[3]); err != nil {
				return nil, fmt.Errorf("line %d: clicks: %w", line, err)
			}
		}
		if len(rec) > 4 {
			if row.CTR, err = parseCTR(rec[4]); err != nil {
				return nil, fmt.Errorf("line %d: ctr: %w", line, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseCTR accepts "0.032" or "3.2%".
func parseCTR(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		return v / 100, err
	}
	return strconv.ParseFloat(s, 64)
}
