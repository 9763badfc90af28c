package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/podds"
)

// Canonical field names. Headers from either supported schema map onto these.
const (
	fieldID        = "id"
	fieldLeague    = "league"
	fieldSeason    = "season"
	fieldHomeTeam  = "home_team"
	fieldAwayTeam  = "away_team"
	fieldDate      = "date"
	fieldTime      = "time"
	fieldGoalsHome = "goals_home"
	fieldGoalsAway = "goals_away"
)

var headerAliases = map[string]string{
	"id":         fieldID,
	"match_id":   fieldID,
	"league":     fieldLeague,
	"div":        fieldLeague,
	"season":     fieldSeason,
	"home_team":  fieldHomeTeam,
	"hometeam":   fieldHomeTeam,
	"home":       fieldHomeTeam,
	"away_team":  fieldAwayTeam,
	"awayteam":   fieldAwayTeam,
	"away":       fieldAwayTeam,
	"date":       fieldDate,
	"time":       fieldTime,
	"goals_home": fieldGoalsHome,
	"fthg":       fieldGoalsHome,
	"hg":         fieldGoalsHome,
	"goals_away": fieldGoalsAway,
	"ftag":       fieldGoalsAway,
	"ag":         fieldGoalsAway,
}

var requiredFields = []string{fieldHomeTeam, fieldAwayTeam, fieldDate, fieldGoalsHome, fieldGoalsAway}

// football-data.co.uk dates are UK local time
var ukDateTimeFormats = []string{
	"02/01/2006 15:04",
	"02/01/06 15:04",
}

var isoDateTimeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// columnIndex maps canonical field names to column positions
type columnIndex map[string]int

func newColumnIndex(headers []string) (columnIndex, error) {
	idx := columnIndex{}
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if f, ok := headerAliases[h]; ok {
			if _, dup := idx[f]; !dup {
				idx[f] = i
			}
		}
	}
	var missing []string
	for _, f := range requiredFields {
		if _, ok := idx[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) get(row []string, field string) string {
	i, ok := c[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseRow converts one table row. Blank or -1 goals mark a fixture.
// Unplayed rows are returned even when invalid so the prediction table can flag them.
func (c columnIndex) parseRow(row []string) (podds.MatchRecord, error) {
	rec := podds.MatchRecord{
		ID:       c.get(row, fieldID),
		League:   c.get(row, fieldLeague),
		Season:   c.get(row, fieldSeason),
		HomeTeam: c.get(row, fieldHomeTeam),
		AwayTeam: c.get(row, fieldAwayTeam),
	}

	var err error
	if rec.GoalsHome, err = parseGoals(c.get(row, fieldGoalsHome)); err != nil {
		return rec, fmt.Errorf("home goals: %w", err)
	}
	if rec.GoalsAway, err = parseGoals(c.get(row, fieldGoalsAway)); err != nil {
		return rec, fmt.Errorf("away goals: %w", err)
	}

	date, dateErr := parseDateTime(c.get(row, fieldDate), c.get(row, fieldTime))
	rec.Date = date
	if rec.GoalsHome == podds.NotPlayed && rec.GoalsAway == podds.NotPlayed {
		return rec, nil
	}
	if dateErr != nil {
		return rec, dateErr
	}
	return rec, rec.Validate()
}

func parseGoals(v string) (int, error) {
	if valueIsBlank(v) {
		return podds.NotPlayed, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid goal count %q", v)
	}
	return int(f), nil
}

// valueIsBlank treats empty, NA and -1 as missing
func valueIsBlank(v string) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "NA", "N/A", "-":
		return true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == -1 {
		return true
	}
	return false
}

// parseDateTime accepts ISO dates (taken as UTC) and football-data.co.uk
// dd/mm/yy[yy] dates (taken as UK local time, 15:00 when no time is given)
func parseDateTime(date, clock string) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("no date")
	}

	if strings.Contains(date, "/") {
		if clock == "" {
			clock = "15:00"
		}
		dt := date + " " + clock
		for _, f := range ukDateTimeFormats {
			if t, err := time.Parse(f, dt); err == nil {
				return ukToUTC(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("could not parse date %q", dt)
	}

	if t, err := time.Parse("2006-01-02", date); err == nil {
		if clock != "" {
			if c, err := time.Parse("15:04", clock); err == nil {
				t = t.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute)
			}
		}
		return t, nil
	}
	for _, f := range isoDateTimeFormats {
		if t, err := time.Parse(f, date); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date %q", date)
}

func ukToUTC(t time.Time) time.Time {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return t.UTC()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc).UTC()
}

// ParseCSV reads match records from CSV in the simple or the
// football-data.co.uk schema. Rows that cannot be parsed are skipped and logged.
func ParseCSV(r io.Reader) ([]podds.MatchRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV header: %w", err)
	}
	idx, err := newColumnIndex(headers)
	if err != nil {
		return nil, err
	}

	var out []podds.MatchRecord
	line := 1
	for {
		row, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV at line %d: %w", line, err)
		}
		if isEmptyRow(row) {
			continue
		}
		rec, err := idx.parseRow(row)
		if err != nil {
			logger.Warn("Skipping row", line, err)
			continue
		}
		out = append(out, rec)
	}
	logger.Debug("Parsed CSV records", len(out))
	return out, nil
}

// LoadCSV reads a CSV file from disk
func LoadCSV(path string) ([]podds.MatchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	recs, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
