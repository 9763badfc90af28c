package podds

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/shopspring/decimal"
)

// DefaultCSVFile is the export file name used when none is given
const DefaultCSVFile = "football_predictions.csv"

// utf8BOM lets spreadsheet tools detect the encoding
const utf8BOM = "\ufeff"

// Column names of the exported table
const (
	ColFixture           = "Fixture"
	ColDate              = "Date"
	ColHome              = "Home"
	ColAway              = "Away"
	ColPrediction        = "Prediction"
	ColProbability       = "Probability"
	ColProbHomeWin       = "Prob_Home_Win"
	ColProbDraw          = "Prob_Draw"
	ColProbAwayWin       = "Prob_Away_Win"
	ColMediaGMHome       = "Media_GM_H_HA"
	ColMediaGSHome       = "Media_GS_H_HA"
	ColMediaGMAway       = "Media_GM_A_HA"
	ColMediaGSAway       = "Media_GS_A_HA"
	ColXGHome            = "xG_Home"
	ColXGAway            = "xG_Away"
	ColMostLikelyScore   = "Most_Likely_Score"
	ColOver1p5           = "Over_1_5"
	ColOver2p5           = "Over_2_5"
	ColReducedConfidence = "Reduced_Confidence"
	ColError             = "Error"
)

// Columns lists the table columns in output order
var Columns = []string{
	ColFixture, ColDate, ColHome, ColAway, ColPrediction, ColProbability,
	ColProbHomeWin, ColProbDraw, ColProbAwayWin,
	ColMediaGMHome, ColMediaGSHome, ColMediaGMAway, ColMediaGSAway,
	ColXGHome, ColXGAway, ColMostLikelyScore, ColOver1p5, ColOver2p5,
	ColReducedConfidence, ColError,
}

// PredictionRow is the outcome for one fixture: a result, or an error
type PredictionRow struct {
	Index    int               `json:"index"`
	Fixture  MatchRecord       `json:"fixture"`
	Status   string            `json:"status"`
	Result   *SimulationResult `json:"result,omitempty"`
	HomeForm *TeamForm         `json:"homeForm,omitempty"`
	AwayForm *TeamForm         `json:"awayForm,omitempty"`
	Err      error             `json:"-"`
}

// OK reports whether the row holds a result
func (r *PredictionRow) OK() bool {
	return r.Status == StatusOK && r.Result != nil
}

// ErrorMessage is the row error text, empty for successful rows
func (r *PredictionRow) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ReducedConfidence is true when either side's window was short
func (r *PredictionRow) ReducedConfidence() bool {
	return (r.HomeForm != nil && r.HomeForm.ReducedConfidence) ||
		(r.AwayForm != nil && r.AwayForm.ReducedConfidence)
}

// PredictionTable holds one row per fixture in input order
type PredictionTable struct {
	Rows        []PredictionRow `json:"rows"`
	Simulations int             `json:"simulations"`
	LastNGames  int             `json:"lastNGames"`
	Seed        uint64          `json:"seed"`
	Seeded      bool            `json:"seeded"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// Valid returns the rows that hold a result
func (t *PredictionTable) Valid() []PredictionRow {
	var out []PredictionRow
	for _, r := range t.Rows {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the error and cancelled rows
func (t *PredictionTable) Failed() []PredictionRow {
	var out []PredictionRow
	for _, r := range t.Rows {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Record formats a row as strings in Columns order
func (r *PredictionRow) Record() []string {
	rec := make([]string, len(Columns))
	rec[0] = r.Fixture.Label()
	if !r.Fixture.Date.IsZero() {
		rec[1] = r.Fixture.Date.Format("2006-01-02")
	}
	rec[2] = r.Fixture.HomeTeam
	rec[3] = r.Fixture.AwayTeam

	if res := r.Result; res != nil {
		label, p := res.Prediction()
		rec[4] = label
		rec[5] = percent(p)
		rec[6] = percent(res.HomeWin)
		rec[7] = percent(res.Draw)
		rec[8] = percent(res.AwayWin)
		rec[13] = fixed2(res.ExpectedGoalsHome)
		rec[14] = fixed2(res.ExpectedGoalsAway)
		rec[15] = res.MostLikely.String()
		rec[16] = percent(res.Over1p5)
		rec[17] = percent(res.Over2p5)
	}
	if r.HomeForm != nil {
		rec[9] = fixed2(r.HomeForm.AvgGoalsScored)
		rec[10] = fixed2(r.HomeForm.AvgGoalsConceded)
	}
	if r.AwayForm != nil {
		rec[11] = fixed2(r.AwayForm.AvgGoalsScored)
		rec[12] = fixed2(r.AwayForm.AvgGoalsConceded)
	}
	rec[18] = strconv.FormatBool(r.ReducedConfidence())
	rec[19] = r.ErrorMessage()
	return rec
}

// Records formats every row
func (t *PredictionTable) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, t.Rows[i].Record())
	}
	return out
}

// WriteCSV writes a UTF-8 BOM, the header and one line per row. There is no index column.
func (t *PredictionTable) WriteCSV(w io.Writer) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// SaveCSV writes the table to path, DefaultCSVFile when path is empty
func (t *PredictionTable) SaveCSV(path string) (string, error) {
	if path == "" {
		path = DefaultCSVFile
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := t.WriteCSV(bw); err != nil {
		return "", err
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return path, nil
}

// HTML renders the table as a plain html table
func (t *PredictionTable) HTML() string {
	var sb strings.Builder
	sb.WriteString("<table><thead><tr>")
	for _, c := range Columns {
		sb.WriteString("<th>" + html.EscapeString(c) + "</th>")
	}
	sb.WriteString("</tr></thead><tbody>")
	for _, rec := range t.Records() {
		sb.WriteString("<tr>")
		for _, v := range rec {
			sb.WriteString("<td>" + html.EscapeString(v) + "</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
	return sb.String()
}

// Markdown renders the table for chat style clients
func (t *PredictionTable) Markdown() (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(t.HTML())
	if err != nil {
		return "", fmt.Errorf("failed to convert table to markdown: %w", err)
	}
	return md, nil
}

// MarkdownSummary is a short header block followed by the table
func (t *PredictionTable) MarkdownSummary() (string, error) {
	head, err := htmltomarkdown.ConvertString(fmt.Sprintf(
		"<p><strong>%d fixtures</strong>, %d predicted, %d simulations each, last %d games</p>",
		len(t.Rows), len(t.Valid()), t.Simulations, t.LastNGames))
	if err != nil {
		return "", err
	}
	body, err := t.Markdown()
	if err != nil {
		return "", err
	}
	return head + "\n\n" + body, nil
}

func percent(p float64) string {
	return decimal.NewFromFloat(p).Shift(2).StringFixed(2) + "%"
}

func fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
