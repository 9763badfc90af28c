package tools

import (
	"fmt"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/internal/processor"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/richard-senior/matchpredict/pkg/protocol"
)

func FootballPredictTool() protocol.Tool {
	return protocol.Tool{
		Name: "football_predict",
		Description: `
		Predicts the outcome of upcoming football fixtures by Monte Carlo simulation of Poisson goal counts.
		Fixtures are the rows of the data source without a final score, every other row is used as history.
		Returns a markdown table with home/draw/away percentages, expected goals and the most likely score.
		Fixtures that cannot be predicted are listed with an error rather than failing the whole call.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"data": {
					Type:        "string",
					Description: "Where to read matches from: a CSV or HTML file path, an http(s) url such as a football-data.co.uk season CSV, or sqlite:/path/to/db",
				},
				"simulations": {
					Type:        "integer",
					Description: "Number of simulated matches per fixture",
					Minimum:     protocol.Float(podds.MinSimulations),
					Maximum:     protocol.Float(podds.MaxSimulations),
				},
				"last_n_games": {
					Type:        "integer",
					Description: "How many recent matches form each team's window",
					Minimum:     protocol.Float(podds.MinLastNGames),
					Maximum:     protocol.Float(podds.MaxLastNGames),
				},
				"seed": {
					Type:        "integer",
					Description: "Random seed, set it to make the run reproducible. Seeds above 2^53 can be given as a decimal string",
				},
				"separate_home_away": {
					Type:        "boolean",
					Description: "Use only home games for the home side and away games for the away side",
				},
				"output": {
					Type:        "string",
					Description: "Optional path to export the table as CSV",
				},
				"save": {
					Type:        "boolean",
					Description: "Store the predictions in the configured database",
				},
			},
			Required: []string{"data"},
		},
	}
}

// HandleFootballPredict runs a prediction batch and renders it as markdown
func (tb *Toolbox) HandleFootballPredict(params any) (any, error) {
	args, err := argsMap(params)
	if err != nil {
		return nil, err
	}
	req, err := predictRequest(args)
	if err != nil {
		return nil, err
	}

	ctx, cancel := tb.context()
	defer cancel()

	res, err := tb.Processor.Predict(ctx, req)
	if err != nil && (res == nil || res.Table == nil) {
		return nil, err
	}
	if err != nil {
		logger.Warn("Returning partial predictions:", err)
	}

	md, mdErr := res.Table.MarkdownSummary()
	if mdErr != nil {
		return nil, mdErr
	}
	if err != nil {
		md = fmt.Sprintf("%s\n\nStopped early: %v", md, err)
	}

	result := protocol.TextResult(md)
	result.StructuredContent = map[string]any{
		"fixtures":  len(res.Table.Rows),
		"predicted": len(res.Table.Valid()),
		"failed":    len(res.Table.Failed()),
		"seed":      res.Table.Seed,
		"csv":       res.CSVPath,
		"runId":     res.RunID,
	}
	return result, nil
}

func predictRequest(args map[string]any) (processor.PredictRequest, error) {
	req := processor.PredictRequest{
		Source:    stringArg(args, "data"),
		OutputCSV: stringArg(args, "output"),
	}
	if req.Source == "" {
		return req, &podds.InvalidParameterError{Name: "data", Value: "", Reason: "a data source is required"}
	}

	var err error
	if req.Simulations, err = intArg(args, "simulations"); err != nil {
		return req, err
	}
	if req.LastNGames, err = intArg(args, "last_n_games"); err != nil {
		return req, err
	}
	if req.Seed, err = seedArg(args, "seed"); err != nil {
		return req, err
	}
	if req.SeparateHomeAway, err = boolArg(args, "separate_home_away"); err != nil {
		return req, err
	}
	save, err := boolArg(args, "save")
	if err != nil {
		return req, err
	}
	req.Save = save != nil && *save
	return req, nil
}
