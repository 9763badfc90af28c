package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/richard-senior/matchpredict/internal/processor"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/richard-senior/matchpredict/pkg/protocol"
	"github.com/shopspring/decimal"
)

func TeamFormTool() protocol.Tool {
	return protocol.Tool{
		Name: "team_form",
		Description: `
		Gets a team's recent form from a match data source: average goals scored and conceded,
		the last five results (most recent first, e.g. WWDLW) and the share of points taken.
		Only matches played strictly before the given date are used.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"data": {
					Type:        "string",
					Description: "Where to read matches from: file path, http(s) url or sqlite:/path/to/db",
				},
				"team": {
					Type:        "string",
					Description: "Team name exactly as it appears in the data, e.g. 'Man United'",
				},
				"before": {
					Type:        "string",
					Description: "Only use matches before this date (YYYY-MM-DD). Defaults to now.",
				},
				"last_n_games": {
					Type:        "integer",
					Description: "Window size",
					Minimum:     protocol.Float(podds.MinLastNGames),
					Maximum:     protocol.Float(podds.MaxLastNGames),
				},
				"venue": {
					Type:        "string",
					Description: "all, home or away",
				},
			},
			Required: []string{"data", "team"},
		},
	}
}

func (tb *Toolbox) HandleTeamForm(params any) (any, error) {
	args, err := argsMap(params)
	if err != nil {
		return nil, err
	}
	req, err := formRequest(args)
	if err != nil {
		return nil, err
	}

	ctx, cancel := tb.context()
	defer cancel()

	form, err := tb.Processor.TeamForm(ctx, req)
	if err != nil {
		return nil, err
	}
	result := protocol.TextResult(describeForm(form))
	result.StructuredContent = form
	return result, nil
}

func formRequest(args map[string]any) (processor.FormRequest, error) {
	req := processor.FormRequest{
		Source: stringArg(args, "data"),
		Team:   stringArg(args, "team"),
	}
	if req.Source == "" {
		return req, &podds.InvalidParameterError{Name: "data", Value: "", Reason: "a data source is required"}
	}

	var err error
	if req.LastNGames, err = intArg(args, "last_n_games"); err != nil {
		return req, err
	}
	if before := stringArg(args, "before"); before != "" {
		if req.Before, err = time.Parse("2006-01-02", before); err != nil {
			return req, &podds.InvalidParameterError{Name: "before", Value: before, Reason: "must be a YYYY-MM-DD date"}
		}
	}
	switch v := strings.ToLower(stringArg(args, "venue")); v {
	case "", "all":
		req.Venue = podds.VenueAll
	case "home":
		req.Venue = podds.VenueHome
	case "away":
		req.Venue = podds.VenueAway
	default:
		return req, &podds.InvalidParameterError{Name: "venue", Value: v, Reason: "must be all, home or away"}
	}
	return req, nil
}

func describeForm(f *podds.TeamForm) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s, last %d games (%s): %s\n", f.Team, f.GamesUsed, f.Venue, f.FormString())
	fmt.Fprintf(&sb, "Scored %s and conceded %s per game, %s of available points",
		decimal.NewFromFloat(f.AvgGoalsScored).StringFixed(2),
		decimal.NewFromFloat(f.AvgGoalsConceded).StringFixed(2),
		decimal.NewFromFloat(f.FormPercentage).StringFixed(2)+"%")
	if f.ReducedConfidence {
		fmt.Fprintf(&sb, "\nOnly %d of the requested %d games were available", f.GamesUsed, f.WindowSize)
	}
	return sb.String()
}
