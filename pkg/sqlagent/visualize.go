package sqlagent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// visualizationRowSampleLimit bounds how many result rows are shown to
// the model when recommending a chart — enough to judge shape and
// cardinality, not the whole table.
const visualizationRowSampleLimit = 20

const visualizationSystemPrompt = `You recommend a chart type for a SQL query result, given the question that was asked, the SQL that produced it, and a sample of the result rows. Reply with ONLY a JSON object of the form {"kind": "...", "reason": "..."}. kind MUST be exactly one of: bar, horizontal_bar, line, pie, scatter, table, none. Use "none" when no chart would help (e.g. a single scalar or no rows).`

var validVisualizationKinds = map[models.VisualizationKind]bool{
	models.VisualizationBar:           true,
	models.VisualizationHorizontalBar: true,
	models.VisualizationLine:          true,
	models.VisualizationPie:           true,
	models.VisualizationScatter:       true,
	models.VisualizationTable:         true,
	models.VisualizationNone:          true,
}

type visualizationResponse struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// RecommendVisualization asks the LM which chart type best fits a
// query's result, given the question, the SQL that produced it, and a
// sample of the rows (spec §6). It is a single LM call with no cache
// requirement, and degrades to {kind: none} specifically when the
// underlying failure is classified LMUnavailable — any other failure
// (Timeout, internal error) propagates so the caller can distinguish
// "the assistant declined to recommend" from "the request never ran."
func (a *Agent) RecommendVisualization(ctx context.Context, question, sql string, table *models.Table) (*models.VisualizationRecommendation, error) {
	if table == nil || len(table.Rows) == 0 {
		return &models.VisualizationRecommendation{Kind: models.VisualizationNone, Reason: "no rows to visualize"}, nil
	}

	userPrompt := fmt.Sprintf(
		"Question: %s\n\nSQL: %s\n\nColumns: %s\nRows:\n%s",
		question, sql, strings.Join(table.Columns, ", "), renderRowSample(table, visualizationRowSampleLimit),
	)
	raw, err := a.lm.Complete(ctx, visualizationSystemPrompt, userPrompt, 0)
	if err != nil {
		var kindErr *models.KindError
		if errors.As(err, &kindErr) && kindErr.Kind == models.ErrorKindLMUnavailable {
			return &models.VisualizationRecommendation{Kind: models.VisualizationNone, Reason: "assistant temporarily unavailable"}, nil
		}
		return nil, classifyLMStageError(err)
	}

	var resp visualizationResponse
	if !decode(raw, &resp) {
		return &models.VisualizationRecommendation{Kind: models.VisualizationNone, Reason: "model reply could not be parsed"}, nil
	}
	kind := models.VisualizationKind(resp.Kind)
	if !validVisualizationKinds[kind] {
		return &models.VisualizationRecommendation{Kind: models.VisualizationNone, Reason: "model reply could not be parsed"}, nil
	}
	return &models.VisualizationRecommendation{Kind: kind, Reason: resp.Reason}, nil
}
