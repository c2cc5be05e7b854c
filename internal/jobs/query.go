package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/prompts"
)

const (
	queryLimit      = 50
	querySampleSize = 10
	queryLogLen     = 50
)

// Answer responds to an ad hoc question using a fresh snapshot. It never fails:
// problems are described in the returned text.
func (r *Runner) Answer(ctx context.Context, question string) (answer string) {
	question = strings.TrimSpace(question)
	defer func() {
		if p := recover(); p != nil {
			r.rec.Log(ctx, activity.CategoryError, fmt.Sprintf("Query failed: %v", p), nil)
			answer = fmt.Sprintf("Query failed: %v", p)
		}
	}()

	if question == "" {
		return "Please ask a question about your pipeline."
	}

	contacts, deals, err := r.snapshot(ctx, queryLimit, nil, queryLimit)
	if err != nil {
		r.rec.Log(ctx, activity.CategoryError, fmt.Sprintf("Query failed: %v", err), nil)
		return fmt.Sprintf("Query failed: %v", err)
	}

	instruction, err := prompts.Render(prompts.Query, map[string]string{"Question": question})
	if err != nil {
		r.rec.Log(ctx, activity.CategoryError, fmt.Sprintf("Query failed: %v", err), nil)
		return fmt.Sprintf("Query failed: %v", err)
	}
	answer = r.summarizer.Summarize(ctx, instruction, map[string]any{
		"contacts":       firstN(contacts, querySampleSize),
		"deals":          firstN(deals, querySampleSize),
		"pipeline_value": PipelineValue(deals),
	})

	r.rec.Log(ctx, activity.CategoryQuery, fmt.Sprintf("Manual query: %s", truncateText(question, queryLogLen)), nil)
	return answer
}
