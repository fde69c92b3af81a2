package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var jsonArrayPattern = regexp.MustCompile(`\[[^\[\]]*\]`)

// DietaryValidator double-checks keyword-filtered candidates with an LLM.
// Keyword filters miss derived ingredients ("gelatin", "fish sauce"), so the
// model gets the final say on which candidates actually comply.
type DietaryValidator struct {
	llm    ChatProvider
	logger *zap.Logger
}

// NewDietaryValidator creates a DietaryValidator.
func NewDietaryValidator(llm ChatProvider, logger *zap.Logger) *DietaryValidator {
	return &DietaryValidator{llm: llm, logger: logger}
}

// Validate returns the subset of candidates the model judges compliant with
// the preferences. Any model failure or unparseable answer keeps the full
// candidate list; validation only ever narrows, never blocks.
func (v *DietaryValidator) Validate(ctx context.Context, candidates []ScoredRecipe, preferences []string) []ScoredRecipe {
	if len(candidates) == 0 || len(preferences) == 0 {
		return candidates
	}

	var sb strings.Builder
	for _, r := range candidates {
		fmt.Fprintf(&sb, "%d: %s. Ingredients: %s\n", r.ID, r.Name, strings.Join(r.Ingredients, ", "))
	}

	prompt := fmt.Sprintf(`You are checking recipes for dietary compliance.
Dietary requirements: %s

Recipes (id: name and ingredients):
%s
Reply with only a JSON array of the ids that fully comply, for example [1, 5, 9].`,
		strings.Join(preferences, ", "), sb.String())

	msg, err := v.llm.Chat(ctx, &ChatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		v.logger.Warn("dietary validation skipped", zap.Error(err))
		return candidates
	}

	ids, ok := extractIDArray(msg.Content)
	if !ok {
		v.logger.Warn("dietary validation returned unparseable answer",
			zap.String("content", msg.Content))
		return candidates
	}

	allowed := make(map[int]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}

	kept := candidates[:0:0]
	for _, r := range candidates {
		if allowed[r.ID] {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return candidates
	}
	return kept
}

// extractIDArray pulls the first JSON integer array out of free-form model
// output.
func extractIDArray(content string) ([]int, bool) {
	match := jsonArrayPattern.FindString(stripCodeFence(content))
	if match == "" {
		return nil, false
	}
	var ids []int
	if err := json.Unmarshal([]byte(match), &ids); err != nil {
		return nil, false
	}
	return ids, true
}
