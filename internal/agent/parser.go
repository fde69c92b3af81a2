package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Models that ignore native tool calling still describe the call in plain
// text. Each parser below recovers one shape seen in practice; they run in a
// fixed order and the first hit wins.
var (
	callSyntaxPattern = regexp.MustCompile(`(?s)(\w+)\s*\(?(\{.+\})\)?`)
	jsonObjectPattern = regexp.MustCompile(`(?s)(\{.*\})`)
	cliPattern        = regexp.MustCompile(`(\w+)\s+((?:--\w+\s+(?:"[^"]+"|\S+)\s*)+)`)
	cliFlagPattern    = regexp.MustCompile(`--(\w+)\s+("[^"]+"|\S+)`)
)

// Invocation is a tool call recovered from free-form model output.
type Invocation struct {
	Name string
	Args map[string]interface{}
}

type textParser interface {
	TryParse(content string, known map[string]bool) (*Invocation, bool)
}

var parserChain = []textParser{
	callSyntaxParser{},
	jsonObjectParser{},
	cliFlagsParser{},
	shapeInferenceParser{},
}

// ParseTextToolCall tries each parser in order. Unknown tool names are
// rejected so ordinary prose that happens to match a pattern stands as text.
func ParseTextToolCall(content string, known map[string]bool) (*Invocation, bool) {
	for _, p := range parserChain {
		if inv, ok := p.TryParse(content, known); ok {
			return inv, true
		}
	}
	return nil, false
}

// callSyntaxParser matches name({"key": "value"}) and name{"key": "value"}.
type callSyntaxParser struct{}

func (callSyntaxParser) TryParse(content string, known map[string]bool) (*Invocation, bool) {
	m := callSyntaxPattern.FindStringSubmatch(content)
	if m == nil || !known[m[1]] {
		return nil, false
	}
	args := map[string]interface{}{}
	if err := json.Unmarshal([]byte(m[2]), &args); err != nil {
		args = map[string]interface{}{}
	}
	return &Invocation{Name: m[1], Args: args}, true
}

// jsonObjectParser recognizes the bare JSON layouts models emit:
// {"type":"function","name":...}, {"function":"name","args":...} and
// {"name":...,"parameters":...}.
type jsonObjectParser struct{}

func (jsonObjectParser) TryParse(content string, known map[string]bool) (*Invocation, bool) {
	parsed := firstJSONObject(content)
	if parsed == nil {
		return nil, false
	}

	var inv *Invocation
	switch {
	case parsed["type"] == "function":
		if name, ok := parsed["name"].(string); ok {
			inv = &Invocation{Name: name, Args: paramsOf(parsed)}
		}
	default:
		if fn, ok := parsed["function"].(string); ok {
			inv = &Invocation{Name: fn, Args: paramsOf(parsed)}
		} else if name, ok := parsed["name"].(string); ok {
			if _, hasParams := parsed["parameters"]; hasParams {
				inv = &Invocation{Name: name, Args: paramsOf(parsed)}
			}
		}
	}

	if inv == nil || !known[inv.Name] {
		return nil, false
	}
	return inv, true
}

// cliFlagsParser matches CLI-style output such as
// add_to_calendar --recipe_id 141 --date 2026-09-01 --meal_type dinner.
type cliFlagsParser struct{}

func (cliFlagsParser) TryParse(content string, known map[string]bool) (*Invocation, bool) {
	m := cliPattern.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil || !known[m[1]] {
		return nil, false
	}
	args := map[string]interface{}{}
	for _, flag := range cliFlagPattern.FindAllStringSubmatch(m[2], -1) {
		args[flag[1]] = strings.Trim(flag[2], `"`)
	}
	return &Invocation{Name: m[1], Args: args}, true
}

// shapeInferenceParser guesses the tool from a bare argument object: a
// weight_kg key means log_metrics, a lone query key means search_recipes.
type shapeInferenceParser struct{}

func (shapeInferenceParser) TryParse(content string, known map[string]bool) (*Invocation, bool) {
	parsed := firstJSONObject(content)
	if parsed == nil {
		return nil, false
	}
	if _, ok := parsed["weight_kg"]; ok {
		return &Invocation{Name: toolLogMetrics, Args: parsed}, true
	}
	if _, ok := parsed["query"]; ok && len(parsed) == 1 {
		return &Invocation{Name: toolSearchRecipes, Args: parsed}, true
	}
	return nil, false
}

// firstJSONObject extracts and parses the first brace-delimited object.
func firstJSONObject(content string) map[string]interface{} {
	m := jsonObjectPattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(m[1]), &parsed); err != nil {
		return nil
	}
	return parsed
}

func paramsOf(parsed map[string]interface{}) map[string]interface{} {
	for _, key := range []string{"args", "parameters"} {
		if raw, ok := parsed[key]; ok {
			if m, ok := raw.(map[string]interface{}); ok {
				return m
			}
		}
	}
	return map[string]interface{}{}
}
