package gate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// Run executes one check definition against an (artifact, context) pair.
// It dispatches on the closed kind set and is a pure function of
// (check.Params, artifact, context).
//
// Run never returns an error: a check that cannot produce evidence comes back
// as a failed CheckResult with ExecutionError set, which the evaluator
// escalates to block severity.
func Run(check rubric.Check, art artifact.Artifact, ctx artifact.Context) CheckResult {
	switch check.Kind {
	case rubric.KindPresence:
		return runPresence(check, art, ctx)
	case rubric.KindRange:
		return runRange(check, ctx)
	case rubric.KindExecutorRan:
		return runExecutorRan(check, art, ctx)
	case rubric.KindOverlapMetric:
		return runOverlapMetric(check, ctx)
	case rubric.KindSchema:
		return runSchema(check, art)
	case rubric.KindForbiddenTerms:
		return runForbiddenTerms(check, art, ctx)
	default:
		// Unreachable for registries built through rubric.Load, which
		// rejects unknown kinds. Fail closed anyway.
		return execFailure(check, fmt.Sprintf("unknown check kind %q", check.Kind))
	}
}

func runPresence(check rubric.Check, art artifact.Artifact, ctx artifact.Context) CheckResult {
	field, ok := paramString(check.Params, "field")
	if !ok {
		return execFailure(check, "missing required param: field")
	}
	source, _ := paramString(check.Params, "source")
	if source == "" {
		source = "evidence"
	}

	var value any
	var present bool
	switch source {
	case "evidence":
		value, present = ctx.Value(field)
	case "provenance":
		value, present = ctx.Provenance[field]
	case "artifact":
		value, present = artifactField(art, field)
	default:
		return execFailure(check, fmt.Sprintf("invalid presence source %q", source))
	}

	res := CheckResult{
		ID:       check.ID,
		Evidence: map[string]any{field: value},
	}
	if present && truthy(value) {
		res.Pass = true
		return res
	}
	if present {
		res.Reason = fmt.Sprintf("empty %s field %q", source, field)
	} else {
		res.Reason = fmt.Sprintf("missing %s field %q", source, field)
	}
	return res
}

func runRange(check rubric.Check, ctx artifact.Context) CheckResult {
	field, ok := paramString(check.Params, "field")
	if !ok {
		return execFailure(check, "missing required param: field")
	}

	value, ok := ctx.Float(field)
	if !ok {
		return execFailure(check, fmt.Sprintf("evidence field %q missing or not numeric", field))
	}

	res := CheckResult{
		ID:       check.ID,
		Evidence: map[string]any{field: value},
	}

	if min, has := paramFloat(check.Params, "min"); has && value < min {
		res.Reason = fmt.Sprintf("%s = %v below minimum %v", field, value, min)
		return res
	}
	if max, has := paramFloat(check.Params, "max"); has && value > max {
		res.Reason = fmt.Sprintf("%s = %v above maximum %v", field, value, max)
		return res
	}
	res.Pass = true
	return res
}

func runExecutorRan(check rubric.Check, art artifact.Artifact, ctx artifact.Context) CheckResult {
	field, ok := paramString(check.Params, "field")
	if !ok {
		return execFailure(check, "missing required param: field")
	}

	if art.DeterministicExecutor == "" {
		return CheckResult{
			ID:       check.ID,
			Reason:   "artifact declares no deterministic executor",
			Evidence: map[string]any{"deterministic_executor": ""},
		}
	}

	ran, ok := ctx.Bool(field)
	if !ok {
		return execFailure(check, fmt.Sprintf("evidence field %q missing or not boolean", field))
	}

	res := CheckResult{
		ID: check.ID,
		Evidence: map[string]any{
			field:                    ran,
			"deterministic_executor": art.DeterministicExecutor,
		},
	}
	if ran {
		res.Pass = true
		return res
	}
	res.Reason = fmt.Sprintf("%s did not complete under %s", field, art.DeterministicExecutor)
	return res
}

func runOverlapMetric(check rubric.Check, ctx artifact.Context) CheckResult {
	field, ok := paramString(check.Params, "field")
	if !ok {
		return execFailure(check, "missing required param: field")
	}
	threshold, ok := paramFloat(check.Params, "threshold")
	if !ok {
		return execFailure(check, "missing required param: threshold")
	}

	value, ok := ctx.Float(field)
	if !ok {
		return execFailure(check, fmt.Sprintf("evidence field %q missing or not numeric", field))
	}

	res := CheckResult{
		ID: check.ID,
		Evidence: map[string]any{
			field:       value,
			"threshold": threshold,
		},
	}
	if value >= threshold {
		res.Pass = true
		res.Reason = fmt.Sprintf("%s %.2f >= %.2f", field, value, threshold)
		return res
	}
	res.Reason = fmt.Sprintf("%s %.2f < %.2f", field, value, threshold)
	return res
}

func runSchema(check rubric.Check, art artifact.Artifact) CheckResult {
	raw, ok := check.Params["schema"]
	if !ok {
		return execFailure(check, "missing required param: schema")
	}

	schemaBytes, err := json.Marshal(raw)
	if err != nil {
		return execFailure(check, fmt.Sprintf("schema param not serializable: %v", err))
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := "https://rubric-gates.medtwin.dev/schemas/checks/" + check.ID + ".schema.json"
	if err := c.AddResource(url, bytes.NewReader(schemaBytes)); err != nil {
		return execFailure(check, fmt.Sprintf("schema param load failed: %v", err))
	}
	schema, err := c.Compile(url)
	if err != nil {
		return execFailure(check, fmt.Sprintf("schema param compile failed: %v", err))
	}

	// Normalize through JSON so validation sees decoder-shaped values.
	payloadBytes, err := json.Marshal(art.Payload)
	if err != nil {
		return execFailure(check, fmt.Sprintf("payload not serializable: %v", err))
	}
	var payload any
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return execFailure(check, fmt.Sprintf("payload not serializable: %v", err))
	}

	res := CheckResult{ID: check.ID}
	if err := schema.Validate(payload); err != nil {
		res.Reason = "payload schema violation: " + err.Error()
		return res
	}
	res.Pass = true
	return res
}

func runForbiddenTerms(check rubric.Check, art artifact.Artifact, ctx artifact.Context) CheckResult {
	field, ok := paramString(check.Params, "field")
	if !ok {
		return execFailure(check, "missing required param: field")
	}
	terms, ok := paramStrings(check.Params, "terms")
	if !ok || len(terms) == 0 {
		return execFailure(check, "missing required param: terms")
	}
	source, _ := paramString(check.Params, "source")
	if source == "" {
		source = "artifact"
	}

	// An absent text field has nothing to flag; that is a pass, not an error.
	var text string
	switch source {
	case "artifact":
		if v, present := artifactField(art, field); present {
			text, _ = v.(string)
		}
	case "evidence":
		text, _ = ctx.String(field)
	default:
		return execFailure(check, fmt.Sprintf("invalid forbidden_terms source %q", source))
	}

	lower := strings.ToLower(text)
	var found []string
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			found = append(found, term)
		}
	}

	res := CheckResult{
		ID:       check.ID,
		Evidence: map[string]any{"matched_terms": found},
	}
	if len(found) == 0 {
		res.Pass = true
		return res
	}
	res.Reason = fmt.Sprintf("forbidden terms in %s: %s", field, strings.Join(found, ", "))
	return res
}

// --- helpers ---

func execFailure(check rubric.Check, reason string) CheckResult {
	return CheckResult{
		ID:             check.ID,
		Pass:           false,
		Reason:         reason,
		ExecutionError: true,
	}
}

// artifactField resolves a field name against the artifact's declared
// attributes first, then its payload.
func artifactField(art artifact.Artifact, field string) (any, bool) {
	switch field {
	case "type":
		return art.Type, art.Type != ""
	case "version":
		return art.Version, art.Version != ""
	case "content_hash":
		return art.ContentHash, art.ContentHash != ""
	case "deterministic_executor":
		return art.DeterministicExecutor, art.DeterministicExecutor != ""
	}
	v, ok := art.Payload[field]
	return v, ok
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		return true
	}
}

func paramString(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func paramStrings(params map[string]any, key string) ([]string, bool) {
	v, ok := params[key]
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
