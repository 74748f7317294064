package artifact

import (
	"encoding/json"
	"fmt"
)

// ParseContext decodes the flat wire form of an evaluation context:
// a JSON object whose "provenance" key (if any) is the provenance block and
// whose remaining top-level keys are evidence fields, e.g.
//
//	{"sql_executed": true, "cohort_jaccard": 0.85, "provenance": {"audit_trace_id": "trace_001"}}
func ParseContext(data []byte) (Context, error) {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return Context{}, fmt.Errorf("artifact: parse context: %w", err)
	}

	ctx := Context{Evidence: make(map[string]any, len(flat))}
	for k, v := range flat {
		if k == "provenance" {
			prov, ok := v.(map[string]any)
			if !ok {
				return Context{}, fmt.Errorf("artifact: parse context: provenance must be an object")
			}
			ctx.Provenance = prov
			continue
		}
		ctx.Evidence[k] = v
	}
	return ctx, nil
}

// ParseArtifact decodes an artifact metadata document.
func ParseArtifact(data []byte) (Artifact, error) {
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return Artifact{}, fmt.Errorf("artifact: parse artifact: %w", err)
	}
	if art.Type == "" {
		return Artifact{}, fmt.Errorf("artifact: parse artifact: missing type")
	}
	if art.Version == "" {
		return Artifact{}, fmt.Errorf("artifact: parse artifact: missing version")
	}
	if art.ContentHash != "" && !ValidContentHash(art.ContentHash) {
		return Artifact{}, fmt.Errorf("artifact: parse artifact: content_hash %q is not 64 lowercase hex characters", art.ContentHash)
	}
	return art, nil
}
