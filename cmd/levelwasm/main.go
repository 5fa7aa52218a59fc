//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"idle-lite/leveling"
	"idle-lite/profile"
)

// summarizeRequest carries raw skill experience; Stats falls back to the
// built-in rules when omitted.
type summarizeRequest struct {
	Skills map[string]float64 `json:"skills"`
	Stats  leveling.StatRules `json:"stats,omitempty"`
}

type summarizeResponse struct {
	OK      bool              `json:"ok"`
	Summary *leveling.Summary `json:"summary,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func main() {
	js.Global().Set("__levelSummary", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(summarizeResponse{OK: false, Error: "missing request payload"})
		}
		return mustJSON(handleSummarize(args[0].String()))
	}))

	select {}
}

func handleSummarize(raw string) summarizeResponse {
	var req summarizeRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return summarizeResponse{OK: false, Error: err.Error()}
	}
	rules := req.Stats
	if rules == nil {
		rules = profile.DefaultTemplate().Stats
	}
	sum := leveling.Summarize(rules, req.Skills)
	return summarizeResponse{OK: true, Summary: &sum}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b2, _ := json.Marshal(summarizeResponse{OK: false, Error: err.Error()})
		return string(b2)
	}
	return string(b)
}
