package llm

import (
	"encoding/json"
	"testing"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"valid", `{"best": 1}`},
		{"fenced", "```json\n{\"best\": 2}\n```"},
		{"prose around", `The better one is: {"best": 1}.`},
		{"missing closing brace", `{"best": 1`},
		{"trailing comma", `{"questions": ["a", "b",]}`},
		{"single quotes", `{'answer': 'x'}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := repairJSON(tt.input)
			if !json.Valid([]byte(out)) {
				t.Errorf("repairJSON(%q) = %q, not valid JSON", tt.input, out)
			}
		})
	}
}
