package model

import "testing"

func TestParseTopic(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Topic
		wantErr bool
	}{
		{name: "value", input: "Agentic AI", want: TopicAgenticAI},
		{name: "slug", input: "prompt_engineering", want: TopicPromptEngineering},
		{name: "case insensitive", input: "RESPONSIBLE ai", want: TopicResponsibleAI},
		{name: "padded", input: "  foundational_models ", want: TopicFoundationalModels},
		{name: "unknown", input: "robotics", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTopic(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTopic(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTopic(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTopic(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTopicSlugRoundTrip(t *testing.T) {
	for _, topic := range AllTopics() {
		got, err := ParseTopic(topic.Slug())
		if err != nil || got != topic {
			t.Errorf("ParseTopic(%q) = %q, %v", topic.Slug(), got, err)
		}
	}
}
