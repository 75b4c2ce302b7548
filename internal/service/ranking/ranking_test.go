package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/ashwinyue/next-dataset/internal/service/llm"
	"github.com/ashwinyue/next-dataset/internal/testutil"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func TestIsNewSubtopicListBetter(t *testing.T) {
	prev := []RankedSubtopic{{"A", 10}, {"B", 8}}

	tests := []struct {
		name string
		next []RankedSubtopic
		want bool
	}{
		{name: "higher sum", next: []RankedSubtopic{{"C", 20}}, want: true},
		{name: "lower sum", next: []RankedSubtopic{{"C", 5}}, want: false},
		{name: "equal sum", next: []RankedSubtopic{{"C", 18}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNewSubtopicListBetter(prev, tt.next); got != tt.want {
				t.Errorf("IsNewSubtopicListBetter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopN(t *testing.T) {
	list := []RankedSubtopic{{"a", 1}, {"b", 5}, {"c", 5}, {"d", 3}}
	got := TopN(list, 3)
	want := []string{"b", "c", "d"}
	for i, w := range want {
		if got[i].Subtopic != w {
			t.Fatalf("TopN() = %v, want order %v", got, want)
		}
	}
	if list[0].Subtopic != "a" {
		t.Error("TopN() must not reorder its input")
	}
}

// scriptedRanking 每轮生成 30 个子主题，按 iterScores 给每轮打分
func scriptedRanking(iterScores []int) *testutil.FakeChatModel {
	return testutil.NewFakeChatModel().
		On("subtopics", func(call int, _ []*schema.Message) (string, error) {
			items := make([]string, 30)
			for i := range items {
				items[i] = fmt.Sprintf("iter%d-topic%02d", call, i)
			}
			b, _ := json.Marshal(map[string]any{"subtopics": items})
			return string(b), nil
		}).
		On("subtopic_ranking", func(call int, msgs []*schema.Message) (string, error) {
			var out []map[string]any
			for i, line := range strings.Split(testutil.UserContent(msgs), "\n") {
				_, text, _ := strings.Cut(line, ". ")
				// 前 25 个得 iterScores[call]，其余得 1
				score := 1
				if i < 25 {
					score = iterScores[call]
				}
				out = append(out, map[string]any{"subtopic": text, "score": score})
			}
			b, _ := json.Marshal(map[string]any{"subtopics": out})
			return string(b), nil
		})
}

func newTestRanker(t *testing.T, fake *testutil.FakeChatModel) *Ranker {
	t.Helper()
	gen, err := llm.NewGenerator(map[llm.Profile]model.BaseChatModel{
		llm.ProfileCreative: fake,
		llm.ProfileFast:     fake,
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRanker(context.Background(), gen, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRanker_RetainsBestSet(t *testing.T) {
	fake := scriptedRanking([]int{5, 9, 3, 9, 7})
	r := newTestRanker(t, fake)

	res, err := r.Rank(context.Background(), "Agentic AI", nil)
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}

	if fake.Calls("subtopics") != Iterations || fake.Calls("subtopic_ranking") != Iterations {
		t.Errorf("calls = %d/%d, want %d each", fake.Calls("subtopics"), fake.Calls("subtopic_ranking"), Iterations)
	}
	if len(res.Retained) != KeepTop {
		t.Fatalf("retained %d, want %d", len(res.Retained), KeepTop)
	}
	// 第二轮 9 分，第四轮同为 9 分不替换
	if !strings.HasPrefix(res.Retained[0].Subtopic, "iter1-") {
		t.Errorf("retained set from %q, want iteration 1", res.Retained[0].Subtopic)
	}

	wantRetained := []int{125, 225, 225, 225, 225}
	for i, w := range wantRetained {
		if res.RetainedSums[i] != w {
			t.Errorf("RetainedSums = %v, want %v", res.RetainedSums, wantRetained)
			break
		}
	}

	// 保留集合总分不低于任一轮候选
	final := Sum(res.Retained)
	for i, s := range res.CandidateSums {
		if final < s {
			t.Errorf("final sum %d < candidate sum %d at iteration %d", final, s, i)
		}
	}
	for i := 1; i < len(res.RetainedSums); i++ {
		if res.RetainedSums[i] < res.RetainedSums[i-1] {
			t.Errorf("retained sum decreased: %v", res.RetainedSums)
		}
	}
}

func TestRanker_SeedsLaterIterations(t *testing.T) {
	var seeded []bool
	fake := scriptedRanking([]int{4, 4, 4, 4, 4})
	fake.On("subtopics", func(call int, msgs []*schema.Message) (string, error) {
		seeded = append(seeded, strings.Contains(msgs[0].Content, "existing-one"))
		return fmt.Sprintf(`{"subtopics": ["iter%d-x"]}`, call), nil
	})
	r := newTestRanker(t, fake)

	if _, err := r.Rank(context.Background(), "Responsible AI", []string{"existing-one"}); err != nil {
		t.Fatal(err)
	}
	for i, s := range seeded {
		if !s {
			t.Errorf("iteration %d not seeded with existing subtopics", i)
		}
	}
}
