package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	"github.com/ashwinyue/next-dataset/internal/testutil"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestGenerator(t *testing.T, fake *testutil.FakeChatModel, opts ...Option) *Generator {
	t.Helper()
	g, err := NewGenerator(map[Profile]model.BaseChatModel{
		ProfileCreative: fake,
		ProfileFast:     fake,
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func testMessages() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage("You are an expert."),
		schema.UserMessage("What is RLHF?"),
	}
}

func TestNewGenerator_RequiresBothProfiles(t *testing.T) {
	_, err := NewGenerator(map[Profile]model.BaseChatModel{
		ProfileCreative: testutil.NewFakeChatModel(),
	})
	if err == nil || !strings.Contains(err.Error(), "fast") {
		t.Errorf("NewGenerator() error = %v, want missing fast profile", err)
	}
}

func TestStructured(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr bool
	}{
		{name: "plain json", reply: `{"answer": "Reinforcement learning from human feedback."}`, want: "Reinforcement learning from human feedback."},
		{name: "code fence", reply: "```json\n{\"answer\": \"fenced\"}\n```", want: "fenced"},
		{name: "surrounding prose", reply: `Sure! {"answer": "prose"} Hope this helps.`, want: "prose"},
		{name: "missing brace", reply: `{"answer": "open"`, want: "open"},
		{name: "missing field", reply: `{"text": "wrong"}`, wantErr: true},
		{name: "not json", reply: `I cannot answer that.`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeChatModel().Reply("answer", tt.reply)
			g := newTestGenerator(t, fake)

			got, err := Structured[Answer](context.Background(), g, ProfileCreative, testMessages())
			if tt.wantErr {
				if !errors.Is(err, ErrGenerationFailure) {
					t.Fatalf("Structured() error = %v, want ErrGenerationFailure", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Structured() unexpected error: %v", err)
			}
			if got.Answer != tt.want {
				t.Errorf("Answer = %q, want %q", got.Answer, tt.want)
			}
		})
	}
}

func TestStructured_ServiceError(t *testing.T) {
	fake := testutil.NewFakeChatModel().On("relevance", func(int, []*schema.Message) (string, error) {
		return "", errors.New("503 service unavailable")
	})
	r := metrics.NewRecorder()
	g := newTestGenerator(t, fake, WithMetrics(r))

	_, err := Structured[Relevance](context.Background(), g, ProfileFast, testMessages())
	if !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("error = %v, want ErrGenerationFailure", err)
	}
	if !strings.Contains(err.Error(), "fast/relevance") {
		t.Errorf("error = %v, want profile and schema in message", err)
	}
	if fake.Calls("relevance") != 1 {
		t.Errorf("calls = %d, want exactly 1 (no retries)", fake.Calls("relevance"))
	}
	if n := promtestutil.CollectAndCount(r.Registry(), "dataset_generations_total"); n != 1 {
		t.Errorf("generation series = %d, want 1", n)
	}
}

func TestStructured_Timeout(t *testing.T) {
	fake := testutil.NewFakeChatModel().On("answer", func(int, []*schema.Message) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return `{"answer": "late"}`, nil
	})
	slow := &slowModel{inner: fake}
	g, err := NewGenerator(map[Profile]model.BaseChatModel{
		ProfileCreative: slow,
		ProfileFast:     slow,
	}, WithTimeout(ProfileCreative, 10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Structured[Answer](context.Background(), g, ProfileCreative, testMessages())
	if !errors.Is(err, ErrGenerationFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want generation failure wrapping deadline", err)
	}
}

func TestStructured_ValidatesSchemas(t *testing.T) {
	fake := testutil.NewFakeChatModel().
		Reply("best_questions", `{"best": 3}`).
		Reply("relevance", `{"is_relevant_accurate": false}`).
		Reply("subtopics", `{"subtopics": ["a", " ", "b"]}`)
	g := newTestGenerator(t, fake)
	ctx := context.Background()

	if _, err := Structured[BestQuestions](ctx, g, ProfileFast, testMessages()); !errors.Is(err, ErrGenerationFailure) {
		t.Errorf("best=3 error = %v, want failure", err)
	}

	rel, err := Structured[Relevance](ctx, g, ProfileFast, testMessages())
	if err != nil {
		t.Fatal(err)
	}
	if rel.Accepted() {
		t.Error("Accepted() = true, want false")
	}

	subs, err := Structured[Subtopics](ctx, g, ProfileCreative, testMessages())
	if err != nil {
		t.Fatal(err)
	}
	if len(subs.Subtopics) != 2 {
		t.Errorf("subtopics = %v, want blanks removed", subs.Subtopics)
	}
}

func TestWithFormatInstruction(t *testing.T) {
	msgs := testMessages()
	out := withFormatInstruction(msgs, &Answer{})

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if !strings.Contains(out[0].Content, "JSON object named answer") {
		t.Errorf("system message = %q", out[0].Content)
	}
	if msgs[0].Content != "You are an expert." {
		t.Error("input system message was modified")
	}
	if testutil.SchemaOf(out) != "answer" {
		t.Errorf("SchemaOf() = %q", testutil.SchemaOf(out))
	}

	noSystem := withFormatInstruction([]*schema.Message{schema.UserMessage("hi")}, &Answer{})
	if len(noSystem) != 2 || noSystem[0].Role != schema.System {
		t.Errorf("expected prepended system message, got %+v", noSystem)
	}
}

func TestCompactCapsList(t *testing.T) {
	items := make([]string, 80)
	for i := range items {
		items[i] = "item"
	}
	if got := len(compact(items)); got != MaxListItems {
		t.Errorf("len(compact) = %d, want %d", got, MaxListItems)
	}
}

// slowModel 在 ctx 超时后返回
type slowModel struct {
	inner *testutil.FakeChatModel
}

func (m *slowModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return m.inner.Generate(ctx, msgs, opts...)
	}
}

func (m *slowModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}
