package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ashwinyue/next-dataset/internal/service/judge"
	"github.com/ashwinyue/next-dataset/internal/service/metrics"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

// ========== Fakes ==========

// countingArbiter 每次生成编号递增的候选，选择第一个
type countingArbiter struct {
	mu    sync.Mutex
	n     int
	err   error
	picks int
}

func (a *countingArbiter) Candidates(ctx context.Context, in *judge.Input) (judge.Pair[string], error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return judge.Pair[string]{}, a.err
	}
	a.n++
	return judge.Pair[string]{
		First:  fmt.Sprintf("%s#%d-a", in.Subject, a.n),
		Second: fmt.Sprintf("%s#%d-b", in.Subject, a.n),
	}, nil
}

func (a *countingArbiter) Pick(ctx context.Context, in *judge.Input, pair judge.Pair[string]) (string, error) {
	a.mu.Lock()
	a.picks++
	a.mu.Unlock()
	return pair.First, nil
}

// scriptedGate 按顺序返回判定结果，用完后重复最后一个；记录每次判定
type scriptedGate struct {
	mu       sync.Mutex
	verdicts []bool
	checked  map[string]bool
}

func newScriptedGate(verdicts ...bool) *scriptedGate {
	return &scriptedGate{verdicts: verdicts, checked: make(map[string]bool)}
}

func (g *scriptedGate) Check(ctx context.Context, in *judge.Input, artifact string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.checked)
	if i >= len(g.verdicts) {
		i = len(g.verdicts) - 1
	}
	v := g.verdicts[i]
	g.checked[artifact] = v
	return v, nil
}

func testInput() *judge.Input {
	return &judge.Input{Topic: "Agentic AI", Subtopic: "Planning", Subject: "q", SubtopicID: 3, QAID: 9}
}

// ========== Tests ==========

func TestRetryLoop_AcceptsOnlyOnTrue(t *testing.T) {
	tests := []struct {
		name         string
		verdicts     []bool
		maxAttempts  int
		wantAttempts int
	}{
		{name: "first attempt", verdicts: []bool{true}, wantAttempts: 1},
		{name: "third attempt", verdicts: []bool{false, false, true}, maxAttempts: 5, wantAttempts: 3},
		{name: "unbounded", verdicts: []bool{false, false, false, false, false, false, true}, wantAttempts: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			arb := &countingArbiter{}
			gate := newScriptedGate(tt.verdicts...)
			l, err := New[string](ctx, judge.KindResponse, arb, gate, Config{MaxAttempts: tt.maxAttempts}, nil)
			if err != nil {
				t.Fatal(err)
			}

			res, err := l.Run(ctx, testInput())
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if !res.Accepted || res.Attempts != tt.wantAttempts {
				t.Errorf("Run() = accepted %v attempts %d, want true %d", res.Accepted, res.Attempts, tt.wantAttempts)
			}
			if !gate.checked[res.Artifact] {
				t.Errorf("returned artifact %q did not pass its own check", res.Artifact)
			}
			if res.Input.QAID != 9 || res.Input.SubtopicID != 3 {
				t.Errorf("result lost row identifiers: %+v", res.Input)
			}
			if arb.picks != tt.wantAttempts {
				t.Errorf("picks = %d, want %d", arb.picks, tt.wantAttempts)
			}
		})
	}
}

func TestRetryLoop_Exhausted(t *testing.T) {
	ctx := context.Background()

	t.Run("reject", func(t *testing.T) {
		rec := metrics.NewRecorder()
		l, err := New[string](ctx, judge.KindResponse, &countingArbiter{}, newScriptedGate(false),
			Config{MaxAttempts: 3, Fallback: FallbackReject}, rec)
		if err != nil {
			t.Fatal(err)
		}
		_, err = l.Run(ctx, testInput())
		if !errors.Is(err, ErrRelevanceExhausted) {
			t.Fatalf("Run() error = %v, want ErrRelevanceExhausted", err)
		}
		if n := promtestutil.CollectAndCount(rec.Registry(), "dataset_loop_outcomes_total"); n != 1 {
			t.Errorf("outcome series = %d, want 1", n)
		}
	})

	t.Run("accept last", func(t *testing.T) {
		l, err := New[string](ctx, judge.KindResponse, &countingArbiter{}, newScriptedGate(false),
			Config{MaxAttempts: 2, Fallback: FallbackAcceptLast}, nil)
		if err != nil {
			t.Fatal(err)
		}
		res, err := l.Run(ctx, testInput())
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if res.Accepted || res.Attempts != 2 || res.Artifact != "q#2-a" {
			t.Errorf("Run() = %+v, want last candidate flagged not accepted", res)
		}
	})
}

func TestRetryLoop_ArbiterErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("service unavailable")
	gate := newScriptedGate(true)
	l, err := New[string](ctx, judge.KindQuestion, &countingArbiter{err: boom}, gate, Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = l.Run(ctx, testInput())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want wrapped arbiter error", err)
	}
	if len(gate.checked) != 0 {
		t.Error("gate must not run after a generation failure")
	}
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := New[string](ctx, judge.KindResponse, nil, newScriptedGate(true), Config{}, nil); err == nil {
		t.Error("New() with nil arbiter should fail")
	}
	if _, err := New[string](ctx, judge.KindResponse, &countingArbiter{}, newScriptedGate(true), Config{MaxAttempts: -1}, nil); err == nil {
		t.Error("New() with negative attempts should fail")
	}
}
