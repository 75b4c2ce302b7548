package fanout

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"
)

type row struct {
	QAID       uint
	SubtopicID uint
}

type artifact struct {
	Row    row
	Answer string
}

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{QAID: uint(i + 1), SubtopicID: 100}
	}
	return out
}

func TestDispatch_AllSucceed(t *testing.T) {
	d := NewDispatcher(0, PolicyAbort, nil)

	report, err := Dispatch(context.Background(), d, rows(8), func(ctx context.Context, r row) (artifact, error) {
		// 逆序完成
		time.Sleep(time.Duration(10-r.QAID) * time.Millisecond)
		return artifact{Row: r, Answer: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(report.Artifacts) != 8 {
		t.Fatalf("artifacts = %d, want 8", len(report.Artifacts))
	}

	ids := make([]int, 0, 8)
	for _, a := range report.Artifacts {
		if a.Row.SubtopicID != 100 {
			t.Errorf("artifact lost subtopic id: %+v", a)
		}
		ids = append(ids, int(a.Row.QAID))
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("qa ids = %v, want 1..8 each once", ids)
		}
	}
}

func TestDispatch_AbortOnFailure(t *testing.T) {
	d := NewDispatcher(0, PolicyAbort, nil)
	boom := errors.New("generation failed")

	report, err := Dispatch(context.Background(), d, rows(5), func(ctx context.Context, r row) (artifact, error) {
		if r.QAID == 3 {
			return artifact{}, boom
		}
		select {
		case <-ctx.Done():
			return artifact{}, ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return artifact{Row: r}, nil
		}
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Dispatch() error = %v, want %v", err, boom)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil (all-or-nothing)", report)
	}
}

func TestDispatch_Partial(t *testing.T) {
	d := NewDispatcher(2, PolicyPartial, nil)

	report, err := Dispatch(context.Background(), d, rows(6), func(ctx context.Context, r row) (artifact, error) {
		if r.QAID%2 == 0 {
			return artifact{}, errors.New("rejected")
		}
		return artifact{Row: r}, nil
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(report.Artifacts) != 3 || len(report.Failures) != 3 {
		t.Errorf("artifacts=%d failures=%d, want 3 and 3", len(report.Artifacts), len(report.Failures))
	}
	for _, f := range report.Failures {
		if f.Row.QAID%2 != 0 || f.Err == nil {
			t.Errorf("unexpected failure %+v", f)
		}
	}
}

func TestDispatch_ConcurrencyLimit(t *testing.T) {
	d := NewDispatcher(2, PolicyAbort, nil)
	var running, peak int32

	_, err := Dispatch(context.Background(), d, rows(10), func(ctx context.Context, r row) (artifact, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return artifact{Row: r}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestDispatch_Empty(t *testing.T) {
	report, err := Dispatch(context.Background(), NewDispatcher(0, PolicyAbort, nil), nil,
		func(ctx context.Context, r row) (artifact, error) { return artifact{}, nil })
	if err != nil || len(report.Artifacts) != 0 {
		t.Errorf("Dispatch(nil) = %+v, %v", report, err)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"abort", PolicyAbort, false},
		{"", PolicyAbort, false},
		{"partial", PolicyPartial, false},
		{"skip", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}
