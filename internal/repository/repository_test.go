package repository

import (
	"testing"

	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/testutil"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	return NewRepositories(testutil.OpenStore(t, testutil.NewConfig(t), "repo-test"))
}

func seedSubtopics(t *testing.T, repos *Repositories, subtopics ...*model.Subtopic) {
	t.Helper()
	if err := repos.Subtopic.CreateBatch(subtopics); err != nil {
		t.Fatalf("CreateBatch() error: %v", err)
	}
}

func TestSubtopicRepository_Pending(t *testing.T) {
	repos := newTestRepos(t)
	seedSubtopics(t, repos,
		&model.Subtopic{Topic: "Agentic AI", Text: "Planning"},
		&model.Subtopic{Topic: "Agentic AI", Text: "Memory", QuestionsGenerated: true},
		&model.Subtopic{Topic: "Responsible AI", Text: "Fairness"},
	)

	pending, err := repos.Subtopic.ListPendingQuestions("Agentic AI")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Text != "Planning" {
		t.Errorf("ListPendingQuestions(topic) = %+v", pending)
	}

	all, err := repos.Subtopic.ListPendingQuestions("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("ListPendingQuestions(\"\") len = %d, want 2", len(all))
	}

	next, err := repos.Subtopic.NextPendingAnswers("")
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.Text != "Memory" {
		t.Fatalf("NextPendingAnswers() = %+v, want Memory", next)
	}

	skipped, err := repos.Subtopic.NextPendingAnswers("", next.ID)
	if err != nil || skipped != nil {
		t.Errorf("NextPendingAnswers(exclude) = %+v, %v; want nil", skipped, err)
	}

	if err := repos.Subtopic.MarkAnswersGenerated(next.ID); err != nil {
		t.Fatal(err)
	}
	next, err = repos.Subtopic.NextPendingAnswers("")
	if err != nil {
		t.Fatal(err)
	}
	if next != nil {
		t.Errorf("NextPendingAnswers() = %+v, want nil", next)
	}
}

func TestSubtopicRepository_MarkQuestionsGenerated(t *testing.T) {
	repos := newTestRepos(t)
	s := &model.Subtopic{Topic: "Prompt Engineering", Text: "Few-shot prompting"}
	seedSubtopics(t, repos, s)

	if err := repos.Subtopic.MarkQuestionsGenerated(s.ID); err != nil {
		t.Fatal(err)
	}
	list, err := repos.Subtopic.ListByTopic("Prompt Engineering")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || !list[0].QuestionsGenerated || list[0].AnswersGenerated {
		t.Errorf("flags after mark = %+v", list)
	}
}

func TestQARepository_SetAnswersWriteOnce(t *testing.T) {
	repos := newTestRepos(t)
	s := &model.Subtopic{Topic: "Agentic AI", Text: "Tool use", QuestionsGenerated: true}
	seedSubtopics(t, repos, s)

	records := []*model.QuestionAnswer{
		{Question: "What is tool calling?", SubtopicID: s.ID},
		{Question: "How do agents pick tools?", SubtopicID: s.ID},
	}
	if err := repos.QA.CreateBatch(records); err != nil {
		t.Fatal(err)
	}

	rows, err := repos.QA.ListUnanswered(s.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListUnanswered() len = %d, want 2", len(rows))
	}
	if rows[0].QAID != records[0].ID || rows[0].Topic != "Agentic AI" || rows[0].Subtopic != "Tool use" {
		t.Errorf("ListUnanswered()[0] = %+v", rows[0])
	}

	written, err := repos.QA.SetAnswers(map[uint]string{records[0].ID: "first"})
	if err != nil || written != 1 {
		t.Fatalf("SetAnswers() = %d, %v", written, err)
	}
	written, err = repos.QA.SetAnswers(map[uint]string{records[0].ID: "second"})
	if err != nil || written != 0 {
		t.Fatalf("SetAnswers() overwrite = %d, %v; want 0", written, err)
	}

	answered, err := repos.QA.ListAnswered()
	if err != nil {
		t.Fatal(err)
	}
	if len(answered) != 1 || *answered[0].Answer != "first" {
		t.Errorf("ListAnswered() = %+v", answered)
	}

	remaining, err := repos.QA.CountUnanswered(s.ID)
	if err != nil || remaining != 1 {
		t.Errorf("CountUnanswered() = %d, %v; want 1", remaining, err)
	}
}

func TestQARepository_ListDatasetRows(t *testing.T) {
	repos := newTestRepos(t)
	s := &model.Subtopic{Topic: "Foundational Models", Text: "Tokenization"}
	seedSubtopics(t, repos, s)

	answer := "Splitting text into tokens."
	if err := repos.QA.CreateBatch([]*model.QuestionAnswer{
		{Question: "What is a token?", Answer: &answer, SubtopicID: s.ID},
	}); err != nil {
		t.Fatal(err)
	}

	rows, err := repos.QA.ListDatasetRows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("ListDatasetRows() len = %d", len(rows))
	}
	if rows[0].SubtopicID != s.ID || rows[0].Question != "What is a token?" {
		t.Errorf("row = %+v", rows[0])
	}
	if n, _ := repos.QA.Count(); n != 1 {
		t.Errorf("Count() = %d", n)
	}
}
