package audit

import "testing"

func failItems(n int) []ChecklistItem {
	items := make([]ChecklistItem, n)
	for i := range items {
		items[i] = ChecklistItem{ChecklistItem: "rule", Status: ItemFail, Reason: "missing"}
	}
	return items
}

func TestSummarizeTotalsAndScore(t *testing.T) {
	r := Report{
		PageHomepage:   {ChecklistAnalysis: failItems(2)},
		PageCollection: {ChecklistAnalysis: failItems(1)},
		PageProduct:    {ChecklistAnalysis: failItems(3)},
		// cart analyzed, zero findings
		PageCart: {ChecklistAnalysis: nil},
	}

	s := Summarize(r)
	if s.TotalProblems != 6 {
		t.Errorf("TotalProblems = %d, want 6", s.TotalProblems)
	}
	if s.Score != 94 {
		t.Errorf("Score = %d, want 94", s.Score)
	}
	// A zero-finding page counts as not analyzed for completion purposes.
	if s.Completed {
		t.Error("Completed = true, want false when a page has zero checklist items")
	}
	if s.PageProblems[PageProduct] != 3 {
		t.Errorf("PageProblems[product] = %d, want 3", s.PageProblems[PageProduct])
	}
}

func TestSummarizeCompleted(t *testing.T) {
	r := Report{}
	for _, page := range PageOrder() {
		r[page] = PageAudit{ChecklistAnalysis: failItems(1)}
	}
	s := Summarize(r)
	if !s.Completed {
		t.Error("Completed = false, want true with findings on all four pages")
	}
	if s.TotalProblems != 4 || s.Score != 96 {
		t.Errorf("totals = (%d, %d), want (4, 96)", s.TotalProblems, s.Score)
	}
}

func TestSummarizeScoreFloor(t *testing.T) {
	r := Report{PageHomepage: {ChecklistAnalysis: failItems(130)}}
	if s := Summarize(r); s.Score != 0 {
		t.Errorf("Score = %d, want 0 floor with 130 problems", s.Score)
	}
}

func TestSummarizeMissingPage(t *testing.T) {
	r := Report{
		PageHomepage:   {ChecklistAnalysis: failItems(2)},
		PageCollection: {ChecklistAnalysis: failItems(2)},
		PageProduct:    {ChecklistAnalysis: failItems(2)},
	}
	s := Summarize(r)
	if s.Completed {
		t.Error("Completed = true with cart missing entirely")
	}
	if _, ok := s.PageProblems[PageCart]; ok {
		t.Error("PageProblems has an entry for a page that was never audited")
	}
}

func TestSummarizeWithScoreOverride(t *testing.T) {
	override := 42
	r := Report{PageHomepage: {ChecklistAnalysis: failItems(5)}}
	s := SummarizeWithScore(r, &override)
	if s.Score != 42 {
		t.Errorf("Score = %d, want override 42", s.Score)
	}
	if s.TotalProblems != 5 {
		t.Errorf("TotalProblems = %d, want 5", s.TotalProblems)
	}
}
