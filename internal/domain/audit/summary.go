package audit

// Summary aggregates per-page checklist results for display.
type Summary struct {
	TotalProblems int              `json:"total_problems"`
	Score         int              `json:"score"`
	Completed     bool             `json:"completed"`
	PageProblems  map[PageType]int `json:"page_problems"`
}

// Summarize derives totals, the FMS score and per-page counts from a report.
// Only FAIL items are persisted upstream, so every stored item counts as a
// problem. Completed requires len(checklistAnalysis) > 0 for all four page
// types; a page with zero findings keeps the report incomplete. That
// conflation of "no findings" with "not analyzed" is long-standing observed
// behavior the download gate relies on, so it is kept as-is.
func Summarize(r Report) Summary {
	return SummarizeWithScore(r, nil)
}

// SummarizeWithScore is Summarize with an optional server-supplied score
// override.
func SummarizeWithScore(r Report, override *int) Summary {
	s := Summary{
		PageProblems: make(map[PageType]int, len(PageOrder())),
		Completed:    true,
	}
	for _, page := range PageOrder() {
		entry, ok := r[page]
		if !ok || len(entry.ChecklistAnalysis) == 0 {
			s.Completed = false
		}
		if !ok {
			continue
		}
		n := len(entry.ChecklistAnalysis)
		s.PageProblems[page] = n
		s.TotalProblems += n
	}
	if override != nil {
		s.Score = *override
		return s
	}
	s.Score = 100 - s.TotalProblems
	if s.Score < 0 {
		s.Score = 0
	}
	return s
}
