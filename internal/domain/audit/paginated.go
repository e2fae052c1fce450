package audit

// PaginatedReports represents a paginated response with data and metadata
type PaginatedReports struct {
	Data       []*ReportRecord `json:"data"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	Total      int64           `json:"totalItems"`
	TotalPages int             `json:"totalPages"`
}
