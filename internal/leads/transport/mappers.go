package transport

import (
	"leadledger_backend/internal/leads/domain"
)

func ToAdminLeadResponse(l domain.Lead) AdminLeadResponse {
	resp := AdminLeadResponse{
		ID:             l.ID,
		Detail:         l.Detail(),
		ReviewState:    l.ReviewState,
		DeclineReason:  l.DeclineReason,
		PostedAt:       l.PostedAt,
		DayOffset:      l.DayOffset,
		ScoreVersion:   l.ScoreVersion,
		ScoredAt:       l.ScoredAt,
		UploadedBy:     l.UploadedBy,
		ResubmissionOf: l.ResubmissionOf,
		CreatedAt:      l.CreatedAt,
	}
	if l.ReviewState == domain.ReviewPending {
		if due, ok := l.PostingDueAt(); ok {
			resp.DueAt = &due
		}
	}
	return resp
}

func ToSummaries(leads []domain.Lead) []domain.LeadSummary {
	out := make([]domain.LeadSummary, len(leads))
	for i, l := range leads {
		out[i] = l.Summary()
	}
	return out
}

func ToAdminResponses(leads []domain.Lead) []AdminLeadResponse {
	out := make([]AdminLeadResponse, len(leads))
	for i, l := range leads {
		out[i] = ToAdminLeadResponse(l)
	}
	return out
}

// ToFilter converts bound query parameters into a catalog filter.
func (q ListLeadsQuery) ToFilter() domain.ListFilter {
	f := domain.ListFilter{
		SourceKind:  domain.SourceKind(q.SourceKind),
		TypeLabel:   q.TypeLabel,
		Search:      q.Search,
		MinScore:    q.MinScore,
		PostedSince: q.PostedSince,
	}
	for _, s := range q.State {
		f.States = append(f.States, domain.ReviewState(s))
	}
	return f
}
