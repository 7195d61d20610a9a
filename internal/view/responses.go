package view

import (
	"idlens/internal/audit"
	"idlens/internal/identity/models"
	"idlens/internal/resolution"
)

type identityResponse struct {
	Name           string `json:"name,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	AbbreviatedKey string `json:"abbreviatedKey,omitempty"`
	BadgeIconURL   string `json:"badgeIconUrl,omitempty"`
	BadgeLabel     string `json:"badgeLabel,omitempty"`
	BadgeClickURL  string `json:"badgeClickUrl,omitempty"`
}

type searchResponse struct {
	Term        string             `json:"term"`
	ResultsTerm string             `json:"resultsTerm"`
	Results     []identityResponse `json:"results"`
	Options     []string           `json:"options"`
}

type resolveResponse struct {
	searchResponse
	Outcome outcomeResponse `json:"outcome"`
}

type outcomeResponse struct {
	Status     string `json:"status"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Sequence   uint64 `json:"sequence,omitempty"`
	Results    int    `json:"results"`
	Retryable  bool   `json:"retryable,omitempty"`
}

type auditResponse struct {
	Events []audit.Event `json:"events"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) toIdentityResponse(id models.Identity) identityResponse {
	return identityResponse{
		Name:           id.Name,
		AvatarURL:      h.gateway.Resolve(id.AvatarURL),
		AbbreviatedKey: id.AbbreviatedKey,
		BadgeIconURL:   h.gateway.Resolve(id.BadgeIconURL),
		BadgeLabel:     id.BadgeLabel,
		BadgeClickURL:  id.BadgeClickURL,
	}
}

func (h *Handler) toSearchResponse(state resolution.State) searchResponse {
	results := make([]identityResponse, 0, len(state.Results))
	for _, id := range state.Results {
		results = append(results, h.toIdentityResponse(id))
	}
	options := state.Options
	if options == nil {
		options = []string{}
	}
	return searchResponse{
		Term:        state.SearchTerm,
		ResultsTerm: state.ResultsTerm,
		Results:     results,
		Options:     options,
	}
}

func toOutcomeResponse(out resolution.Outcome) outcomeResponse {
	return outcomeResponse{
		Status:     string(out.Status),
		Diagnostic: string(out.Diagnostic),
		Sequence:   out.Sequence,
		Results:    out.Results,
		Retryable:  out.Retryable,
	}
}
