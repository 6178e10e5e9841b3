package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/outrage-civic/outrage-api/internal/apperr"
	"github.com/outrage-civic/outrage-api/internal/drafts"
	"github.com/outrage-civic/outrage-api/internal/model"
	"github.com/outrage-civic/outrage-api/internal/store"
)

// cacheStatusHeader reports whether a cacheable response was served from
// the store.
const cacheStatusHeader = "X-Cache-Status"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type lookupRequest struct {
	Address string `json:"address"`
}

type lookupResponse struct {
	Representatives []model.Representative `json:"representatives"`
}

func (s *Server) handleLookupRepresentatives(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil {
		writeError(w, apperr.New(apperr.KindProviderUnavailable, "representative lookup is not configured"))
		return
	}

	var req lookupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reps, cached, err := s.resolver.Resolve(r.Context(), req.Address)
	if err != nil {
		writeError(w, err)
		return
	}

	if cached {
		w.Header().Set(cacheStatusHeader, "HIT")
	} else {
		w.Header().Set(cacheStatusHeader, "MISS")
	}
	if reps == nil {
		reps = []model.Representative{}
	}
	writeJSON(w, http.StatusOK, lookupResponse{Representatives: reps})
}

type selectRequest struct {
	Demands         []string               `json:"demands"`
	Representatives []model.Representative `json:"representatives"`
	PreselectedIDs  []string               `json:"preselectedIds,omitempty"`
}

type selectResponse struct {
	SelectedIndices []int  `json:"selectedIndices"`
	Error           string `json:"error,omitempty"`
}

func (s *Server) handleSelectRepresentatives(w http.ResponseWriter, r *http.Request) {
	if s.selector == nil {
		writeError(w, apperr.New(apperr.KindProviderUnavailable, "representative selection is not configured"))
		return
	}

	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// Selection candidates must be contactable; indices in the response
	// still refer to the caller's full list.
	candidates := make([]model.Representative, 0, len(req.Representatives))
	origIndex := make([]int, 0, len(req.Representatives))
	for i, rep := range req.Representatives {
		if rep.Reachable() {
			candidates = append(candidates, rep)
			origIndex = append(origIndex, i)
		}
	}

	result, err := s.selector.Select(r.Context(), req.Demands, candidates, req.PreselectedIDs)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			writeError(w, err)
			return
		}
		// Model outages degrade to manual picking, not a failed request.
		// Campaign preselections are forced regardless.
		writeJSON(w, http.StatusOK, selectResponse{
			SelectedIndices: unionPreselected(nil, req.Representatives, req.PreselectedIDs),
			Error:           "Selection is unavailable, pick representatives manually",
		})
		return
	}

	indices := make([]int, 0, len(result.Indices))
	for _, idx := range result.Indices {
		indices = append(indices, origIndex[idx])
	}

	// The union runs against the full list: campaign-preselected
	// representatives with zero contacts are excluded from the model's
	// candidates but must still appear in the selection.
	indices = unionPreselected(indices, req.Representatives, req.PreselectedIDs)

	resp := selectResponse{SelectedIndices: indices}
	if result.Failed {
		resp.Error = "Could not interpret the selection, pick representatives manually"
	}
	writeJSON(w, http.StatusOK, resp)
}

// unionPreselected forces campaign-preselected representatives into the
// selection by position in the caller's full list, keeping the relevance
// ordering for the rest.
func unionPreselected(indices []int, reps []model.Representative, preselectedIDs []string) []int {
	if indices == nil {
		indices = []int{}
	}
	if len(preselectedIDs) == 0 {
		return indices
	}

	preselected := make(map[string]bool, len(preselectedIDs))
	for _, id := range preselectedIDs {
		preselected[id] = true
	}

	present := make(map[int]bool, len(indices))
	for _, idx := range indices {
		present[idx] = true
	}

	for i, rep := range reps {
		if preselected[rep.ID] && !present[i] {
			indices = append(indices, i)
		}
	}
	return indices
}

type draftRequest struct {
	Demands      []string             `json:"demands"`
	PersonalInfo *model.PersonalInfo  `json:"personalInfo,omitempty"`
	Recipient    model.Representative `json:"recipient"`
	WorkingDraft string               `json:"workingDraft,omitempty"`
	Feedback     string               `json:"feedback,omitempty"`
}

type draftResponse struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

func (s *Server) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, apperr.New(apperr.KindProviderUnavailable, "draft generation is not configured"))
		return
	}

	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	draft, err := s.generator.Generate(r.Context(), drafts.Request{
		Demands:      req.Demands,
		PersonalInfo: req.PersonalInfo,
		Recipient:    req.Recipient,
		WorkingDraft: req.WorkingDraft,
		Feedback:     req.Feedback,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, draftResponse{
		Subject: draft.Subject,
		Content: draft.Content,
	})
}

type analyzeFormRequest struct {
	URL            string                `json:"url"`
	UserData       map[string]string     `json:"userData"`
	Representative *model.Representative `json:"representative,omitempty"`
}

func (s *Server) handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	if s.mapper == nil {
		writeError(w, apperr.New(apperr.KindProviderUnavailable, "form analysis is not configured"))
		return
	}

	var req analyzeFormRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	analysis, cached, err := s.mapper.Analyze(r.Context(), req.URL, req.UserData)
	if err != nil {
		writeError(w, err)
		return
	}

	if cached {
		w.Header().Set(cacheStatusHeader, "HIT")
	} else {
		w.Header().Set(cacheStatusHeader, "MISS")
	}
	writeJSON(w, http.StatusOK, analysis)
}

type createCampaignRequest struct {
	Title             string   `json:"title"`
	Message           string   `json:"message"`
	Demands           []string `json:"demands,omitempty"`
	RepresentativeIDs []string `json:"representativeIds,omitempty"`
	City              string   `json:"city,omitempty"`
	State             string   `json:"state,omitempty"`
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Title == "" || req.Message == "" {
		writeError(w, apperr.New(apperr.KindValidation, "server: campaign title and message are required"))
		return
	}

	if s.moderator != nil {
		if err := s.moderator.Check(r.Context(), req.Title, req.Message, req.Demands); err != nil {
			writeError(w, err)
			return
		}
	}

	campaign, err := s.store.CreateCampaign(r.Context(), model.Campaign{
		Title:             req.Title,
		Message:           req.Message,
		Demands:           req.Demands,
		RepresentativeIDs: req.RepresentativeIDs,
		City:              req.City,
		State:             req.State,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

type listCampaignsResponse struct {
	Campaigns []model.Campaign `json:"campaigns"`
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CampaignFilter{
		City:  q.Get("city"),
		State: q.Get("state"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, apperr.New(apperr.KindValidation, "server: invalid limit"))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, apperr.New(apperr.KindValidation, "server: invalid offset"))
			return
		}
		filter.Offset = n
	}

	campaigns, err := s.store.ListCampaigns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	writeJSON(w, http.StatusOK, listCampaignsResponse{Campaigns: campaigns})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.store.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleCampaignSent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.IncrementCampaignSent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCampaignView(w http.ResponseWriter, r *http.Request) {
	if err := s.store.IncrementCampaignViews(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
