package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"volunteerhub/internal/delivery/http/helpers"
	"volunteerhub/internal/domain"
)

type OpportunityController struct {
	Logger  *slog.Logger
	Service domain.OpportunityService
	Ledger  domain.LedgerService
}

func NewOpportunityController(logger *slog.Logger, svc domain.OpportunityService, ledger domain.LedgerService) *OpportunityController {
	return &OpportunityController{
		Logger:  logger,
		Service: svc,
		Ledger:  ledger,
	}
}

// CreateOpportunityRequest is the request body for POST /opportunities.
// swagger:model CreateOpportunityRequest
type CreateOpportunityRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Tags            []string `json:"tags"`
	Priority        string   `json:"priority"`
	EventStart      string   `json:"event_start"`
	DurationMinutes int      `json:"duration_minutes"`
	MaxVolunteers   int      `json:"max_volunteers"`
}

// Validate implements helpers.Validator.
func (req *CreateOpportunityRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, "title is required")
	}
	if req.DurationMinutes < 1 {
		errs = append(errs, "duration_minutes must be positive")
	}
	if req.MaxVolunteers < 1 {
		errs = append(errs, "max_volunteers must be at least 1")
	}
	if _, err := time.Parse(time.RFC3339, req.EventStart); err != nil {
		errs = append(errs, "event_start must be an RFC 3339 timestamp")
	}
	if req.Priority != "" {
		if _, err := domain.ParsePriority(req.Priority); err != nil {
			errs = append(errs, "priority must be one of low, medium, high, urgent")
		}
	}
	return errs
}

// Create godoc
// @Summary Create an opportunity
// @Description Creates a volunteer opportunity owned by the authenticated organization. It starts in status open with an empty roster.
// @Tags opportunities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateOpportunityRequest true "Opportunity attributes"
// @Success 201 {object} helpers.APIResponse{data=domain.Opportunity}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /opportunities [post]
func (c *OpportunityController) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	var req CreateOpportunityRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	eventStart, _ := time.Parse(time.RFC3339, req.EventStart)

	opp, err := c.Service.Create(r.Context(), actor, domain.CreateOpportunityInput{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		Tags:            req.Tags,
		Priority:        domain.Priority(req.Priority),
		EventStart:      eventStart,
		DurationMinutes: req.DurationMinutes,
		MaxVolunteers:   req.MaxVolunteers,
	})
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, opp)
}

// OpportunityListData is the data object for paginated opportunity listings.
type OpportunityListData struct {
	Opportunities []*domain.Opportunity  `json:"opportunities"`
	Pagination    helpers.PaginationMeta `json:"pagination"`
}

// ListOpen godoc
// @Summary List open opportunities
// @Description Lists opportunities still accepting or undergoing work, ordered by priority then start time.
// @Tags opportunities
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse{data=controllers.OpportunityListData}
// @Router /opportunities [get]
func (c *OpportunityController) ListOpen(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	opps, total, err := c.Service.ListOpen(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, OpportunityListData{
		Opportunities: opps,
		Pagination:    helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// ListMine godoc
// @Summary List the organization's own opportunities
// @Tags opportunities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse{data=[]domain.Opportunity}
// @Router /org/opportunities [get]
func (c *OpportunityController) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	opps, err := c.Service.ListByOwner(r.Context(), actor)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, opps)
}

// Get godoc
// @Summary Get one opportunity
// @Tags opportunities
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=domain.Opportunity}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID} [get]
func (c *OpportunityController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	opp, err := c.Service.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, opp)
}

// TransitionStatusRequest is the request body for PATCH /opportunities/{opportunityID}/status.
// swagger:model TransitionStatusRequest
type TransitionStatusRequest struct {
	Status string `json:"status"`
}

// Validate implements helpers.Validator.
func (req *TransitionStatusRequest) Validate() []string {
	if _, err := domain.ParseStatus(req.Status); err != nil {
		return []string{"status must be one of open, in_progress, waiting, resolved, closed, assigned"}
	}
	return nil
}

// TransitionStatus godoc
// @Summary Change an opportunity's lifecycle status
// @Description Owner organization or admin only. Entering resolved or closed stamps the matching timestamp; re-entering an active status clears both (reopen).
// @Tags opportunities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Param body body controllers.TransitionStatusRequest true "New status"
// @Success 200 {object} helpers.APIResponse{data=domain.Opportunity}
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID}/status [patch]
func (c *OpportunityController) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	var req TransitionStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	opp, err := c.Service.TransitionStatus(r.Context(), id, domain.Status(req.Status), actor)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, opp)
}

// UpdateCapacityRequest is the request body for PATCH /opportunities/{opportunityID}/capacity.
// swagger:model UpdateCapacityRequest
type UpdateCapacityRequest struct {
	MaxVolunteers int `json:"max_volunteers"`
}

// Validate implements helpers.Validator.
func (req *UpdateCapacityRequest) Validate() []string {
	if req.MaxVolunteers < 1 {
		return []string{"max_volunteers must be at least 1"}
	}
	return nil
}

// UpdateCapacity godoc
// @Summary Change an opportunity's slot capacity
// @Description Owner organization or admin only. The new capacity may never drop below committed sign-ups.
// @Tags opportunities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Param body body controllers.UpdateCapacityRequest true "New capacity"
// @Success 200 {object} helpers.APIResponse{data=domain.Opportunity}
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_capacity"
// @Router /opportunities/{opportunityID}/capacity [patch]
func (c *OpportunityController) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	var req UpdateCapacityRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	opp, err := c.Service.UpdateCapacity(r.Context(), id, req.MaxVolunteers, actor)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, opp)
}

// ConsistencyData reports the counter/ledger comparison for one opportunity.
type ConsistencyData struct {
	OpportunityID string `json:"opportunity_id"`
	ActiveCount   int    `json:"active_count"`
	Consistent    bool   `json:"consistent"`
}

// CheckConsistency godoc
// @Summary Verify the volunteer counter against the assignment ledger
// @Description Admin only. Reports drift between current_volunteers and the count of active assignments; drift is never repaired here.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=controllers.ConsistencyData}
// @Failure 500 {object} helpers.APIResponse "error.code: consistency_error"
// @Router /opportunities/{opportunityID}/consistency [get]
func (c *OpportunityController) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	if err := c.Ledger.Verify(r.Context(), id); err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	count, err := c.Ledger.ActiveCount(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ConsistencyData{
		OpportunityID: id,
		ActiveCount:   count,
		Consistent:    true,
	})
}
