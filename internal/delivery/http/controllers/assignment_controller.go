package controllers

import (
	"log/slog"
	"net/http"

	"volunteerhub/internal/delivery/http/helpers"
	"volunteerhub/internal/domain"
)

type AssignmentController struct {
	Logger  *slog.Logger
	Service domain.AssignmentService
}

func NewAssignmentController(logger *slog.Logger, svc domain.AssignmentService) *AssignmentController {
	return &AssignmentController{
		Logger:  logger,
		Service: svc,
	}
}

// Join godoc
// @Summary Sign up for an opportunity
// @Description Claims one slot for the authenticated volunteer. Concurrent sign-ups on the last slot admit exactly one volunteer; the rest receive error.code full.
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 201 {object} helpers.APIResponse{data=domain.Assignment}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: full, already_assigned, opportunity_locked, opportunity_unavailable or conflict"
// @Router /opportunities/{opportunityID}/assignments [post]
func (c *AssignmentController) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	assignment, err := c.Service.Join(r.Context(), id, actor.ID)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, assignment)
}

// Leave godoc
// @Summary Withdraw from an opportunity
// @Description Deactivates the volunteer's assignment and frees the slot. The assignment record remains as history. Withdrawal is blocked while the opportunity is in_progress.
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 204 "Slot freed"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: not_assigned or opportunity_locked"
// @Router /opportunities/{opportunityID}/assignments [delete]
func (c *AssignmentController) Leave(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	if err := c.Service.Leave(r.Context(), id, actor.ID); err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine godoc
// @Summary List the volunteer's active assignments
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse{data=[]domain.AssignmentWithOpportunity}
// @Router /volunteer/assignments [get]
func (c *AssignmentController) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	assignments, err := c.Service.ListMyAssignments(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, assignments)
}
