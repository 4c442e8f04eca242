package controllers

import (
	"log/slog"
	"net/http"

	"volunteerhub/internal/delivery/http/helpers"
	"volunteerhub/internal/domain"
)

type FeedbackController struct {
	Logger  *slog.Logger
	Service domain.FeedbackService
}

func NewFeedbackController(logger *slog.Logger, svc domain.FeedbackService) *FeedbackController {
	return &FeedbackController{
		Logger:  logger,
		Service: svc,
	}
}

// SubmitFeedbackRequest is the request body for feedback submission.
// swagger:model SubmitFeedbackRequest
type SubmitFeedbackRequest struct {
	Rating         int      `json:"rating"`
	Feedback       string   `json:"feedback"`
	Skills         []string `json:"skills"`
	WouldWorkAgain bool     `json:"would_work_again"`
}

// Validate implements helpers.Validator.
func (req *SubmitFeedbackRequest) Validate() []string {
	if req.Rating < 1 || req.Rating > 5 {
		return []string{"rating must be between 1 and 5"}
	}
	return nil
}

// Submit godoc
// @Summary Submit feedback for a volunteer
// @Description Owner organization only, once the opportunity is resolved or closed, for volunteers with assignment history. One record per volunteer; records are immutable.
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Param volunteerID path string true "Volunteer ID (UUID)"
// @Param body body controllers.SubmitFeedbackRequest true "Feedback payload"
// @Success 201 {object} helpers.APIResponse{data=domain.FeedbackRecord}
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: not_eligible or duplicate_feedback"
// @Router /opportunities/{opportunityID}/volunteers/{volunteerID}/feedback [post]
func (c *FeedbackController) Submit(w http.ResponseWriter, r *http.Request) {
	opportunityID, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	volunteerID, ok := pathID(w, r, "volunteerID")
	if !ok {
		return
	}
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	var req SubmitFeedbackRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	rec, err := c.Service.Submit(r.Context(), opportunityID, volunteerID, actor.ID, domain.FeedbackInput{
		Rating:         req.Rating,
		Feedback:       req.Feedback,
		Skills:         req.Skills,
		WouldWorkAgain: req.WouldWorkAgain,
	})
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, rec)
}

// Completion godoc
// @Summary Feedback completion status for an opportunity
// @Description Reports how many of the distinct volunteers ever assigned (active or withdrawn) have a feedback record.
// @Tags feedback
// @Produce json
// @Security BearerAuth
// @Param opportunityID path string true "Opportunity ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=domain.CompletionStatus}
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /opportunities/{opportunityID}/feedback/completion [get]
func (c *FeedbackController) Completion(w http.ResponseWriter, r *http.Request) {
	opportunityID, ok := pathID(w, r, "opportunityID")
	if !ok {
		return
	}
	actor, ok := requireActor(w, r.Context())
	if !ok {
		return
	}
	status, err := c.Service.CompletionStatus(r.Context(), opportunityID, actor)
	if err != nil {
		writeDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, status)
}
