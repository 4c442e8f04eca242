package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"volunteerhub/internal/delivery/http/controllers"
	"volunteerhub/internal/delivery/http/middleware"
	"volunteerhub/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	logger *slog.Logger,
	verifier domain.TokenVerifier,
	opportunityController *controllers.OpportunityController,
	assignmentController *controllers.AssignmentController,
	feedbackController *controllers.FeedbackController,
	ws http.HandlerFunc,
) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(verifier, logger)
	orgOnly := middleware.RequireRole(domain.RoleOrganization, domain.RoleAdmin)
	volunteerOnly := middleware.RequireRole(domain.RoleVolunteer)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	// Opportunities
	mux.HandleFunc("POST /opportunities", auth(orgOnly(opportunityController.Create)))
	mux.HandleFunc("GET /opportunities", auth(opportunityController.ListOpen))
	mux.HandleFunc("GET /opportunities/{opportunityID}", auth(opportunityController.Get))
	mux.HandleFunc("GET /org/opportunities", auth(orgOnly(opportunityController.ListMine)))
	mux.HandleFunc("PATCH /opportunities/{opportunityID}/status", auth(opportunityController.TransitionStatus))
	mux.HandleFunc("PATCH /opportunities/{opportunityID}/capacity", auth(opportunityController.UpdateCapacity))
	mux.HandleFunc("GET /opportunities/{opportunityID}/consistency", auth(adminOnly(opportunityController.CheckConsistency)))

	// Assignments
	mux.HandleFunc("POST /opportunities/{opportunityID}/assignments", auth(volunteerOnly(assignmentController.Join)))
	mux.HandleFunc("DELETE /opportunities/{opportunityID}/assignments", auth(volunteerOnly(assignmentController.Leave)))
	mux.HandleFunc("GET /volunteer/assignments", auth(volunteerOnly(assignmentController.ListMine)))

	// Feedback
	mux.HandleFunc("POST /opportunities/{opportunityID}/volunteers/{volunteerID}/feedback", auth(orgOnly(feedbackController.Submit)))
	mux.HandleFunc("GET /opportunities/{opportunityID}/feedback/completion", auth(orgOnly(feedbackController.Completion)))

	// Change notifications
	mux.HandleFunc("GET /ws", ws)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
