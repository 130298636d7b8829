package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoforge/ecoforge-backend/api/controllers"
	"github.com/ecoforge/ecoforge-backend/api/middleware"
	"github.com/ecoforge/ecoforge-backend/internal/achievements"
	"github.com/ecoforge/ecoforge-backend/internal/donations"
	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	"github.com/ecoforge/ecoforge-backend/internal/notifications"
	"github.com/ecoforge/ecoforge-backend/internal/projects"
	"github.com/ecoforge/ecoforge-backend/internal/requests"
	"github.com/ecoforge/ecoforge-backend/pkg/auth/session"
	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

// SessionManager joins the presence check the auth middleware needs with the
// open/revoke surface of the session controllers.
type SessionManager interface {
	session.AccessSessionChecker
	controllers.SessionManager
}

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Sessions      SessionManager
	Hub           *keytree.Hub
	Donations     donations.Service
	Requests      requests.Service
	Projects      projects.Service
	Stats         gamification.Service
	Achievements  achievements.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/session", controllers.OpenSession(cfg.JWT, deps.Sessions, logg))
		r.Delete("/session", controllers.CloseSession(cfg.JWT, deps.Sessions, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Get("/stream", controllers.StreamChanges(deps.Hub, logg))

		r.Route("/donations", func(r chi.Router) {
			r.Get("/", controllers.DiscoverDonations(deps.Donations, logg))
			r.Post("/", controllers.CreateDonation(deps.Donations, logg))
			r.Get("/mine", controllers.ListMyDonations(deps.Donations, logg))
			r.Get("/{donationId}", controllers.GetDonation(deps.Donations, logg))
			r.Patch("/{donationId}", controllers.EditDonation(deps.Donations, logg))
			r.Delete("/{donationId}", controllers.DeleteDonation(deps.Donations, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", controllers.ListRequests(deps.Requests, logg))
			r.Post("/", controllers.SubmitRequest(deps.Requests, logg))
			r.Get("/{requestId}", controllers.GetRequest(deps.Requests, logg))
			r.Patch("/{requestId}", controllers.EditRequest(deps.Requests, logg))
			r.Delete("/{requestId}", controllers.DeleteRequest(deps.Requests, logg))
			r.Post("/{requestId}/approve", controllers.ApproveRequest(deps.Requests, logg))
			r.Post("/{requestId}/reject", controllers.RejectRequest(deps.Requests, logg))
			r.Post("/{requestId}/cancel", controllers.CancelRequest(deps.Requests, logg))
			r.Post("/{requestId}/delivery", controllers.UpdateDelivery(deps.Requests, logg))
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", controllers.ListProjects(deps.Projects, logg))
			r.Post("/", controllers.CreateProject(deps.Projects, logg))
			r.Get("/{projectId}", controllers.GetProject(deps.Projects, logg))
			r.Delete("/{projectId}", controllers.DeleteProject(deps.Projects, logg))
			r.Post("/{projectId}/advance", controllers.AdvanceProject(deps.Projects, logg))
			r.Post("/{projectId}/share", controllers.ShareProject(deps.Projects, logg))
			r.Patch("/{projectId}/privacy", controllers.EditProjectPrivacy(deps.Projects, logg))

			r.Post("/{projectId}/materials", controllers.AddMaterial(deps.Projects, logg))
			r.Patch("/{projectId}/materials/{materialId}", controllers.UpdateMaterial(deps.Projects, logg))
			r.Delete("/{projectId}/materials/{materialId}", controllers.DeleteMaterial(deps.Projects, logg))

			r.Post("/{projectId}/steps", controllers.AddStep(deps.Projects, logg))
			r.Patch("/{projectId}/steps/{stepId}", controllers.EditStep(deps.Projects, logg))
			r.Delete("/{projectId}/steps/{stepId}", controllers.DeleteStep(deps.Projects, logg))
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/stats", controllers.GetMyStats(deps.Achievements, logg))
			r.Post("/borders/{borderId}/unlock", controllers.UnlockBorder(deps.Stats, logg))
			r.Post("/borders/{borderId}/equip", controllers.EquipBorder(deps.Stats, logg))
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", controllers.ListTasks(deps.Achievements, logg))
			r.Post("/{taskId}/claim", controllers.ClaimTask(deps.Achievements, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))
			r.Post("/tasks", controllers.CreateTask(deps.Achievements, logg))
			r.Put("/tasks/{taskId}", controllers.UpdateTask(deps.Achievements, logg))
			r.Delete("/tasks/{taskId}", controllers.DeleteTask(deps.Achievements, logg))
		})
	})

	return r
}
