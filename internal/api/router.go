package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/controlfit/controlfit/internal/api/middleware"
	"github.com/controlfit/controlfit/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc
	MeHandler       http.HandlerFunc

	CreateProfileEntry http.HandlerFunc
	ListProfileHistory http.HandlerFunc

	CreateDailyLog http.HandlerFunc
	ListDailyLogs  http.HandlerFunc
	GetDailyLog    http.HandlerFunc
	UpdateDailyLog http.HandlerFunc
	DeleteDailyLog http.HandlerFunc

	CreatePhoto http.HandlerFunc
	ListPhotos  http.HandlerFunc
	GetPhoto    http.HandlerFunc
	UpdatePhoto http.HandlerFunc
	DeletePhoto http.HandlerFunc

	CreateCheatMeal http.HandlerFunc
	ListCheatMeals  http.HandlerFunc
	GetCheatMeal    http.HandlerFunc
	UpdateCheatMeal http.HandlerFunc
	DeleteCheatMeal http.HandlerFunc

	RequestFeedback http.HandlerFunc
	ListFeedback    http.HandlerFunc
	GetFeedback     http.HandlerFunc

	ListJobs     http.HandlerFunc
	GetJob       http.HandlerFunc
	GetJobStatus http.HandlerFunc
	ProcessJob   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Post("/api/v1/auth/register", orNotImplemented(deps.RegisterHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/auth/me", orNotImplemented(deps.MeHandler))

		r.Post("/api/v1/profile", orNotImplemented(deps.CreateProfileEntry))
		r.Get("/api/v1/profile", orNotImplemented(deps.ListProfileHistory))

		r.Post("/api/v1/daily-logs", orNotImplemented(deps.CreateDailyLog))
		r.Get("/api/v1/daily-logs", orNotImplemented(deps.ListDailyLogs))
		r.Get("/api/v1/daily-logs/{logID}", orNotImplemented(deps.GetDailyLog))
		r.Put("/api/v1/daily-logs/{logID}", orNotImplemented(deps.UpdateDailyLog))
		r.Delete("/api/v1/daily-logs/{logID}", orNotImplemented(deps.DeleteDailyLog))

		r.Post("/api/v1/photos", orNotImplemented(deps.CreatePhoto))
		r.Get("/api/v1/photos", orNotImplemented(deps.ListPhotos))
		r.Get("/api/v1/photos/{photoID}", orNotImplemented(deps.GetPhoto))
		r.Put("/api/v1/photos/{photoID}", orNotImplemented(deps.UpdatePhoto))
		r.Delete("/api/v1/photos/{photoID}", orNotImplemented(deps.DeletePhoto))

		r.Post("/api/v1/cheat-meals", orNotImplemented(deps.CreateCheatMeal))
		r.Get("/api/v1/cheat-meals", orNotImplemented(deps.ListCheatMeals))
		r.Get("/api/v1/cheat-meals/{mealID}", orNotImplemented(deps.GetCheatMeal))
		r.Put("/api/v1/cheat-meals/{mealID}", orNotImplemented(deps.UpdateCheatMeal))
		r.Delete("/api/v1/cheat-meals/{mealID}", orNotImplemented(deps.DeleteCheatMeal))

		r.Post("/api/v1/feedback/weekly", orNotImplemented(deps.RequestFeedback))
		r.Get("/api/v1/feedback/weekly", orNotImplemented(deps.ListFeedback))
		r.Get("/api/v1/feedback/weekly/{feedbackID}", orNotImplemented(deps.GetFeedback))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
		r.Get("/api/v1/jobs/{jobID}/status", orNotImplemented(deps.GetJobStatus))
		r.Post("/api/v1/jobs/{jobID}/process", orNotImplemented(deps.ProcessJob))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
