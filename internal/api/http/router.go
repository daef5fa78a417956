package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ideaflow/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Users    *handlers.UsersHandler
	Cases    *handlers.CasesHandler
	Projects *handlers.ProjectsHandler
}

// RegisterRoutes wires HTTP routes. The case and project routes are
// deliberately unauthenticated: actor ids travel in the request payload.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/register", cfg.Users.Register)
	app.Post("/login", cfg.Users.Login)
	app.Get("/profile/:id", cfg.Users.GetProfile)
	app.Put("/profile/:id", cfg.Users.UpdateProfile)

	cases := app.Group("/cases")
	cases.Post("/", cfg.Cases.CreateCase)
	cases.Get("/", cfg.Cases.ListCases)
	cases.Get("/:id", cfg.Cases.GetCase)
	cases.Put("/:id/accept", cfg.Cases.AcceptCase)
	cases.Post("/:id/upload-files", cfg.Cases.UploadFiles)
	cases.Put("/:id/complete", cfg.Cases.CompleteCase)

	projects := app.Group("/projects")
	projects.Post("/", cfg.Projects.CreateProject)
	projects.Get("/", cfg.Projects.ListProjects)
	projects.Get("/:id", cfg.Projects.GetProject)
}
