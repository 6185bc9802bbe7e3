package users

import (
	"log"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/survey-haven/api/internal/interfaces/http/authhttp"
	userapp "github.com/sngm3741/survey-haven/api/internal/user/application"
	"github.com/sngm3741/survey-haven/api/internal/user/domain"
)

// Handler wires /users endpoints to the user directory.
type Handler struct {
	logger    *log.Logger
	directory userapp.Directory
	timeout   time.Duration
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger    *log.Logger
	Directory userapp.Directory
	Timeout   time.Duration
}

// NewHandler constructs the /users handler set.
func NewHandler(cfg Config) *Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{
		logger:    cfg.Logger,
		directory: cfg.Directory,
		timeout:   timeout,
	}
}

// Register mounts all /users routes onto the router.
func (h *Handler) Register(r chi.Router, guard *authhttp.Guard) {
	r.Post("/users", h.createHandler())
	r.Get("/users", h.listHandler())

	r.Group(func(r chi.Router) {
		r.Use(guard.Authenticate)
		r.Get("/users/admin/{email}", h.roleCheckHandler(domain.RoleAdmin))
		r.Get("/users/surveyor/{email}", h.roleCheckHandler(domain.RoleSurveyor))
		r.Patch("/users/surveyor/{id}", h.promoteHandler(domain.RoleSurveyor))
		r.With(guard.RequireRole(domain.RoleAdmin)).Patch("/users/admin/{id}", h.promoteHandler(domain.RoleAdmin))
		r.With(guard.RequireRole(domain.RoleAdmin)).Delete("/users/{id}", h.deleteHandler())
	})
}
