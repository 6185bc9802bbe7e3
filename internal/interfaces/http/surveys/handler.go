package surveys

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/survey-haven/api/internal/interfaces/http/authhttp"
	surveyapp "github.com/sngm3741/survey-haven/api/internal/survey/application"
	userdomain "github.com/sngm3741/survey-haven/api/internal/user/domain"
)

// Handler wires /surveys endpoints to the survey store.
type Handler struct {
	logger  *log.Logger
	store   surveyapp.Store
	timeout time.Duration
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger  *log.Logger
	Store   surveyapp.Store
	Timeout time.Duration
}

// NewHandler constructs the /surveys handler set.
func NewHandler(cfg Config) *Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{
		logger:  cfg.Logger,
		store:   cfg.Store,
		timeout: timeout,
	}
}

// Register mounts all /surveys routes onto the router. writeLimit wraps the
// anonymous write routes (vote, comment, report) and may be nil.
func (h *Handler) Register(r chi.Router, guard *authhttp.Guard, writeLimit func(http.Handler) http.Handler) {
	if writeLimit == nil {
		writeLimit = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/surveys", h.listHandler())
	r.Get("/surveys/{id}", h.detailHandler())
	r.Put("/surveys/{id}", h.updateHandler())
	r.With(guard.Authenticate).Post("/surveys", h.createHandler())
	r.With(guard.Authenticate, guard.RequireRole(userdomain.RoleSurveyor)).Delete("/surveys/{id}", h.deleteHandler())

	r.With(writeLimit).Post("/surveys/{id}/vote", h.voteHandler())
	r.With(writeLimit).Post("/surveys/{id}/report", h.reportHandler())
	r.With(writeLimit).Post("/surveys/{id}/comments", h.commentHandler())
}
