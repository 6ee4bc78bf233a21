package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielvega/portfolio-backend/api/controllers"
	"github.com/danielvega/portfolio-backend/api/middleware"
	"github.com/danielvega/portfolio-backend/internal/notifications"
	"github.com/danielvega/portfolio-backend/pkg/config"
	"github.com/danielvega/portfolio-backend/pkg/db"
	"github.com/danielvega/portfolio-backend/pkg/db/models"
	"github.com/danielvega/portfolio-backend/pkg/logger"
	"github.com/danielvega/portfolio-backend/pkg/redis"
)

// RouterParams carries every dependency the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      db.Pinger
	RedisPinger   redis.Pinger
	Registry      *prometheus.Registry
	Users         controllers.UsersService
	Blogs         controllers.BlogsService
	Tags          controllers.TagsService
	Notifications notifications.Service
	Authz         middleware.PermissionChecker
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.RedisPinger))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(params.Users, logg))
		r.Post("/login", controllers.AuthLogin(params.Users, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.UserMe(params.Users, logg))
			r.Put("/me", controllers.UserMeUpdate(params.Users, logg))

			r.With(middleware.RequirePermission(params.Authz, models.PermissionUsersRead, logg)).
				Get("/", controllers.UserList(params.Users, logg))
			r.With(middleware.RequirePermission(params.Authz, models.PermissionUsersReadSingle, logg)).
				Get("/{userId}", controllers.UserDetail(params.Users, logg))
			r.With(middleware.RequirePermission(params.Authz, models.PermissionUsersUpdate, logg)).
				Put("/{userId}", controllers.UserUpdate(params.Users, logg))
			r.With(middleware.RequirePermission(params.Authz, models.PermissionUsersDelete, logg)).
				Delete("/{userId}", controllers.UserDelete(params.Users, logg))
		})

		r.Route("/blogs", func(r chi.Router) {
			r.With(middleware.RequirePermission(params.Authz, models.PermissionBlogsRead, logg)).
				Get("/", controllers.BlogList(params.Blogs, logg))
			r.With(middleware.RequirePermission(params.Authz, models.PermissionBlogsRead, logg)).
				Get("/{blogId}", controllers.BlogDetail(params.Blogs, logg))
			r.With(middleware.RequirePermission(params.Authz, models.PermissionBlogsWrite, logg)).
				Post("/", controllers.BlogPublish(params.Blogs, params.Users, logg))
		})

		r.Route("/tags", func(r chi.Router) {
			r.With(middleware.RequirePermission(params.Authz, models.PermissionTagsRead, logg)).
				Get("/", controllers.TagList(params.Tags, logg))
			r.With(middleware.RequirePermission(params.Authz, models.PermissionTagsWrite, logg)).
				Post("/", controllers.TagCreate(params.Tags, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.Notifications, params.Users, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(params.Notifications, params.Users, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, params.Users, logg))
		})
	})

	return r
}
