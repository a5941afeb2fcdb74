package router

import (
	"context"
	"net/http"
	"os"
	"strings"

	"memorybox/internal/database"
	badgesapi "memorybox/internal/handlers/api/v1/badges"
	"memorybox/internal/handlers/api/v1/comments"
	"memorybox/internal/handlers/api/v1/groups"
	"memorybox/internal/handlers/api/v1/images"
	"memorybox/internal/handlers/api/v1/posts"
	"memorybox/internal/metrics"
	"memorybox/internal/middleware"
	"memorybox/internal/response"
	"memorybox/internal/services"
	"memorybox/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Dependencies is everything the HTTP surface needs
type Dependencies struct {
	Groups   services.GroupService
	Posts    services.PostService
	Comments services.CommentService
	Images   services.ImageService
	Badges   services.BadgeService

	// Health may be nil, in which case /health only reports liveness
	Health func(ctx context.Context) *services.ServiceHealth
	// Metrics may be nil when metrics are disabled
	Metrics     *metrics.Metrics
	MetricsPath string

	// UploadDir is served at UploadPath when images are stored locally
	UploadDir      string
	UploadPath     string
	MaxUploadBytes int64

	RateLimit      *middleware.RateLimiterConfig
	CORSOrigins    []string
	// TrustedProxies may set forwarding headers; other peers are keyed by address
	TrustedProxies []string
	Logging        *middleware.LoggingConfig

	Builder *response.Builder
	Logger  *zap.Logger
}

// FromCollection wires Dependencies from a built service collection
func FromCollection(sc *services.ServiceCollection, builder *response.Builder) *Dependencies {
	cfg := sc.Config
	deps := &Dependencies{
		Groups:         sc.GroupService,
		Posts:          sc.PostService,
		Comments:       sc.CommentService,
		Images:         sc.ImageService,
		Badges:         sc.BadgeService,
		Health:         sc.HealthCheck,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		RateLimit: &middleware.RateLimiterConfig{
			Enabled:           cfg.Security.RateLimitRPS > 0,
			RequestsPerSecond: cfg.Security.RateLimitRPS,
			Burst:             cfg.Security.RateLimitBurst,
			HeadersEnabled:    true,
			IdleTTL:           middleware.DefaultRateLimiterConfig().IdleTTL,
			MaxClients:        middleware.DefaultRateLimiterConfig().MaxClients,
		},
		CORSOrigins:    cfg.Security.CORSAllowedOrigins,
		TrustedProxies: cfg.Security.TrustedProxies,
		Builder:        builder,
		Logger:         sc.Logger,
	}
	if sc.Metrics != nil && cfg.Metrics.Enabled {
		deps.Metrics = sc.Metrics
		deps.MetricsPath = cfg.Metrics.Path
	}
	if local, ok := sc.Storage.(*storage.LocalStorage); ok {
		deps.UploadDir = local.Dir()
		deps.UploadPath = cfg.Uploads.PublicPath
	}
	return deps
}

// New builds the chi router. Middleware order matters: the request id and
// logger must exist before recovery and logging run.
func New(deps *Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	builder := deps.Builder
	if builder == nil {
		builder = response.NewBuilder(nil, logger)
	}

	clientIPs, err := middleware.NewClientIPResolver(deps.TrustedProxies)
	if err != nil {
		// peer addresses only
		logger.Error("Ignoring trusted proxies", zap.Error(err))
		clientIPs = nil
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID(logger, clientIPs))
	r.Use(middleware.Recovery(builder, nil))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.StructuredLogger(deps.Logging))
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(middleware.SecureHeaders)

	r.NotFound(middleware.NotFound(builder))
	r.MethodNotAllowed(middleware.MethodNotAllowed(builder))

	// ===============================
	// OPERATIONAL ENDPOINTS
	// ===============================

	r.Get("/health", healthHandler(deps.Health, builder))
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, deps.Metrics.Handler())
	}
	if deps.UploadDir != "" {
		mountUploads(r, deps.UploadPath, deps.UploadDir)
	}

	// ===============================
	// API ENDPOINTS
	// ===============================

	limiter := middleware.NewRateLimiter(deps.RateLimit, builder, logger)

	groupController := groups.NewGroupController(deps.Groups, logger, builder)
	postController := posts.NewPostController(deps.Posts, logger, builder)
	commentController := comments.NewCommentController(deps.Comments, logger, builder)
	badgeController := badgesapi.NewBadgeController(deps.Badges, logger, builder)
	imageController := images.NewImageController(deps.Images, deps.MaxUploadBytes, logger, builder)

	r.Route("/api", func(r chi.Router) {
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", groupController.CreateGroup)
			r.Get("/", groupController.ListGroups)

			r.Route("/{groupId}", func(r chi.Router) {
				r.Get("/", groupController.GetGroup)
				r.Put("/", groupController.UpdateGroup)
				r.Delete("/", groupController.DeleteGroup)
				r.Get("/is-public", groupController.IsPublic)

				r.Group(func(r chi.Router) {
					r.Use(limiter.Limit)
					r.Post("/verify-password", groupController.VerifyPassword)
					r.Post("/like", groupController.LikeGroup)
				})

				r.Get("/badges", badgeController.GetGroupBadges)
				r.Post("/badges/evaluate", badgeController.EvaluateGroup)

				r.Post("/posts", postController.CreatePost)
				r.Get("/posts", postController.ListPosts)
			})
		})

		r.Route("/posts/{postId}", func(r chi.Router) {
			r.Get("/", postController.GetPost)
			r.Put("/", postController.UpdatePost)
			r.Delete("/", postController.DeletePost)
			r.Get("/is-public", postController.IsPublic)

			r.Group(func(r chi.Router) {
				r.Use(limiter.Limit)
				r.Post("/verify-password", postController.VerifyPassword)
				r.Post("/like", postController.LikePost)
			})

			r.Post("/comments", commentController.CreateComment)
			r.Get("/comments", commentController.ListComments)
		})

		r.Route("/comments/{commentId}", func(r chi.Router) {
			r.Put("/", commentController.UpdateComment)
			r.Delete("/", commentController.DeleteComment)
		})

		r.Get("/badges", badgeController.ListDefinitions)
		r.Post("/image", imageController.UploadImage)
	})

	logger.Info("Router setup completed",
		zap.Bool("metrics", deps.Metrics != nil),
		zap.String("uploads", deps.UploadPath),
	)
	return r
}

// ===============================
// HELPERS
// ===============================

func healthHandler(check func(context.Context) *services.ServiceHealth, builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check == nil {
			builder.WriteSuccess(w, r, map[string]string{"status": "healthy"})
			return
		}

		health := check(r.Context())
		status := http.StatusOK
		if health.Status == database.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		builder.WriteJSON(w, r, builder.Success(r.Context(), health), status)
	}
}

// mountUploads serves stored images without directory listings
func mountUploads(r chi.Router, publicPath, dir string) {
	publicPath = "/" + strings.Trim(publicPath, "/")
	if publicPath == "/" {
		publicPath = "/uploads"
	}
	files := http.StripPrefix(publicPath+"/", http.FileServer(noListingFS{http.Dir(dir)}))
	r.Method(http.MethodGet, publicPath+"/*", files)
	r.Method(http.MethodHead, publicPath+"/*", files)
}

type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
