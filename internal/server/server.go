package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kidney-story/internal/config"
	"kidney-story/internal/database"
	"kidney-story/internal/domain"
	custommiddleware "kidney-story/internal/middleware"
	"kidney-story/internal/repository"
	"kidney-story/internal/service"
	"kidney-story/internal/storage"
	"kidney-story/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires repositories, services and handlers onto one router.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, rdb *redis.Client, store storage.ObjectStore) *Server {
	router := chi.NewRouter()
	metrics := custommiddleware.NewMetrics()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(metrics.MetricsMiddleware)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", healthHandler(db, rdb))
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	sqlDB := db.DB()
	tx := repository.NewTransactor(sqlDB)

	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	tagRepo := repository.NewTagRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	reviewRepo := repository.NewReviewRepository(sqlDB)
	cartRepo := repository.NewCartRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)
	wishlistRepo := repository.NewWishlistRepository(sqlDB)
	blogRepo := repository.NewBlogRepository(sqlDB)
	forumRepo := repository.NewForumRepository(sqlDB)
	storyRepo := repository.NewStoryRepository(sqlDB)
	centerRepo := repository.NewCenterRepository(sqlDB)
	feedbackRepo := repository.NewFeedbackRepository(sqlDB)
	blogComments := repository.NewCommentRepository(sqlDB, domain.KindBlog)
	forumPosts := repository.NewCommentRepository(sqlDB, domain.KindForum)
	storyComments := repository.NewCommentRepository(sqlDB, domain.KindStory)

	userService := service.NewUserService(userRepo, refreshTokenRepo, service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	})
	catalogService := service.NewCatalogService(tx, productRepo, categoryRepo, tagRepo, reviewRepo, orderRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(tx, cartRepo, orderRepo, logger)
	wishlistService := service.NewWishlistService(wishlistRepo, productRepo)
	commentService := service.NewCommentService(cfg.Discussion.MaxDepth, logger,
		service.BlogDiscussions(blogRepo, blogComments),
		service.ForumDiscussions(forumRepo, forumPosts),
		service.StoryDiscussions(storyRepo, storyComments),
	)
	blogService := service.NewBlogService(tx, blogRepo, tagRepo)
	forumService := service.NewForumService(forumRepo, forumPosts, logger)
	storyService := service.NewStoryService(tx, storyRepo, tagRepo)
	centerService := service.NewCenterService(centerRepo)
	feedbackService := service.NewFeedbackService(feedbackRepo, cfg.RateLimit.FeedbackPerDay)
	uploadService := service.NewUploadService(store)

	guards := transport.NewGuards(custommiddleware.JWTParser(cfg.JWT.Secret), logger)
	feedbackThrottle := custommiddleware.RateLimitMiddleware(rdb, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.FeedbackPerDay,
		Window:            24 * time.Hour,
		KeyPrefix:         "rate_limit:feedback",
	}, logger)

	userHandler := transport.NewUserHandler(userService, logger)
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	shopHandler := transport.NewShopHandler(cartService, wishlistService, orderService, logger)
	blogHandler := transport.NewBlogHandler(blogService,
		transport.NewCommentHandler(domain.KindBlog, "blog", commentService, logger), logger)
	forumHandler := transport.NewForumHandler(forumService,
		transport.NewCommentHandler(domain.KindForum, "thread", commentService, logger), logger)
	storyHandler := transport.NewStoryHandler(storyService, catalogService,
		transport.NewCommentHandler(domain.KindStory, "story", commentService, logger), logger)
	centerHandler := transport.NewCenterHandler(centerService, logger)
	feedbackHandler := transport.NewFeedbackHandler(feedbackService, feedbackThrottle, logger)
	uploadHandler := transport.NewUploadHandler(uploadService, logger)

	router.Route("/api", func(r chi.Router) {
		r.Use(custommiddleware.RateLimitMiddleware(rdb, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "rate_limit:api",
		}, logger))
		r.Use(custommiddleware.ValidationMiddleware(logger))

		userHandler.RegisterRoutes(r, guards)
		r.Route("/products", func(r chi.Router) {
			shopHandler.RegisterRoutes(r, guards)
			catalogHandler.RegisterRoutes(r, guards)
		})
		blogHandler.RegisterRoutes(r, guards)
		forumHandler.RegisterRoutes(r, guards)
		storyHandler.RegisterRoutes(r, guards)
		centerHandler.RegisterRoutes(r, guards)
		feedbackHandler.RegisterRoutes(r, guards)
		uploadHandler.RegisterRoutes(r, guards)
	})

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  rdb,
	}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Database map[string]string `json:"database"`
	Redis    string            `json:"redis"`
}

// healthHandler reports 503 when the database is down. Redis only degrades
// rate limiting, so its state is reported without failing the check.
func healthHandler(db database.Service, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Database: db.Health(), Redis: "up"}

		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			resp.Redis = "down"
		}

		status := http.StatusOK
		if resp.Database["status"] != "up" {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, resp)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
