package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"greenhouse.org/growersplatform/internal/agent"
	"greenhouse.org/growersplatform/internal/agent/agents"
	"greenhouse.org/growersplatform/internal/agent/providers"
	"greenhouse.org/growersplatform/internal/config"
	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/internal/middleware"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/mailer"
	"greenhouse.org/growersplatform/pkg/ratelimiter"
	"greenhouse.org/growersplatform/pkg/storage"
	"greenhouse.org/growersplatform/pkg/token"

	aiHttp "greenhouse.org/growersplatform/internal/modules/ai/delivery/http"
	aiService "greenhouse.org/growersplatform/internal/modules/ai/service"

	analyticsHttp "greenhouse.org/growersplatform/internal/modules/analytics/delivery/http"
	analyticsRepo "greenhouse.org/growersplatform/internal/modules/analytics/repository"
	analyticsService "greenhouse.org/growersplatform/internal/modules/analytics/service"

	attachmentHttp "greenhouse.org/growersplatform/internal/modules/attachment/delivery/http"
	attachmentRepo "greenhouse.org/growersplatform/internal/modules/attachment/repository"
	attachmentService "greenhouse.org/growersplatform/internal/modules/attachment/service"

	blogHttp "greenhouse.org/growersplatform/internal/modules/blog/delivery/http"
	blogRepo "greenhouse.org/growersplatform/internal/modules/blog/repository"
	blogService "greenhouse.org/growersplatform/internal/modules/blog/service"

	challengeHttp "greenhouse.org/growersplatform/internal/modules/challenge/delivery/http"
	challengeFeed "greenhouse.org/growersplatform/internal/modules/challenge/feed"
	challengeRepo "greenhouse.org/growersplatform/internal/modules/challenge/repository"
	challengeService "greenhouse.org/growersplatform/internal/modules/challenge/service"

	forumHttp "greenhouse.org/growersplatform/internal/modules/forum/delivery/http"
	forumRepo "greenhouse.org/growersplatform/internal/modules/forum/repository"
	forumService "greenhouse.org/growersplatform/internal/modules/forum/service"

	profileHttp "greenhouse.org/growersplatform/internal/modules/profile/delivery/http"
	profileRepo "greenhouse.org/growersplatform/internal/modules/profile/repository"
	profileSearch "greenhouse.org/growersplatform/internal/modules/profile/search"
	profileService "greenhouse.org/growersplatform/internal/modules/profile/service"

	resourceHttp "greenhouse.org/growersplatform/internal/modules/resource/delivery/http"
	resourceRepo "greenhouse.org/growersplatform/internal/modules/resource/repository"
	resourceService "greenhouse.org/growersplatform/internal/modules/resource/service"

	roadmapHttp "greenhouse.org/growersplatform/internal/modules/roadmap/delivery/http"
	roadmapRepo "greenhouse.org/growersplatform/internal/modules/roadmap/repository"
	roadmapService "greenhouse.org/growersplatform/internal/modules/roadmap/service"

	userHttp "greenhouse.org/growersplatform/internal/modules/user/delivery/http"
	userRepo "greenhouse.org/growersplatform/internal/modules/user/repository"
	userService "greenhouse.org/growersplatform/internal/modules/user/service"
)

const uploadsPath = "/uploads"

// Deps are the process-wide clients the router is built from. Redis, Meili and Scheduler are
// optional.
type Deps struct {
	Config    *config.Config
	Log       *logger.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	Meili     meilisearch.ServiceManager
	Storage   storage.FileStorage
	Mailer    mailer.Mailer
	LLM       providers.LLMProvider
	Scheduler *agent.Scheduler
}

type Server struct {
	engine *gin.Engine
	log    *logger.Logger
}

func New(deps Deps) (*Server, error) {
	cfg := deps.Config
	log := deps.Log

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	var memberIndex profileSearch.MemberIndex
	if deps.Meili != nil {
		memberIndex = profileSearch.NewMeiliMemberIndex(deps.Meili, log)
	}

	profileSvc := profileService.NewProfileService(profileRepo.NewProfileRepository(deps.DB), memberIndex, deps.Storage, log)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	users := userRepo.NewUserRepository(deps.DB)
	authSvc := userService.NewAuthService(users, tokens, deps.Mailer, profileSvc, log, cfg.DefaultRole)
	authHandler := userHttp.NewAuthHandler(authSvc, userHttp.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.CookieSecure,
		TTL:    cfg.JWTTTL,
	})
	userAdminHandler := userHttp.NewAdminHandler(userService.NewAdminService(users, log))

	resourceSvc := resourceService.NewResourceService(resourceRepo.NewResourceRepository(deps.DB), log)
	resourceHandler := resourceHttp.NewResourceHandler(resourceSvc)

	forumHandler := forumHttp.NewForumHandler(forumService.NewForumService(forumRepo.NewForumRepository(deps.DB)))

	attachmentSvc := attachmentService.NewAttachmentService(attachmentRepo.NewAttachmentRepository(deps.DB), deps.Storage, cfg.UploadMaxBytes, log)
	attachmentHandler := attachmentHttp.NewAttachmentHandler(attachmentSvc, cfg.UploadMaxBytes)

	var feed challengeFeed.Feed
	if deps.Redis != nil {
		feed = challengeFeed.NewRedisFeed(deps.Redis)
	} else {
		feed = challengeFeed.NewMemoryFeed()
	}
	challengeSvc := challengeService.NewChallengeService(challengeRepo.NewChallengeRepository(deps.DB), feed, deps.Mailer, cfg.AdminEmail, log)
	challengeHandler := challengeHttp.NewChallengeHandler(challengeSvc, cfg.AllowedOrigins, log)

	roadmapSvc := roadmapService.NewRoadmapService(roadmapRepo.NewRoadmapRepository(deps.DB))
	roadmapHandler := roadmapHttp.NewRoadmapHandler(roadmapSvc)

	aiHandler := aiHttp.NewAIHandler(aiService.NewAIService(deps.LLM, profileSvc, roadmapSvc, log))

	analyticsHandler := analyticsHttp.NewAnalyticsHandler(analyticsService.NewAnalyticsService(analyticsRepo.NewAnalyticsRepository(deps.DB), log))

	blogHandler := blogHttp.NewBlogHandler(blogService.NewBlogService(blogRepo.NewBlogRepository(deps.DB)))

	if deps.Scheduler != nil {
		if err := registerAgents(deps, resourceSvc, attachmentSvc); err != nil {
			return nil, err
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())
	setupCORS(router, cfg.AllowedOrigins)

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.CloudinaryURL == "" {
		router.Static(uploadsPath, cfg.UploadDir)
	}

	authMiddleware := middleware.NewAuthMiddleware(users, tokens, cfg.CookieName)
	requireMember := authMiddleware.RequireRoles(entity.RoleMember, entity.RoleAdmin)
	requireAdmin := authMiddleware.RequireRoles(entity.RoleAdmin)

	aiLimit := middleware.RateLimit(newLimiter(deps.Redis, "ratelimit:ai", cfg.RateLimitAI, cfg.RateLimitWindow), log)
	analyticsLimit := middleware.RateLimit(newLimiter(deps.Redis, "ratelimit:analytics", cfg.RateLimitAnalytics, cfg.RateLimitWindow), log)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)
	}

	// Public catalogue and content
	public := api.Group("")
	public.Use(authMiddleware.OptionalAuth())
	{
		public.GET("/resources", resourceHandler.ListResources)
		public.GET("/resources/:id", resourceHandler.GetResource)

		public.GET("/forum/posts", forumHandler.ListPosts)
		public.GET("/forum/posts/:id", forumHandler.GetPost)

		public.GET("/blog", blogHandler.List)
		public.GET("/blog/:slug", blogHandler.GetBySlug)

		public.GET("/farm-roadmap/questions", roadmapHandler.Questions)

		public.POST("/ai/find-grower", aiLimit, aiHandler.FindGrower)
		public.POST("/ai/assessment", aiLimit, aiHandler.Assessment)

		public.POST("/analytics/events", analyticsLimit, analyticsHandler.Ingest)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/profile", profileHandler.GetCurrentProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)
		protected.PUT("/profile/password", authHandler.ChangePassword)

		protected.GET("/resources/favorites", resourceHandler.ListFavorites)
		protected.POST("/resources/:id/favorite", resourceHandler.ToggleFavorite)

		protected.POST("/farm-roadmap/submit", roadmapHandler.Submit)
		protected.GET("/farm-roadmap/latest", roadmapHandler.Latest)
		protected.GET("/farm-roadmap/:id", roadmapHandler.Get)
		protected.POST("/farm-roadmap/:id/recompute", roadmapHandler.Recompute)

		members := protected.Group("")
		members.Use(requireMember)
		{
			members.GET("/members", profileHandler.ListMembers)
			members.GET("/members/search", profileHandler.SearchMembers)

			members.POST("/forum/posts", forumHandler.CreatePost)
			members.PUT("/forum/posts/:id", forumHandler.UpdatePost)
			members.DELETE("/forum/posts/:id", forumHandler.DeletePost)
			members.POST("/forum/posts/:id/vote", forumHandler.VotePost)
			members.DELETE("/forum/posts/:id/vote", forumHandler.UnvotePost)
			members.POST("/forum/posts/:id/favorite", forumHandler.ToggleFavorite)
			members.POST("/forum/posts/:id/comments", forumHandler.CreateComment)
			members.PUT("/forum/comments/:id", forumHandler.UpdateComment)
			members.DELETE("/forum/comments/:id", forumHandler.DeleteComment)
			members.POST("/forum/comments/:id/vote", forumHandler.VoteComment)
			members.DELETE("/forum/comments/:id/vote", forumHandler.UnvoteComment)
			members.GET("/forum/favorites", forumHandler.ListFavorites)

			members.POST("/challenges", challengeHandler.Create)
			members.POST("/uploads", attachmentHandler.Upload)
		}

		admin := protected.Group("/admin")
		admin.Use(requireAdmin)
		{
			admin.GET("/users", userAdminHandler.ListUsers)
			admin.PATCH("/users/:id/role", userAdminHandler.ChangeRole)
			admin.DELETE("/users/:id", userAdminHandler.DeleteUser)
			admin.PUT("/members/:id/profile", profileHandler.AdminUpdateProfile)

			admin.POST("/resources", resourceHandler.CreateResource)
			admin.PUT("/resources/:id", resourceHandler.UpdateResource)
			admin.DELETE("/resources/:id", resourceHandler.DeleteResource)
			admin.POST("/resources/import", resourceHandler.ImportResources)

			admin.GET("/challenges", challengeHandler.List)
			admin.PATCH("/challenges/:id/flag", challengeHandler.SetFlag)
			admin.GET("/challenges/export", challengeHandler.Export)
			admin.GET("/challenges/ws", challengeHandler.Stream)

			admin.GET("/analytics/summary", analyticsHandler.Summary)
			admin.GET("/analytics/export", analyticsHandler.Export)

			admin.GET("/blog", blogHandler.AdminList)
			admin.GET("/blog/:id", blogHandler.AdminGet)
			admin.POST("/blog", blogHandler.Create)
			admin.PUT("/blog/:id", blogHandler.Update)
			admin.DELETE("/blog/:id", blogHandler.Delete)
		}
	}

	return &Server{engine: router, log: log}, nil
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func registerAgents(deps Deps, resources agents.ResourceCreator, attachments agents.OrphanCleaner) error {
	cfg := deps.Config

	if len(cfg.NewsFeeds) > 0 {
		newsCfg := agents.DefaultNewsIngestConfig()
		newsCfg.Feeds = cfg.NewsFeeds
		newsCfg.Schedule = cfg.NewsSchedule
		fetcher := providers.NewRSSFetcher(&http.Client{Timeout: 20 * time.Second})
		if err := deps.Scheduler.RegisterAgent(agents.NewNewsIngestAgent(resources, deps.Redis, fetcher, deps.Log, newsCfg)); err != nil {
			return err
		}
	} else {
		deps.Log.Info("NEWS_FEEDS empty, news ingest disabled")
	}

	return deps.Scheduler.RegisterAgent(agents.NewAttachmentCleanupAgent(attachments, cfg.CleanupSchedule, 24*time.Hour, deps.Log))
}

func newLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) ratelimiter.Limiter {
	if rdb != nil {
		return ratelimiter.NewRedis(rdb, prefix, limit, window)
	}
	return ratelimiter.NewMemory(limit, window)
}

func setupCORS(router *gin.Engine, origins []string) {
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cleaned,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
