package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"gorm.io/gorm"

	"ascai/internal/auth"
	"ascai/internal/config"
	"ascai/internal/handler"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// Handlers bundles everything Register wires into the route table.
type Handlers struct {
	Auth      *handler.AuthHandler
	Member    *handler.MemberHandler
	Payment   *handler.PaymentHandler
	Event     *handler.EventHandler
	News      *handler.NewsHandler
	Job       *handler.JobHandler
	Document  *handler.DocumentHandler
	Forum     *handler.ForumHandler
	Messaging *handler.MessagingHandler
	Audit     *handler.AuditHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	jwtService *auth.JWTService,
	users repository.UserRepository,
	h Handlers,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes carry optional authentication: an anonymous caller sees
	// public content, a valid token unlocks the member/board view.
	public := api.Group("", optionalAuth(jwtService, users))

	public.POST("/auth/register", h.Auth.Register)
	public.POST("/auth/login", h.Auth.Login)
	public.POST("/auth/refresh", h.Auth.Refresh)
	public.POST("/auth/logout", h.Auth.Logout)

	public.GET("/events", h.Event.ListEvents)
	public.GET("/events/categories", h.Event.ListCategories)
	public.GET("/events/:slug", h.Event.GetEvent)
	public.GET("/news", h.News.ListPosts)
	public.GET("/news/categories", h.News.ListCategories)
	public.GET("/news/:slug", h.News.GetPost)
	public.GET("/jobs", h.Job.ListJobs)
	public.GET("/jobs/:slug", h.Job.GetJob)
	public.GET("/forum/categories", h.Forum.ListCategories)
	public.GET("/forum/threads", h.Forum.ListThreads)
	public.GET("/forum/threads/:slug", h.Forum.GetThread)
	public.GET("/forum/threads/:id/replies", h.Forum.ListReplies)
	public.GET("/members/badges", h.Member.ListBadges)

	// Secured routes require a valid token and an active account.
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return &auth.Claims{}
		},
	}), loadUser(users))

	secured.GET("/me", h.Auth.Me)
	secured.PUT("/me", h.Auth.UpdateMe)
	secured.PUT("/me/password", h.Auth.ChangePassword)

	secured.GET("/members", h.Member.ListMembers)
	secured.GET("/members/me", h.Member.GetOwnMember)
	secured.PUT("/members/me", h.Member.UpdateOwnMember)
	secured.GET("/members/settings", h.Member.GetSettings)
	secured.PUT("/members/settings", requireAdmin(h.Member.UpdateSettings))
	secured.POST("/members/applications", h.Member.Apply)
	secured.GET("/members/applications", requireBoard(h.Member.ListApplications))
	secured.POST("/members/applications/:id/review", requireBoard(h.Member.ReviewApplication))
	secured.GET("/members/:id", h.Member.GetMember)
	secured.POST("/members/:id/verify", requireBoard(h.Member.VerifyMember))
	secured.PUT("/members/:id/status", requireBoard(h.Member.SetMemberStatus))
	secured.POST("/members/badges", requireBoard(h.Member.CreateBadge))
	secured.POST("/members/:id/badges", requireBoard(h.Member.AwardBadge))
	secured.GET("/members/:id/badges", h.Member.ListAchievements)

	secured.POST("/payments", h.Payment.CreatePayment)
	secured.GET("/payments", requireBoard(h.Payment.ListPayments))
	secured.GET("/payments/me", h.Payment.ListOwnPayments)
	secured.GET("/payments/:id", h.Payment.GetPayment)
	secured.POST("/payments/:id/complete", requireBoard(h.Payment.CompletePayment))
	secured.POST("/payments/:id/fail", requireBoard(h.Payment.FailPayment))
	secured.POST("/payments/:id/refund", requireAdmin(h.Payment.RefundPayment))

	secured.POST("/events", requireBoard(h.Event.CreateEvent))
	secured.PUT("/events/:id", requireBoard(h.Event.UpdateEvent))
	secured.PUT("/events/:id/publish", requireBoard(h.Event.PublishEvent))
	secured.DELETE("/events/:id", requireAdmin(h.Event.DeleteEvent))
	secured.POST("/events/categories", requireBoard(h.Event.CreateCategory))
	secured.POST("/events/:id/register", h.Event.Register)
	secured.DELETE("/events/:id/register", h.Event.Unregister)
	secured.POST("/events/:id/check-in", requireBoard(h.Event.CheckIn))
	secured.GET("/events/:id/registrations", requireBoard(h.Event.ListRegistrations))
	secured.GET("/events/registrations/me", h.Event.ListOwnRegistrations)

	secured.POST("/news", requireBoard(h.News.CreatePost))
	secured.PUT("/news/:id", requireBoard(h.News.UpdatePost))
	secured.PUT("/news/:id/publish", requireBoard(h.News.PublishPost))
	secured.DELETE("/news/:id", requireAdmin(h.News.DeletePost))
	secured.POST("/news/categories", requireBoard(h.News.CreateCategory))

	secured.POST("/jobs", requireBoard(h.Job.CreateJob))
	secured.PUT("/jobs/:id", requireBoard(h.Job.UpdateJob))
	secured.POST("/jobs/:id/close", requireBoard(h.Job.CloseJob))
	secured.DELETE("/jobs/:id", requireAdmin(h.Job.DeleteJob))
	secured.POST("/jobs/:id/apply", h.Job.Apply)
	secured.GET("/jobs/:id/applications", requireBoard(h.Job.ListApplications))
	secured.GET("/jobs/applications/me", h.Job.ListOwnApplications)
	secured.POST("/jobs/applications/:id/review", requireBoard(h.Job.ReviewApplication))

	secured.POST("/documents", requireBoard(h.Document.Upload))
	secured.GET("/documents", h.Document.ListDocuments)
	secured.GET("/documents/tags", h.Document.ListTags)
	secured.POST("/documents/tags", requireBoard(h.Document.CreateTag))
	secured.POST("/documents/folders", requireBoard(h.Document.CreateFolder))
	secured.GET("/documents/folders", h.Document.ListFolders)
	secured.PUT("/documents/folders/:id/move", requireBoard(h.Document.MoveFolder))
	secured.DELETE("/documents/folders/:id", requireBoard(h.Document.DeleteFolder))
	secured.GET("/documents/:id", h.Document.GetDocument)
	secured.GET("/documents/:id/download", h.Document.Download)
	secured.DELETE("/documents/:id", requireBoard(h.Document.DeleteDocument))

	secured.POST("/forum/categories", requireAdmin(h.Forum.CreateCategory))
	secured.POST("/forum/threads", h.Forum.CreateThread)
	secured.PUT("/forum/threads/:id", h.Forum.EditThread)
	secured.POST("/forum/threads/:id/moderate", requireBoard(h.Forum.ModerateThread))
	secured.POST("/forum/threads/:id/replies", h.Forum.CreateReply)
	secured.PUT("/forum/replies/:id", h.Forum.EditReply)
	secured.DELETE("/forum/replies/:id", h.Forum.DeleteReply)
	secured.POST("/forum/votes", h.Forum.Vote)
	secured.POST("/forum/flags", h.Forum.FlagContent)
	secured.GET("/forum/flags", requireBoard(h.Forum.ListFlags))
	secured.POST("/forum/flags/:id/review", requireBoard(h.Forum.ReviewFlag))
	secured.GET("/forum/moderation", requireBoard(h.Forum.ListModerationActions))
	secured.GET("/forum/notifications", h.Forum.ListNotifications)
	secured.POST("/forum/notifications/read", h.Forum.MarkNotificationsRead)
	secured.GET("/forum/notifications/unread", h.Forum.CountUnreadNotifications)

	secured.POST("/conversations", h.Messaging.StartConversation)
	secured.GET("/conversations", h.Messaging.ListConversations)
	secured.GET("/conversations/unread", h.Messaging.CountUnread)
	secured.GET("/conversations/:id", h.Messaging.GetConversation)
	secured.POST("/conversations/:id/messages", h.Messaging.SendMessage)
	secured.GET("/conversations/:id/messages", h.Messaging.ListMessages)
	secured.POST("/conversations/:id/read", h.Messaging.MarkRead)
	secured.GET("/presence/:id", h.Messaging.GetPresence)
	secured.GET("/ws", h.Messaging.Connect)

	secured.GET("/audit", requireAdmin(h.Audit.ListLogs))
}

// loadUser resolves the verified claims into the current user record and
// rejects deactivated accounts. Running after echojwt, the claims are trusted.
func loadUser(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			user, err := users.FindByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "account not found")
				}
				return err
			}
			if !user.IsActive {
				return echo.NewHTTPError(http.StatusForbidden, "account is deactivated")
			}

			c.Set(handler.ContextUserKey, user)
			return next(c)
		}
	}
}

// optionalAuth resolves a bearer token when one is presented but lets
// anonymous requests through. Invalid tokens are treated as anonymous rather
// than rejected, so stale sessions still see the public view.
func optionalAuth(jwtService *auth.JWTService, users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				return next(c)
			}

			claims, err := jwtService.ValidateToken(raw)
			if err != nil {
				return next(c)
			}
			user, err := users.FindByID(c.Request().Context(), claims.UserID)
			if err != nil || !user.IsActive {
				return next(c)
			}

			c.Set(handler.ContextUserKey, user)
			return next(c)
		}
	}
}

// requireBoard admits board members and admins.
func requireBoard(next echo.HandlerFunc) echo.HandlerFunc {
	return requireRole(next, func(u *model.User) bool { return u.IsBoardMember() })
}

// requireAdmin admits admins only.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return requireRole(next, func(u *model.User) bool { return u.IsAdmin() })
}

func requireRole(next echo.HandlerFunc, allowed func(*model.User) bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, _ := c.Get(handler.ContextUserKey).(*model.User)
		if user == nil || !allowed(user) {
			return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
		}
		return next(c)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
