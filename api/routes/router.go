package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoangkimbao/garage-backend/api/controllers"
	"github.com/hoangkimbao/garage-backend/api/middleware"
	"github.com/hoangkimbao/garage-backend/internal/appointments"
	"github.com/hoangkimbao/garage-backend/internal/auth"
	cartsvc "github.com/hoangkimbao/garage-backend/internal/cart"
	"github.com/hoangkimbao/garage-backend/internal/catalog"
	checkoutsvc "github.com/hoangkimbao/garage-backend/internal/checkout"
	"github.com/hoangkimbao/garage-backend/internal/contact"
	"github.com/hoangkimbao/garage-backend/internal/notifications"
	"github.com/hoangkimbao/garage-backend/internal/orders"
	"github.com/hoangkimbao/garage-backend/internal/payments/vnpay"
	"github.com/hoangkimbao/garage-backend/internal/revenue"
	"github.com/hoangkimbao/garage-backend/internal/users"
	"github.com/hoangkimbao/garage-backend/pkg/auth/session"
	"github.com/hoangkimbao/garage-backend/pkg/config"
	"github.com/hoangkimbao/garage-backend/pkg/db"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
	"github.com/hoangkimbao/garage-backend/pkg/metrics"
	"github.com/hoangkimbao/garage-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	HTTPMetrics *metrics.HTTPMetrics

	DB    db.Pinger
	Redis *redis.Client

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler

	Sessions session.AccessSessionChecker

	Auth          auth.Service
	Catalog       catalog.Service
	Cart          *cartsvc.Service
	Checkout      *checkoutsvc.Service
	Orders        orders.Service
	Payments      *vnpay.Service
	Appointments  appointments.Service
	Notifications notifications.Service
	Contact       *contact.Service
	Revenue       *revenue.Service
	Users         *users.Repository
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	// Public storefront surface.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/part-groups", controllers.PartGroups(deps.Catalog, logg))
		r.Get("/parts", controllers.Parts(deps.Catalog, logg))
		r.Get("/parts/{partId}", controllers.PartDetail(deps.Catalog, logg))
		r.Get("/categories/{categoryId}/parts", controllers.CategoryParts(deps.Catalog, logg))
		r.Get("/search", controllers.Search(deps.Catalog, logg))
		r.Get("/services", controllers.GarageServices(deps.Catalog, logg))
		r.Get("/services/{slug}", controllers.GarageServiceBySlug(deps.Catalog, logg))
	})

	r.Post("/api/v1/contact", controllers.ContactSubmit(deps.Contact, logg))

	// Gateway callbacks arrive unauthenticated; the signature is the auth.
	r.Route("/api/v1/payments/vnpay", func(r chi.Router) {
		r.Get("/return", controllers.PaymentReturn(deps.Payments, logg))
		r.Get("/ipn", controllers.PaymentIPN(deps.Payments, logg))
		r.Post("/ipn", controllers.PaymentIPN(deps.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Post("/items", controllers.CartAdd(deps.Cart, logg))
			r.Put("/items/{partId}", controllers.CartSetQty(deps.Cart, logg))
			r.Delete("/items/{partId}", controllers.CartRemove(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.MyOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
		})

		r.Route("/cars", func(r chi.Router) {
			r.Get("/", controllers.MyCars(deps.Appointments, logg))
			r.Post("/", controllers.CarCreate(deps.Appointments, logg))
			r.Delete("/{carId}", controllers.CarDelete(deps.Appointments, logg))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", controllers.MyAppointments(deps.Appointments, logg))
			r.Post("/", controllers.AppointmentBook(deps.Appointments, logg))
			r.Get("/{appointmentId}", controllers.AppointmentDetail(deps.Appointments, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsList(deps.Notifications, logg))
			r.Get("/unread-count", controllers.NotificationsUnreadCount(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.NotificationsReadAll(deps.Notifications, logg))
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/", controllers.ProfileGet(deps.Users, logg))
			r.Put("/", controllers.ProfileUpdate(deps.Users, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Route("/parts", func(r chi.Router) {
			r.Post("/", controllers.AdminPartCreate(deps.Catalog, logg))
			r.Get("/search", controllers.AdminPartsSearch(deps.Catalog, logg))
			r.Put("/{partId}", controllers.AdminPartUpdate(deps.Catalog, logg))
			r.Delete("/{partId}", controllers.AdminPartDelete(deps.Catalog, logg))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", controllers.AdminAppointments(deps.Appointments, logg))
			r.Patch("/{appointmentId}/status", controllers.AdminAppointmentStatus(deps.Appointments, logg))
		})

		r.Route("/revenue", func(r chi.Router) {
			r.Get("/summary", controllers.AdminRevenueSummary(deps.Revenue, logg))
			r.Get("/monthly", controllers.AdminRevenueSeries(deps.Revenue, logg))
		})

		r.Get("/contact-messages", controllers.AdminContactMessages(deps.Contact, logg))
	})

	return r
}
