package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// NewRouter собирает роутер сервиса. health может быть nil —
// тогда маршруты проб не регистрируются.
func NewRouter(handler *Handler, health http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(handler.logger))
	r.Use(middleware.Recoverer)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/", handler.SearchOrders)
		r.Post("/orchestrate", handler.PlaceOrder)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.GetOrder)
			r.Post("/confirm", handler.ConfirmOrder)
			r.Post("/cancel", handler.CancelOrder)
			r.Get("/timeline", handler.OrderTimeline)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", handler.CreateProduct)
		r.Get("/", handler.SearchProducts)
		r.Get("/{id}", handler.GetProduct)
		r.Patch("/{id}", handler.UpdateProduct)
	})

	if health != nil {
		r.Get("/healthz", health.ServeHTTP)
	}

	return r
}

// requestLogger пишет access-лог каждого запроса со статусом и длительностью.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("http request")
		})
	}
}
