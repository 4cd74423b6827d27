// Package health отдаёт состояние зависимостей сервиса для проб и мониторинга.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status — состояние компонента или сервиса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Checker выполняет проверку одной зависимости.
type Checker interface {
	Check() Check
}

// CheckerFunc оборачивает функцию проверки в Checker.
// Ненулевая ошибка означает unhealthy.
type CheckerFunc struct {
	name string
	fn   func() error
}

// NewCheckerFunc создаёт проверку из функции.
func NewCheckerFunc(name string, fn func() error) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (c *CheckerFunc) Check() Check {
	start := time.Now()
	err := c.fn()
	elapsed := time.Since(start)

	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// Response — агрегированный ответ health-эндпоинта.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Handler агрегирует результаты зарегистрированных проверок.
// Общий статус — худший из статусов компонентов.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
}

// NewHandler создаёт health handler с версией сервиса.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker добавляет проверку зависимости под именем name.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

func (h *Handler) snapshot() map[string]Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	return checkers
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks := make(map[string]Check)
	overall := StatusHealthy

	for name, checker := range h.snapshot() {
		check := checker.Check()
		checks[name] = check

		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(Response{
		Status:        overall,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// LivenessHandler всегда отвечает 200: процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, пока хотя бы одна зависимость unhealthy.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	for _, checker := range h.snapshot() {
		if checker.Check().Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
