// Package auth gates the kiosk's admin routes behind the system password.
package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/micro-nova/queuepi/internal/models"
)

// HeaderName carries the admin password on admin requests.
const HeaderName = "X-Admin-Password"

// Verifier checks a candidate password against the configured one.
type Verifier interface {
	CheckPassword(pw string) bool
}

// Gate enforces the admin password. Failed attempts draw from a token
// bucket; once it is empty further attempts get 429 until it refills.
type Gate struct {
	verify  Verifier
	limiter *rate.Limiter
}

// NewGate allows burst failed attempts, refilling one every interval.
func NewGate(v Verifier, interval time.Duration, burst int) *Gate {
	return &Gate{
		verify:  v,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Middleware rejects requests whose HeaderName does not match.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.limiter.Tokens() < 1 {
			writeError(w, &models.AppError{
				Code:    "TOO_MANY_ATTEMPTS",
				Message: "too many failed password attempts",
				Status:  http.StatusTooManyRequests,
			})
			return
		}

		if pw := r.Header.Get(HeaderName); pw != "" && g.verify.CheckPassword(pw) {
			next.ServeHTTP(w, r)
			return
		}

		g.limiter.Allow()
		slog.Warn("auth: admin password rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
		writeError(w, models.ErrUnauthorized)
	})
}

func writeError(w http.ResponseWriter, appErr *models.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(appErr)
}
