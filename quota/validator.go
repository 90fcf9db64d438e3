package quota

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gtd-backend/login"

	"github.com/gin-gonic/gin"
)

// Flows that consume a daily allowance. Unknown flows pass through.
var limitedFlows = map[string]bool{
	"game_start": true,
}

const defaultDailyLimit = 10

func dailyLimit() int {
	if v := os.Getenv("QUOTA_DAILY_GAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultDailyLimit
}

// Validator gates game starts: premium users are unlimited, free users get
// a daily allowance. Counters reset at the day boundary.
type Validator struct {
	mu     sync.Mutex
	day    string
	counts map[int]int
}

func NewValidator() *Validator {
	return &Validator{counts: map[int]int{}}
}

// ValidateAndConsume identifies the user from the Authorization token and
// consumes one unit of the flow's allowance.
func (v *Validator) ValidateAndConsume(ctx context.Context, c *gin.Context, flow string) error {
	if !limitedFlows[flow] {
		log.Printf("[quota][skip] flow=%s reason=unknown_flow", flow)
		return nil
	}
	if os.Getenv("QUOTA_DISABLE") == "1" {
		c.Set("quota_remaining", "debug-infinite")
		log.Printf("[quota][bypass] flow=%s QUOTA_DISABLE=1", flow)
		return nil
	}

	auth := c.GetHeader("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" {
		log.Printf("[quota][deny] flow=%s reason=missing_token", flow)
		return errors.New("missing token")
	}
	email, ok := login.GetEmailFromToken(token)
	if !ok {
		log.Printf("[quota][deny] flow=%s reason=invalid_session token=%s", flow, tokenSummary(token))
		return errors.New("invalid session")
	}
	u := userResolver(email)
	if u == nil {
		log.Printf("[quota][deny] flow=%s email=%s reason=user_not_found", flow, email)
		return errors.New("user not found")
	}
	if u.IsPremium {
		c.Set("quota_remaining", "unlimited")
		log.Printf("[quota][ok] flow=%s user_id=%d email=%s premium=true", flow, u.ID, email)
		return nil
	}

	limit := dailyLimit()
	remaining, ok := v.consume(u.ID, limit)
	if !ok {
		c.Set("quota_error_reason", "exhausted")
		log.Printf("[quota][exhausted] flow=%s user_id=%d email=%s limit=%d", flow, u.ID, email, limit)
		return errors.New("daily game limit reached")
	}
	c.Set("quota_remaining", remaining)
	log.Printf("[quota][consume] flow=%s user_id=%d email=%s remaining=%d", flow, u.ID, email, remaining)
	return nil
}

// consume takes one unit for the user, resetting counters on day change.
func (v *Validator) consume(userID, limit int) (remaining int, ok bool) {
	today := time.Now().UTC().Format("2006-01-02")
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.day != today {
		v.day = today
		v.counts = map[int]int{}
	}
	used := v.counts[userID]
	if used >= limit {
		return 0, false
	}
	v.counts[userID] = used + 1
	return limit - used - 1, true
}

// tokenSummary returns a short (safe) representation of a token for logs
func tokenSummary(t string) string {
	if len(t) <= 8 {
		return t
	}
	return t[:4] + "..." + t[len(t)-4:]
}

// --- User resolver adapter ---
// Indirection keeps this package decoupled from the user storage layer.

var userResolver = func(email string) *UserLite { return nil }

// RegisterUserResolver allows main to provide a resolver.
func RegisterUserResolver(fn func(email string) *UserLite) { userResolver = fn }

// UserLite minimal projection
type UserLite struct {
	ID        int
	Email     string
	IsPremium bool
}

// Middleware wraps ValidateAndConsume for route-level use.
func (v *Validator) Middleware(flow string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := v.ValidateAndConsume(c.Request.Context(), c, flow); err != nil {
			c.JSON(403, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}
