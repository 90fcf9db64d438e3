package game

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gtd-backend/genai"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Assistant is the model surface the handler depends on; tests swap it.
type Assistant interface {
	Send(ctx context.Context, system string, history []genai.Message, user string) (string, error)
}

// Handler orchestrates game sessions over an Assistant and a SessionStore.
type Handler struct {
	ai             Assistant
	store          SessionStore
	tracker        *varietyTracker
	model          string
	timeout        time.Duration
	quotaValidator func(ctx context.Context, c *gin.Context, flow string) error

	rngMu sync.Mutex
	rng   *rand.Rand

	// locks serializes concurrent turns on the same session id; entries
	// are refcounted so finished sessions do not leak mutexes.
	mu      sync.Mutex
	locks   map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewHandler wires an explicit assistant and store; used by tests and main.
func NewHandler(ai Assistant, store SessionStore) *Handler {
	return &Handler{
		ai:      ai,
		store:   store,
		tracker: &varietyTracker{},
		timeout: envTimeout(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		locks:   make(map[string]*sessionLock),
	}
}

// DefaultHandler builds the assistant and store from env. Sessions live in
// Redis when SESSIONS_REDIS_ADDR is set, otherwise in process memory.
func DefaultHandler() *Handler {
	cli := genai.NewClient()
	ttl := sessionTTL()
	var store SessionStore
	if addr := strings.TrimSpace(os.Getenv("SESSIONS_REDIS_ADDR")); addr != "" {
		db := 0
		if s := os.Getenv("SESSIONS_REDIS_DB"); s != "" {
			if v, err := strconv.Atoi(s); err == nil {
				db = v
			}
		}
		rs := NewRedisStore(addr, os.Getenv("SESSIONS_REDIS_PASSWORD"), db, ttl)
		if err := rs.Ping(context.Background()); err != nil {
			log.Printf("[Game][Init] redis unreachable (%v), falling back to memory store", err)
			store = NewMemoryStore(ttl)
		} else {
			log.Printf("[Game][Init] sessions in redis at %s ttl=%s", addr, ttl)
			store = rs
		}
	} else {
		store = NewMemoryStore(ttl)
	}
	h := NewHandler(cli, store)
	h.model = cli.Model
	return h
}

func sessionTTL() time.Duration {
	if s := strings.TrimSpace(os.Getenv("SESSION_TTL_MIN")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return time.Duration(v) * time.Minute
		}
	}
	return 2 * time.Hour
}

func envTimeout() time.Duration {
	if s := strings.TrimSpace(os.Getenv("GAME_TIMEOUT_SECONDS")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return 60 * time.Second
}

// SetQuotaValidator injects the plan/quota gate applied to game starts.
func (h *Handler) SetQuotaValidator(fn func(ctx context.Context, c *gin.Context, flow string) error) {
	h.quotaValidator = fn
}

// RegisterRoutes wires the game endpoints.
//
// Gin's router rejects a static sibling of a path parameter, so the POST
// verbs share /api/game/:sessionId and dispatch on the segment value.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/game/:sessionId", h.dispatch)
	r.GET("/api/game/config", h.GetConfig)
	r.GET("/api/game/variety", h.VarietyStats)
}

func (h *Handler) dispatch(c *gin.Context) {
	switch c.Param("sessionId") {
	case "start":
		h.StartGame(c)
	case "test-matching":
		h.TestMatching(c)
	default:
		h.ContinueGame(c)
	}
}

func (h *Handler) lockSession(id string) func() {
	h.mu.Lock()
	l, ok := h.locks[id]
	if !ok {
		l = &sessionLock{}
		h.locks[id] = l
	}
	l.refs++
	h.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.locks, id)
		}
		h.mu.Unlock()
	}
}

// seedMessage picks the opening instruction: 80% a forced random triple
// (avoiding recently used body systems), otherwise one of the pinned-range
// or free-variety prompt pools.
func (h *Handler) seedMessage() string {
	h.rngMu.Lock()
	defer h.rngMu.Unlock()
	if h.rng.Float64() < 0.8 {
		age := minSeedAge + h.rng.Intn(maxSeedAge-minSeedAge+1)
		gender := seedGenders[h.rng.Intn(len(seedGenders))]
		systems := h.freshSystemsLocked()
		system := systems[h.rng.Intn(len(systems))]
		return fmt.Sprintf("Create a unique case: %d-year-old %s with a %s condition.", age, gender, system)
	}
	if h.rng.Float64() < 0.5 {
		return rangedSeedPrompts[h.rng.Intn(len(rangedSeedPrompts))]
	}
	return varietySeedPrompts[h.rng.Intn(len(varietySeedPrompts))]
}

func (h *Handler) freshSystemsLocked() []string {
	avoid := make(map[string]struct{})
	for _, s := range h.tracker.RecentSystems(3) {
		avoid[s] = struct{}{}
	}
	var out []string
	for _, s := range seedBodySystems {
		if _, skip := avoid[s]; !skip {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return seedBodySystems
	}
	return out
}

type continueReq struct {
	Message string `json:"message"`
}

// guessValidation is the side-channel validation record attached when a
// player message looks like a diagnosis guess. Log-only: it never changes
// the model's verdict.
type guessValidation struct {
	UserGuess       string `json:"userGuess"`
	ActualDisease   string `json:"actualDisease"`
	NormalizedGuess string `json:"normalizedGuess"`
	IsCorrect       bool   `json:"isCorrect"`
	Timestamp       int64  `json:"timestamp"`
}

const likelyGuessMaxLen = 50

// isLikelyGuess screens messages worth validating: short statements that
// are not questions and not test or symptom requests.
func isLikelyGuess(message string) bool {
	lower := strings.ToLower(message)
	return len(message) < likelyGuessMaxLen &&
		!strings.Contains(message, "?") &&
		!strings.Contains(lower, "test") &&
		!strings.Contains(lower, "symptom")
}

// StartGame opens a session: one seeded model exchange, interpret (or
// degrade), persist, and return the public projection.
func (h *Handler) StartGame(c *gin.Context) {
	if h.quotaValidator != nil {
		if err := h.quotaValidator(c.Request.Context(), c, "game_start"); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
	}

	seed := h.seedMessage() + jsonReminder
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	started := time.Now()
	raw, err := h.ai.Send(ctx, systemPrompt, nil, seed)
	if err != nil {
		log.Printf("[Game][Start] model call failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "model unavailable"})
		return
	}
	elapsed := time.Since(started)

	reply, ok := ParseReply(raw)
	if !ok {
		log.Printf("[Game][Start] unparseable model output, degrading to raw text (len=%d)", len(raw))
		reply = FallbackStart(raw)
	}
	if reply.GameData == nil {
		reply.GameData = &GameData{}
	}

	now := time.Now()
	sess := &Session{
		ID:       uuid.NewString(),
		GameData: reply.GameData,
		History: []genai.Message{
			{Role: "user", Content: seed},
			{Role: "assistant", Content: raw},
		},
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.Put(c.Request.Context(), sess); err != nil {
		log.Printf("[Game][Start] session store failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist session"})
		return
	}
	h.tracker.Track(reply.GameData)

	log.Printf("[Game][Start] session=%s system=%s time=%dms", sess.ID, reply.GameData.BodySystem, elapsed.Milliseconds())
	c.JSON(http.StatusOK, gin.H{
		"sessionId":    sess.ID,
		"reply":        reply.Response.Message,
		"gameData":     reply.GameData.Public(),
		"responseType": reply.Response.Type,
		"finished":     false,
		"testResults":  reply.Response.TestResults,
		"responseTime": elapsed.Milliseconds(),
	})
}

// ContinueGame plays one turn of an existing session.
func (h *Handler) ContinueGame(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req continueReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	unlock := h.lockSession(sessionID)
	defer unlock()

	sess, err := h.store.Get(c.Request.Context(), sessionID)
	if err == ErrSessionNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or expired"})
		return
	}
	if err != nil {
		log.Printf("[Game][Continue] session load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return
	}
	if sess.GameData == nil {
		sess.GameData = &GameData{}
	}

	var validation *guessValidation
	if isLikelyGuess(req.Message) && sess.GameData.Disease != "" {
		validation = &guessValidation{
			UserGuess:       req.Message,
			ActualDisease:   sess.GameData.Disease,
			NormalizedGuess: NormalizeGuess(req.Message),
			IsCorrect:       IsGuessCorrect(req.Message, sess.GameData.Disease),
			Timestamp:       time.Now().UnixMilli(),
		}
	}

	user := req.Message + jsonReminder
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	started := time.Now()
	raw, err := h.ai.Send(ctx, systemPrompt, sess.History, user)
	if err != nil {
		log.Printf("[Game][Continue] session=%s model call failed: %v", sessionID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "model unavailable"})
		return
	}
	elapsed := time.Since(started)

	reply, ok := ParseReply(raw)
	if !ok {
		log.Printf("[Game][Continue] session=%s unparseable model output, degrading to hint", sessionID)
		reply = FallbackContinue(raw)
	}

	sess.GameData.Merge(reply.GameData)
	if reply.GameData != nil {
		h.tracker.Track(reply.GameData)
	}

	finished := reply.Response.Terminal()
	if finished {
		if err := h.store.Delete(c.Request.Context(), sessionID); err != nil {
			log.Printf("[Game][Continue] session=%s eviction failed: %v", sessionID, err)
		}
	} else {
		sess.History = append(sess.History,
			genai.Message{Role: "user", Content: user},
			genai.Message{Role: "assistant", Content: raw},
		)
		sess.UpdatedAt = time.Now()
		if err := h.store.Put(c.Request.Context(), sess); err != nil {
			log.Printf("[Game][Continue] session=%s store failed: %v", sessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist session"})
			return
		}
	}

	if validation != nil {
		if reply.Response.Type == TypeCorrectGuess && !validation.IsCorrect {
			log.Printf("[Game][Continue] session=%s model accepted guess the validator rejects: %+v", sessionID, *validation)
		}
		if reply.Response.Type == TypeHint && validation.IsCorrect {
			log.Printf("[Game][Continue] session=%s model rejected guess the validator accepts: %+v", sessionID, *validation)
		}
	}

	data := sess.GameData.Public()
	if finished {
		// Terminal turns return the full case state, disease included;
		// revealedDisease discloses it on the same turn anyway.
		data = sess.GameData
	}
	resp := gin.H{
		"reply":        reply.Response.Message,
		"gameData":     data,
		"responseType": reply.Response.Type,
		"finished":     finished,
		"testResults":  reply.Response.TestResults,
		"responseTime": elapsed.Milliseconds(),
	}
	if finished {
		resp["revealedDisease"] = reply.Response.RevealedDisease
	}
	if validation != nil {
		resp["guessValidation"] = validation
	}
	c.JSON(http.StatusOK, resp)
}

type testMatchingReq struct {
	Guess   string `json:"guess"`
	Disease string `json:"disease"`
}

// TestMatching exposes the validator pipeline for debugging.
func (h *Handler) TestMatching(c *gin.Context) {
	var req testMatchingReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Guess == "" || req.Disease == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "both guess and disease are required"})
		return
	}

	normGuess := NormalizeGuess(req.Guess)
	normDisease := strings.ReplaceAll(strings.ToLower(req.Disease), "_", " ")
	guessCanonical, _ := ResolveCanonical(normGuess)
	diseaseCanonical, ok := ResolveCanonical(normDisease)
	if !ok {
		diseaseCanonical = req.Disease
	}
	correct := IsGuessCorrect(req.Guess, req.Disease)

	reason := "no match found"
	if correct {
		reason = "match found"
	}
	c.JSON(http.StatusOK, gin.H{
		"input":      gin.H{"guess": req.Guess, "disease": req.Disease},
		"normalized": gin.H{"guess": normGuess, "disease": normDisease},
		"canonical":  gin.H{"guess": guessCanonical, "disease": diseaseCanonical},
		"result":     gin.H{"isCorrect": correct, "reason": reason},
		"availableSynonyms": SynonymsFor(diseaseCanonical),
		"synonymMapSize":    SynonymTableSize(),
	})
}

// GetConfig reports runtime configuration and load for monitoring.
func (h *Handler) GetConfig(c *gin.Context) {
	n, err := h.store.Len(c.Request.Context())
	if err != nil {
		log.Printf("[Game][Config] session count failed: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"modelName":      h.model,
		"activeSessions": n,
		"synonymMapSize": SynonymTableSize(),
		"timeoutSeconds": int(h.timeout.Seconds()),
	})
}

// VarietyStats reports recent-demographics statistics and suggestions.
func (h *Handler) VarietyStats(c *gin.Context) {
	stats := h.tracker.Stats()
	c.JSON(http.StatusOK, gin.H{
		"statistics": stats,
		"recommendations": gin.H{
			"systemsToAvoid":   h.tracker.RecentSystems(3),
			"suggestedSystems": h.tracker.suggestedSystems(5),
		},
	})
}
