package login

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gtd-backend/migrations"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// blacklist for manual logout (tokens -> expiry). Not persisted.
// Guarded by blacklistMu: logout writes race with session reads.
var (
	blacklistMu sync.Mutex
	blacklist   = map[string]int64{}
)

func blacklisted(token string) bool {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	exp, ok := blacklist[token]
	return ok && exp >= time.Now().Unix()
}

func blacklistToken(token string, exp int64) {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	blacklist[token] = exp
}

// tokenPayload minimal JWT-like payload for the app session token
type tokenPayload struct {
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
	Jti   string `json:"jti"`
}

func sessionDuration() time.Duration {
	days := 30
	if v := os.Getenv("SESSION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	return time.Hour * 24 * time.Duration(days)
}

func sessionSecret() []byte {
	s := os.Getenv("SESSION_SECRET")
	if s == "" {
		s = "dev-insecure-secret"
	}
	return []byte(s)
}

func signToken(email string, dur time.Duration) (string, int64) {
	exp := time.Now().Add(dur).Unix()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payloadBytes, _ := json.Marshal(tokenPayload{Email: email, Exp: exp, Jti: generateJTI()})
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(header + "." + payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return header + "." + payload + "." + sig, exp
}

func parseToken(token string) (tokenPayload, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return tokenPayload{}, false
	}
	unsigned := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(unsigned))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return tokenPayload{}, false
	}
	pb, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return tokenPayload{}, false
	}
	var tp tokenPayload
	if err := json.Unmarshal(pb, &tp); err != nil {
		return tokenPayload{}, false
	}
	if tp.Exp < time.Now().Unix() {
		return tokenPayload{}, false
	}
	if blacklisted(token) {
		return tokenPayload{}, false
	}
	return tp, true
}

func generateJTI() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405")
	}
	return hex.EncodeToString(b)
}

// GetEmailFromToken validates signature + expiry and returns the email
func GetEmailFromToken(token string) (string, bool) {
	tp, ok := parseToken(token)
	if !ok {
		return "", false
	}
	return tp.Email, true
}

// --- Identity token sign-in --- //

type googleLoginReq struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// identityClaims is what we read out of a Google/Apple ID token.
type identityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
	"https://appleid.apple.com":   true,
}

func expectedAudience(platform string) string {
	if platform == "android" {
		return os.Getenv("GOOGLE_CLIENT_ID_ANDROID")
	}
	return os.Getenv("GOOGLE_CLIENT_ID_IOS")
}

// parseIdentityToken reads the claims without local signature verification;
// cryptographic checking is delegated to the issuer's tokeninfo endpoint
// when GOOGLE_TOKENINFO_VERIFY=1.
func parseIdentityToken(raw, platform string) (*identityClaims, error) {
	var claims identityClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token carries no email")
	}
	if iss, _ := claims.GetIssuer(); !googleIssuers[iss] {
		return nil, fmt.Errorf("unexpected issuer %q", iss)
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil || exp.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}
	if want := expectedAudience(platform); want != "" {
		ok := false
		aud, _ := claims.GetAudience()
		for _, a := range aud {
			if a == want {
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("audience mismatch")
		}
	}
	return &claims, nil
}

// verifyWithTokeninfo confirms the token signature against Google.
func verifyWithTokeninfo(raw, email string) error {
	resp, err := http.Get("https://oauth2.googleapis.com/tokeninfo?id_token=" + url.QueryEscape(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tokeninfo rejected token: %s", strings.TrimSpace(string(body)))
	}
	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return err
	}
	if !strings.EqualFold(info.Email, email) {
		return fmt.Errorf("tokeninfo email mismatch")
	}
	return nil
}

func newReferralCode() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return strings.ToUpper(time.Now().Format("150405"))
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

// GoogleLoginHandler verifies a Google/Apple identity token, upserts the
// user by email and returns an app session token.
func GoogleLoginHandler(c *gin.Context) {
	var req googleLoginReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	claims, err := parseIdentityToken(req.Token, req.Platform)
	if err != nil {
		log.Printf("[Login][Google] token rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
		return
	}
	if os.Getenv("GOOGLE_TOKENINFO_VERIFY") == "1" {
		if err := verifyWithTokeninfo(req.Token, claims.Email); err != nil {
			log.Printf("[Login][Google] tokeninfo verification failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
	}

	email := strings.ToLower(claims.Email)
	user := migrations.GetUserByEmail(email)
	if user == nil {
		name := claims.Name
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		id, err := migrations.CreateUser(name, email, "")
		if err != nil {
			log.Printf("[Login][Google] user creation failed for %s: %v", email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not create user"})
			return
		}
		if err := migrations.SetReferralCode(id, newReferralCode()); err != nil {
			log.Printf("[Login][Google] referral code assignment failed for %s: %v", email, err)
		}
		user = migrations.GetUserByID(id)
		if user == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not load user"})
			return
		}
	}

	token, exp := signToken(user.Email, sessionDuration())
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"expires_at": exp,
		"user": gin.H{
			"id":           user.ID,
			"email":        user.Email,
			"name":         user.Name,
			"isPremium":    user.IsPremium,
			"referralCode": user.ReferralCode,
			"hearts":       user.Hearts,
		},
	})
}

// SessionHandler resolves the current user from the Authorization header.
func SessionHandler(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	tp, ok := parseToken(token)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	user := migrations.GetUserByEmail(tp.Email)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":           user.ID,
			"email":        user.Email,
			"name":         user.Name,
			"isPremium":    user.IsPremium,
			"referralCode": user.ReferralCode,
			"hearts":       user.Hearts,
		},
	})
}

// LogoutHandler invalidates the token until its natural expiry.
func LogoutHandler(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	if tp, ok := parseToken(token); ok {
		blacklistToken(token, tp.Exp)
	}
	c.JSON(http.StatusOK, gin.H{"message": "session closed"})
}
