package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gtd-backend/migrations"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// StripeService sells premium plans through Stripe Checkout for web users.
// When STRIPE_SECRET_KEY is not set the service is disabled (nil).
type StripeService struct {
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
	sc            *client.API
	invalidKey    bool // once detected, short-circuit further remote calls
}

var ErrStripeInvalidAPIKey = errors.New("stripe_invalid_api_key")

func maskKey(k string) string {
	if len(k) < 12 {
		return "****"
	}
	return k[:7] + "..." + k[len(k)-4:]
}

// NewStripeFromEnv returns a configured service or nil when missing env vars.
func NewStripeFromEnv() *StripeService {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil
	}
	success := os.Getenv("STRIPE_SUCCESS_URL")
	if success == "" {
		success = "https://example.com/checkout/success"
	}
	cancel := os.Getenv("STRIPE_CANCEL_URL")
	if cancel == "" {
		cancel = "https://example.com/checkout/cancel"
	}
	sc := &client.API{}
	sc.Init(key, nil)
	return &StripeService{
		secretKey:     key,
		webhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		successURL:    success,
		cancelURL:     cancel,
		sc:            sc,
	}
}

func (s *StripeService) isInvalidKeyErr(err error) bool {
	var se *stripe.Error
	if errors.As(err, &se) && (se.HTTPStatusCode == 401 || strings.Contains(strings.ToLower(se.Msg), "invalid api key")) {
		log.Printf("[Stripe] invalid api key (%s): %v", maskKey(s.secretKey), se)
		s.invalidKey = true
		return true
	}
	return false
}

// CreateCheckoutSession opens a Stripe Checkout for the given plan and
// returns the hosted payment URL plus the session id.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID int, planID string) (string, string, error) {
	if s == nil {
		return "", "", errors.New("stripe not configured")
	}
	if s.invalidKey {
		return "", "", ErrStripeInvalidAPIKey
	}
	plan := planByID(planID)
	if plan == nil {
		return "", "", fmt.Errorf("unknown plan %q", planID)
	}
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(plan.Currency),
				UnitAmount: stripe.Int64(plan.Price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(plan.Name),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		Metadata: map[string]string{
			"user_id": strconv.Itoa(userID),
			"plan_id": plan.ID,
		},
	}
	params.Context = ctx
	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		if s.isInvalidKeyErr(err) {
			return "", "", ErrStripeInvalidAPIKey
		}
		log.Printf("[Stripe][Checkout] error: %v", err)
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}

// activatePlan flips the user to premium until the plan's expiry.
func activatePlan(userID int, planID string) error {
	plan := planByID(planID)
	if plan == nil {
		return fmt.Errorf("unknown plan %q", planID)
	}
	expires := expiryFor(plan, time.Now())
	return migrations.SetPremium(userID, true, plan.ID, &expires)
}

// HandleWebhook consumes Stripe webhook payloads. A completed checkout
// activates the plan encoded in the session metadata.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) error {
	if s == nil {
		return errors.New("stripe not configured")
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	sig := r.Header.Get("Stripe-Signature")
	if s.webhookSecret != "" {
		if _, err := webhook.ConstructEvent(payload, sig, s.webhookSecret); err != nil {
			return fmt.Errorf("invalid signature: %w", err)
		}
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	if event.Type != "checkout.session.completed" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ignored"))
		return nil
	}
	uid, _ := strconv.Atoi(event.Data.Object.Metadata["user_id"])
	planID := event.Data.Object.Metadata["plan_id"]
	if uid == 0 || planID == "" {
		return errors.New("incomplete metadata")
	}
	if err := activatePlan(uid, planID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
	return nil
}

// ConfirmSession queries Stripe for a session and, when complete, activates
// the plan. Safe to call repeatedly, activation is idempotent.
func (s *StripeService) ConfirmSession(sessionID string) (bool, error) {
	if s == nil {
		return false, errors.New("stripe not configured")
	}
	if sessionID == "" {
		return false, errors.New("empty session_id")
	}
	sess, err := s.sc.CheckoutSessions.Get(sessionID, nil)
	if err != nil {
		return false, err
	}
	if sess.Status != stripe.CheckoutSessionStatusComplete {
		return false, nil
	}
	uid, _ := strconv.Atoi(sess.Metadata["user_id"])
	planID := sess.Metadata["plan_id"]
	if uid == 0 || planID == "" {
		return false, errors.New("incomplete metadata")
	}
	if u := migrations.GetUserByID(uid); u != nil && u.IsPremium && u.PremiumPlan == planID {
		return false, nil
	}
	if err := activatePlan(uid, planID); err != nil {
		return false, err
	}
	return true, nil
}
