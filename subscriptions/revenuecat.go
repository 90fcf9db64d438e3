package subscriptions

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"gtd-backend/migrations"

	"github.com/gin-gonic/gin"
)

// revenueCatEvent is the subset of the RevenueCat webhook payload we act on.
type revenueCatEvent struct {
	Event struct {
		Type           string `json:"type"`
		AppUserID      string `json:"app_user_id"`
		ProductID      string `json:"product_id"`
		ExpirationAtMS int64  `json:"expiration_at_ms"`
	} `json:"event"`
	// Older payloads carry the fields at the top level.
	Type           string `json:"type"`
	AppUserID      string `json:"app_user_id"`
	ProductID      string `json:"product_id"`
	ExpirationAtMS int64  `json:"expiration_at_ms"`
}

func (e *revenueCatEvent) normalize() (eventType, appUserID, productID string, expirationAtMS int64) {
	if e.Event.Type != "" || e.Event.AppUserID != "" {
		return e.Event.Type, e.Event.AppUserID, e.Event.ProductID, e.Event.ExpirationAtMS
	}
	return e.Type, e.AppUserID, e.ProductID, e.ExpirationAtMS
}

// RevenueCatWebhook receives subscription events for mobile in-app
// purchases and updates the user's premium status. It always answers 200
// for events it cannot act on so RevenueCat does not retry them.
func RevenueCatWebhook(c *gin.Context) {
	if secret := os.Getenv("REVENUECAT_WEBHOOK_SECRET"); secret != "" {
		if c.GetHeader("Authorization") != "Bearer "+secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
	}

	var payload revenueCatEvent
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	eventType, appUserID, productID, expirationAtMS := payload.normalize()
	if appUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing app_user_id"})
		return
	}

	userID, err := strconv.Atoi(appUserID)
	if err != nil || migrations.GetUserByID(userID) == nil {
		// Unknown users are acknowledged so the event is not redelivered.
		c.JSON(http.StatusOK, gin.H{"message": "user not found, skipping"})
		return
	}

	switch eventType {
	case "INITIAL_PURCHASE", "RENEWAL", "PRODUCT_CHANGE", "UNCANCELLATION":
		var expiresAt *time.Time
		if expirationAtMS > 0 {
			t := time.UnixMilli(expirationAtMS)
			expiresAt = &t
		}
		// A nil expiry means a lifetime purchase.
		if err := migrations.SetPremium(userID, true, productID, expiresAt); err != nil {
			log.Printf("[RevenueCat] premium activation failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	case "EXPIRATION", "BILLING_ISSUES_WILL_RENEW":
		if err := migrations.SetPremium(userID, false, "", nil); err != nil {
			log.Printf("[RevenueCat] premium deactivation failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	case "CANCELLATION":
		// Still active until expiration, nothing to change yet.
	default:
		// Informational events (SUBSCRIBER_ALIAS, TRANSFER, ...) need no action.
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
