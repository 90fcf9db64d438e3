package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrTokenNotRegistered marks a device token FCM no longer recognizes.
// Callers should drop the token from storage.
var ErrTokenNotRegistered = errors.New("fcm token not registered")

const defaultFCMEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCMClient talks to the FCM legacy HTTP API.
type FCMClient struct {
	serverKey string
	endpoint  string
	http      *http.Client
}

// NewFCMFromEnv returns nil when FCM_SERVER_KEY is not configured, push
// delivery is then disabled.
func NewFCMFromEnv() *FCMClient {
	key := os.Getenv("FCM_SERVER_KEY")
	if key == "" {
		return nil
	}
	endpoint := os.Getenv("FCM_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultFCMEndpoint
	}
	return &FCMClient{
		serverKey: key,
		endpoint:  endpoint,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

type fcmMessage struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Priority     string            `json:"priority"`
}

type fcmResult struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

type fcmResponse struct {
	Success int         `json:"success"`
	Failure int         `json:"failure"`
	Results []fcmResult `json:"results"`
}

func (c *FCMClient) send(ctx context.Context, msg fcmMessage) (*fcmResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "key="+c.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fcm returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	var out fcmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendToToken delivers one notification to a device. ErrTokenNotRegistered
// is returned when FCM reports the token as dead.
func (c *FCMClient) SendToToken(ctx context.Context, token, title, body string, data map[string]string, imageURL string) (*fcmResponse, error) {
	resp, err := c.send(ctx, fcmMessage{
		To:           token,
		Notification: fcmNotification{Title: title, Body: body, Image: imageURL},
		Data:         data,
		Priority:     "high",
	})
	if err != nil {
		return nil, err
	}
	if resp.Failure > 0 && len(resp.Results) > 0 {
		switch resp.Results[0].Error {
		case "NotRegistered", "InvalidRegistration":
			return resp, ErrTokenNotRegistered
		default:
			return resp, fmt.Errorf("fcm delivery failed: %s", resp.Results[0].Error)
		}
	}
	return resp, nil
}

// SendToTopic broadcasts a notification to every subscriber of a topic.
func (c *FCMClient) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string, imageURL string) (*fcmResponse, error) {
	return c.send(ctx, fcmMessage{
		To:           "/topics/" + topic,
		Notification: fcmNotification{Title: title, Body: body, Image: imageURL},
		Data:         data,
		Priority:     "high",
	})
}
