// Package chatclient is the Go client for the LMS messaging core: a thin
// REST client, a websocket channel, and the per-conversation session state
// machine the chat UI drives.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Conversation is the wire shape of a conversation as the API returns it.
// The package defines its own types so importers of the client never need
// the server's internal packages.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	LastMessage  string    `json:"lastMessage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is the wire shape of a message as the API returns it.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Text           string    `json:"text"`
	Seen           bool      `json:"seen"`
	CreatedAt      time.Time `json:"createdAt"`
}

// API is the service surface the session depends on. Client implements it
// over HTTP; tests substitute fakes.
type API interface {
	Conversations(ctx context.Context) ([]Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]Message, error)
	Send(ctx context.Context, req SendRequest) (*Message, error)
	MarkSeen(ctx context.Context, messageID string) error
	MarkConversationRead(ctx context.Context, conversationID string) error
}

// SendRequest mirrors the POST /messages body.
type SendRequest struct {
	ReceiverID     string `json:"receiverId"`
	Text           string `json:"text"`
	ConversationID string `json:"conversationId,omitempty"`
}

// APIError carries the HTTP status and server-reported message for a failed
// call. Sends that fail are unknown-outcome: re-fetch history before
// retrying instead of blindly resending.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatclient: %d: %s", e.Status, e.Message)
}

// Client is the REST client for the messaging API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a client for the given base URL (e.g. "http://host:8080")
// authenticating with the LMS-issued bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

func (c *Client) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	path := "/api/v1/messages?conversationId=" + url.QueryEscape(conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) Send(ctx context.Context, req SendRequest) (*Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkSeen(ctx context.Context, messageID string) error {
	body := map[string]string{"messageId": messageID}
	return c.do(ctx, http.MethodPut, "/api/v1/messages/seen", body, nil)
}

func (c *Client) MarkConversationRead(ctx context.Context, conversationID string) error {
	path := "/api/v1/conversations/" + url.PathEscape(conversationID) + "/read"
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
