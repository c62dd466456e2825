// Package api is the HTTP client for the remote estimation service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/juanjtov/bidmate/internal/domain"
)

// defaultListLimit caps catalogue fetches, matching the service default.
const defaultListLimit = 50

// StreamRequest is the payload for opening a streaming exchange.
// An empty ConversationID asks the service to create a new conversation;
// its durable ID arrives in the stream's start event.
type StreamRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// Client is a direct HTTP client for the estimation service API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client

	// streamClient carries no global timeout: a streaming exchange is only
	// terminated by explicit cancellation through the request context.
	streamClient *http.Client
}

// NewClient creates an API client for the given base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:      baseURL,
		token:        token,
		client:       &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
	}
}

// ListConversations fetches the full conversation catalogue for an organization.
func (c *Client) ListConversations(ctx context.Context, orgID string) ([]domain.Conversation, error) {
	u := c.endpoint(orgID, "chat/conversations") + "?limit=" + strconv.Itoa(defaultListLimit)

	var conversations []domain.Conversation
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &conversations); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return conversations, nil
}

// SearchConversations runs a full-text search over the organization's conversations.
func (c *Client) SearchConversations(ctx context.Context, orgID, query string) ([]domain.Conversation, error) {
	body := map[string]any{"query": query, "limit": defaultListLimit}

	var results []domain.Conversation
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(orgID, "chat/search"), body, &results); err != nil {
		return nil, fmt.Errorf("searching conversations: %w", err)
	}
	return results, nil
}

// GetConversation fetches a conversation with its full transcript.
func (c *Client) GetConversation(ctx context.Context, orgID, id string) (*domain.ConversationDetail, error) {
	var detail domain.ConversationDetail
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(orgID, "chat/conversations/"+url.PathEscape(id)), nil, &detail); err != nil {
		return nil, fmt.Errorf("fetching conversation %s: %w", id, err)
	}
	return &detail, nil
}

// DeleteConversation removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, orgID, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.endpoint(orgID, "chat/conversations/"+url.PathEscape(id)), nil, nil); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	return nil
}

// SaveConversation marks a conversation as saved, optionally renaming it.
func (c *Client) SaveConversation(ctx context.Context, orgID, id, title string) (*domain.Conversation, error) {
	body := map[string]any{"is_saved": true}
	if title != "" {
		body["title"] = title
	}

	var conv domain.Conversation
	if err := c.doJSON(ctx, http.MethodPatch, c.endpoint(orgID, "chat/conversations/"+url.PathEscape(id)), body, &conv); err != nil {
		return nil, fmt.Errorf("saving conversation %s: %w", id, err)
	}
	return &conv, nil
}

// ExportMessage exports a persisted assistant message as a document and
// returns a download URL. An empty messageID exports the last assistant
// message of the conversation.
func (c *Client) ExportMessage(ctx context.Context, orgID, conversationID, messageID string) (string, error) {
	u := c.endpoint(orgID, "chat/conversations/"+url.PathEscape(conversationID)+"/export")
	if messageID != "" {
		u += "?message_id=" + url.QueryEscape(messageID)
	}

	var result struct {
		DownloadURL string `json:"download_url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, u, nil, &result); err != nil {
		return "", fmt.Errorf("exporting message: %w", err)
	}
	return result.DownloadURL, nil
}

// OpenStream starts a streaming exchange and returns the raw event source.
// The caller owns the returned body and must close it; cancelling ctx
// aborts the stream.
func (c *Client) OpenStream(ctx context.Context, orgID string, req StreamRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(orgID, "chat/stream"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// doJSON performs a request with an optional JSON body and decodes the
// response into out (when out is non-nil).
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) endpoint(orgID, path string) string {
	return c.baseURL + "/api/v1/" + url.PathEscape(orgID) + "/" + path
}
