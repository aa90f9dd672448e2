// Package registry is a client for the MCP server registry API.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/models"
)

// ErrServerNotFound indicates the registry has no server with the requested name.
var ErrServerNotFound = errors.New("server not found")

// Limits accepted for a page size.
const (
	MinLimit = 1
	MaxLimit = 100
)

// SearchParams filters a registry listing. Zero values are omitted.
type SearchParams struct {
	Search string
	Cursor string
	Limit  int
}

// Client queries a registry over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a registry client from cfg.
func NewClient(cfg config.RegistryConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
	}
}

type serverDocument struct {
	Name        string                `json:"name"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Version     string                `json:"version"`
	WebsiteURL  string                `json:"websiteUrl"`
	Repository  *models.MCPRepository `json:"repository"`
	Packages    []struct {
		RegistryType string `json:"registryType"`
		Identifier   string `json:"identifier"`
		Version      string `json:"version"`
		Transport    struct {
			Type string `json:"type"`
		} `json:"transport"`
	} `json:"packages"`
	Remotes []models.MCPRemote `json:"remotes"`
}

type officialMeta struct {
	Status      string `json:"status"`
	PublishedAt string `json:"publishedAt"`
}

type serverEntry struct {
	Server serverDocument `json:"server"`
	Meta   struct {
		Official *officialMeta `json:"io.modelcontextprotocol.registry/official"`
	} `json:"_meta"`
}

type listResponse struct {
	Servers  []serverEntry `json:"servers"`
	Metadata struct {
		NextCursor string `json:"nextCursor"`
		Count      *int   `json:"count"`
		Total      *int   `json:"total"`
	} `json:"metadata"`
}

func (e serverEntry) toModel() models.MCPServer {
	s := models.MCPServer{
		Name:        e.Server.Name,
		Title:       e.Server.Title,
		Description: e.Server.Description,
		Version:     e.Server.Version,
		WebsiteURL:  e.Server.WebsiteURL,
		Repository:  e.Server.Repository,
		Remotes:     e.Server.Remotes,
	}
	if s.Repository != nil && s.Repository.URL == "" {
		s.Repository = nil
	}
	for _, p := range e.Server.Packages {
		s.Packages = append(s.Packages, models.MCPPackage{
			RegistryType: p.RegistryType,
			Identifier:   p.Identifier,
			Version:      p.Version,
			Transport:    p.Transport.Type,
		})
	}
	if e.Meta.Official != nil {
		s.Status = e.Meta.Official.Status
		s.PublishedAt = e.Meta.Official.PublishedAt
	}
	return s
}

// Search lists servers matching p.
func (c *Client) Search(ctx context.Context, p SearchParams) (*models.MCPServerList, error) {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	endpoint := c.baseURL + "/v0/servers"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var resp listResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	list := &models.MCPServerList{
		Servers: make([]models.MCPServer, 0, len(resp.Servers)),
		Cursor:  resp.Metadata.NextCursor,
		Total:   resp.Metadata.Total,
	}
	for _, e := range resp.Servers {
		list.Servers = append(list.Servers, e.toModel())
	}
	return list, nil
}

// Get returns the latest version of the server called name.
func (c *Client) Get(ctx context.Context, name string) (*models.MCPServer, error) {
	endpoint := fmt.Sprintf("%s/v0/servers/%s/versions/latest", c.baseURL, url.PathEscape(name))

	var entry serverEntry
	if err := c.getJSON(ctx, endpoint, &entry); err != nil {
		return nil, err
	}
	s := entry.toModel()
	return &s, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.DebugContext(ctx, "querying registry", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrServerNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("registry returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode registry response: %w", err)
	}
	return nil
}
