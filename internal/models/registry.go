package models

// MCPServer is a server record from the MCP registry.
type MCPServer struct {
	Repository  *MCPRepository `json:"repository,omitempty"`
	Name        string         `json:"name"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	WebsiteURL  string         `json:"websiteUrl,omitempty"`
	Status      string         `json:"status,omitempty"`
	PublishedAt string         `json:"publishedAt,omitempty"`
	Packages    []MCPPackage   `json:"packages,omitempty"`
	Remotes     []MCPRemote    `json:"remotes,omitempty"`
}

// MCPRepository points at a server's source.
type MCPRepository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// MCPPackage is an installable distribution of a server.
type MCPPackage struct {
	RegistryType string `json:"registryType"`
	Identifier   string `json:"identifier"`
	Version      string `json:"version,omitempty"`
	Transport    string `json:"transport,omitempty"`
}

// MCPRemote is a hosted endpoint of a server.
type MCPRemote struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// MCPServerList is a page of registry search results.
type MCPServerList struct {
	Total   *int        `json:"total,omitempty"`
	Cursor  string      `json:"cursor,omitempty"`
	Servers []MCPServer `json:"servers"`
}
