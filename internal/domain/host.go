package domain

import "time"

// Host represents a monitored network endpoint.
type Host struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"` // IP address or hostname
	Tags      []*Tag    `json:"tags" db:"-"`          // Stored in host_tags
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TagNames returns the names of the host's tags in order.
func (h *Host) TagNames() []string {
	names := make([]string, 0, len(h.Tags))
	for _, t := range h.Tags {
		names = append(names, t.Name)
	}
	return names
}

// HostInput is the request body for creating or replacing a host.
type HostInput struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Tags    []string `json:"tags,omitempty"`
}

// HostFilter narrows a host listing. Empty fields are ignored; set fields
// match case-insensitively as substrings and combine with AND.
type HostFilter struct {
	Name    string
	Address string
}

// IsZero reports whether the filter matches every host.
func (f HostFilter) IsZero() bool {
	return f.Name == "" && f.Address == ""
}
