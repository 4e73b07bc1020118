package admin

import (
	"bytes"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
)

// DocStatus is the publication state of a document.
type DocStatus string

const (
	StatusDraft     DocStatus = "draft"
	StatusPublished DocStatus = "published"
	StatusArchived  DocStatus = "archived"
)

var DocStatuses = []string{string(StatusDraft), string(StatusPublished), string(StatusArchived)}

type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserInactive  UserStatus = "INACTIVE"
	UserPending   UserStatus = "PENDING"
	UserSuspended UserStatus = "SUSPENDED"
)

var UserStatuses = []string{string(UserActive), string(UserInactive), string(UserPending), string(UserSuspended)}

// Provider selects the model the server uses to turn a PDF into a spec.
type Provider string

const (
	ProviderOpenRouter Provider = "OPENROUTER"
	ProviderOpenAI     Provider = "OPENAI"
	ProviderGemini     Provider = "GEMINI"
)

var Providers = []string{string(ProviderOpenRouter), string(ProviderOpenAI), string(ProviderGemini)}

// Flex holds a scalar the services send either as a string or as a number,
// such as user ids and timestamps.
type Flex string

func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := gojson.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flex(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return fmt.Errorf("unexpected JSON %s for scalar field", data)
	default:
		*f = Flex(data)
	}
	return nil
}

func (f Flex) String() string { return string(f) }

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Document struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Version     string    `json:"version"`
	Status      DocStatus `json:"status"`
	Description string    `json:"description,omitempty"`
	Category    *Category `json:"category,omitempty"`
	UpdatedAt   Flex      `json:"updatedAt,omitempty"`
	PublishedAt Flex      `json:"publishedAt,omitempty"`
}

// Endpoint is one row of the server-side operation index.
type Endpoint struct {
	ID          int64  `json:"id"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	OperationID string `json:"operationId,omitempty"`
	Summary     string `json:"summary,omitempty"`
	TagsJSON    string `json:"tagsJson,omitempty"`
	Deprecated  bool   `json:"deprecated"`
}

// Tags decodes TagsJSON, which the index stores as a JSON array string.
func (e Endpoint) Tags() []string {
	var tags []string
	if strings.TrimSpace(e.TagsJSON) == "" {
		return nil
	}
	if err := gojson.Unmarshal([]byte(e.TagsJSON), &tags); err != nil {
		return nil
	}
	return tags
}

type Meta struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// MetaOf returns the editable metadata of d.
func MetaOf(d *Document) Meta {
	return Meta{Name: d.Name, Slug: d.Slug, Version: d.Version, Description: d.Description}
}

const DefaultImportVersion = "1.0.0"

type ImportRequest struct {
	Name        string
	Slug        string
	Version     string
	Description string
	CategoryID  int64
}

// normalized trims the fields and checks the ones the server requires.
func (r ImportRequest) normalized() (ImportRequest, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.TrimSpace(r.Slug)
	r.Version = strings.TrimSpace(r.Version)
	r.Description = strings.TrimSpace(r.Description)
	if r.Version == "" {
		r.Version = DefaultImportVersion
	}
	if r.Name == "" || r.Slug == "" {
		return r, fmt.Errorf("import needs a name and a slug")
	}
	return r, nil
}

type ImportResult struct {
	DocumentID int64  `json:"documentId"`
	Slug       string `json:"slug,omitempty"`
	Version    string `json:"version,omitempty"`
	Status     string `json:"status,omitempty"`
	SpecText   string `json:"specText,omitempty"`
	CategoryID *int64 `json:"categoryId,omitempty"`
}

type User struct {
	ID          Flex   `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      Flex   `json:"status,omitempty"`
	CreatedAt   Flex   `json:"createdAt,omitempty"`
	UpdatedAt   Flex   `json:"updatedAt,omitempty"`
	LastLoginAt Flex   `json:"lastLoginAt,omitempty"`
}

type CreateUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUser struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     string     `json:"role"`
	Password string     `json:"password,omitempty"`
	Status   UserStatus `json:"status,omitempty"`
}

// UserFilter narrows the admin user list. Empty fields are not sent.
type UserFilter struct {
	Query  string
	Role   string
	Status string
}
