package schema

import (
	"time"

	"github.com/catalog-harvester/pkg/harvest/models"
)

// ResourceType is the closed set of remote resource types.
type ResourceType string

const (
	ResourceFile          ResourceType = "file"
	ResourceFileUpload    ResourceType = "file.upload"
	ResourceAPI           ResourceType = "api"
	ResourceDocumentation ResourceType = "documentation"
	ResourceImage         ResourceType = "image"
	ResourceVisualization ResourceType = "visualization"
	ResourceMetadata      ResourceType = "metadata"
)

// resourceTypes are the values accepted by the schema.
var resourceTypes = []string{
	string(ResourceFile),
	string(ResourceFileUpload),
	string(ResourceAPI),
	string(ResourceDocumentation),
	string(ResourceImage),
	string(ResourceVisualization),
}

// Harvestable reports whether resources of this type are kept.
func (t ResourceType) Harvestable() bool {
	switch t {
	case ResourceFile, ResourceFileUpload, ResourceAPI, ResourceMetadata:
		return true
	case ResourceDocumentation, ResourceImage, ResourceVisualization:
		return false
	}
	return false
}

// Dataset is a validated remote dataset record.
type Dataset struct {
	ID               string        `mapstructure:"id"`
	Name             string        `mapstructure:"name"`
	Title            string        `mapstructure:"title"`
	Notes            *string       `mapstructure:"notes"`
	LicenseID        string        `mapstructure:"license_id"`
	LicenseTitle     *string       `mapstructure:"license_title"`
	Tags             []Tag         `mapstructure:"tags"`
	MetadataCreated  time.Time     `mapstructure:"metadata_created"`
	MetadataModified time.Time     `mapstructure:"metadata_modified"`
	Organization     *Organization `mapstructure:"organization"`
	Groups           []*Group      `mapstructure:"groups"`
	Resources        []Resource    `mapstructure:"resources"`
	Extras           []Extra       `mapstructure:"extras"`
	Private          bool          `mapstructure:"private"`
	Type             string        `mapstructure:"type"`
	URL              *string       `mapstructure:"url"`
	RevisionID       *string       `mapstructure:"revision_id"`
	Author           *string       `mapstructure:"author"`
	AuthorEmail      *string       `mapstructure:"author_email"`
	Maintainer       *string       `mapstructure:"maintainer"`
	MaintainerEmail  *string       `mapstructure:"maintainer_email"`
	State            *string       `mapstructure:"state"`

	// Unmodeled keys, kept verbatim.
	Unknown map[string]any `mapstructure:",remain"`
}

// Resource is a validated remote resource descriptor.
type Resource struct {
	ID           string           `mapstructure:"id"`
	Position     *int64           `mapstructure:"position"`
	Name         string           `mapstructure:"name"`
	Description  string           `mapstructure:"description"`
	Format       string           `mapstructure:"format"`
	MimeType     *string          `mapstructure:"mimetype"`
	Size         *int64           `mapstructure:"size"`
	Hash         *models.Checksum `mapstructure:"hash"`
	Created      time.Time        `mapstructure:"created"`
	LastModified *time.Time       `mapstructure:"last_modified"`
	URL          string           `mapstructure:"url"`
	ResourceType ResourceType     `mapstructure:"resource_type"`
}

// Tag is a validated remote tag.
type Tag struct {
	ID           string  `mapstructure:"id"`
	VocabularyID *string `mapstructure:"vocabulary_id"`
	DisplayName  string  `mapstructure:"display_name"`
	Name         string  `mapstructure:"name"`
	State        string  `mapstructure:"state"`
}

// Organization is the owning organization of a CKAN dataset.
type Organization struct {
	ID             string     `mapstructure:"id"`
	Name           string     `mapstructure:"name"`
	Title          string     `mapstructure:"title"`
	Description    string     `mapstructure:"description"`
	Created        *time.Time `mapstructure:"created"`
	IsOrganization bool       `mapstructure:"is_organization"`
	State          string     `mapstructure:"state"`
	ImageURL       string     `mapstructure:"image_url"`
}

// Group is a DKAN group descriptor.
type Group struct {
	ID              string `mapstructure:"id"`
	Name            string `mapstructure:"name"`
	Title           string `mapstructure:"title"`
	Description     string `mapstructure:"description"`
	ImageDisplayURL string `mapstructure:"image_display_url"`
}

// Extra is a free-form key/value pair attached to a dataset.
type Extra struct {
	Key   string `mapstructure:"key"`
	Value any    `mapstructure:"value"`
}
