package types

import "strings"

// Article is one scraped news or blog record. Link is the identity key.
type Article struct {
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Link        string   `json:"link"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	AccessType  string   `json:"access_type,omitempty"`
}

// Placeholder is written for fields a site did not expose.
const Placeholder = "N/A"

// Kind classifies a source site.
type Kind string

const (
	KindNews     Kind = "news"
	KindBlog     Kind = "blog"
	KindArticles Kind = "articles"
)

// Field returns a named field as a string. Lists are joined with ", ".
func (a *Article) Field(name string) string {
	switch name {
	case "title":
		return a.Title
	case "date":
		return a.Date
	case "link":
		return a.Link
	case "description":
		return a.Description
	case "tags":
		return strings.Join(a.Tags, ", ")
	case "authors":
		return strings.Join(a.Authors, ", ")
	case "content_type":
		return a.ContentType
	case "image_url":
		return a.ImageURL
	case "access_type":
		return a.AccessType
	}
	return ""
}

// SetField assigns a named string field. Unknown names are ignored.
func (a *Article) SetField(name, value string) {
	switch name {
	case "title":
		a.Title = value
	case "date":
		a.Date = value
	case "link":
		a.Link = value
	case "description":
		a.Description = value
	case "content_type":
		a.ContentType = value
	case "image_url":
		a.ImageURL = value
	case "access_type":
		a.AccessType = value
	}
}

// StringFields lists the scalar fields SetField understands.
var StringFields = []string{"title", "date", "link", "description", "content_type", "image_url", "access_type"}
