// Package assets builds CDN URLs for image asset references.
//
// An asset reference has the shape "image-{assetId}-{WxH}-{ext}". The
// fetchable URL is a pure function of project, dataset and reference, so
// no network call is ever needed to resolve one.
package assets

import (
	"fmt"
	"strings"
)

const defaultBaseURL = "https://cdn.sanity.io/images"

// Builder turns asset references into CDN URLs for one project/dataset.
type Builder struct {
	projectID string
	dataset   string
	baseURL   string
}

// NewBuilder creates a Builder for the given project and dataset.
func NewBuilder(projectID, dataset string) Builder {
	return Builder{
		projectID: projectID,
		dataset:   dataset,
		baseURL:   defaultBaseURL,
	}
}

// WithBaseURL overrides the CDN base URL. Used by tests.
func (b Builder) WithBaseURL(base string) Builder {
	b.baseURL = strings.TrimSuffix(base, "/")
	return b
}

// ImageURL resolves an image asset reference to a fetchable URL.
// Malformed or empty references resolve to "".
func (b Builder) ImageURL(ref string) string {
	if ref == "" {
		return ""
	}

	parts := strings.Split(ref, "-")
	if len(parts) != 4 || parts[0] != "image" {
		return ""
	}
	assetID, dims, ext := parts[1], parts[2], parts[3]
	if assetID == "" || dims == "" || ext == "" {
		return ""
	}

	return fmt.Sprintf("%s/%s/%s/%s-%s.%s",
		b.baseURL, b.projectID, b.dataset, assetID, dims, ext)
}
