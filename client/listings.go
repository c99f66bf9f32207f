package client

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Listing statuses accepted by the API.
const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusClosed = "closed"
)

const (
	minTitleLen       = 2
	maxTitleLen       = 160
	minDescriptionLen = 1
	maxDescriptionLen = 10000
	maxImages         = 12
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ListingInput is the body of a create-listing request.
type ListingInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	CategoryID  string   `json:"categoryId"`
	Images      []string `json:"images"`
	Status      string   `json:"status"`
}

// Listing is a listing as stored by the API.
type Listing struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	CategoryID  string   `json:"categoryId"`
	Images      []string `json:"images"`
	Status      string   `json:"status"`
}

// Normalize trims text fields and defaults an empty status to active.
func (in ListingInput) Normalize() ListingInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if in.Status == "" {
		in.Status = StatusActive
	}
	if in.Images == nil {
		in.Images = []string{}
	}
	return in
}

// Validate checks in against the API's field constraints. Errors wrap
// [ErrInvalidListing].
func (in ListingInput) Validate() error {
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Title)); n < minTitleLen || n > maxTitleLen {
		return fmt.Errorf("%w: title must be %d to %d characters", ErrInvalidListing, minTitleLen, maxTitleLen)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Description)); n < minDescriptionLen || n > maxDescriptionLen {
		return fmt.Errorf("%w: description must be %d to %d characters", ErrInvalidListing, minDescriptionLen, maxDescriptionLen)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidListing)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidListing)
	}
	if !objectIDPattern.MatchString(strings.TrimSpace(in.CategoryID)) {
		return fmt.Errorf("%w: categoryId must be 24 hex characters", ErrInvalidListing)
	}
	if len(in.Images) > maxImages {
		return fmt.Errorf("%w: at most %d images", ErrInvalidListing, maxImages)
	}
	switch in.Status {
	case StatusActive, StatusPaused, StatusClosed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidListing, in.Status)
	}
	return nil
}

// CreateListing validates in locally and posts it with the bearer credential.
func (c *Client) CreateListing(ctx context.Context, in ListingInput) (*Listing, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Listing
	if err := c.postJSON(ctx, "listings", in, &out, true, "could not create listing"); err != nil {
		return nil, err
	}
	return &out, nil
}
