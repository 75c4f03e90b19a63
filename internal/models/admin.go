package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ----- COUNTERS -----

// FlexInt decodes from a JSON number or a numeric string ("42").
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*f = FlexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil || fl != float64(int64(fl)) {
			return fmt.Errorf("not an integer: %s", n)
		}
		i = int64(fl)
	}
	*f = FlexInt(i)
	return nil
}

// CountersRequest is the body of POST /admin/anime/{id}/counters. The
// dummy-likes and dummy-views routes accept {"value": n} and fill one side.
type CountersRequest struct {
	DummyLikes *FlexInt `json:"dummyLikes"`
	DummyViews *FlexInt `json:"dummyViews"`
}

type CounterValueRequest struct {
	Value      *FlexInt `json:"value"`
	DummyLikes *FlexInt `json:"dummyLikes"`
	DummyViews *FlexInt `json:"dummyViews"`
}

type CountersResult struct {
	ID         string `json:"id"`
	DummyLikes int64  `json:"dummyLikes"`
	DummyViews int64  `json:"dummyViews"`
}

// ----- CONTENT -----

// AnimeCreateRequest body of POST /admin/anime.
type AnimeCreateRequest struct {
	Title       string   `json:"title" validate:"required,max=300"`
	Description string   `json:"description" validate:"max=10000"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status" validate:"required,oneof=ongoing completed upcoming"`
	Year        int      `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	CoverImage  string   `json:"coverImage" validate:"omitempty,url"`
	BannerImage string   `json:"bannerImage" validate:"omitempty,url"`
	Images      []string `json:"images" validate:"omitempty,dive,url"`
}

// AnimeUpdateRequest body of PUT /admin/anime/{id}. Only present fields change.
type AnimeUpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string   `json:"description" validate:"omitempty,max=10000"`
	Genres      *[]string `json:"genres"`
	Tags        *[]string `json:"tags"`
	Status      *string   `json:"status" validate:"omitempty,oneof=ongoing completed upcoming"`
	Year        *int      `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	CoverImage  *string   `json:"coverImage" validate:"omitempty,url"`
	BannerImage *string   `json:"bannerImage" validate:"omitempty,url"`
	Images      *[]string `json:"images"`
	IsActive    *bool     `json:"isActive"`
}

// Fields returns the bson $set document for the present fields.
func (r *AnimeUpdateRequest) Fields() map[string]any {
	set := map[string]any{}
	if r.Title != nil {
		set["title"] = *r.Title
	}
	if r.Description != nil {
		set["description"] = *r.Description
	}
	if r.Genres != nil {
		set["genres"] = *r.Genres
	}
	if r.Tags != nil {
		set["tags"] = *r.Tags
	}
	if r.Status != nil {
		set["status"] = *r.Status
	}
	if r.Year != nil {
		set["year"] = *r.Year
	}
	if r.CoverImage != nil {
		set["coverImage"] = *r.CoverImage
	}
	if r.BannerImage != nil {
		set["bannerImage"] = *r.BannerImage
	}
	if r.Images != nil {
		set["images"] = *r.Images
	}
	if r.IsActive != nil {
		set["isActive"] = *r.IsActive
	}
	return set
}
