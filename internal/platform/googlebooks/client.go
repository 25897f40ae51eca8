// Package googlebooks resolves ISBNs through the Google Books volumes API.
package googlebooks

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"bookcatalog/internal/metadata"
	"bookcatalog/internal/platform/fetch"
)

const DefaultBaseURL = "https://www.googleapis.com/books/v1"

type Client struct {
	getter  *fetch.Getter
	baseURL string
}

func NewClient(getter *fetch.Getter, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{getter: getter, baseURL: strings.TrimRight(baseURL, "/")}
}

type VolumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
}

// VolumesResponse matches volumes?q=isbn:...
type VolumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string     `json:"id"`
		VolumeInfo VolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

func (c *Client) SearchByISBN(ctx context.Context, isbn string) (*VolumesResponse, error) {
	u := fmt.Sprintf("%s/volumes?q=%s", c.baseURL, url.QueryEscape("isbn:"+isbn))

	var res VolumesResponse
	if err := c.getter.GetJSON(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Lookup implements metadata.Lookup using the first matching volume.
func (c *Client) Lookup(ctx context.Context, isbn string) (metadata.Metadata, error) {
	res, err := c.SearchByISBN(ctx, isbn)
	if err != nil {
		return metadata.Metadata{}, fmt.Errorf("googlebooks lookup %s: %w", isbn, err)
	}
	if len(res.Items) == 0 {
		return metadata.Metadata{}, metadata.ErrNotFound
	}

	info := res.Items[0].VolumeInfo
	return metadata.Metadata{
		Authors:       strings.Join(info.Authors, " and "),
		Publisher:     info.Publisher,
		PublishedDate: info.PublishedDate,
	}.WithDefaults(), nil
}
