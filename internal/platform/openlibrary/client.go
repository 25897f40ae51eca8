package openlibrary

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"bookcatalog/internal/metadata"
	"bookcatalog/internal/platform/fetch"
)

const DefaultBaseURL = "https://openlibrary.org"

// Client resolves ISBNs through the Open Library books API.
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

type Publisher struct {
	Name string `json:"name"`
}

// BookDetails matches api/books?jscmd=data
type BookDetails struct {
	Title       string      `json:"title"`
	Publishers  []Publisher `json:"publishers"`
	PublishDate string      `json:"publish_date"`
	Authors     []struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"authors"`
}

func (c *Client) GetBooksByISBN(ctx context.Context, isbns []string) (map[string]BookDetails, error) {
	if len(isbns) == 0 {
		return nil, nil
	}

	bibkeys := make([]string, len(isbns))
	for i, isbn := range isbns {
		bibkeys[i] = "ISBN:" + isbn
	}

	u := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json",
		c.baseURL, url.QueryEscape(strings.Join(bibkeys, ",")))

	var res map[string]BookDetails
	if err := c.getter.GetJSON(ctx, u, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Lookup implements metadata.Lookup.
func (c *Client) Lookup(ctx context.Context, isbn string) (metadata.Metadata, error) {
	res, err := c.GetBooksByISBN(ctx, []string{isbn})
	if err != nil {
		return metadata.Metadata{}, fmt.Errorf("openlibrary lookup %s: %w", isbn, err)
	}
	d, ok := res["ISBN:"+isbn]
	if !ok {
		return metadata.Metadata{}, metadata.ErrNotFound
	}

	names := make([]string, 0, len(d.Authors))
	for _, a := range d.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	var publisher string
	if len(d.Publishers) > 0 {
		publisher = d.Publishers[0].Name
	}

	return metadata.Metadata{
		Authors:       strings.Join(names, " and "),
		Publisher:     publisher,
		PublishedDate: d.PublishDate,
	}.WithDefaults(), nil
}
