package opac

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/liblend/orderdesk/internal/core"
)

const (
	opacFormat   = "@opac_plain"
	pathSearch   = "/api/search"
	pathBookMFN  = "/api/books/by/mfn/"
	pathBookByID = "/api/books/"
)

type opacBookLink struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

type opacBookExemplar struct {
	Number string `json:"number"`
	Amount int    `json:"amount"`
	Status string `json:"status"`
}

type opacBookInfo struct {
	Author     []string `json:"author"`
	Collective []string `json:"collective"`
	Title      []string `json:"title"`
	ISBN       []string `json:"isbn"`
	Language   []string `json:"language"`
	Country    []string `json:"country"`
	City       []string `json:"city"`
	Publisher  []string `json:"publisher"`
	Subject    []string `json:"subject"`
	Keyword    []string `json:"keyword"`
}

type opacBook struct {
	ID          string             `json:"id"`
	Description string             `json:"description"`
	Info        opacBookInfo       `json:"info"`
	Order       bool               `json:"order"`
	Year        int                `json:"year"`
	Exemplars   []opacBookExemplar `json:"exemplars"`
	Brief       string             `json:"brief"`
	Cover       string             `json:"cover"`
	Links       []opacBookLink     `json:"links"`
}

type searchRequest struct {
	Database   string `json:"database"`
	Expression string `json:"expression"`
	Format     string `json:"format"`
}

// Search runs a catalog search expression against one collection.
func (c *Client) Search(ctx context.Context, collection string, expression string) ([]core.Book, error) {
	query := url.Values{"extended": []string{"true"}}
	payload := searchRequest{Database: collection, Expression: expression, Format: opacFormat}

	var result []opacBook
	if err := c.postJSON(ctx, pathSearch, query, payload, &result); err != nil {
		return nil, err
	}

	books := make([]core.Book, 0, len(result))
	for _, book := range result {
		books = append(books, c.normalizeBook(book, collection))
	}

	return books, nil
}

// ByID resolves a canonical book id of the form "collection_recordID".
// Returns (nil, nil) when the id is malformed or the record does not exist,
// so callers can turn the absence into a domain fault.
func (c *Client) ByID(ctx context.Context, bookID core.BookIDString) (*core.Book, error) {
	collection, recordID, ok := splitBookID(bookID)
	if !ok {
		return nil, nil
	}

	query := url.Values{
		"format":   []string{opacFormat},
		"extended": []string{"true"},
	}

	var result opacBook
	err := c.getJSON(ctx, pathBookMFN+collection+"/"+recordID, query, nil, &result)
	if err != nil {
		return nil, c.swallowNotFound(err)
	}

	book := c.normalizeBook(result, collection)

	return &book, nil
}

// ByCollectionID resolves a record by its id within one collection, the way
// loan records reference books. Returns (nil, nil) for unknown records.
func (c *Client) ByCollectionID(ctx context.Context, collection string, recordID string) (*core.Book, error) {
	query := url.Values{
		"format":   []string{opacFormat},
		"extended": []string{"true"},
		"db":       []string{collection},
		"id":       []string{recordID},
	}

	var result opacBook
	if err := c.getJSON(ctx, pathBookByID, query, nil, &result); err != nil {
		return nil, c.swallowNotFound(err)
	}

	book := c.normalizeBook(result, collection)

	return &book, nil
}

// swallowNotFound keeps upstream outages loud but maps a plain rejection of
// the record lookup to "no such book".
func (c *Client) swallowNotFound(err error) error {
	var status statusError
	if errors.As(err, &status) && !errors.Is(err, ErrUpstreamUnavailable) {
		return nil
	}

	return err
}

// normalizeBook flattens an OPAC record into the canonical Book shape.
// Record ids may carry slashes; the canonical id space uses underscores.
func (c *Client) normalizeBook(book opacBook, collection string) core.Book {
	cover := ""
	if book.Cover != "" {
		cover = strings.TrimSuffix(c.baseURL, "/opac") + book.Cover
	}

	links := make([]core.BookLink, 0, len(book.Links))
	for _, link := range book.Links {
		links = append(links, core.BookLink{URL: link.URL, Description: link.Description})
	}

	return core.Book{
		ID:          core.BookIDString(strings.ReplaceAll(book.ID, "/", "_")),
		LibraryID:   c.collections[collection],
		Description: book.Description,
		Year:        book.Year,
		Copies:      len(book.Exemplars),
		Orderable:   book.Order,
		Links:       links,
		Author:      book.Info.Author,
		Collective:  book.Info.Collective,
		Title:       book.Info.Title,
		ISBN:        book.Info.ISBN,
		Language:    book.Info.Language,
		Country:     book.Info.Country,
		City:        book.Info.City,
		Publisher:   book.Info.Publisher,
		Subject:     book.Info.Subject,
		Keyword:     book.Info.Keyword,
		Cover:       cover,
		Brief:       book.Brief,
	}
}

// splitBookID splits a canonical "collection_recordID" book id.
func splitBookID(bookID core.BookIDString) (collection string, recordID string, ok bool) {
	collection, recordID, ok = strings.Cut(string(bookID), "_")
	if !ok || collection == "" || recordID == "" {
		return "", "", false
	}

	return collection, recordID, true
}
