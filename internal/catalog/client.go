// Package catalog talks to the book server: full-text searches, author,
// translator and sequence bibliographies, single book lookups and random picks.
// Every listing method shares one signature so the pagination renderer can
// page through any of them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/any-hub/book-hub/internal/upstream"
)

// ErrUnavailable 表示目录服务不可用或返回了非预期响应。
var ErrUnavailable = errors.New("catalog unavailable")

// ErrInvalidKey 表示列表键不是合法的数字 ID。
var ErrInvalidKey = errors.New("catalog: invalid key")

// Client 访问书籍目录服务。
type Client struct {
	api *upstream.Client
}

// NewClient 绑定目录服务客户端。
func NewClient(api *upstream.Client) *Client {
	return &Client{api: api}
}

// SearchBooks 按书名搜索。
func (c *Client) SearchBooks(ctx context.Context, query string, page int, langs []string) (Page[Book], error) {
	return listBooks(ctx, c, "/api/v1/books/search/"+cleanQuery(query), page, langs, KindBook)
}

// SearchAuthors 按姓名搜索作者。
func (c *Client) SearchAuthors(ctx context.Context, query string, page int, langs []string) (Page[Author], error) {
	return list[Author](ctx, c, "/api/v1/authors/search/"+cleanQuery(query), page, langs)
}

// SearchTranslators 按姓名搜索译者。
func (c *Client) SearchTranslators(ctx context.Context, query string, page int, langs []string) (Page[Author], error) {
	return list[Author](ctx, c, "/api/v1/translators/search/"+cleanQuery(query), page, langs)
}

// SearchSequences 按名称搜索系列。
func (c *Client) SearchSequences(ctx context.Context, query string, page int, langs []string) (Page[Sequence], error) {
	return list[Sequence](ctx, c, "/api/v1/sequences/search/"+cleanQuery(query), page, langs)
}

// AuthorBooks 返回作者书目，key 为作者 ID。
func (c *Client) AuthorBooks(ctx context.Context, key string, page int, langs []string) (Page[Book], error) {
	id, err := parseKey(key)
	if err != nil {
		return Page[Book]{}, err
	}
	return listBooks(ctx, c, fmt.Sprintf("/api/v1/authors/%d/books", id), page, langs, KindAuthorBook)
}

// TranslatorBooks 返回译者书目，key 为译者 ID。
func (c *Client) TranslatorBooks(ctx context.Context, key string, page int, langs []string) (Page[Book], error) {
	id, err := parseKey(key)
	if err != nil {
		return Page[Book]{}, err
	}
	return listBooks(ctx, c, fmt.Sprintf("/api/v1/translators/%d/books", id), page, langs, KindTranslatorBook)
}

// SequenceBooks 返回系列中的书，key 为系列 ID。
func (c *Client) SequenceBooks(ctx context.Context, key string, page int, langs []string) (Page[Book], error) {
	id, err := parseKey(key)
	if err != nil {
		return Page[Book]{}, err
	}
	return listBooks(ctx, c, fmt.Sprintf("/api/v1/sequences/%d/books", id), page, langs, KindBook)
}

// GetBook 返回单本书的完整信息（包括来源与 remote_id）。
func (c *Client) GetBook(ctx context.Context, id int64) (Book, error) {
	var book Book
	if err := c.get(ctx, fmt.Sprintf("/api/v1/books/%d", id), nil, &book); err != nil {
		return Book{}, err
	}
	book.Kind = KindBook
	return book, nil
}

// GetBookAnnotation 返回书籍简介。
func (c *Client) GetBookAnnotation(ctx context.Context, id int64) (Annotation, error) {
	var annotation Annotation
	err := c.get(ctx, fmt.Sprintf("/api/v1/books/%d/annotation", id), nil, &annotation)
	return annotation, err
}

// RandomBook 返回一本随机书。
func (c *Client) RandomBook(ctx context.Context, langs []string) (Book, error) {
	var book Book
	if err := c.get(ctx, "/api/v1/books/random", langsQuery(langs), &book); err != nil {
		return Book{}, err
	}
	book.Kind = KindBook
	return book, nil
}

// RandomAuthor 返回一位随机作者。
func (c *Client) RandomAuthor(ctx context.Context, langs []string) (Author, error) {
	var author Author
	err := c.get(ctx, "/api/v1/authors/random", langsQuery(langs), &author)
	return author, err
}

// RandomSequence 返回一个随机系列。
func (c *Client) RandomSequence(ctx context.Context, langs []string) (Sequence, error) {
	var sequence Sequence
	err := c.get(ctx, "/api/v1/sequences/random", langsQuery(langs), &sequence)
	return sequence, err
}

func (c *Client) get(ctx context.Context, p string, query url.Values, out any) error {
	if err := c.api.GetJSON(ctx, p, query, out); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func list[T any](ctx context.Context, c *Client, p string, page int, langs []string) (Page[T], error) {
	query := langsQuery(langs)
	query.Set("page", strconv.Itoa(page))

	var result Page[T]
	if err := c.get(ctx, p, query, &result); err != nil {
		return Page[T]{}, err
	}
	if result.TotalPages < 0 {
		return Page[T]{}, fmt.Errorf("%w: negative total_pages", ErrUnavailable)
	}
	return result, nil
}

func listBooks(ctx context.Context, c *Client, p string, page int, langs []string, kind BookKind) (Page[Book], error) {
	result, err := list[Book](ctx, c, p, page, langs)
	if err != nil {
		return result, err
	}
	for i := range result.Items {
		result.Items[i].Kind = kind
	}
	return result, nil
}

func langsQuery(langs []string) url.Values {
	query := url.Values{}
	for _, lang := range langs {
		query.Add("allowed_langs", lang)
	}
	return query
}

// cleanQuery 去掉会破坏路径结构的 /。
func cleanQuery(query string) string {
	return strings.ReplaceAll(strings.TrimSpace(query), "/", "")
}

func parseKey(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return id, nil
}
