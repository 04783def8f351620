package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/book-hub/internal/upstream"
)

func TestAuthorBooksTagsKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/authors/12/books", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, []string{"ru", "be"}, r.URL.Query()["allowed_langs"])
		_, _ = w.Write([]byte(`{"items":[{"id":1,"title":"A","translators":[]},{"id":2,"title":"B"}],"total_pages":4}`))
	}))
	defer srv.Close()

	page, err := newClient(t, srv).AuthorBooks(context.Background(), "12", 2, []string{"ru", "be"})
	require.NoError(t, err)
	require.Equal(t, 4, page.TotalPages)
	require.Len(t, page.Items, 2)
	for _, book := range page.Items {
		require.Equal(t, KindAuthorBook, book.Kind)
		require.False(t, book.Kind.ShowsAuthors())
		require.True(t, book.Kind.ShowsTranslators())
	}
}

func TestSearchBooksStripsSlashes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/books/search/dune messiah", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[],"total_pages":0}`))
	}))
	defer srv.Close()

	page, err := newClient(t, srv).SearchBooks(context.Background(), "dune/ messiah", 1, nil)
	require.NoError(t, err)
	require.Zero(t, page.TotalPages)
}

func TestListingRejectsNonNumericKey(t *testing.T) {
	client := &Client{}
	_, err := client.SequenceBooks(context.Background(), "abc", 1, nil)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestUnavailableIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).GetBook(context.Background(), 42)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGetBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/books/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":42,"title":"Дюна","source":{"id":1,"name":"flibusta"},"remote_id":555}`))
	}))
	defer srv.Close()

	book, err := newClient(t, srv).GetBook(context.Background(), 42)
	require.NoError(t, err)
	require.EqualValues(t, 1, book.Source.ID)
	require.EqualValues(t, 555, book.RemoteID)
	require.Equal(t, KindBook, book.Kind)
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	api, err := upstream.New("catalog", srv.URL, "", srv.Client())
	require.NoError(t, err)
	return NewClient(api)
}
