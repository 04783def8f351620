package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/any-hub/book-hub/internal/catalog"
)

func people(n int) []catalog.Author {
	out := make([]catalog.Author, n)
	for i := range out {
		out[i] = catalog.Author{ID: int64(i + 1), FirstName: "Имя", LastName: "Фамилия"}
	}
	return out
}

func TestBookShowsListsByKind(t *testing.T) {
	book := catalog.Book{
		ID:             42,
		Title:          "Дюна",
		Lang:           "ru",
		AvailableTypes: []string{"fb2", "epub"},
		Authors:        []catalog.Author{{LastName: "Герберт", FirstName: "Фрэнк"}},
		Translators:    []catalog.Author{{LastName: "Вязников", FirstName: "Павел"}},
	}

	plain := Book(book)
	require.Contains(t, plain, "Авторы:")
	require.Contains(t, plain, "Переводчики:")
	require.Contains(t, plain, "📥 fb2: /d_fb2_42")
	require.Contains(t, plain, "📥 epub: /d_epub_42")

	book.Kind = catalog.KindAuthorBook
	authorBook := Book(book)
	require.NotContains(t, authorBook, "Авторы:")
	require.Contains(t, authorBook, "Переводчики:")

	book.Kind = catalog.KindTranslatorBook
	translatorBook := Book(book)
	require.Contains(t, translatorBook, "Авторы:")
	require.NotContains(t, translatorBook, "Переводчики:")
}

func TestBookShortTruncatesLongLists(t *testing.T) {
	book := catalog.Book{ID: 1, Title: "Сборник", Lang: "ru", Authors: people(7)}

	require.Equal(t, 7, strings.Count(Book(book), "👤"))

	short := BookShort(book)
	require.Equal(t, 5, strings.Count(short, "👤"))
	require.Contains(t, short, "и другие.")
}

func TestAuthorTranslatorSequence(t *testing.T) {
	a := catalog.Author{ID: 3, FirstName: "Лев", LastName: "Толстой", MiddleName: "Николаевич"}
	require.Equal(t, "👤 Толстой Лев Николаевич\n/a_3", Author(a))
	require.Equal(t, "👤 Толстой Лев Николаевич\n/t_3", Translator(a))
	require.Equal(t, "📚 Дюна\n/s_9", Sequence(catalog.Sequence{ID: 9, Name: "Дюна"}))
	require.Equal(t, "Толстой", FullName(catalog.Author{LastName: "Толстой"}))
}
