// Package format renders catalog items into the chat text shown to users.
package format

import (
	"fmt"
	"strings"

	"github.com/any-hub/book-hub/internal/catalog"
)

// shortListLimit 是简短模式下每个名单最多展示的人数。
const shortListLimit = 5

// Book 渲染一本书的完整信息，作者/译者列表由 Kind 决定。
func Book(book catalog.Book) string {
	return formatBook(book, false)
}

// BookShort 与 Book 相同，但超过 5 人的名单会被截断为 “и другие.”。
func BookShort(book catalog.Book) string {
	return formatBook(book, true)
}

func formatBook(book catalog.Book, short bool) string {
	lines := []string{fmt.Sprintf("📖 %s | %s", book.Title, book.Lang)}

	if book.Kind.ShowsAuthors() && len(book.Authors) > 0 {
		lines = append(lines, "Авторы:")
		lines = appendPeople(lines, book.Authors, short)
	}
	if book.Kind.ShowsTranslators() && len(book.Translators) > 0 {
		lines = append(lines, "Переводчики:")
		lines = appendPeople(lines, book.Translators, short)
	}

	for _, kind := range book.AvailableTypes {
		lines = append(lines, fmt.Sprintf("📥 %s: /d_%s_%d", kind, kind, book.ID))
	}
	return strings.Join(lines, "\n")
}

func appendPeople(lines []string, people []catalog.Author, short bool) []string {
	truncated := short && len(people) >= shortListLimit
	if truncated {
		people = people[:shortListLimit]
	}
	for _, person := range people {
		lines = append(lines, "͏👤 "+FullName(person))
	}
	if truncated {
		lines = append(lines, "  и другие.")
	}
	return lines
}

// FullName 按 “姓 名 父称” 顺序拼接，忽略空字段。
func FullName(a catalog.Author) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.LastName, a.FirstName, a.MiddleName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Author 渲染作者及其书目命令。
func Author(author catalog.Author) string {
	return fmt.Sprintf("👤 %s\n/a_%d", FullName(author), author.ID)
}

// Translator 渲染译者及其书目命令。
func Translator(translator catalog.Author) string {
	return fmt.Sprintf("👤 %s\n/t_%d", FullName(translator), translator.ID)
}

// Sequence 渲染系列及其书目命令。
func Sequence(sequence catalog.Sequence) string {
	return fmt.Sprintf("📚 %s\n/s_%d", sequence.Name, sequence.ID)
}
