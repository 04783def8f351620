// Package pagination pages list results without server-side state: the scope,
// the query key and the page number travel inside callback tokens of the form
// <prefix><key>_<page>, and every page render rebuilds the next set of tokens.
package pagination

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Separator 分隔 key 与页码；页码永远是最后一段。
const Separator = "_"

// MaxTokenBytes 是 Telegram callback_data 的字节上限。
const MaxTokenBytes = 64

// 已发出的消息会携带这些前缀，重启后仍需可解码，不要修改。
const (
	SearchBooksPrefix       = "sb_"
	SearchAuthorsPrefix     = "sa_"
	SearchSequencesPrefix   = "ss_"
	SearchTranslatorsPrefix = "st_"
	AuthorBooksPrefix       = "ba_"
	TranslatorBooksPrefix   = "bt_"
	SequenceBooksPrefix     = "bs_"
)

var (
	// ErrInvalidToken 表示 token 无法解析（未知前缀、缺少页码或页码非正整数）。
	ErrInvalidToken = errors.New("invalid page token")
	// ErrInvalidPage 表示编码时页码小于 1。
	ErrInvalidPage = errors.New("page must be >= 1")
	// ErrTokenTooLong 表示编码结果超过 MaxTokenBytes。
	ErrTokenTooLong = errors.New("page token exceeds callback data limit")
)

// Token 是解码后的分页请求。
type Token struct {
	Prefix string
	Key    string
	Page   int
}

// String 返回编码形式；Page 非法时返回空串。
func (t Token) String() string {
	s, err := Encode(t.Prefix, t.Key, t.Page)
	if err != nil {
		return ""
	}
	return s
}

// Encode 生成 <prefix><key>_<page>。key 中可以包含分隔符，解码时按最后一个分隔符切分。
func Encode(prefix, key string, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	if prefix == "" {
		return "", fmt.Errorf("%w: empty prefix", ErrInvalidToken)
	}
	token := prefix + key + Separator + strconv.Itoa(page)
	if len(token) > MaxTokenBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(token))
	}
	return token, nil
}

// Codec 持有已注册的前缀，按最长前缀匹配解码。
type Codec struct {
	prefixes []string
}

// NewCodec 注册作用域前缀。重复前缀会被忽略。
func NewCodec(prefixes ...string) *Codec {
	seen := make(map[string]struct{}, len(prefixes))
	c := &Codec{}
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		c.prefixes = append(c.prefixes, p)
	}
	sort.Slice(c.prefixes, func(i, j int) bool {
		return len(c.prefixes[i]) > len(c.prefixes[j])
	})
	return c
}

// DefaultCodec 注册所有内置作用域。
func DefaultCodec() *Codec {
	return NewCodec(
		SearchBooksPrefix,
		SearchAuthorsPrefix,
		SearchSequencesPrefix,
		SearchTranslatorsPrefix,
		AuthorBooksPrefix,
		TranslatorBooksPrefix,
		SequenceBooksPrefix,
	)
}

// Prefixes 返回已注册前缀的副本。
func (c *Codec) Prefixes() []string {
	return append([]string(nil), c.prefixes...)
}

// Match 返回 token 命中的前缀。
func (c *Codec) Match(token string) (string, bool) {
	for _, p := range c.prefixes {
		if strings.HasPrefix(token, p) {
			return p, true
		}
	}
	return "", false
}

// Decode 解析 token，任何格式问题都返回 ErrInvalidToken，从不 panic。
func (c *Codec) Decode(token string) (Token, error) {
	prefix, ok := c.Match(token)
	if !ok {
		return Token{}, fmt.Errorf("%w: unknown prefix", ErrInvalidToken)
	}
	rest := token[len(prefix):]

	idx := strings.LastIndex(rest, Separator)
	if idx < 0 {
		return Token{}, fmt.Errorf("%w: missing page", ErrInvalidToken)
	}
	key, rawPage := rest[:idx], rest[idx+len(Separator):]

	page, err := parsePage(rawPage)
	if err != nil {
		return Token{}, err
	}
	return Token{Prefix: prefix, Key: key, Page: page}, nil
}

func parsePage(raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: empty page", ErrInvalidToken)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: page %q is not a base-10 integer", ErrInvalidToken, raw)
		}
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: page %q is not positive", ErrInvalidToken, raw)
	}
	return page, nil
}

// TruncateQuery 按字节上限裁剪搜索词，保证不截断多字节字符。
func TruncateQuery(query string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(query) <= maxBytes {
		return query
	}
	cut := query[:maxBytes]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
