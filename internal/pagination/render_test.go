package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/any-hub/book-hub/internal/catalog"
)

type getterCall struct {
	key   string
	page  int
	langs []string
}

type fakeGetter struct {
	total int
	size  int
	err   error
	calls []getterCall
}

func (f *fakeGetter) get(ctx context.Context, key string, page int, langs []string) (catalog.Page[string], error) {
	f.calls = append(f.calls, getterCall{key: key, page: page, langs: langs})
	if f.err != nil {
		return catalog.Page[string]{}, f.err
	}
	if page > f.total {
		return catalog.Page[string]{TotalPages: f.total}, nil
	}
	items := make([]string, f.size)
	for i := range items {
		items[i] = fmt.Sprintf("%s-%d-%d", key, page, i)
	}
	return catalog.Page[string]{Items: items, TotalPages: f.total}, nil
}

func identity(s string) string { return s }

func TestRenderScenarioFirstPageOfThree(t *testing.T) {
	getter := &fakeGetter{total: 3, size: 5}
	msg, err := Render(context.Background(), Request{
		Prefix: SearchBooksPrefix,
		Key:    "dune",
		Page:   1,
		Langs:  []string{"ru"},
	}, getter.get, identity)
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(msg.Text, "Страница 1/3"), msg.Text)
	require.Equal(t, 5, strings.Count(msg.Text, "dune-1-"))
	require.Equal(t, []getterCall{{key: "dune", page: 1, langs: []string{"ru"}}}, getter.calls)

	require.Equal(t, Keyboard{{{Text: "+1", Data: "sb_dune_2"}}}, msg.Keyboard)
	for _, row := range msg.Keyboard {
		for _, button := range row {
			require.NotEqual(t, "+5", button.Text)
			require.NotEqual(t, "sb_dune_6", button.Data)
		}
	}
}

func TestRenderEmptyResult(t *testing.T) {
	for _, page := range []int{1, 5, 100} {
		getter := &fakeGetter{total: 0}
		msg, err := Render(context.Background(), Request{
			Prefix:       SearchAuthorsPrefix,
			Key:          "nobody",
			Page:         page,
			EmptyMessage: "Ничего не найдено",
		}, getter.get, identity)
		require.NoError(t, err)
		require.Equal(t, "Ничего не найдено", msg.Text)
		require.Nil(t, msg.Keyboard)
		require.Len(t, getter.calls, 1)
	}
}

func TestRenderClampsOvershootInOneHop(t *testing.T) {
	getter := &fakeGetter{total: 4, size: 2}
	req := Request{Prefix: AuthorBooksPrefix, Key: "12", Page: 9, Header: "Книги автора:\n\n"}

	clamped, err := Render(context.Background(), req, getter.get, identity)
	require.NoError(t, err)
	require.Len(t, getter.calls, 2)
	require.Equal(t, 9, getter.calls[0].page)
	require.Equal(t, 4, getter.calls[1].page)

	direct, err := Render(context.Background(), Request{Prefix: AuthorBooksPrefix, Key: "12", Page: 4, Header: "Книги автора:\n\n"}, (&fakeGetter{total: 4, size: 2}).get, identity)
	require.NoError(t, err)
	require.Equal(t, direct.Text, clamped.Text)
	require.Equal(t, direct.Keyboard, clamped.Keyboard)
	require.True(t, strings.HasPrefix(clamped.Text, "Книги автора:\n\n"))
}

func TestRenderStopsAfterSecondOvershoot(t *testing.T) {
	calls := 0
	shrinking := func(ctx context.Context, key string, page int, langs []string) (catalog.Page[string], error) {
		calls++
		// 目录在两次请求之间缩小，返回的总页数始终小于请求页。
		return catalog.Page[string]{TotalPages: page - 1}, nil
	}
	_, err := Render(context.Background(), Request{Prefix: SearchBooksPrefix, Key: "x", Page: 10}, shrinking, identity)
	require.ErrorIs(t, err, ErrPageOutOfRange)
	require.Equal(t, 2, calls)
}

func TestRenderPropagatesGetterError(t *testing.T) {
	boom := errors.New("catalog down")
	getter := &fakeGetter{err: boom}
	msg, err := Render(context.Background(), Request{Prefix: SearchBooksPrefix, Key: "x", Page: 1}, getter.get, identity)
	require.ErrorIs(t, err, boom)
	require.Empty(t, msg.Text)
}

func TestRenderRejectsNonPositivePage(t *testing.T) {
	getter := &fakeGetter{total: 1, size: 1}
	_, err := Render(context.Background(), Request{Prefix: SearchBooksPrefix, Key: "x", Page: 0}, getter.get, identity)
	require.ErrorIs(t, err, ErrInvalidPage)
	require.Empty(t, getter.calls)
}

func TestBuildKeyboardBounds(t *testing.T) {
	cases := []struct {
		page, total int
		want        Keyboard
	}{
		{page: 1, total: 1, want: nil},
		{page: 1, total: 10, want: Keyboard{
			{{Text: "+1", Data: "ss_q_2"}},
			{{Text: "+5", Data: "ss_q_6"}},
		}},
		{page: 10, total: 10, want: Keyboard{
			{{Text: "-1", Data: "ss_q_9"}},
			{{Text: "-5", Data: "ss_q_5"}},
		}},
		{page: 6, total: 11, want: Keyboard{
			{{Text: "-1", Data: "ss_q_5"}, {Text: "+1", Data: "ss_q_7"}},
			{{Text: "-5", Data: "ss_q_1"}, {Text: "+5", Data: "ss_q_11"}},
		}},
		{page: 5, total: 9, want: Keyboard{
			{{Text: "-1", Data: "ss_q_4"}, {Text: "+1", Data: "ss_q_6"}},
		}},
	}
	for _, tc := range cases {
		got, err := BuildKeyboard(SearchSequencesPrefix, "q", tc.page, tc.total)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "page=%d total=%d", tc.page, tc.total)
	}
}

func TestBuildKeyboardFitsCallbackLimitOnLargeTotals(t *testing.T) {
	codec := DefaultCodec()
	key := strings.Repeat("q", 57)
	for _, tc := range []struct{ page, total int }{{996, 1200}, {999, 1000}, {4, 99999}} {
		kb, err := BuildKeyboard(SearchBooksPrefix, key, tc.page, tc.total)
		require.NoError(t, err)
		require.NotEmpty(t, kb)
		for _, row := range kb {
			for _, b := range row {
				require.LessOrEqual(t, len(b.Data), MaxTokenBytes, b.Data)
				tok, err := codec.Decode(b.Data)
				require.NoError(t, err)
				require.True(t, strings.HasPrefix(key, tok.Key))
			}
		}
	}

	// 总页数不超过三位时 key 原样保留。
	kb, err := BuildKeyboard(SearchBooksPrefix, key, 1, 999)
	require.NoError(t, err)
	tok, err := codec.Decode(kb[0][0].Data)
	require.NoError(t, err)
	require.Equal(t, key, tok.Key)
}

func TestKeyboardNeverLeavesBounds(t *testing.T) {
	codec := DefaultCodec()
	for total := 1; total <= 12; total++ {
		for page := 1; page <= total; page++ {
			kb, err := BuildKeyboard(TranslatorBooksPrefix, "7", page, total)
			require.NoError(t, err)
			for _, row := range kb {
				for _, b := range row {
					tok, err := codec.Decode(b.Data)
					require.NoError(t, err)
					require.GreaterOrEqual(t, tok.Page, 1)
					require.LessOrEqual(t, tok.Page, total)
					if page == 1 {
						require.False(t, strings.HasPrefix(b.Text, "-"))
					}
					if page == total {
						require.False(t, strings.HasPrefix(b.Text, "+"))
					}
				}
			}
		}
	}
}
