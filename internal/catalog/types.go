package catalog

// Page 是目录服务返回的一页结果。TotalPages 为 0 表示完全没有结果。
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalPages int `json:"total_pages"`
}

// BookKind 由产生条目的列表接口声明，格式化时据此决定展示作者还是译者。
type BookKind int

const (
	// KindBook 来自搜索、系列或单本查询，同时携带作者与译者。
	KindBook BookKind = iota
	// KindAuthorBook 来自作者书目，作者已知，只携带译者。
	KindAuthorBook
	// KindTranslatorBook 来自译者书目，译者已知，只携带作者。
	KindTranslatorBook
)

func (k BookKind) String() string {
	switch k {
	case KindAuthorBook:
		return "author_book"
	case KindTranslatorBook:
		return "translator_book"
	default:
		return "book"
	}
}

// ShowsAuthors 表示该类条目是否需要展示作者列表。
func (k BookKind) ShowsAuthors() bool {
	return k != KindAuthorBook
}

// ShowsTranslators 表示该类条目是否需要展示译者列表。
func (k BookKind) ShowsTranslators() bool {
	return k != KindTranslatorBook
}

// Source 是书籍的原始来源站点。
type Source struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Author 同时用于作者与译者。
type Author struct {
	ID               int64  `json:"id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	MiddleName       string `json:"middle_name"`
	AnnotationExists bool   `json:"annotation_exists"`
}

// Book 是目录中的一本书。Kind 不来自 JSON，由客户端按接口填充。
type Book struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Lang             string   `json:"lang"`
	AvailableTypes   []string `json:"available_types"`
	AnnotationExists bool     `json:"annotation_exists"`
	Source           Source   `json:"source"`
	RemoteID         int64    `json:"remote_id"`
	Authors          []Author `json:"authors"`
	Translators      []Author `json:"translators"`

	Kind BookKind `json:"-"`
}

// Sequence 是书籍系列。
type Sequence struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Annotation 是书籍简介。
type Annotation struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}
