package bot

const (
	startMessage = "Привет, {name}! 👋\n\n" +
		"Я помогу найти и скачать книгу. Просто напиши название книги, имя автора или серии."
	helpMessage = "Отправь мне название книги, имя автора, переводчика или серии, " +
		"а затем выбери, что искать.\n\n" +
		"/random - случайная книга, автор или серия\n" +
		"/help - эта справка"
	searchMessage     = "Что ищем?"
	randomMessage     = "Что хотим получить?"
	emptyMessage      = "Ничего не найдено :("
	noAnnotation      = "Аннотация отсутствует."
	retryButton       = "Повторить?"
	errTryLater       = "Ошибка! Попробуйте позже :("
	errRepeatSearch   = "Ошибка! Повторите поиск :("
	defaultUserName   = "пользователь"
	namePlaceholder   = "{name}"
	searchBookLabel   = "Книгу"
	searchAuthorLabel = "Автора"
	searchSeqLabel    = "Серию"
	searchTransLabel  = "Переводчика"
)

const (
	RandomBook     = "random_book"
	RandomAuthor   = "random_author"
	RandomSequence = "random_sequence"
)
