package translation

import (
	"sync"

	"github.com/leonelquinteros/gotext"
)

const localesDir = "locales"

var (
	mu      sync.Mutex
	locales = make(map[string]*gotext.Locale)
)

// DefaultLanguage is used for chats that never picked one.
const DefaultLanguage = "fa"

func localeFor(lang string) *gotext.Locale {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := locales[lang]; ok {
		return l
	}
	l := gotext.NewLocale(localesDir, lang)
	l.AddDomain("default")
	locales[lang] = l
	return l
}

// Translate resolves a message in the given chat language. Unknown message
// IDs fall through to the ID itself, formatted with vars.
func Translate(lang, msgID string, vars ...interface{}) string {
	if lang == "" {
		lang = DefaultLanguage
	}
	return localeFor(lang).Get(msgID, vars...)
}
