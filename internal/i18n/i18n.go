package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleMN = "mn-MN"
	LocaleEN = "en-US"

	DefaultLocale = LocaleMN
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	loadOnce sync.Once
	messages map[string]map[string]string
)

func load() {
	messages = make(map[string]map[string]string, 2)
	for _, locale := range []string{LocaleMN, LocaleEN} {
		raw, err := localeFS.ReadFile("locales/" + locale + ".json")
		if err != nil {
			messages[locale] = map[string]string{}
			continue
		}
		table := map[string]string{}
		if err := json.Unmarshal(raw, &table); err != nil {
			table = map[string]string{}
		}
		messages[locale] = table
	}
}

// NormalizeLocale 将任意语言标识归一到支持的语言
func NormalizeLocale(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if idx := strings.IndexAny(value, ",;"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	switch {
	case strings.HasPrefix(value, "mn"):
		return LocaleMN
	case strings.HasPrefix(value, "en"):
		return LocaleEN
	default:
		return ""
	}
}

// ResolveLocale 按 ?lang、X-Locale、Accept-Language 的顺序解析语言
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	candidates := []string{c.Query("lang"), c.GetHeader("X-Locale")}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		candidates = append(candidates, part)
	}
	for _, candidate := range candidates {
		if locale := NormalizeLocale(candidate); locale != "" {
			return locale
		}
	}
	return DefaultLocale
}

// T 翻译，缺失时回退默认语言，再回退 key 本身
func T(locale, key string) string {
	loadOnce.Do(load)
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译后格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
