package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultLocale 默认语言
	DefaultLocale = "en-US"
	localeHeader  = "Accept-Language"
	localeQuery   = "locale"
)

// SupportedLocales 支持的语言列表
var SupportedLocales = []string{"en-US", "zh-CN"}

// ResolveLocale 解析请求语言（查询参数优先于请求头）
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if locale := normalizeLocale(c.Query(localeQuery)); locale != "" {
		return locale
	}
	header := c.GetHeader(localeHeader)
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if locale := normalizeLocale(tag); locale != "" {
			return locale
		}
	}
	return DefaultLocale
}

// T 按语言取出消息文案，缺失时回退默认语言并最终回退 key 本身
func T(locale, key string) string {
	if messages, ok := catalog[locale]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	if locale != DefaultLocale {
		if msg, ok := catalog[DefaultLocale][key]; ok {
			return msg
		}
	}
	return key
}

// Sprintf 取出带格式化参数的消息文案
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

func normalizeLocale(raw string) string {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return ""
	}
	for _, supported := range SupportedLocales {
		if strings.EqualFold(tag, supported) {
			return supported
		}
	}
	// 仅匹配语言前缀（如 en / zh）
	prefix := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
	for _, supported := range SupportedLocales {
		if strings.HasPrefix(strings.ToLower(supported), prefix) {
			return supported
		}
	}
	return ""
}
