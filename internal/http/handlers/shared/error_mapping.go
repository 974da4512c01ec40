package shared

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ErrorRule 业务错误到接口响应的映射
type ErrorRule struct {
	Target error
	Code   int
	Key    string
}

// RespondMapped 按规则表匹配错误；未命中时以 fallback 响应并记录原始错误
func RespondMapped(c *gin.Context, err error, rules []ErrorRule, fallbackCode int, fallbackKey string) {
	respondMapped(c, err, rules, fallbackCode, fallbackKey, RespondError)
}

// RespondMappedStatus 同 RespondMapped，HTTP 状态码跟随业务码（支付接口使用）
func RespondMappedStatus(c *gin.Context, err error, rules []ErrorRule, fallbackCode int, fallbackKey string) {
	respondMapped(c, err, rules, fallbackCode, fallbackKey, RespondErrorStatus)
}

func respondMapped(c *gin.Context, err error, rules []ErrorRule, fallbackCode int, fallbackKey string, respond func(*gin.Context, int, string, error)) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			respond(c, rule.Code, rule.Key, nil)
			return
		}
	}
	respond(c, fallbackCode, fallbackKey, err)
}

// ConcatRules 合并多组规则
func ConcatRules(groups ...[]ErrorRule) []ErrorRule {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]ErrorRule, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
