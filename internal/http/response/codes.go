package response

import "net/http"

// 业务状态码，HTTP 状态码默认为 200（ErrorWithStatus 除外）
const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeTooManyRequests = 429
	CodeInternal        = 500
)

// HTTPStatus 业务码对应的 HTTP 状态码，未知业务码按 500 处理
func HTTPStatus(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeBadRequest, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeTooManyRequests:
		return code
	default:
		return http.StatusInternalServerError
	}
}
