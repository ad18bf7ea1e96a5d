package response

// 业务错误码直接基于 HTTP 语义；所有权不匹配从不回 403，
// 统一按 404 处理以避免暴露资源存在性
const (
	CodeOK           = 0
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeNotFound     = 404
	CodeServerError  = 500
	CodeTimeout      = 504
)

// CodeMsgMap 用于集中管理 code - msg
var CodeMsgMap = map[int]string{
	CodeOK:           "OK",
	CodeBadRequest:   "Bad Request",
	CodeUnauthorized: "Unauthorized",
	CodeNotFound:     "Not Found",
	CodeServerError:  "Internal Server Error",
	CodeTimeout:      "Timeout",
}
