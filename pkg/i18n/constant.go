package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_NOT_FOUND         = "error.notfound"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_PERMISSION_DENIED = "error.permission.denied"
	ERROR_UNAUTHORIZED      = "error.unauthorized"
	ERROR_EXIST             = "error.exist"
	ERROR_FORBIDDEN         = "error.forbidden"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"

	ERROR_EMPTY_QUERY          = "error.empty.query"
	ERROR_EMPTY_DOCUMENT       = "error.empty.document"
	ERROR_UNSUPPORTED_FILETYPE = "error.unsupported.filetype"
	ERROR_CAPABILITY           = "error.capability"
	ERROR_ANSWER_UNAVAILABLE   = "error.answer.unavailable"
	ERROR_INDEX_INCONSISTENCY  = "error.index_inconsistency"
)
