package response

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
)

func ProvideResponseLocalizer(l i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("i18n", l)
	}
}

func InjectResponseLocalizer(c *gin.Context) (i18n.Localizer, bool) {
	l, ok := c.Get("i18n")
	if !ok {
		return i18n.Localizer{}, false
	}
	return l.(i18n.Localizer), true
}

// 常量定义
const (
	RequestIDKey = "request_id"
	ResponseKey  = "response_key"
)

// Response 响应结构体定义
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
	Data    interface{} `json:"data,omitempty"`
}

// Meta 响应meta定义
type Meta struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func GetLangFromRequestOrDefault(c *gin.Context) string {
	lang := c.Request.Header.Get("Accept-Language")
	if lang == "zh" {
		lang = "zh-CN"
	}
	if i18n.ALLOW_LANG[lang] {
		return lang
	}
	return i18n.DEFAULT_LANG
}

func getResponse(c *gin.Context) *Response {
	if v, ok := c.Get(ResponseKey); ok {
		return v.(*Response)
	}
	return &Response{Meta: Meta{RequestID: uuid.NewString()}}
}

// APIError api响应失败
func APIError(c *gin.Context, err error) {
	c.Abort()

	res := getResponse(c)
	res.Success = false
	if cerrptr, ok := err.(*errors.CustomizedError); !ok {
		res.Meta.Code = http.StatusInternalServerError
		res.Meta.Message = err.Error()
	} else {
		res.Meta.Code = cerrptr.GetCode()
		res.Meta.Message = cerrptr.Message()
		if l, ok := InjectResponseLocalizer(c); ok {
			res.Meta.Message = l.Get(GetLangFromRequestOrDefault(c), cerrptr.Message())
		}
	}
	res.Error = res.Meta.Message

	c.JSON(res.Meta.Code, res)
	printErrorLog(c, res, err)
}

func printErrorLog(c *gin.Context, res *Response, err error) {
	slog.Error("response error",
		slog.String("request_uri", c.Request.URL.Path),
		slog.String("request_id", res.Meta.RequestID),
		slog.Int64("end_time", time.Now().Unix()),
		slog.Int("code", res.Meta.Code),
		slog.String("user_id", c.GetString(USER_ID_KEY)),
		slog.String("error", err.Error()))
}

func printSuccessLog(c *gin.Context, res *Response) {
	slog.Info("request success",
		slog.String("request_uri", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.String("request_id", res.Meta.RequestID),
		slog.Int64("end_time", time.Now().Unix()),
		slog.String("user_id", c.GetString(USER_ID_KEY)))
}

// USER_ID_KEY 与 middleware 中写入的 key 一致，仅用于日志
const USER_ID_KEY = "user_id"

// APISuccess api响应成功
func APISuccess(c *gin.Context, response interface{}) {
	c.Abort()
	res := getResponse(c)
	res.Success = true
	res.Meta.Code = http.StatusOK
	if response != nil {
		res.Data = response
	}
	c.JSON(http.StatusOK, res)
	printSuccessLog(c, res)
}

// NewResponse 为每个请求生成 request id，调用方传入 X-Request-Id 时沿用
func NewResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		resp := &Response{
			Meta: Meta{
				RequestID: requestID,
			},
		}
		c.Set(ResponseKey, resp)
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-Id", requestID)
	}
}
