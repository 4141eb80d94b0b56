package shared

import (
	"github.com/gin-gonic/gin"

	"github.com/ecosync/bill-server-go/internal/httperror"
	"github.com/ecosync/bill-server-go/internal/middleware"
)

// WriteError 는 에러 응답을 작성한다.
func WriteError(c *gin.Context, err error) {
	if c == nil {
		return
	}
	status, payload := httperror.Response(err, middleware.GetRequestID(c))
	c.JSON(status, payload)
}

// DataError 는 HTTP 200 에 데이터 수준 오류를 싣는 응답 본문이다.
// 고지서 API 의 mode/세션 오류는 이 형태를 유지해야 한다.
type DataError struct {
	Error string `json:"error"`
}
