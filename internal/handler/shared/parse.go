package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// FormValueDefault 는 폼 필드 값을 읽고, 비어 있으면 기본값을 반환한다.
func FormValueDefault(c *gin.Context, field string, fallback string) string {
	value := strings.TrimSpace(c.PostForm(field))
	if value == "" {
		return fallback
	}
	return value
}

// FormIntDefault 는 정수 폼 필드를 파싱한다. 비어 있으면 기본값을 쓴다.
func FormIntDefault(c *gin.Context, field string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
