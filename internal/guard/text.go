package guard

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/mtibben/confusables"
	"golang.org/x/text/unicode/norm"
)

// isASCIIOnly: 문자열이 ASCII만 포함하는지 확인합니다.
func isASCIIOnly(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// isBase64Char: Base64 문자셋 검사 (A-Za-z0-9+/-_)
func isBase64Char(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '+' || c == '/' || c == '-' || c == '_'
}

// containsSuspiciousBase64: 입력값 내에 숨겨진 Base64 페이로드가 있는지 탐지합니다.
// Base64 의심 시퀀스만 추출해 디코딩하고, 결과가 읽을 수 있는 텍스트일 때만 차단한다.
func containsSuspiciousBase64(input string) bool {
	n := len(input)
	i := 0

	for i < n {
		if !isBase64Char(input[i]) {
			i++
			continue
		}

		start := i
		for i < n && isBase64Char(input[i]) {
			i++
		}

		paddingCount := 0
		for i < n && input[i] == '=' && paddingCount < 2 {
			i++
			paddingCount++
		}

		// 20자 미만 시퀀스는 일반 단어와 구분되지 않는다
		if i-start < 20 {
			continue
		}

		decodedBytes, err := tryDecodeBase64(input[start:i])
		if err != nil {
			continue
		}

		if isReadableText(decodedBytes) {
			return true
		}
	}

	return false
}

// tryDecodeBase64: URL-Safe 문자 치환 및 패딩 보정 후 디코딩합니다.
func tryDecodeBase64(s string) ([]byte, error) {
	n := len(s)
	if n == 0 {
		return nil, fmt.Errorf("base64 decode: empty input")
	}

	padNeeded := (4 - n%4) % 4
	buf := make([]byte, n+padNeeded)

	for i := 0; i < n; i++ {
		switch s[i] {
		case '-':
			buf[i] = '+'
		case '_':
			buf[i] = '/'
		default:
			buf[i] = s[i]
		}
	}
	for i := 0; i < padNeeded; i++ {
		buf[n+i] = '='
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(buf)))
	written, err := base64.StdEncoding.Decode(decoded, buf)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	return decoded[:written], nil
}

// isReadableText: 바이트 배열이 사람이 읽을 수 있는 텍스트인지 판별합니다.
// UTF-8 유효성 검사와 출력 가능 문자 비율 검사를 단일 루프로 수행한다.
func isReadableText(data []byte) bool {
	n := len(data)
	if n == 0 {
		return false
	}

	printableCount := 0
	totalChars := 0
	i := 0

	for i < n {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return false
		}
		i += size
		totalChars++

		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printableCount++
		}
	}

	// 전체 문자의 90% 이상이 읽을 수 있으면 의도된 텍스트로 판단
	return totalChars > 0 && printableCount*100 > totalChars*90
}

// normalizeText: homoglyph skeleton + NFKC 정규화 후 제어 문자를 제거합니다.
// NFC 선행 정규화로 분해형 입력 우회를 막는다.
func normalizeText(text string) string {
	if isASCIIOnly(text) {
		return stripControlChars(text)
	}

	nfcText := norm.NFC.String(text)
	skeleton := confusables.Skeleton(nfcText)
	return stripControlChars(norm.NFKC.String(skeleton))
}

// stripControlChars: 서식/제어 문자를 제거합니다.
func stripControlChars(text string) string {
	hasControl := false
	for _, r := range text {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r) {
			hasControl = true
			break
		}
	}
	if !hasControl {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r) {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// containsEmoji: 입력 문자열에 이모지가 포함되어 있는지 확인합니다.
func containsEmoji(text string) bool {
	return gomoji.ContainsEmoji(text)
}
