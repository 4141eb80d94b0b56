package bill

import (
	"errors"

	"github.com/ecosync/bill-server-go/internal/llm"
)

// ErrEmptyDocument 는 문서 본문이 비어 있을 때 반환된다.
var ErrEmptyDocument = errors.New("empty bill document")

const defaultMIMEType = "application/octet-stream"

// Document 는 업로드된 전기 요금 고지서 원본이다.
type Document struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Validate 는 문서 본문이 존재하는지 확인합니다.
func (d Document) Validate() error {
	if len(d.Data) == 0 {
		return ErrEmptyDocument
	}
	return nil
}

// Attachment 는 LLM 요청에 첨부할 형태로 변환합니다.
func (d Document) Attachment() *llm.Attachment {
	mimeType := d.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}
	return &llm.Attachment{
		MIMEType: mimeType,
		Data:     d.Data,
		Filename: d.Filename,
	}
}
