package llm

// Attachment: 대화 턴에 첨부된 바이너리 문서입니다 (업로드된 고지서 원본).
type Attachment struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
	Filename string `json:"filename,omitempty"`
}

// HistoryEntry: 대화 히스토리 항목입니다.
// 시드 턴에는 고지서 첨부가 함께 실릴 수 있다.
type HistoryEntry struct {
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Usage: 토큰 사용량 정보를 담습니다.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	TotalTokens     int `json:"total_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
}

// ChatResult: LLM 응답과 사용량을 담습니다.
type ChatResult struct {
	Text         string
	Usage        Usage
	Reasoning    string
	HasReasoning bool
}
