package session

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/ecosync/bill-server-go/internal/llm"
)

// zstd 프레임 매직 넘버. 압축 항목과 구버전 평문 JSON 항목을 구분한다.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// 압축 임계값: 첨부 없는 짧은 턴은 압축 이득이 없다
const compressThreshold = 512

// 싱글톤 encoder/decoder - goroutine-safe 재사용
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	initOnce    sync.Once
	errInit     error
)

func initZstd() error {
	initOnce.Do(func() {
		var err error
		// SpeedDefault: 압축률/속도 균형 (Level 3)
		zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			errInit = fmt.Errorf("create zstd encoder: %w", err)
			return
		}
		zstdDecoder, err = zstd.NewReader(nil)
		if err != nil {
			errInit = fmt.Errorf("create zstd decoder: %w", err)
		}
	})
	return errInit
}

// encodeHistoryEntry 는 히스토리 항목을 직렬화하고, 크기가 크면 zstd 압축합니다.
// 시드 턴에는 고지서 원본이 실리므로 압축 효과가 크다.
func encodeHistoryEntry(entry llm.HistoryEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal history entry: %w", err)
	}
	if len(data) < compressThreshold {
		return data, nil
	}

	if err := initZstd(); err != nil {
		return nil, err
	}
	dst := make([]byte, 0, len(data))
	return zstdEncoder.EncodeAll(data, dst), nil
}

// decodeHistoryEntry 는 압축 여부를 매직 넘버로 판별해 복원합니다.
func decodeHistoryEntry(data []byte) (llm.HistoryEntry, error) {
	var entry llm.HistoryEntry

	if bytes.HasPrefix(data, zstdMagic) {
		if err := initZstd(); err != nil {
			return entry, err
		}
		decoded, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return entry, fmt.Errorf("zstd decompress: %w", err)
		}
		data = decoded
	}

	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, fmt.Errorf("unmarshal history entry: %w", err)
	}
	return entry, nil
}
