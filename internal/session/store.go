package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/llm"
)

var (
	// ErrSessionNotFound 는 세션 미존재 오류다.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreDisabled 는 저장소 비활성 오류다.
	ErrStoreDisabled = errors.New("session store disabled")
)

type storeBackend int

const (
	storeBackendMemory storeBackend = iota
	storeBackendValkey
)

// Meta 는 사용자별 채팅 세션 메타데이터다.
// 세션은 user_id 당 최대 1개이며, 새 고지서 업로드가 기존 세션을 덮어쓴다.
type Meta struct {
	UserID       string    `json:"user_id"`
	Mode         string    `json:"mode"`
	UsageKWH     float64   `json:"usage_kwh,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store 는 Valkey 기반 세션 저장소다.
// Valkey 가 비활성이면 메모리 백엔드로 동작한다.
type Store struct {
	client  valkey.Client
	cfg     *config.Config
	enabled bool
	backend storeBackend

	mu              sync.RWMutex
	meta            map[string]Meta
	history         map[string][]llm.HistoryEntry
	metaExpiresAt   map[string]time.Time
	historyExpireAt map[string]time.Time
}

// NewStore 는 세션 저장소를 생성한다.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if !cfg.SessionStore.Enabled {
		if cfg.SessionStore.Required {
			return nil, errors.New("session store required but disabled")
		}
		return newMemoryStore(cfg), nil
	}

	conn, err := parseStoreURL(cfg.SessionStore.URL)
	if err != nil {
		return nil, fmt.Errorf("parse session store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse session store addr: %w", splitErr)
		}
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		TLSConfig:    tlsConfig,
		Username:     conn.username,
		Password:     conn.password,
		InitAddress:  []string{conn.addr},
		SelectDB:     conn.selectDB,
		DisableCache: cfg.SessionStore.DisableCache,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	return &Store{
		client:  client,
		cfg:     cfg,
		enabled: true,
		backend: storeBackendValkey,
	}, nil
}

func newMemoryStore(cfg *config.Config) *Store {
	return &Store{
		cfg:             cfg,
		enabled:         true,
		backend:         storeBackendMemory,
		meta:            make(map[string]Meta),
		history:         make(map[string][]llm.HistoryEntry),
		metaExpiresAt:   make(map[string]time.Time),
		historyExpireAt: make(map[string]time.Time),
	}
}

// IsEnabled 는 저장소 활성화 여부를 반환한다.
func (s *Store) IsEnabled() bool {
	return s.enabled
}

// Close 는 Valkey 연결을 종료한다.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.backend == storeBackendValkey && s.client != nil {
		s.client.Close()
	}
}

// metaKey 사용자 세션 메타데이터 키
func (s *Store) metaKey(userID string) string {
	return fmt.Sprintf("chat:%s:meta", userID)
}

// historyKey 사용자 세션 히스토리 키
// 히스토리 리스트에는 시드 이후 대화 턴만 쌓인다.
func (s *Store) historyKey(userID string) string {
	return fmt.Sprintf("chat:%s:history", userID)
}

// seedKey 사용자 세션 시드 턴 키
// 시드 턴(고지서 맥락 + 첨부)은 별도 키에 두어 히스토리 트림으로 밀려나지 않는다.
func (s *Store) seedKey(userID string) string {
	return fmt.Sprintf("chat:%s:seed", userID)
}

// ttl 세션 TTL
func (s *Store) ttl() time.Duration {
	return time.Duration(s.cfg.Session.SessionTTLMinutes) * time.Minute
}

// ReplaceSession 은 세션을 생성하거나 기존 세션을 통째로 덮어쓴다.
// 기존 히스토리는 삭제되고 시드 턴 하나로 시작한다.
// DoMulti로 배치 처리하여 단일 RTT로 수행한다.
func (s *Store) ReplaceSession(ctx context.Context, meta Meta, seed llm.HistoryEntry) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.replaceSessionMemory(meta, seed)
	}

	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}
	seedData, err := encodeHistoryEntry(seed)
	if err != nil {
		return fmt.Errorf("encode seed entry: %w", err)
	}

	metaKey := s.metaKey(meta.UserID)
	historyKey := s.historyKey(meta.UserID)

	cmds := []valkey.Completed{
		s.client.B().Del().Key(historyKey).Build(),
		s.client.B().Set().Key(metaKey).Value(string(metaData)).Ex(s.ttl()).Build(),
		s.client.B().Set().Key(s.seedKey(meta.UserID)).Value(string(seedData)).Ex(s.ttl()).Build(),
	}

	results := s.client.DoMulti(ctx, cmds...)
	for _, result := range results {
		if err := result.Error(); err != nil && !valkey.IsValkeyNil(err) {
			return fmt.Errorf("replace session: %w", err)
		}
	}
	return nil
}

// GetSession 세션 메타데이터 조회
func (s *Store) GetSession(ctx context.Context, userID string) (*Meta, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.getSessionMemory(userID)
	}

	cmd := s.client.B().Get().Key(s.metaKey(userID)).Build()
	result, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var m Meta
	if err := json.Unmarshal([]byte(result), &m); err != nil {
		return nil, fmt.Errorf("unmarshal session meta: %w", err)
	}

	return &m, nil
}

// UpdateSession 세션 메타데이터 업데이트
func (s *Store) UpdateSession(ctx context.Context, meta Meta) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.updateSessionMemory(meta)
	}

	meta.UpdatedAt = time.Now()
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}

	cmd := s.client.B().Set().Key(s.metaKey(meta.UserID)).Value(string(data)).Ex(s.ttl()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	return nil
}

// DeleteSession 세션 삭제
// DoMulti로 배치 처리하여 2 RTT → 1 RTT로 최적화
func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.deleteSessionMemory(userID)
	}

	cmds := []valkey.Completed{
		s.client.B().Del().Key(s.metaKey(userID)).Build(),
		s.client.B().Del().Key(s.historyKey(userID)).Build(),
		s.client.B().Del().Key(s.seedKey(userID)).Build(),
	}

	results := s.client.DoMulti(ctx, cmds...)
	for _, result := range results {
		if err := result.Error(); err != nil && !valkey.IsValkeyNil(err) {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

// GetHistory 세션 히스토리 조회 (시드 턴 + 대화 턴)
// DoMulti로 시드와 리스트를 단일 RTT로 가져온다.
func (s *Store) GetHistory(ctx context.Context, userID string) ([]llm.HistoryEntry, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.getHistoryMemory(userID), nil
	}

	seedCmd := s.client.B().Get().Key(s.seedKey(userID)).Build()
	listCmd := s.client.B().Lrange().Key(s.historyKey(userID)).Start(0).Stop(-1).Build()
	results := s.client.DoMulti(ctx, seedCmd, listCmd)

	items, err := results[1].AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	history := make([]llm.HistoryEntry, 0, len(items)+1)
	if seedRaw, seedErr := results[0].ToString(); seedErr == nil {
		if seed, decodeErr := decodeHistoryEntry([]byte(seedRaw)); decodeErr == nil {
			history = append(history, seed)
		}
	} else if !valkey.IsValkeyNil(seedErr) {
		return nil, fmt.Errorf("get history seed: %w", seedErr)
	}

	for _, item := range items {
		entry, err := decodeHistoryEntry([]byte(item))
		if err != nil {
			continue // skip invalid entries
		}
		history = append(history, entry)
	}

	return history, nil
}

// AppendHistory 히스토리에 메시지 추가
// DoMulti로 배치 처리하여 N+2 RTT → 1 RTT로 최적화
func (s *Store) AppendHistory(ctx context.Context, userID string, entries ...llm.HistoryEntry) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if len(entries) == 0 {
		return nil
	}
	if s.backend == storeBackendMemory {
		return s.appendHistoryMemory(userID, entries...)
	}

	historyKey := s.historyKey(userID)

	elements := make([]string, 0, len(entries))
	for _, entry := range entries {
		data, err := encodeHistoryEntry(entry)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
		elements = append(elements, string(data))
	}

	ttlSeconds := int64(s.ttl().Seconds())
	cmds := make([]valkey.Completed, 0, 4)
	cmds = append(cmds, s.client.B().Rpush().Key(historyKey).Element(elements...).Build())
	cmds = append(cmds, s.client.B().Expire().Key(historyKey).Seconds(ttlSeconds).Build())
	cmds = append(cmds, s.client.B().Expire().Key(s.seedKey(userID)).Seconds(ttlSeconds).Build())

	// 히스토리 크기 제한: 최근 2*maxPairs 턴만 유지한다
	// 시드 턴은 별도 키에 있으므로 트림으로 밀려나지 않는다
	maxPairs := s.cfg.Session.HistoryMaxPairs
	if maxPairs > 0 {
		keep := int64(maxPairs * 2)
		cmds = append(cmds, s.client.B().Ltrim().Key(historyKey).Start(-keep).Stop(-1).Build())
	}

	results := s.client.DoMulti(ctx, cmds...)
	if err := results[0].Error(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return nil
}

// SessionCount 현재 세션 수 (근사치)
// SCAN 기반으로 구현하여 O(N) 블로킹 KEYS 명령 대신 논블로킹 처리
func (s *Store) SessionCount(ctx context.Context) (int, error) {
	if !s.enabled {
		return 0, nil
	}
	if s.backend == storeBackendMemory {
		return s.sessionCountMemory(), nil
	}

	var count int
	var cursor uint64
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match("chat:*:meta").Count(100).Build()
		result, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		count += len(result.Elements)
		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// Ping Valkey 연결 확인
func (s *Store) Ping(ctx context.Context) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return nil
	}

	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}
