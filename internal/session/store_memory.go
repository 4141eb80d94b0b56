package session

import (
	"strings"
	"time"

	"github.com/ecosync/bill-server-go/internal/llm"
)

// replaceSessionMemory 메모리 백엔드 세션 덮어쓰기
func (s *Store) replaceSessionMemory(meta Meta, seed llm.HistoryEntry) error {
	now := time.Now()
	expiresAt := s.computeExpiry(now)

	s.mu.Lock()
	s.pruneExpiredLocked(now)
	s.meta[meta.UserID] = meta
	s.history[meta.UserID] = []llm.HistoryEntry{seed}
	if !expiresAt.IsZero() {
		s.metaExpiresAt[meta.UserID] = expiresAt
		s.historyExpireAt[meta.UserID] = expiresAt
	} else {
		delete(s.metaExpiresAt, meta.UserID)
		delete(s.historyExpireAt, meta.UserID)
	}
	s.mu.Unlock()
	return nil
}

// getSessionMemory 메모리 백엔드 세션 메타데이터 조회
func (s *Store) getSessionMemory(userID string) (*Meta, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	expiresAt, ok := s.metaExpiresAt[userID]
	if ok && !expiresAt.IsZero() && now.After(expiresAt) {
		delete(s.metaExpiresAt, userID)
		delete(s.meta, userID)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	meta, ok := s.meta[userID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	s.mu.Unlock()

	copied := meta
	return &copied, nil
}

// updateSessionMemory 메모리 백엔드 세션 메타데이터 업데이트
func (s *Store) updateSessionMemory(meta Meta) error {
	now := time.Now()
	meta.UpdatedAt = now
	expiresAt := s.computeExpiry(now)

	s.mu.Lock()
	s.pruneExpiredLocked(now)
	s.meta[meta.UserID] = meta
	if !expiresAt.IsZero() {
		s.metaExpiresAt[meta.UserID] = expiresAt
	} else {
		delete(s.metaExpiresAt, meta.UserID)
	}
	s.mu.Unlock()
	return nil
}

// deleteSessionMemory 메모리 백엔드 세션 삭제
func (s *Store) deleteSessionMemory(userID string) error {
	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	delete(s.meta, userID)
	delete(s.history, userID)
	delete(s.metaExpiresAt, userID)
	delete(s.historyExpireAt, userID)
	s.mu.Unlock()
	return nil
}

// getHistoryMemory 메모리 백엔드 히스토리 조회
func (s *Store) getHistoryMemory(userID string) []llm.HistoryEntry {
	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	expiresAt, ok := s.historyExpireAt[userID]
	if ok && !expiresAt.IsZero() && now.After(expiresAt) {
		delete(s.historyExpireAt, userID)
		delete(s.history, userID)
		s.mu.Unlock()
		return nil
	}

	history := s.history[userID]
	if len(history) == 0 {
		s.mu.Unlock()
		return nil
	}
	copied := append([]llm.HistoryEntry(nil), history...)
	s.mu.Unlock()
	return copied
}

// appendHistoryMemory 메모리 백엔드 히스토리 추가
func (s *Store) appendHistoryMemory(userID string, entries ...llm.HistoryEntry) error {
	now := time.Now()
	expiresAt := s.computeExpiry(now)

	s.mu.Lock()
	s.pruneExpiredLocked(now)
	existing := s.history[userID]
	existing = append(existing, entries...)

	// 시드 턴(history[0])은 고정하고 그 뒤 대화 턴만 최근 2*maxPairs개로 자른다
	maxPairs := 0
	if s.cfg != nil {
		maxPairs = s.cfg.Session.HistoryMaxPairs
	}
	if maxPairs > 0 {
		maxTurns := maxPairs * 2
		if len(existing) > maxTurns+1 {
			trimmed := make([]llm.HistoryEntry, 0, maxTurns+1)
			trimmed = append(trimmed, existing[0])
			trimmed = append(trimmed, existing[len(existing)-maxTurns:]...)
			existing = trimmed
		}
	}

	s.history[userID] = existing
	if !expiresAt.IsZero() {
		s.historyExpireAt[userID] = expiresAt
	} else {
		delete(s.historyExpireAt, userID)
	}
	s.mu.Unlock()
	return nil
}

// sessionCountMemory 메모리 백엔드 세션 수 조회
func (s *Store) sessionCountMemory() int {
	now := time.Now()
	s.mu.Lock()
	s.pruneExpiredLocked(now)
	count := len(s.meta)
	s.mu.Unlock()
	return count
}

// computeExpiry TTL 기반 만료 시간 계산
func (s *Store) computeExpiry(now time.Time) time.Time {
	ttl := time.Duration(0)
	if s != nil {
		ttl = s.ttl()
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// pruneExpiredLocked 만료된 세션 정리 (락 보유 상태에서 호출)
func (s *Store) pruneExpiredLocked(now time.Time) {
	for userID, expiresAt := range s.metaExpiresAt {
		if expiresAt.IsZero() || now.Before(expiresAt) {
			continue
		}
		delete(s.metaExpiresAt, userID)
		delete(s.meta, userID)
	}

	for userID, expiresAt := range s.historyExpireAt {
		if expiresAt.IsZero() || now.Before(expiresAt) {
			continue
		}
		delete(s.historyExpireAt, userID)
		delete(s.history, userID)
	}
}
