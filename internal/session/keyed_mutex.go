package session

import "sync"

// keyedMutex 는 사용자 ID 단위 상호 배제를 제공한다.
// 같은 사용자의 세션 시작/응답이 겹치면 히스토리가 꼬이므로 직렬화한다.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*userLock)}
}

// Lock 은 키에 대한 잠금을 획득하고 해제 함수를 반환한다.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &userLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()
		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
