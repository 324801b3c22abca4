package services

import "sync"

// BountyLocker hands out one mutex per bounty id. Team formation and the
// expiry sweep for the same bounty run under it.
type BountyLocker struct {
	mapMutex sync.Mutex
	idMap    map[int]*sync.Mutex
}

func NewBountyLocker() *BountyLocker {
	return &BountyLocker{idMap: make(map[int]*sync.Mutex)}
}

func (l *BountyLocker) lockFor(id int) *sync.Mutex {
	l.mapMutex.Lock()
	defer l.mapMutex.Unlock()
	m, ok := l.idMap[id]
	if !ok {
		m = &sync.Mutex{}
		l.idMap[id] = m
	}
	return m
}

func (l *BountyLocker) WithLock(id int, f func() error) error {
	m := l.lockFor(id)
	m.Lock()
	defer m.Unlock()
	return f()
}
