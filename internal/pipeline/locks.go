package pipeline

import "sync"

// OwnerLocks hands out one exclusive slot per owner. Slots live in an arena
// and are recycled through a free list once released.
type OwnerLocks struct {
	mu    sync.Mutex
	slots []lockSlot
	index map[string]int
	free  []int
}

type lockSlot struct {
	owner string
	held  bool
}

// NewOwnerLocks constructs an empty lock table.
func NewOwnerLocks() *OwnerLocks {
	return &OwnerLocks{index: make(map[string]int)}
}

// TryLock acquires the owner's slot without blocking. The returned release
// func is safe to call more than once.
func (l *OwnerLocks) TryLock(owner string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if _, found := l.index[owner]; found {
		return nil, false
	}

	var i int
	if n := len(l.free); n > 0 {
		i = l.free[n-1]
		l.free = l.free[:n-1]
	} else {
		l.slots = append(l.slots, lockSlot{})
		i = len(l.slots) - 1
	}
	l.slots[i] = lockSlot{owner: owner, held: true}
	l.index[owner] = i

	var once sync.Once
	return func() {
		once.Do(func() { l.unlock(i) })
	}, true
}

func (l *OwnerLocks) unlock(i int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner := l.slots[i].owner
	l.slots[i] = lockSlot{}
	delete(l.index, owner)
	l.free = append(l.free, i)
}

// Held reports whether owner currently holds a slot.
func (l *OwnerLocks) Held(owner string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[owner]
	return ok && l.slots[i].held
}
