package pool

// Resettable is a constraint for types that have a Reset() method.
type Resettable interface {
	Reset()
}

// Poolable is a constraint for types that can be pooled (must be resettable and comparable).
type Poolable interface {
	Resettable
	comparable
}

// Pool is a bounded free list of reusable objects of type T.
type Pool[T Poolable] struct {
	items chan T
	newFn func() T
}

// New creates a Pool holding at most capacity idle objects. newFn builds
// an object whenever the pool is empty.
func New[T Poolable](capacity int, newFn func() T) *Pool[T] {
	return &Pool[T]{
		items: make(chan T, capacity),
		newFn: newFn,
	}
}

// Get returns an idle object or a freshly built one.
func (p *Pool[T]) Get() T {
	select {
	case item := <-p.items:
		return item
	default:
		return p.newFn()
	}
}

// Put resets item and keeps it for reuse. Zero values are dropped, and so
// is item when the pool is full.
func (p *Pool[T]) Put(item T) {
	var zero T
	if item == zero {
		return
	}
	item.Reset()

	select {
	case p.items <- item:
	default:
	}
}

// Idle returns the number of objects waiting for reuse.
func (p *Pool[T]) Idle() int {
	return len(p.items)
}
