package arena

import "sync"

// Pool recycles arenas between steps so slabs are not reallocated every frame.
type Pool struct {
	pool sync.Pool
}

func NewPool() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() interface{} {
				return New(0, 0)
			},
		},
	}
}

func (p *Pool) Get() *Arena {
	return p.pool.Get().(*Arena)
}

func (p *Pool) Put(a *Arena) {
	if a == nil {
		return
	}
	a.Reset()
	p.pool.Put(a)
}
