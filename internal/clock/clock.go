package clock

import (
	"sync"
	"time"
)

// Clock 时间源接口，生产环境使用Real，测试使用Fake
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real 返回系统时钟
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

// Fake 可手动控制的时钟
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake 创建固定在t时刻的时钟
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set 将时钟拨到t
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance 时钟前进d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
