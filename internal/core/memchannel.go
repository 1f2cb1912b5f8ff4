package core

import (
	"context"
	"sync"
)

// MemChannel is an in-process Channel used when both contexts share one
// process and by tests. It preserves the wire semantics of the NATS
// implementation: publishes to a type with no subscribers are silently
// dropped, and pings fail with ErrNotReady until a responder is attached.
type MemChannel struct {
	mu      sync.Mutex
	nextID  int
	syncs   map[int]func([]SlimAlarm)
	fires   map[int]func(SlimAlarm)
	actions map[int]func(string, SlimAlarm)
	readys  map[int]func()
	pings   map[int]func()
}

// NewMemChannel returns an empty in-process channel.
func NewMemChannel() *MemChannel {
	return &MemChannel{
		syncs:   make(map[int]func([]SlimAlarm)),
		fires:   make(map[int]func(SlimAlarm)),
		actions: make(map[int]func(string, SlimAlarm)),
		readys:  make(map[int]func()),
		pings:   make(map[int]func()),
	}
}

func (c *MemChannel) PublishSync(_ context.Context, alarms []SlimAlarm) error {
	for _, fn := range c.snapshotSyncs() {
		fn(alarms)
	}
	return nil
}

func (c *MemChannel) PublishFired(_ context.Context, alarm SlimAlarm) error {
	c.mu.Lock()
	fns := make([]func(SlimAlarm), 0, len(c.fires))
	for _, fn := range c.fires {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(alarm)
	}
	return nil
}

func (c *MemChannel) PublishAction(_ context.Context, action string, alarm SlimAlarm) error {
	c.mu.Lock()
	fns := make([]func(string, SlimAlarm), 0, len(c.actions))
	for _, fn := range c.actions {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(action, alarm)
	}
	return nil
}

func (c *MemChannel) PublishReady(_ context.Context) error {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.readys))
	for _, fn := range c.readys {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (c *MemChannel) SubscribeSync(fn func([]SlimAlarm)) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.syncs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.syncs, id)
		c.mu.Unlock()
	}, nil
}

func (c *MemChannel) SubscribeFired(fn func(SlimAlarm)) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.fires[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.fires, id)
		c.mu.Unlock()
	}, nil
}

func (c *MemChannel) SubscribeAction(fn func(string, SlimAlarm)) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.actions[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.actions, id)
		c.mu.Unlock()
	}, nil
}

func (c *MemChannel) SubscribeReady(fn func()) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.readys[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.readys, id)
		c.mu.Unlock()
	}, nil
}

func (c *MemChannel) Ping(_ context.Context) error {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.pings))
	for _, fn := range c.pings {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	if len(fns) == 0 {
		return ErrNotReady
	}
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (c *MemChannel) RespondPings(fn func()) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.pings[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.pings, id)
		c.mu.Unlock()
	}, nil
}

func (c *MemChannel) snapshotSyncs() []func([]SlimAlarm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fns := make([]func([]SlimAlarm), 0, len(c.syncs))
	for _, fn := range c.syncs {
		fns = append(fns, fn)
	}
	return fns
}

var _ Channel = (*MemChannel)(nil)
