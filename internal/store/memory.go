package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and dry-run tooling. It mirrors
// the Postgres implementation's semantics: email/code/tag natural keys,
// registered-at preservation, and transactional InTx via snapshot/restore.
type Memory struct {
	mu          sync.Mutex
	inTx        bool
	nextID      int64
	subscribers map[int64]*Subscriber
	printers    map[int64]*PrinterProfile
	caps        map[int64]*Capability // keyed by subscriber ID
	nodes       map[int64]*Node
	blocks      map[int64]*Block
	mapBlocks   map[int64]*MapBlock
	now         func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextID:      1,
		subscribers: make(map[int64]*Subscriber),
		printers:    make(map[int64]*PrinterProfile),
		caps:        make(map[int64]*Capability),
		nodes:       make(map[int64]*Node),
		blocks:      make(map[int64]*Block),
		mapBlocks:   make(map[int64]*MapBlock),
		now:         time.Now,
	}
}

func (m *Memory) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

type memSnapshot struct {
	nextID      int64
	subscribers map[int64]*Subscriber
	printers    map[int64]*PrinterProfile
	caps        map[int64]*Capability
	nodes       map[int64]*Node
	blocks      map[int64]*Block
	mapBlocks   map[int64]*MapBlock
}

func cloneMap[V any](src map[int64]*V) map[int64]*V {
	dst := make(map[int64]*V, len(src))
	for k, v := range src {
		cp := *v
		dst[k] = &cp
	}
	return dst
}

func (m *Memory) snapshot() memSnapshot {
	return memSnapshot{
		nextID:      m.nextID,
		subscribers: cloneMap(m.subscribers),
		printers:    cloneMap(m.printers),
		caps:        cloneMap(m.caps),
		nodes:       cloneMap(m.nodes),
		blocks:      cloneMap(m.blocks),
		mapBlocks:   cloneMap(m.mapBlocks),
	}
}

func (m *Memory) restore(s memSnapshot) {
	m.nextID = s.nextID
	m.subscribers = s.subscribers
	m.printers = s.printers
	m.caps = s.caps
	m.nodes = s.nodes
	m.blocks = s.blocks
	m.mapBlocks = s.mapBlocks
}

// InTx takes a snapshot and restores it when fn fails. Nested calls join the
// outer transaction, matching the Postgres implementation.
func (m *Memory) InTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	if m.inTx {
		m.mu.Unlock()
		return fn(m)
	}
	m.inTx = true
	snap := m.snapshot()
	m.mu.Unlock()

	err := fn(m)

	m.mu.Lock()
	if err != nil {
		m.restore(snap)
	}
	m.inTx = false
	m.mu.Unlock()
	return err
}

// Subscribers

func (m *Memory) GetSubscriber(_ context.Context, id int64) (*Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) GetSubscriberByEmail(_ context.Context, email string) (*Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if strings.EqualFold(s.Email, email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListSubscribers(_ context.Context, f SubscriberFilter) ([]Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Subscriber
	for _, s := range m.subscribers {
		if f.Kind != "" && s.Kind != f.Kind {
			continue
		}
		if f.Email != "" && !strings.EqualFold(s.Email, f.Email) {
			continue
		}
		if f.NameContains != "" {
			needle := strings.ToLower(f.NameContains)
			hay := strings.ToLower(s.Name + " " + s.Surname + " " + s.InstitutionName)
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		if f.HasBlocksOnly && !m.subscriberHasBlocks(s.ID) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) subscriberHasBlocks(id int64) bool {
	for _, b := range m.blocks {
		if b.SubscriberID != nil && *b.SubscriberID == id {
			return true
		}
	}
	return false
}

func (m *Memory) UpsertSubscriber(_ context.Context, s *Subscriber) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.subscribers {
		if strings.EqualFold(existing.Email, s.Email) {
			s.ID = existing.ID
			s.RegisteredAt = existing.RegisteredAt
			cp := *s
			m.subscribers[existing.ID] = &cp
			return false, nil
		}
	}

	s.ID = m.id()
	if s.RegisteredAt.IsZero() {
		s.RegisteredAt = m.now()
	}
	cp := *s
	m.subscribers[s.ID] = &cp
	return true, nil
}

func (m *Memory) DeleteSubscriber(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscribers[id]; !ok {
		return ErrNotFound
	}
	delete(m.subscribers, id)
	delete(m.caps, id)
	// Cascade the way the schema does.
	for nid, n := range m.nodes {
		if n.SubscriberID == id {
			delete(m.nodes, nid)
		}
	}
	for _, b := range m.blocks {
		if b.SubscriberID != nil && *b.SubscriberID == id {
			delete(m.blocks, b.ID)
		}
	}
	return nil
}

// Printer capability

func (m *Memory) CreatePrinterProfile(_ context.Context, p *PrinterProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	cp := *p
	m.printers[p.ID] = &cp
	return nil
}

func (m *Memory) UpdatePrinterProfile(_ context.Context, p *PrinterProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.printers[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.printers[p.ID] = &cp
	return nil
}

func (m *Memory) GetCapability(_ context.Context, subscriberID int64) (*Capability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caps[subscriberID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) UpsertCapability(_ context.Context, c *Capability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.caps[c.SubscriberID]; ok {
		c.ID = existing.ID
	} else {
		c.ID = m.id()
	}
	cp := *c
	m.caps[c.SubscriberID] = &cp
	return nil
}

// Nodes

func (m *Memory) GetNode(_ context.Context, id int64) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *Memory) ListNodes(_ context.Context) ([]Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Node
	for _, n := range m.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) FirstNodeForSubscriber(_ context.Context, subscriberID int64) (*Node, error) {
	nodes, _ := m.ListNodes(context.Background())
	for _, n := range nodes {
		if n.SubscriberID == subscriberID {
			return &n, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpsertNode(_ context.Context, n *Node) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.nodes {
		if existing.SubscriberID == n.SubscriberID && existing.BlockNumber == n.BlockNumber {
			n.ID = existing.ID
			cp := *n
			m.nodes[n.ID] = &cp
			return false, nil
		}
	}
	n.ID = m.id()
	cp := *n
	m.nodes[n.ID] = &cp
	return true, nil
}

func (m *Memory) DeleteNode(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[id]; !ok {
		return ErrNotFound
	}
	delete(m.nodes, id)
	for _, b := range m.blocks {
		if b.NodeID != nil && *b.NodeID == id {
			b.NodeID = nil
		}
	}
	return nil
}

// Blocks

func (m *Memory) GetBlock(_ context.Context, id int64) (*Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) GetBlockByCode(_ context.Context, code string) (*Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		if b.Code == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) listBlocks(match func(*Block) bool) []Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Block
	for _, b := range m.blocks {
		if match(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (m *Memory) ListBlocks(_ context.Context) ([]Block, error) {
	return m.listBlocks(func(*Block) bool { return true }), nil
}

func (m *Memory) ListBlocksForSubscriber(_ context.Context, subscriberID int64) ([]Block, error) {
	return m.listBlocks(func(b *Block) bool {
		return b.SubscriberID != nil && *b.SubscriberID == subscriberID
	}), nil
}

func (m *Memory) AssignedBlocksWithoutSubscriber(_ context.Context) ([]Block, error) {
	return m.listBlocks(func(b *Block) bool {
		return b.State != StateFree && b.SubscriberID == nil
	}), nil
}

func (m *Memory) UpsertBlock(_ context.Context, b *Block) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.DeriveSection()
	if b.State == "" {
		b.State = StateFree
	}

	for _, existing := range m.blocks {
		if existing.Code == b.Code {
			b.ID = existing.ID
			cp := *b
			m.blocks[b.ID] = &cp
			return false, nil
		}
	}
	b.ID = m.id()
	cp := *b
	m.blocks[b.ID] = &cp
	return true, nil
}

func (m *Memory) DeleteBlock(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[id]; !ok {
		return ErrNotFound
	}
	delete(m.blocks, id)
	return nil
}

func (m *Memory) ResetAllBlocks(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		b.Reset()
	}
	return int64(len(m.blocks)), nil
}

// Map blocks

func (m *Memory) GetMapBlock(_ context.Context, id int64) (*MapBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.mapBlocks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *mb
	return &cp, nil
}

func (m *Memory) ListMapBlocks(_ context.Context) ([]MapBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MapBlock
	for _, mb := range m.mapBlocks {
		out = append(out, *mb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) UpsertMapBlock(_ context.Context, mb *MapBlock) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.mapBlocks {
		if existing.Code == mb.Code {
			mb.ID = existing.ID
			cp := *mb
			m.mapBlocks[mb.ID] = &cp
			return false, nil
		}
	}
	mb.ID = m.id()
	cp := *mb
	m.mapBlocks[mb.ID] = &cp
	return true, nil
}

func (m *Memory) DeleteMapBlock(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.mapBlocks[id]; !ok {
		return ErrNotFound
	}
	delete(m.mapBlocks, id)
	return nil
}

func (m *Memory) ListParticipants(ctx context.Context, f SubscriberFilter) ([]Participant, error) {
	subs, err := m.ListSubscribers(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]Participant, 0, len(subs))
	for _, s := range subs {
		blocks, _ := m.ListBlocksForSubscriber(ctx, s.ID)
		out = append(out, Participant{Subscriber: s, Blocks: blocks})
	}
	return out, nil
}
