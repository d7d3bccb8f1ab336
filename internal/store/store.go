package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence surface shared by the import engine, the
// diagnostics commands and the HTTP handlers. Implementations must make
// InTx atomic: either every write inside fn is visible or none is.
type Store interface {
	// InTx runs fn against a transactional view of the store. Returning an
	// error rolls back. Nested calls join the enclosing transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	// Subscribers. Upsert keys on email and preserves RegisteredAt on update.
	GetSubscriber(ctx context.Context, id int64) (*Subscriber, error)
	GetSubscriberByEmail(ctx context.Context, email string) (*Subscriber, error)
	ListSubscribers(ctx context.Context, f SubscriberFilter) ([]Subscriber, error)
	UpsertSubscriber(ctx context.Context, s *Subscriber) (created bool, err error)
	DeleteSubscriber(ctx context.Context, id int64) error

	// Printer capability. Capability upserts key on subscriber: a subscriber
	// has exactly one variant, and importing a different variant replaces it.
	// Re-imports update the existing profile in place rather than minting a
	// new row per run.
	CreatePrinterProfile(ctx context.Context, p *PrinterProfile) error
	UpdatePrinterProfile(ctx context.Context, p *PrinterProfile) error
	GetCapability(ctx context.Context, subscriberID int64) (*Capability, error)
	UpsertCapability(ctx context.Context, c *Capability) error

	// Receiving nodes. Upsert keys on (subscriber, block number).
	GetNode(ctx context.Context, id int64) (*Node, error)
	ListNodes(ctx context.Context) ([]Node, error)
	FirstNodeForSubscriber(ctx context.Context, subscriberID int64) (*Node, error)
	UpsertNode(ctx context.Context, n *Node) (created bool, err error)
	DeleteNode(ctx context.Context, id int64) error

	// Blocks. Upsert keys on the block code and re-derives section/number.
	GetBlock(ctx context.Context, id int64) (*Block, error)
	GetBlockByCode(ctx context.Context, code string) (*Block, error)
	ListBlocks(ctx context.Context) ([]Block, error)
	ListBlocksForSubscriber(ctx context.Context, subscriberID int64) ([]Block, error)
	// AssignedBlocksWithoutSubscriber finds blocks violating the free-state
	// invariant: state beyond free with no owner.
	AssignedBlocksWithoutSubscriber(ctx context.Context) ([]Block, error)
	UpsertBlock(ctx context.Context, b *Block) (created bool, err error)
	DeleteBlock(ctx context.Context, id int64) error
	// ResetAllBlocks forces every block to free, clearing owners, nodes and
	// all milestone timestamps. Used by full reconciliation runs.
	ResetAllBlocks(ctx context.Context) (int64, error)

	// Map-block catalog. Upsert keys on the full tag code.
	GetMapBlock(ctx context.Context, id int64) (*MapBlock, error)
	ListMapBlocks(ctx context.Context) ([]MapBlock, error)
	UpsertMapBlock(ctx context.Context, m *MapBlock) (created bool, err error)
	DeleteMapBlock(ctx context.Context, id int64) error

	// ListParticipants joins subscribers with their blocks.
	ListParticipants(ctx context.Context, f SubscriberFilter) ([]Participant, error)
}
