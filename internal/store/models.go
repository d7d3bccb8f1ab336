// Package store owns the relational model of the backoffice: subscribers,
// printer capability records, receiving nodes, blocks and the map-block
// narrative catalog. It exposes a Store interface consumed by the import
// engine and the HTTP layer, with a pgx-backed implementation for Postgres
// and an in-memory implementation for tests.
package store

import (
	"strings"
	"time"
)

// Kind distinguishes person subscribers from institutions.
type Kind string

const (
	KindIndividual  Kind = "individual"
	KindInstitution Kind = "institution"
)

// BlockState is the lifecycle state of a block. States are strictly ordered;
// a block only moves backward through an explicit reset to StateFree.
type BlockState string

const (
	StateFree            BlockState = "free"
	StateAssigned        BlockState = "assigned"
	StatePhotoValidated  BlockState = "photo_validated"
	StateDeliveredToNode BlockState = "delivered_to_node"
	StateReceivedByOrg   BlockState = "received_by_org"
	StateDiplomaDone     BlockState = "diploma_delivered"
)

// stateRanks orders the lifecycle. Higher rank always wins during import.
var stateRanks = map[BlockState]int{
	StateFree:            0,
	StateAssigned:        1,
	StatePhotoValidated:  2,
	StateDeliveredToNode: 3,
	StateReceivedByOrg:   4,
	StateDiplomaDone:     5,
}

// Rank returns the position of the state in the lifecycle order.
// Unknown states rank as free.
func (s BlockState) Rank() int {
	return stateRanks[s]
}

// Valid reports whether the state is one of the known lifecycle states.
func (s BlockState) Valid() bool {
	_, ok := stateRanks[s]
	return ok
}

// AllStates lists the lifecycle in rank order.
func AllStates() []BlockState {
	return []BlockState{
		StateFree, StateAssigned, StatePhotoValidated,
		StateDeliveredToNode, StateReceivedByOrg, StateDiplomaDone,
	}
}

// Subscriber is a participating person or institution, keyed by email.
type Subscriber struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	Kind            Kind       `json:"kind"`
	Name            string     `json:"name,omitempty"`
	Surname         string     `json:"surname,omitempty"`
	InstitutionName string     `json:"institutionName,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Street          string     `json:"street,omitempty"`
	StreetNumber    string     `json:"streetNumber,omitempty"`
	Floor           string     `json:"floor,omitempty"`
	PostalCode      string     `json:"postalCode,omitempty"`
	City            string     `json:"city,omitempty"`
	Province        string     `json:"province,omitempty"`
	BirthDate       *time.Time `json:"birthDate,omitempty"`
	DocumentID      string     `json:"documentId,omitempty"`
	HeardFrom       string     `json:"heardFrom,omitempty"`
	Motivation      string     `json:"motivation,omitempty"`
	RegisteredAt    time.Time  `json:"registeredAt"`
	PhotoValidated  bool       `json:"photoValidated"`
	DiplomaGiven    bool       `json:"diplomaGiven"`
	Contacted       bool       `json:"contacted"`
}

// DisplayName renders the subscriber the way the admin UI lists it.
func (s *Subscriber) DisplayName() string {
	if s.InstitutionName != "" {
		return s.InstitutionName
	}
	return strings.TrimSpace(s.Name + " " + s.Surname)
}

// PrinterProfile describes 3D-printing capability reported on a form.
// Only subscribers who declare owning a printer get one.
type PrinterProfile struct {
	ID                int64  `json:"id"`
	YearsExperience   int    `json:"yearsExperience"`
	BrandsModels      string `json:"brandsModels,omitempty"`
	Materials         string `json:"materials,omitempty"`
	UnitCount         int    `json:"unitCount"`
	MaxPrintDimension string `json:"maxPrintDimension,omitempty"`
	Software          string `json:"software,omitempty"`
}

// CapabilityVariant is the closed set of printer-ownership variants.
type CapabilityVariant string

const (
	IndividualWithPrinter     CapabilityVariant = "individual_with_printer"
	IndividualWithoutPrinter  CapabilityVariant = "individual_without_printer"
	InstitutionWithPrinter    CapabilityVariant = "institution_with_printer"
	InstitutionWithoutPrinter CapabilityVariant = "institution_without_printer"
)

// Capability is the 1:1 ownership-variant extension of a subscriber.
// At most one row exists per subscriber; re-importing a subscriber under a
// different variant replaces the previous one.
type Capability struct {
	ID              int64             `json:"id"`
	SubscriberID    int64             `json:"subscriberId"`
	Variant         CapabilityVariant `json:"variant"`
	PrinterID       *int64            `json:"printerId,omitempty"`
	ResponsibleName string            `json:"responsibleName,omitempty"`
	ResponsibleDNI  string            `json:"responsibleDni,omitempty"`
}

// Node is a receiving-node nomination submitted by a subscriber. A
// subscriber may nominate several (one per block submission); the natural
// key is (subscriber, block number).
type Node struct {
	ID              int64  `json:"id"`
	SubscriberID    int64  `json:"subscriberId"`
	OrderNumber     int    `json:"orderNumber"`
	BlockNumber     string `json:"blockNumber"`
	ResponsibleName string `json:"responsibleName,omitempty"`
	Street          string `json:"street,omitempty"`
	StreetNumber    string `json:"streetNumber,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	Locality        string `json:"locality,omitempty"`
	Department      string `json:"department,omitempty"`
	Province        string `json:"province,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	SelectedNode    string `json:"selectedNode,omitempty"`
	NodeDetails     string `json:"nodeDetails,omitempty"`
}

// Block is the central reconciliation entity, keyed by its SECTION-NUMBER
// code (e.g. "05-01").
type Block struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	Section       string     `json:"section"`
	Number        string     `json:"number"`
	LotteryNumber string     `json:"lotteryNumber,omitempty"`
	SubscriberID  *int64     `json:"subscriberId,omitempty"`
	NodeID        *int64     `json:"nodeId,omitempty"`
	State         BlockState `json:"state"`
	AssignedAt    *time.Time `json:"assignedAt,omitempty"`
	ValidatedAt   *time.Time `json:"validatedAt,omitempty"`
	DeliveredAt   *time.Time `json:"deliveredAt,omitempty"`
	ReceivedAt    *time.Time `json:"receivedAt,omitempty"`
	DiplomaAt     *time.Time `json:"diplomaAt,omitempty"`
	History       string     `json:"history,omitempty"`
}

// DeriveSection recomputes Section and Number from the block code. Called on
// every write so the derived columns never drift from the code.
func (b *Block) DeriveSection() {
	parts := strings.SplitN(b.Code, "-", 2)
	if len(parts) == 2 {
		b.Section = strings.TrimSpace(parts[0])
		b.Number = strings.TrimSpace(parts[1])
	}
}

// milestone returns a pointer to the timestamp field for a given rank.
func (b *Block) milestone(rank int) **time.Time {
	switch rank {
	case StateAssigned.Rank():
		return &b.AssignedAt
	case StatePhotoValidated.Rank():
		return &b.ValidatedAt
	case StateDeliveredToNode.Rank():
		return &b.DeliveredAt
	case StateReceivedByOrg.Rank():
		return &b.ReceivedAt
	case StateDiplomaDone.Rank():
		return &b.DiplomaAt
	}
	return nil
}

// ApplyState advances the block to the given state, stamping every milestone
// at or below the new rank with now. Milestones that already carry a date
// are preserved: imports must never erase true historical dates. ApplyState
// never clears anything; only Reset moves a block backward.
func (b *Block) ApplyState(state BlockState, now time.Time) {
	b.State = state
	for rank := StateAssigned.Rank(); rank <= state.Rank(); rank++ {
		ts := b.milestone(rank)
		if *ts == nil {
			t := now
			*ts = &t
		}
	}
}

// Reset forces the block back to free: no owner, no node, no milestones.
// This is the only path that clears timestamps.
func (b *Block) Reset() {
	b.State = StateFree
	b.SubscriberID = nil
	b.NodeID = nil
	b.AssignedAt = nil
	b.ValidatedAt = nil
	b.DeliveredAt = nil
	b.ReceivedAt = nil
	b.DiplomaAt = nil
}

// MapBlock is a narrative catalog entry keyed by its full tag code
// (e.g. "M3D 05-01"). It relates to Block only by the shared SECTION-NUMBER
// code: the two originate from different spreadsheets and are reconciled
// independently, so there is deliberately no foreign key between them.
type MapBlock struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Section     string `json:"section"`
	Number      string `json:"number"`
	BlockNumber string `json:"blockNumber"`
	Description string `json:"description"`
	Tag         string `json:"tag,omitempty"`
	Coordinates string `json:"coordinates,omitempty"`
}

// Participant is the derived read-only view joining a subscriber with the
// blocks assigned to them.
type Participant struct {
	Subscriber Subscriber `json:"subscriber"`
	Blocks     []Block    `json:"blocks"`
}

// SubscriberFilter narrows participant/subscriber listings.
type SubscriberFilter struct {
	Kind          Kind
	Email         string
	NameContains  string
	HasBlocksOnly bool
}
