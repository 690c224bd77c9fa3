// Package addressmapper builds a directory of devices observed on the bus,
// keyed by their 64-bit NAME, by watching ISO Address Claims and optionally
// requesting product/configuration info from newly seen devices. It is an
// application-level convenience on top of the addressmgr package, which only
// manages this node's own address.
package addressmapper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/halyard-n2k/n2k"
	"github.com/halyard-n2k/n2k/pgns"
)

const requestQueueSize = 20

// Node is one device the mapper has observed, identified by its NAME.
type Node struct {
	Source uint8

	NAME      uint64
	Name      n2k.Name
	ValidName bool

	ProductInfo      pgns.ProductInfo
	ValidProductInfo bool

	ConfigurationInfo      pgns.ConfigurationInfo
	ValidConfigurationInfo bool
}

// Nodes is a list of observed devices.
type Nodes []Node

// FrameWriter is the subset of a driver or supervisor command channel the
// mapper needs to send follow-up ISO Requests.
type FrameWriter interface {
	WriteMessage(ctx context.Context, msg n2k.RawMessage) error
}

// Mapper tracks devices seen on the bus from their ISO Address Claims.
type Mapper struct {
	mu sync.Mutex

	requests    chan n2k.RawMessage
	toggleWrite chan bool

	writeEnabled bool
	running      bool

	writer FrameWriter

	knownNodes   map[uint64]*Node
	address2node [255]*busSlot

	now func() time.Time
}

// New builds a Mapper that sends follow-up requests through writer.
func New(writer FrameWriter) *Mapper {
	return &Mapper{
		now:         time.Now,
		toggleWrite: make(chan bool),
		requests:    make(chan n2k.RawMessage, requestQueueSize),
		writer:      writer,

		knownNodes: make(map[uint64]*Node),
	}
}

// SetWriteEnabled turns follow-up requests (product info, configuration
// info) on or off. Disabled by default -- enabling it generates bus traffic
// for every newly seen device.
func (m *Mapper) SetWriteEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeEnabled = enabled
	if m.running {
		m.toggleWrite <- enabled
	}
}

// Run drains the follow-up request queue at a fixed rate until ctx is done.
// Process can be called concurrently with Run.
func (m *Mapper) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("addressmapper: already running")
	}
	m.running = true
	enabled := m.writeEnabled
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	buffer := newQueue[n2k.RawMessage](50)
	writeTimer := time.NewTicker(10 * time.Millisecond)
	defer writeTimer.Stop()
	if !enabled {
		writeTimer.Stop()
	}

	for {
		select {
		case enabled = <-m.toggleWrite:
			if enabled {
				writeTimer.Reset(10 * time.Millisecond)
			} else {
				writeTimer.Stop()
			}

		case msg, ok := <-m.requests:
			if !ok {
				return errors.New("addressmapper: request channel closed unexpectedly")
			}
			if enabled {
				buffer.Enqueue(msg)
			}

		case <-writeTimer.C:
			msg, ok := buffer.Dequeue()
			if !ok {
				continue
			}
			if err := m.writer.WriteMessage(ctx, msg); err != nil {
				fmt.Printf("# addressmapper: write failed for PGN %v: %v\n", msg.Header.PGN, err)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type busSlot struct {
	node    *Node
	claimed time.Time

	productInfoRequested time.Time
	configInfoRequested  time.Time
	pgnListRequested     time.Time
}

// BroadcastISOAddressClaimRequest asks every device on the bus to (re)send
// its ISO Address Claim, useful right after startup to learn who is already
// on the network.
func (m *Mapper) BroadcastISOAddressClaimRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests <- isoRequest(n2k.PGNISOAddressClaim, n2k.AddressNull, n2k.AddressGlobal)
}

// Process folds one reassembled message into the directory. It reports
// whether the mapping from source address to Node changed.
func (m *Mapper) Process(raw n2k.RawMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source := raw.Header.Source
	var slot *busSlot
	if source >= n2k.AddressNull {
		slot = new(busSlot)
	} else {
		slot = m.address2node[source]
		if slot == nil {
			slot = new(busSlot)
			m.address2node[source] = slot
		}
	}

	changed := false
	switch raw.Header.PGN {
	case n2k.PGNISOAddressClaim:
		isChanged, err := m.processISOAddressClaim(slot, raw)
		if err != nil {
			return false, err
		}
		changed = isChanged
	case n2k.PGNProductInfo:
		if err := m.processProductInfo(slot, raw); err != nil {
			return false, err
		}
	case n2k.PGNConfigurationInfo:
		if err := m.processConfigurationInfo(slot, raw); err != nil {
			return false, err
		}
	}
	return changed, nil
}

func (m *Mapper) processISOAddressClaim(slot *busSlot, raw n2k.RawMessage) (bool, error) {
	name, err := n2k.ParseName(raw.Data)
	if err != nil {
		return false, err
	}
	source := raw.Header.Source
	nameValue := name.Uint64()

	currentNode, ok := m.knownNodes[nameValue]
	if !ok {
		currentNode = &Node{Source: source, NAME: nameValue, Name: name, ValidName: true}
		m.knownNodes[nameValue] = currentNode
	}

	changed := false
	switch {
	case slot.node == nil:
		// Already-claimed network: treat the first claim we see for this
		// address as its current owner.
		currentNode.Source = source
		slot.node = currentNode
		slot.claimed = m.now()
		changed = true
	case slot.node.ValidName && currentNode.NAME < slot.node.NAME:
		slot.node.Source = n2k.AddressNull
		currentNode.Source = source
		slot.node = currentNode
		slot.claimed = m.now()
		changed = true
	}

	if m.writeEnabled && slot.productInfoRequested.IsZero() {
		slot.productInfoRequested = m.now()
		m.requests <- isoRequest(n2k.PGNProductInfo, n2k.AddressNull, source)
	}
	return changed, nil
}

func (m *Mapper) processProductInfo(slot *busSlot, raw n2k.RawMessage) error {
	if slot.node == nil || !slot.node.ValidName {
		return nil
	}
	info, err := pgns.DecodeProductInfo(raw.Data)
	if err != nil {
		return err
	}
	slot.node.ProductInfo = info
	slot.node.ValidProductInfo = true

	if m.writeEnabled && slot.configInfoRequested.IsZero() {
		slot.configInfoRequested = m.now()
		m.requests <- isoRequest(n2k.PGNConfigurationInfo, n2k.AddressNull, raw.Header.Source)
	}
	return nil
}

func (m *Mapper) processConfigurationInfo(slot *busSlot, raw n2k.RawMessage) error {
	if slot.node == nil || !slot.node.ValidName {
		return nil
	}
	info, err := pgns.DecodeConfigurationInfo(raw.Data)
	if err != nil {
		return err
	}
	slot.node.ConfigurationInfo = info
	slot.node.ValidConfigurationInfo = true

	if m.writeEnabled && slot.pgnListRequested.IsZero() {
		slot.pgnListRequested = m.now()
		m.requests <- isoRequest(n2k.PGNPGNList, n2k.AddressNull, raw.Header.Source)
	}
	return nil
}

// Nodes returns all known (current and previously seen) devices.
func (m *Mapper) Nodes() Nodes {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(Nodes, 0, len(m.knownNodes))
	for _, n := range m.knownNodes {
		result = append(result, *n)
	}
	return result
}

// NodesInUseBySource returns the devices currently holding a claimed
// address, keyed by that address.
func (m *Mapper) NodesInUseBySource() map[uint8]Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[uint8]Node)
	for _, n := range m.knownNodes {
		node := *n
		if node.Source >= n2k.AddressNull || !node.ValidName {
			continue
		}
		result[node.Source] = node
	}
	return result
}

func isoRequest(forPGN uint32, source, destination uint8) n2k.RawMessage {
	return n2k.RawMessage{
		Header: n2k.Header{
			PGN:         n2k.PGNISORequest,
			Priority:    6,
			Source:      source,
			Destination: destination,
		},
		Data: []byte{
			uint8(forPGN),
			uint8(forPGN >> 8),
			uint8(forPGN >> 16),
		},
	}
}

type queue[T any] struct {
	items    []T
	capacity int
}

func newQueue[T any](capacity int) *queue[T] {
	return &queue[T]{items: make([]T, 0, capacity), capacity: capacity}
}

func (q *queue[T]) Enqueue(item T) bool {
	if len(q.items) == q.capacity {
		return false
	}
	q.items = append(q.items, item)
	return true
}

func (q *queue[T]) Dequeue() (T, bool) {
	var empty T
	if len(q.items) == 0 {
		return empty, false
	}
	value := q.items[0]
	q.items[0] = empty
	q.items = q.items[1:]
	return value, true
}
