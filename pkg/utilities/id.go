package utilities

import (
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewRequestID returns a random UUID used to correlate a request with its api log row.
func NewRequestID() string {
	return uuid.NewString()
}

// IDGenerator hands out snowflake IDs from a single node. Numeric ids for
// users are drawn from here so they stay unique across restarts.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator builds a generator for the given snowflake node (0-1023).
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &IDGenerator{node: node}, nil
}

// NextNumericID returns the next snowflake id as a decimal string.
// A nil generator falls back to node 1, and to a KSUID if that node cannot be built.
func (g *IDGenerator) NextNumericID() string {
	if g == nil || g.node == nil {
		fallback, err := NewIDGenerator(1)
		if err != nil {
			return NewKSUID()
		}
		return fallback.node.Generate().String()
	}
	return g.node.Generate().String()
}
