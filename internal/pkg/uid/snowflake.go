package uid

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

// ErrNodeOutOfRange is returned when the node id does not fit in 10 bits.
var ErrNodeOutOfRange = errors.New("uid: snowflake node must be between 0 and 1023")

// Snowflake generates time-ordered int64 ids for a single node.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a generator bound to the given node id.
func NewSnowflake(node int64) (*Snowflake, error) {
	if node < 0 || node > 1023 {
		return nil, ErrNodeOutOfRange
	}

	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: n}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
