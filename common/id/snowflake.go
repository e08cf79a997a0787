package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Calling it more than once keeps the first node.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new time-ordered int64 ID.
// The node defaults to 1 when Init was never called.
func New() int64 {
	once.Do(func() {
		node, _ = snowflake.NewNode(1)
	})
	return node.Generate().Int64()
}

// NewString returns New formatted as a decimal string, the form notes are keyed by.
func NewString() string {
	return strconv.FormatInt(New(), 10)
}
