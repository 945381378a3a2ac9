package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string. Used for request
// correlation ids.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewSnowflakeNode builds a snowflake node using SNOWFLAKE_NODE from the
// environment, defaulting to node 1 when unset or malformed.
func NewSnowflakeNode() (*snowflake.Node, error) {
	nodeID := int64(1)
	if env := os.Getenv("SNOWFLAKE_NODE"); env != "" {
		if parsed, err := strconv.ParseInt(env, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	return snowflake.NewNode(nodeID)
}
