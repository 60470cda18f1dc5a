package config

import (
	"fmt"

	"dario.cat/mergo"

	"alpaca/internal/client"
)

// MergeConnections combines connection layers ordered from highest to lowest
// precedence. A field set in an earlier layer is never overwritten; empty
// fields are filled from later layers. TLSVerify is compared as a pointer,
// so an explicit false survives the merge.
func MergeConnections(layers ...client.Connection) (client.Connection, error) {
	var merged client.Connection
	for i, layer := range layers {
		if err := mergo.Merge(&merged, layer, mergo.WithoutDereference); err != nil {
			return client.Connection{}, fmt.Errorf("failed to merge connection layer %d: %w", i, err)
		}
	}
	return merged, nil
}
