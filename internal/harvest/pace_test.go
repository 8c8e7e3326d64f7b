// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/scholar-harvest/pkg/types"
)

func TestPacingFrom(t *testing.T) {
	assert.Equal(t, DefaultPacing(), PacingFrom(types.HarvestConfig{}))

	p := PacingFrom(types.HarvestConfig{
		ItemDelayMin:  time.Second,
		ItemDelayMax:  3 * time.Second,
		RetryDelayMin: 20 * time.Second,
	})
	assert.Equal(t, Pacing{
		ItemMin:  time.Second,
		ItemMax:  3 * time.Second,
		RetryMin: 20 * time.Second,
		RetryMax: 20 * time.Second,
	}, p)
}
