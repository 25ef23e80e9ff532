package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionCode(t *testing.T) {
	assert.Equal(t, "US", RegionUS.Code())
	assert.Equal(t, "EU", RegionEU.Code())
	assert.Equal(t, "KR", RegionKR.Code())
	assert.Equal(t, "??", RegionID(9).Code())
}

func TestRegionValid(t *testing.T) {
	assert.False(t, RegionID(0).Valid())
	assert.True(t, RegionUS.Valid())
	assert.True(t, RegionKR.Valid())
	assert.False(t, RegionID(4).Valid())
}

func TestTrackerTablesCoversEveryEntity(t *testing.T) {
	tables := TrackerTables()
	assert.Len(t, tables, 10)
}
