package mongo

import (
	"testing"

	"venuebook/internal/bookings/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections(t *testing.T) {
	specs := Collections()
	require.Len(t, specs, 2)
	assert.Equal(t, repository.LockCollectionName, specs[0].Name)
	assert.Equal(t, repository.CollectionName, specs[1].Name)

	for _, spec := range specs {
		assert.NotEmpty(t, spec.Indexes, spec.Name)
		assert.Contains(t, spec.Validator, "$jsonSchema", spec.Name)
	}
}

func TestBookingLocksTTLIndex(t *testing.T) {
	require.Len(t, BookingLocksIndexes, 1)
	idx := BookingLocksIndexes[0]

	assert.Equal(t, bson.D{{Key: "expires_at", Value: 1}}, idx.Keys)
	require.NotNil(t, idx.Options.ExpireAfterSeconds)
	assert.Equal(t, int32(0), *idx.Options.ExpireAfterSeconds)
}

func TestBookingsIndexesCoverConflictQuery(t *testing.T) {
	keys := BookingsIndexes[0].Keys.(bson.D)
	names := make([]string, 0, len(keys))
	for _, e := range keys {
		names = append(names, e.Key)
	}
	assert.Equal(t, []string{"space_id", "date", "start_time"}, names)
}
