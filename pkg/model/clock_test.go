package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9:30", 0, true},
		{"09:60", 0, true},
		{"09:30:00", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTimeOfDay))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestNewTimeOfDay(t *testing.T) {
	tod, err := NewTimeOfDay(14, 5)
	require.NoError(t, err)
	assert.Equal(t, 14, tod.Hour())
	assert.Equal(t, 5, tod.Minute())

	_, err = NewTimeOfDay(24, 0)
	assert.Error(t, err)
	_, err = NewTimeOfDay(10, -1)
	assert.Error(t, err)
}

func TestTimeOfDay_JSON(t *testing.T) {
	data, err := json.Marshal(MustTimeOfDay("07:45"))
	require.NoError(t, err)
	assert.Equal(t, `"07:45"`, string(data))

	var tod TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"18:00"`), &tod))
	assert.Equal(t, TimeOfDay(18*60), tod)

	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &tod))
	assert.Error(t, json.Unmarshal([]byte(`600`), &tod))

	_, err = json.Marshal(TimeOfDay(MinutesPerDay))
	assert.Error(t, err)
}

func TestBooking_BSONRoundTrip(t *testing.T) {
	b := Booking{
		ID:        "b-1",
		SpaceID:   "court-1",
		UserID:    "u-1",
		Date:      MustDate("2025-03-14"),
		StartTime: MustTimeOfDay("10:00"),
		EndTime:   MustTimeOfDay("11:30"),
		Status:    StatusPending,
		CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	data, err := bson.Marshal(b)
	require.NoError(t, err)

	raw := bson.Raw(data)
	assert.Equal(t, "2025-03-14", raw.Lookup("date").StringValue())
	assert.Equal(t, int32(600), raw.Lookup("start_time").Int32())
	assert.Equal(t, int32(690), raw.Lookup("end_time").Int32())

	var got Booking
	require.NoError(t, bson.Unmarshal(data, &got))
	assert.Equal(t, b, got)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d)
	assert.Equal(t, "2024-02-29", d.String())

	for _, bad := range []string{"2023-02-29", "2024-2-29", "2024/02/29", "20240229", "", "2024-13-01"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrInvalidDate), bad)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := MustDate("2024-12-31")
	next := d.AddDays(1)
	assert.Equal(t, "2025-01-01", next.String())
	assert.True(t, d.Before(next))
	assert.True(t, next.After(d))
	assert.False(t, d.Before(d))
	assert.Equal(t, 1, d.DaysUntil(next))
	assert.Equal(t, -366, MustDate("2025-01-01").DaysUntil(MustDate("2024-01-01")))
	assert.True(t, Date{}.IsZero())
	assert.Equal(t, "", Date{}.String())
}

func TestDate_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		D Date `json:"d"`
	}{D: MustDate("2025-06-01")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-06-01"}`, string(data))

	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"01-06-2025"`), &d))
}

func TestStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("cancelled")
	assert.Error(t, err)

	assert.True(t, StatusPending.HoldsSlot())
	assert.True(t, StatusApproved.HoldsSlot())
	assert.False(t, StatusRejected.HoldsSlot())
}

func TestActor_CanMutate(t *testing.T) {
	b := &Booking{UserID: "u-1"}

	assert.True(t, Actor{ID: "u-1", Role: RoleUser}.CanMutate(b))
	assert.False(t, Actor{ID: "u-2", Role: RoleUser}.CanMutate(b))
	assert.True(t, Actor{ID: "admin", Role: RoleAdmin}.CanMutate(b))
	assert.False(t, Actor{Role: RoleUser}.Owns(&Booking{}))
}

func TestStatusBreakdown(t *testing.T) {
	var b StatusBreakdown
	b.Add(StatusApproved)
	b.Add(StatusApproved)
	b.Add(StatusPending)
	b.Add(StatusRejected)
	b.Add(Status("unknown"))

	assert.Equal(t, StatusBreakdown{Approved: 2, Pending: 1, Rejected: 1}, b)
	assert.Equal(t, 4, b.Total())
}
