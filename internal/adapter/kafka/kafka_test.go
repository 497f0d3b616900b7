package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	generated := time.Date(2021, 9, 16, 8, 30, 0, 0, time.UTC)
	d := domain.Dashboard{
		Deltas: domain.Deltas{
			LatestDate: time.Date(2021, 9, 15, 0, 0, 0, 0, time.UTC),
			TotalCases: domain.Delta{Latest: 12, Previous: 15, Change: -3},
		},
		Schools:     []domain.RankEntry{{Name: "St. Anne", Municipality: "Ottawa", Cases: 3}},
		GeneratedAt: generated,
	}

	msg, err := serializeToMessage(d)
	require.NoError(t, err)

	assert.Equal(t, []byte("2021-09-15"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "latest_date", msg.Headers[0].Key)
	assert.Equal(t, []byte("2021-09-15"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(generated.Format(time.RFC3339)), msg.Headers[1].Value)

	var decoded domain.Dashboard
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, -3, decoded.Deltas.TotalCases.Change)
	assert.Equal(t, d.Schools, decoded.Schools)
	assert.Contains(t, string(msg.Value), `"schools":[{"name":"St. Anne","municipality":"Ottawa","cases":3}]`)
}
