package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/core"
)

func TestCodecRoundTrip(t *testing.T) {
	snap := Snapshot{
		Subscriptions: core.DefaultSubscriptions(),
		Filter: core.FilterState{
			SearchTerm:     "net",
			FilterCategory: "ترفيه",
			SortBy:         core.SortByPrice,
			SortOrder:      core.Desc,
		},
	}

	data, err := Encode(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":1`)
	assert.Contains(t, string(data), `"renewalDate":"2024-02-15"`)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, snap.Filter, got.Filter)
	require.Len(t, got.Subscriptions, 3)
	assert.Equal(t, "Netflix", got.Subscriptions[0].Name)
	assert.True(t, got.Subscriptions[0].RenewalDate.Equal(core.NewDate(2024, 2, 15).Time))

	again, err := Encode(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestDecodeEmptyCollection(t *testing.T) {
	data, err := Encode(Snapshot{Filter: core.DefaultFilterState()})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.NotNil(t, got.Subscriptions)
	assert.Empty(t, got.Subscriptions)
}

func TestDecodeFillsMissingFilterFields(t *testing.T) {
	got, err := Decode([]byte(`{"version":1,"state":{"subscriptions":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, core.DefaultFilterState(), got.Filter)
}

func TestDecodeCorrupt(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"version":`,
		"missing state":   `{"version":1}`,
		"wrong type":      `{"version":1,"state":{"subscriptions":"nope"}}`,
		"bad record":      `{"version":1,"state":{"subscriptions":[{"id":"1","name":"x","price":"free","billingCycle":"monthly","renewalDate":"2024-01-01","isActive":true}]}}`,
		"bad date":        `{"version":1,"state":{"subscriptions":[{"id":"1","name":"x","price":1,"billingCycle":"monthly","renewalDate":"soon","isActive":true}]}}`,
		"future version":  `{"version":99,"state":{"subscriptions":[]}}`,
		"array at root":   `[]`,
		"invalid payload": `garbage`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorruptSnapshot), "got %v", err)
		})
	}
}
