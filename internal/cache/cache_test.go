package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/rnd-matcher/internal/funding"
	"github.com/spigell/rnd-matcher/internal/matching"
	"github.com/spigell/rnd-matcher/internal/metrics"
	"github.com/spigell/rnd-matcher/internal/scoring"
)

var day = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*miniredis.Miniredis, *MatchCache, *metrics.Collector) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	collector := metrics.New(prometheus.NewRegistry())
	return mr, New(client, time.Hour, collector, nil), collector
}

func sampleResult() *matching.Result {
	return &matching.Result{
		RunID:          "run-1",
		OrganizationID: "org-1",
		GeneratedAt:    day,
		Mode:           "standard",
		WeightsVersion: "v1",
		Matches: []matching.MatchResult{
			{Program: &funding.Program{ID: "p-1", Title: "AI 인공지능 기술개발 사업"}, Score: 82.8},
		},
		Rejected: []matching.Rejection{},
	}
}

func keyInput() KeyInput {
	return KeyInput{
		Organization: &funding.Organization{ID: "org-1", IndustrySector: "ICT"},
		Programs: []*funding.Program{
			{ID: "p-2", Title: "데이터 플랫폼 구축"},
			{ID: "p-1", Title: "AI 인공지능 기술개발 사업"},
		},
		Options:  matching.Options{Now: day, ExcludedIDs: []string{"p-9", "p-8"}},
		Settings: map[string]any{"weights": "v1"},
	}
}

func mustKey(t *testing.T, in KeyInput) string {
	t.Helper()
	key, err := Key(in)
	require.NoError(t, err)
	return key
}

func TestKey(t *testing.T) {
	base := keyInput()
	baseKey := mustKey(t, base)
	assert.Contains(t, baseKey, keyPrefix+"org-1:")

	shuffled := keyInput()
	shuffled.Programs[0], shuffled.Programs[1] = shuffled.Programs[1], shuffled.Programs[0]
	shuffled.Options.ExcludedIDs = []string{"p-8", "p-9"}
	assert.Equal(t, baseKey, mustKey(t, shuffled))
	assert.Equal(t, "p-2", base.Programs[0].ID, "input must not be reordered")

	laterSameDay := keyInput()
	laterSameDay.Options.Now = day.Add(10 * time.Hour)
	assert.Equal(t, baseKey, mustKey(t, laterSameDay))

	defaults := keyInput()
	defaults.Options.TopK = matching.DefaultTopK
	defaults.Options.Mode = scoring.ModeStandard
	assert.Equal(t, baseKey, mustKey(t, defaults), "explicit defaults share the key")

	for name, mutate := range map[string]func(*KeyInput){
		"organization id":      func(k *KeyInput) { k.Organization.ID = "org-2" },
		"organization profile": func(k *KeyInput) { k.Organization.KeyTechnologies = []string{"AI"} },
		"program set":          func(k *KeyInput) { k.Programs = k.Programs[:1] },
		"program contents":     func(k *KeyInput) { k.Programs[1].Title = "AI 인공지능 지정과제" },
		"mode":                 func(k *KeyInput) { k.Options.Mode = scoring.ModeHistorical },
		"day":                  func(k *KeyInput) { k.Options.Now = day.AddDate(0, 0, 1) },
		"top-k":                func(k *KeyInput) { k.Options.TopK = 1 },
		"min score":            func(k *KeyInput) { k.Options.MinScore = 50 },
		"excluded ids":         func(k *KeyInput) { k.Options.ExcludedIDs = append(k.Options.ExcludedIDs, "p-1") },
		"excluded agencies":    func(k *KeyInput) { k.Options.ExcludedAgencies = []string{"IITP"} },
		"settings":             func(k *KeyInput) { k.Settings = map[string]any{"weights": "v2"} },
	} {
		changed := keyInput()
		mutate(&changed)
		assert.NotEqual(t, baseKey, mustKey(t, changed), name)
	}

	_, err := Key(KeyInput{})
	assert.Error(t, err)
}

func TestMatchCacheRoundTrip(t *testing.T) {
	mr, c, collector := setup(t)
	ctx := context.Background()
	key := mustKey(t, keyInput())

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, key, sampleResult()))
	require.NoError(t, c.Put(ctx, key, sampleResult()))
	assert.Len(t, mr.Keys(), 1)

	got, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "p-1", got.Matches[0].Program.ID)
	assert.InDelta(t, 82.8, got.Matches[0].Score, 1e-9)
	assert.True(t, got.GeneratedAt.Equal(day))

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.CacheLookups.WithLabelValues("hit")))
}

func TestMatchCacheExpires(t *testing.T) {
	mr, c, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", sampleResult()))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	mr.FastForward(time.Hour + time.Second)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchCacheErrors(t *testing.T) {
	mr, c, collector := setup(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("broken", "{not json"))
	_, _, err := c.Get(ctx, "broken")
	require.Error(t, err)

	assert.Error(t, c.Put(ctx, "k", nil))

	mr.Close()
	_, _, err = c.Get(ctx, "k")
	require.Error(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.CacheLookups.WithLabelValues("error")))
}

func TestDial(t *testing.T) {
	_, err := Dial("")
	assert.ErrorIs(t, err, ErrEmptyAddress)

	mr := miniredis.RunT(t)
	client, err := Dial(mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
