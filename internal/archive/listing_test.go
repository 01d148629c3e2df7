package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/community-archive/internal/models"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

func TestListingRefreshOrdersNewestFirst(t *testing.T) {
	records := newFakeRecords(
		material("b", "Old", "audio", fixedNow.Add(-2*time.Hour)),
		material("c", "Newest", "audio", fixedNow),
		material("a", "Tie", "literature", fixedNow.Add(-time.Hour)),
		material("0", "Tie", "literature", fixedNow.Add(-time.Hour)),
	)
	sink := &recordingSink{}
	listing := NewListingStore(records, sink, nil)

	require.NoError(t, listing.Refresh(context.Background()))

	ids := []string{}
	for _, m := range listing.All() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"c", "0", "a", "b"}, ids)
	assert.Equal(t, []bool{true, false}, sink.loading)
	assert.Equal(t, []string{"query:materials:dateArchived:desc"}, records.callLog())
}

func TestListingRefreshFailureClearsSnapshot(t *testing.T) {
	records := newFakeRecords(material("a", "One", "audio", fixedNow))
	sink := &recordingSink{}
	listing := NewListingStore(records, sink, nil)
	require.NoError(t, listing.Refresh(context.Background()))
	require.Equal(t, 1, listing.Len())

	var hooked []models.Material
	listing.OnRefresh(func(items []models.Material) { hooked = items })

	records.queryErr = errors.New("store offline")
	err := listing.Refresh(context.Background())
	assert.Equal(t, appErrors.ErrFetchFailed.Code, codeOf(err))
	assert.Empty(t, listing.All())
	assert.NotNil(t, hooked)
	assert.Empty(t, hooked)
	assert.Equal(t, []bool{true, false, true, false}, sink.loading, "loading always turned off")
}

func TestListingAllReturnsCopy(t *testing.T) {
	records := newFakeRecords(material("a", "One", "audio", fixedNow))
	listing := NewListingStore(records, nil, nil)
	require.NoError(t, listing.Refresh(context.Background()))

	items := listing.All()
	items[0].Title = "changed"
	items[0].FlaggedBy = append(items[0].FlaggedBy, "user_x")

	m, ok := listing.Find("a")
	require.True(t, ok)
	assert.Equal(t, "One", m.Title)
	assert.Empty(t, m.FlaggedBy)

	_, ok = listing.Find("missing")
	assert.False(t, ok)
}

func TestListingNormalizesNilFlags(t *testing.T) {
	m := material("a", "One", "audio", fixedNow)
	m.FlaggedBy = nil
	listing := NewListingStore(newFakeRecords(m), nil, nil)
	require.NoError(t, listing.Refresh(context.Background()))

	got, _ := listing.Find("a")
	assert.NotNil(t, got.FlaggedBy)
}
