package service

import (
	"context"
	"fmt"
	"merchant-phone-search/internal/cache"
	"merchant-phone-search/internal/client"
	"merchant-phone-search/internal/config"
	"merchant-phone-search/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAmapConfig() *config.Amap {
	return &config.Amap{
		PageSize:   25,
		SearchTTL:  30 * time.Minute,
		RegionsTTL: 24 * time.Hour,
	}
}

func testMembershipConfig() *config.Membership {
	return &config.Membership{
		FreeSearchCap:     20,
		StandardSearchCap: 200,
		PremiumSearchCap:  1000,
	}
}

func makePOIs(n int, prefix string) []client.POI {
	pois := make([]client.POI, n)
	for i := range pois {
		pois[i] = client.POI{
			Name: fmt.Sprintf("%s-%d", prefix, i),
			Tel:  client.LooseString("13812345678"),
		}
	}
	return pois
}

func TestSearchStopsOnShortPage(t *testing.T) {
	// 25, 25, 10 across three pages: 60 records, no fourth call
	amap := &fakeAmapClient{pages: [][]client.POI{
		makePOIs(25, "p1"),
		makePOIs(25, "p2"),
		makePOIs(10, "p3"),
	}}
	svc := NewSearchService(amap, cache.NewMemoryStore(), testAmapConfig(), testMembershipConfig())

	records, err := svc.Search(context.Background(), "餐厅", "北京", model.MembershipPremium, 1, 20)
	require.NoError(t, err)
	assert.Len(t, records, 60)
	assert.Equal(t, 3, amap.calls)
}

func TestSearchCapsPerTier(t *testing.T) {
	// effectively unbounded upstream
	pages := make([][]client.POI, 100)
	for i := range pages {
		pages[i] = makePOIs(25, fmt.Sprintf("p%d", i))
	}

	cases := []struct {
		tier model.MembershipType
		want int
	}{
		{model.MembershipFree, 20},
		{model.MembershipStandard, 200},
		{model.MembershipPremium, 1000},
		{model.MembershipType("unknown"), 20},
	}

	for _, tc := range cases {
		t.Run(string(tc.tier), func(t *testing.T) {
			amap := &fakeAmapClient{pages: pages}
			svc := NewSearchService(amap, cache.NewMemoryStore(), testAmapConfig(), testMembershipConfig())

			records, err := svc.Search(context.Background(), "餐厅", "北京", tc.tier, 1, 20)
			require.NoError(t, err)
			assert.Len(t, records, tc.want)
		})
	}
}

func TestSearchStopsOnEmptyPage(t *testing.T) {
	amap := &fakeAmapClient{pages: [][]client.POI{
		makePOIs(25, "p1"),
		{},
	}}
	svc := NewSearchService(amap, cache.NewMemoryStore(), testAmapConfig(), testMembershipConfig())

	records, err := svc.Search(context.Background(), "餐厅", "北京", model.MembershipStandard, 1, 20)
	require.NoError(t, err)
	assert.Len(t, records, 25)
	assert.Equal(t, 2, amap.calls)
}

func TestSearchKeepsPartialDataOnUpstreamFailure(t *testing.T) {
	amap := &fakeAmapClient{
		pages:    [][]client.POI{makePOIs(25, "p1"), nil},
		pageErrs: []error{nil, errUpstreamDown},
	}
	store := cache.NewMemoryStore()
	svc := NewSearchService(amap, store, testAmapConfig(), testMembershipConfig())

	records, err := svc.Search(context.Background(), "餐厅", "北京", model.MembershipStandard, 1, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUpstreamDown)
	assert.Len(t, records, 25)

	// failed results are not cached
	_, ok := store.Get("poi:餐厅:北京:1:20")
	assert.False(t, ok)
}

func TestSearchServesFromCache(t *testing.T) {
	amap := &fakeAmapClient{pages: [][]client.POI{makePOIs(10, "p1")}}
	svc := NewSearchService(amap, cache.NewMemoryStore(), testAmapConfig(), testMembershipConfig())

	first, err := svc.Search(context.Background(), "餐厅", "北京", model.MembershipStandard, 1, 20)
	require.NoError(t, err)

	second, err := svc.Search(context.Background(), "餐厅", "北京", model.MembershipStandard, 1, 20)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, amap.calls)
}

func TestSearchCacheSharedAcrossTiers(t *testing.T) {
	// a free-tier request populates the entry; the premium request for the
	// same tuple gets the already-capped payload (inherited behavior)
	pages := make([][]client.POI, 10)
	for i := range pages {
		pages[i] = makePOIs(25, fmt.Sprintf("p%d", i))
	}
	amap := &fakeAmapClient{pages: pages}
	svc := NewSearchService(amap, cache.NewMemoryStore(), testAmapConfig(), testMembershipConfig())

	free, err := svc.Search(context.Background(), "餐厅", "北京", model.MembershipFree, 1, 20)
	require.NoError(t, err)
	require.Len(t, free, 20)

	premium, err := svc.Search(context.Background(), "餐厅", "北京", model.MembershipPremium, 1, 20)
	require.NoError(t, err)
	assert.Len(t, premium, 20)
}

func TestDistrictsCached(t *testing.T) {
	amap := &fakeAmapClient{districts: []client.District{
		{Name: "北京市", Level: "province"},
		{Name: "上海市", Level: "province"},
	}}
	svc := NewSearchService(amap, cache.NewMemoryStore(), testAmapConfig(), testMembershipConfig())

	first, err := svc.Districts(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	_, err = svc.Districts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, amap.calls)
}

func TestDistrictsErrorNotCached(t *testing.T) {
	amap := &fakeAmapClient{distErr: errUpstreamDown}
	svc := NewSearchService(amap, cache.NewMemoryStore(), testAmapConfig(), testMembershipConfig())

	_, err := svc.Districts(context.Background())
	require.Error(t, err)

	amap.distErr = nil
	amap.districts = []client.District{{Name: "北京市"}}
	regions, err := svc.Districts(context.Background())
	require.NoError(t, err)
	assert.Len(t, regions, 1)
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "", FormatPhone(""))
	assert.Equal(t, "138-1234-5678", FormatPhone("13812345678"))
	// punctuation is stripped before re-formatting
	assert.Equal(t, "138-1234-5678", FormatPhone("138-1234-5678"))
	// 12-digit landline
	assert.Equal(t, "0101-2345-6789", FormatPhone("010-123456789"))
	// other lengths untouched
	assert.Equal(t, "12345", FormatPhone("12345"))
	// multiple numbers rejoined with "; "
	assert.Equal(t, "138-1234-5678; 139-8765-4321", FormatPhone("13812345678;13987654321"))
}

func TestFormatPhoneIdempotent(t *testing.T) {
	inputs := []string{"13812345678", "010-123456789", "13812345678;13987654321"}
	for _, in := range inputs {
		once := FormatPhone(in)
		assert.Equal(t, once, FormatPhone(once))
	}
}
