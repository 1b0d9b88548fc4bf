package service

import (
	"context"
	"fmt"
	"merchant-phone-search/internal/cache"
	"merchant-phone-search/internal/client"
	"merchant-phone-search/internal/config"
	"merchant-phone-search/internal/dto"
	"merchant-phone-search/internal/model"
	"strings"

	"github.com/rs/zerolog/log"
)

const districtsCacheKey = "districts"

type SearchService interface {
	// Search aggregates upstream pages until the tier's result cap is
	// reached or the provider runs out. On upstream failure mid-pagination
	// it returns the records accumulated so far together with the error.
	Search(ctx context.Context, keywords, city string, tier model.MembershipType, page, pageSize int) ([]dto.POIRecord, error)
	Districts(ctx context.Context) ([]dto.Region, error)
}

type searchServiceImpl struct {
	amapClient client.AmapClient
	store      cache.Store
	cfg        config.Amap
	membership config.Membership
}

func NewSearchService(amapClient client.AmapClient, store cache.Store, cfg *config.Amap, membership *config.Membership) SearchService {
	return &searchServiceImpl{
		amapClient: amapClient,
		store:      store,
		cfg:        *cfg,
		membership: *membership,
	}
}

// resultCap maps a membership tier to the maximum number of records a single
// search may return. Unknown tiers get the free cap.
func (s *searchServiceImpl) resultCap(tier model.MembershipType) int {
	switch tier {
	case model.MembershipStandard:
		return s.membership.StandardSearchCap
	case model.MembershipPremium:
		return s.membership.PremiumSearchCap
	default:
		return s.membership.FreeSearchCap
	}
}

func (s *searchServiceImpl) Search(ctx context.Context, keywords, city string, tier model.MembershipType, page, pageSize int) ([]dto.POIRecord, error) {
	// cache is keyed by the query tuple only; the stored payload is already
	// capped by whichever tier populated it
	cacheKey := fmt.Sprintf("poi:%s:%s:%d:%d", keywords, city, page, pageSize)
	if cached, ok := s.store.Get(cacheKey); ok {
		if records, ok := cached.([]dto.POIRecord); ok {
			return records, nil
		}
	}

	maxResults := s.resultCap(tier)
	upstreamPageSize := s.cfg.PageSize

	var pois []client.POI
	for upstreamPage := 1; len(pois) < maxResults; upstreamPage++ {
		batch, err := s.amapClient.SearchPOI(ctx, keywords, city, upstreamPage, upstreamPageSize)
		if err != nil {
			log.Warn().Err(err).
				Str("keywords", keywords).
				Str("city", city).
				Int("upstream_page", upstreamPage).
				Msg("upstream search failed mid-pagination")
			// partial data is kept, not discarded
			return normalizePOIs(pois), fmt.Errorf("fetch page %d: %w", upstreamPage, err)
		}

		if len(batch) == 0 {
			break
		}
		pois = append(pois, batch...)

		// a short page signals the last page
		if len(batch) < upstreamPageSize {
			break
		}
	}

	if len(pois) > maxResults {
		pois = pois[:maxResults]
	}

	records := normalizePOIs(pois)
	s.store.Set(cacheKey, records, s.cfg.SearchTTL)

	return records, nil
}

func (s *searchServiceImpl) Districts(ctx context.Context) ([]dto.Region, error) {
	if cached, ok := s.store.Get(districtsCacheKey); ok {
		if regions, ok := cached.([]dto.Region); ok {
			return regions, nil
		}
	}

	tree, err := s.amapClient.DistrictTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch districts: %w", err)
	}

	regions := normalizeDistricts(tree)
	s.store.Set(districtsCacheKey, regions, s.cfg.RegionsTTL)

	return regions, nil
}

func normalizePOIs(pois []client.POI) []dto.POIRecord {
	records := make([]dto.POIRecord, len(pois))
	for i, poi := range pois {
		records[i] = dto.POIRecord{
			Name:         poi.Name,
			Address:      string(poi.Address),
			Phone:        FormatPhone(string(poi.Tel)),
			Location:     string(poi.Location),
			Type:         string(poi.Type),
			BusinessArea: string(poi.BusinessArea),
		}
	}
	return records
}

func normalizeDistricts(districts []client.District) []dto.Region {
	regions := make([]dto.Region, len(districts))
	for i, d := range districts {
		regions[i] = dto.Region{
			Adcode:    string(d.Adcode),
			Name:      d.Name,
			Center:    string(d.Center),
			Level:     d.Level,
			Districts: normalizeDistricts(d.Districts),
		}
	}
	return regions
}

// FormatPhone re-punctuates the provider's semicolon-joined phone field:
// 11-digit numbers become NNN-NNNN-NNNN, 12-digit ones NNNN-NNNN-NNNN,
// anything else is left as delivered.
func FormatPhone(phone string) string {
	if phone == "" {
		return ""
	}

	parts := strings.Split(phone, ";")
	for i, part := range parts {
		part = strings.TrimSpace(part)

		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, part)

		switch len(digits) {
		case 11:
			parts[i] = digits[:3] + "-" + digits[3:7] + "-" + digits[7:]
		case 12:
			parts[i] = digits[:4] + "-" + digits[4:8] + "-" + digits[8:]
		default:
			parts[i] = part
		}
	}

	return strings.Join(parts, "; ")
}
