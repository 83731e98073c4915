package usecase

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
)

// FilterRelevant keeps the events inside the preference scope, in input order.
//
// A preference without companies and sectors matches everything. Otherwise an
// event matches when it satisfies the company rule or the sector rule. The
// company rule accepts the company id, or a case-insensitive substring overlap
// in either direction between the host name and a configured company name.
// Short names can overlap unrelated hosts; that approximation is accepted.
func FilterRelevant(events []entity.Event, pref entity.Preference) []entity.Event {
	if pref.Unscoped() {
		return slices.Clone(events)
	}

	companyIDs := lo.SliceToMap(pref.Companies, func(c entity.Company) (int64, struct{}) {
		return c.ID, struct{}{}
	})
	companyNames := lo.FilterMap(pref.Companies, func(c entity.Company, _ int) (string, bool) {
		name := normalizeTag(c.Name)
		return name, name != ""
	})
	sectors := lo.SliceToMap(pref.Sectors, func(s string) (string, struct{}) {
		return normalizeTag(s), struct{}{}
	})
	delete(sectors, "")

	return lo.Filter(events, func(e entity.Event, _ int) bool {
		return matchCompany(e, companyIDs, companyNames) || matchSector(e, sectors)
	})
}

func matchCompany(e entity.Event, ids map[int64]struct{}, names []string) bool {
	if e.CompanyID != nil {
		if _, ok := ids[*e.CompanyID]; ok {
			return true
		}
	}

	host := normalizeTag(e.CompanyName)
	if host == "" {
		return false
	}

	return lo.ContainsBy(names, func(name string) bool {
		return strings.Contains(host, name) || strings.Contains(name, host)
	})
}

func matchSector(e entity.Event, sectors map[string]struct{}) bool {
	if len(sectors) == 0 {
		return false
	}

	for _, tag := range []string{e.Sector, e.SubSector} {
		if tag = normalizeTag(tag); tag == "" {
			continue
		}
		if _, ok := sectors[tag]; ok {
			return true
		}
	}
	return false
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
