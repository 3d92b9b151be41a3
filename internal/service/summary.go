package service

import "github.com/spec-kit/vps-service/internal/domain"

// ResourceSummary aggregates allocated resources over a set of instances.
// Records with unparseable resource fields still count as instances but
// contribute nothing to the totals.
type ResourceSummary struct {
	Instances int
	Active    int
	Suspended int
	RAMGB     int
	CPU       int
	DiskGB    int
}

func summarize(records []*domain.VPS) ResourceSummary {
	var summary ResourceSummary
	for _, record := range records {
		summary.Instances++
		if record.Status == domain.VPSStatusRunning {
			summary.Active++
		}
		if record.Suspended {
			summary.Suspended++
		}
		spec, err := record.Spec()
		if err != nil {
			continue
		}
		summary.RAMGB += spec.RAMGB
		summary.CPU += spec.CPU
		summary.DiskGB += spec.DiskGB
	}
	return summary
}

// SummaryForOwner aggregates the caller's own instances.
func (s *LifecycleService) SummaryForOwner(owner string) ResourceSummary {
	return summarize(s.store.ListVPSByOwner(owner))
}

// HostSummary aggregates every instance on the host.
func (s *LifecycleService) HostSummary() ResourceSummary {
	all := s.store.ListVPS()
	records := make([]*domain.VPS, 0, len(all))
	for _, record := range all {
		records = append(records, record)
	}
	return summarize(records)
}
