package router

import "hash/fnv"

// ExperimentAssigner deterministically buckets a request into an experiment
// group. It is stateless: all inputs come from the request and the snapshot,
// so the same session id under the same config version always lands in the
// same group.
type ExperimentAssigner struct{}

// Assign returns the experiment group for sessionID under snap.
//
// A request without a session id always gets the control group, never a
// random per-call bucket: anonymous traffic inside experiment arms would
// make A/B deltas non-reproducible. The same applies when experimentation
// is disabled.
//
// Otherwise the session id hashes to a stable fraction in [0,1) and group
// traffic percentages are walked as cumulative ranges in declared order.
// A fraction past the last range (groups summing to less than 100) is
// control traffic.
func (ExperimentAssigner) Assign(sessionID string, snap *ConfigSnapshot) ExperimentGroup {
	if !snap.Config.ExperimentsEnabled || sessionID == "" || len(snap.Config.Groups) == 0 {
		return controlGroup()
	}

	fraction := bucketFraction(sessionID)

	cumulative := 0.0
	for _, g := range snap.Config.Groups {
		cumulative += g.TrafficPercentage / 100
		if fraction < cumulative {
			return g
		}
	}
	return controlGroup()
}

// bucketFraction maps a session id to a stable value in [0,1) via FNV-1a.
func bucketFraction(sessionID string) float64 {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	return float64(h.Sum64()>>11) / float64(1<<53)
}

func controlGroup() ExperimentGroup {
	return ExperimentGroup{Name: ControlGroupName}
}
