package difficulty

import (
	"log"
	"sort"
)

// Interpolator maps a skill rating onto profile parameters.
// Selection is by threshold lookup; blending only happens when a blend width is configured.
type Interpolator struct {
	thresholds [4]float64
	profiles   map[ProfileLevel]Parameters
	blendWidth float64
}

// NewInterpolator builds an interpolator. Thresholds out of order are sorted ascending
// and duplicate profile levels keep the last definition.
func NewInterpolator(th Thresholds, profiles []Profile, blendWidth float64) *Interpolator {
	t := []float64{th.Beginner, th.Learning, th.Standard, th.Skilled}
	if !sort.Float64sAreSorted(t) {
		log.Printf("Warning: difficulty thresholds %v are not ascending, sorting", t)
		sort.Float64s(t)
	}
	ip := &Interpolator{profiles: make(map[ProfileLevel]Parameters, len(profiles))}
	copy(ip.thresholds[:], t)
	for _, p := range profiles {
		if p.Level < ProfileBeginner || p.Level > ProfileMaster {
			continue
		}
		ip.profiles[p.Level] = p.BaseParameters
	}
	if blendWidth > 0 {
		ip.blendWidth = blendWidth
	}
	return ip
}

// LevelForRating returns the band for rating. A rating exactly on a threshold belongs to the lower band.
func (ip *Interpolator) LevelForRating(rating float64) ProfileLevel {
	switch {
	case rating <= ip.thresholds[0]:
		return ProfileBeginner
	case rating <= ip.thresholds[1]:
		return ProfileLearning
	case rating <= ip.thresholds[2]:
		return ProfileStandard
	case rating <= ip.thresholds[3]:
		return ProfileSkilled
	default:
		return ProfileMaster
	}
}

// GetParametersForRating returns the parameters for rating.
// A missing profile yields NeutralParameters.
func (ip *Interpolator) GetParametersForRating(rating float64) Parameters {
	if ip.blendWidth > 0 {
		if p, ok := ip.blend(rating); ok {
			return p
		}
	}
	p, ok := ip.profiles[ip.LevelForRating(rating)]
	if !ok {
		return NeutralParameters()
	}
	return p
}

func (ip *Interpolator) blend(rating float64) (Parameters, bool) {
	half := ip.blendWidth / 2
	for i, t := range ip.thresholds {
		if rating <= t-half || rating >= t+half {
			continue
		}
		lower, okLower := ip.profiles[ProfileLevel(i)]
		upper, okUpper := ip.profiles[ProfileLevel(i+1)]
		if !okLower || !okUpper {
			return Parameters{}, false
		}
		return Lerp(lower, upper, (rating-(t-half))/ip.blendWidth), true
	}
	return Parameters{}, false
}
