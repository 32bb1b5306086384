package survey

import "github.com/survey-ops/surveyor/internal/config"

// Hatch waypoint names marking module boundary crossings. Camera exposure
// and the localization map must follow the module the robot enters.
const (
	nod2ToJem   = "nod2_hatch_to_jem"
	jemFromNod  = "jem_hatch_from_nod2"
	jemToNod2   = "jem_hatch_to_nod2"
	nod2FromJem = "nod2_hatch_from_jem"
	uslToNod2   = "usl_hatch_to_nod2"
	nod2FromUsl = "nod2_hatch_from_usl"
	nod2ToUsl   = "nod2_hatch_to_usl"
	uslFromNod2 = "usl_hatch_from_nod2"
)

// ExposureChange returns the exposure for the module a move enters, or 0
// when the move does not cross a module boundary.
func ExposureChange(cfg *config.Config, from, to string) float64 {
	switch {
	case from == nod2ToJem && to == jemFromNod:
		return cfg.Exposure["jem"]
	case from == jemToNod2 && to == nod2FromJem,
		from == uslToNod2 && to == nod2FromUsl:
		return cfg.Exposure["nod2"]
	case from == nod2ToUsl && to == uslFromNod2:
		return cfg.Exposure["usl"]
	}
	return 0
}

// MapChange returns the localization map for the module a move enters, or ""
// when no switch is needed.
func MapChange(cfg *config.Config, from, to string) string {
	switch {
	case from == nod2ToJem && to == jemFromNod:
		return cfg.Maps["jem"]
	case from == jemToNod2 && to == nod2FromJem,
		from == uslToNod2 && to == nod2FromUsl:
		return cfg.Maps["nod2"]
	case from == nod2ToUsl && to == uslFromNod2:
		return cfg.Maps["usl"]
	}
	return ""
}
