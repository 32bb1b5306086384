// Package doctor validates a surveyor configuration before a run: lookup
// tables, bus settings, and the local environment the supervisor needs.
package doctor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/survey-ops/surveyor/internal/config"
	"github.com/survey-ops/surveyor/internal/survey"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.checkRobot(r)
	d.checkBus(r)
	d.checkAPI(r)
	d.checkLookupTables(r)
	d.checkPlans(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) checkRobot(r *Result) {
	if d.cfg.Robot == "" {
		d.addError(r, "robot", "robot", "robot identity is required")
	}
}

func (d *Doctor) checkBus(r *Result) {
	switch d.cfg.Bus.Mode {
	case "memory":
		d.addWarning(r, "bus", "bus.mode",
			"memory bus only reaches subscribers in this process; acks from a real executive will never arrive")
	case "redis":
		if d.cfg.Bus.Redis.Addr == "" {
			d.addError(r, "bus", "bus.redis.addr", "redis address is required for the redis bus")
		}
	default:
		d.addError(r, "bus", "bus.mode",
			fmt.Sprintf("unknown bus mode %q (want memory or redis)", d.cfg.Bus.Mode))
	}
	if d.cfg.Bus.Namespace == "" {
		d.addWarning(r, "bus", "bus.namespace", "empty namespace shares channels across robots")
	}
}

func (d *Doctor) checkAPI(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when the API is enabled")
	}
	if d.cfg.API.Token == "" {
		d.addError(r, "api", "api.token", "api.token is required when the API is enabled")
	}
}

func (d *Doctor) checkLookupTables(r *Result) {
	if len(d.cfg.Berth) == 0 {
		d.addWarning(r, "tables", "berth", "no berths configured; dock actions will fail")
	}
	if len(d.cfg.BaysMove) == 0 {
		d.addWarning(r, "tables", "bays_move", "no movement bays configured; move actions will fail")
	}
	if len(d.cfg.BaysPano) == 0 {
		d.addWarning(r, "tables", "bays_pano", "no panorama locations configured; panorama actions will fail")
	}
	for _, module := range []string{"jem", "nod2", "usl"} {
		if _, ok := d.cfg.Maps[module]; !ok {
			d.addWarning(r, "tables", "maps."+module,
				fmt.Sprintf("no localization map for %s; boundary crossings into it keep the old map", module))
		}
	}
}

func (d *Doctor) checkPlans(r *Result) {
	if survey.PlansDir(d.cfg) == "" {
		d.addWarning(r, "plans", "run.plans_dir",
			"no plans directory found; stereo actions will fail (set run.plans_dir)")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	} else {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}
	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
