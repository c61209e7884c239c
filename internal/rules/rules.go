// Package rules loads the bonus weighting, the monthly indicators and the
// supervisor responsibility table into an immutable Ruleset.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/godilite/bonus-panel/internal/engine"
)

var ErrInvalidRules = errors.New("invalid bonus rules")

// Paths locates the rule files. Supervisors is optional.
type Paths struct {
	Weights     string
	Indicators  string
	Supervisors string
}

// Ruleset is the evaluation input shared by every request of a process.
type Ruleset struct {
	weights     map[string]engine.RoleWeighting
	indicators  map[string]engine.MonthlyIndicators
	supervisors engine.SupervisorCities
	fingerprint string
}

type weightingEntry struct {
	Total *decimal.Decimal           `json:"total"`
	Metas map[string]decimal.Decimal `json:"metas"`
}

type indicatorEntry struct {
	ProductionByCity map[string]bool `json:"producao_por_cidade"`
	Quality          bool            `json:"qualidade"`
	Profitability    bool            `json:"financeiro"`
}

type supervisorsFile struct {
	Supervisors map[string]map[string]decimal.Decimal `yaml:"supervisors"`
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	logger *zap.Logger
}

// WithLogger reports rescaled weightings through logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Load reads and validates every rule file. Any failure wraps ErrInvalidRules.
func Load(paths Paths, opts ...Option) (*Ruleset, error) {
	o := loadOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	hash := sha256.New()

	weightsData, err := readFile("weights", paths.Weights)
	if err != nil {
		return nil, err
	}
	hash.Write(weightsData)

	indicatorsData, err := readFile("indicators", paths.Indicators)
	if err != nil {
		return nil, err
	}
	hash.Write(indicatorsData)

	var supervisorsData []byte
	if paths.Supervisors != "" {
		supervisorsData, err = readFile("supervisors", paths.Supervisors)
		if err != nil {
			return nil, err
		}
		hash.Write(supervisorsData)
	}

	weights, rescaled, err := parseWeights(weightsData)
	if err != nil {
		return nil, fmt.Errorf("%w: weights %s: %v", ErrInvalidRules, paths.Weights, err)
	}
	for _, r := range rescaled {
		o.logger.Warn("weights sum above 1, rescaled",
			zap.String("role", r.role),
			zap.String("sum", r.sum.String()),
			zap.String("file", paths.Weights))
	}
	indicators, err := ParseIndicators(indicatorsData)
	if err != nil {
		return nil, fmt.Errorf("%w: indicators %s: %v", ErrInvalidRules, paths.Indicators, err)
	}
	supervisors, err := ParseSupervisors(supervisorsData)
	if err != nil {
		return nil, fmt.Errorf("%w: supervisors %s: %v", ErrInvalidRules, paths.Supervisors, err)
	}

	return &Ruleset{
		weights:     weights,
		indicators:  indicators,
		supervisors: supervisors,
		fingerprint: hex.EncodeToString(hash.Sum(nil))[:16],
	}, nil
}

// New assembles a Ruleset from already parsed tables.
func New(weights map[string]engine.RoleWeighting, indicators map[string]engine.MonthlyIndicators, supervisors engine.SupervisorCities) *Ruleset {
	return &Ruleset{
		weights:     weights,
		indicators:  indicators,
		supervisors: supervisors,
		fingerprint: "static",
	}
}

func readFile(kind, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: %s path is empty", ErrInvalidRules, kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidRules, kind, err)
	}
	return data, nil
}

// ParseWeights decodes {"ROLE": {"total": 600, "metas": {"Qualidade": 0.4}}}.
// Weights must be non-negative. A role whose weights sum above 1 is rescaled
// proportionally so the sub-targets never split more than the role total.
func ParseWeights(data []byte) (map[string]engine.RoleWeighting, error) {
	weights, _, err := parseWeights(data)
	return weights, err
}

type rescaledRole struct {
	role string
	sum  decimal.Decimal
}

func parseWeights(data []byte) (map[string]engine.RoleWeighting, []rescaledRole, error) {
	var raw map[string]weightingEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	out := make(map[string]engine.RoleWeighting, len(raw))
	var rescaled []rescaledRole
	one := decimal.NewFromInt(1)
	for role, entry := range raw {
		key := engine.Normalize(role)
		if key == "" {
			return nil, nil, errors.New("empty role name")
		}
		w := engine.RoleWeighting{SubTargets: make(map[string]decimal.Decimal, len(entry.Metas))}
		if entry.Total != nil {
			if entry.Total.IsNegative() {
				return nil, nil, fmt.Errorf("role %s: negative total", key)
			}
			w.Total = decimal.NewNullDecimal(*entry.Total)
		}
		sum := decimal.Zero
		for name, weight := range entry.Metas {
			if weight.IsNegative() {
				return nil, nil, fmt.Errorf("role %s: negative weight for %q", key, name)
			}
			sum = sum.Add(weight)
			w.SubTargets[name] = weight
		}
		if sum.GreaterThan(one) {
			for name, weight := range w.SubTargets {
				w.SubTargets[name] = weight.Div(sum)
			}
			rescaled = append(rescaled, rescaledRole{role: key, sum: sum})
		}
		out[key] = w
	}
	sort.Slice(rescaled, func(i, j int) bool { return rescaled[i].role < rescaled[j].role })
	return out, rescaled, nil
}

// ParseIndicators decodes the per-month pass flags. Month and city keys are
// normalized.
func ParseIndicators(data []byte) (map[string]engine.MonthlyIndicators, error) {
	var raw map[string]indicatorEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("no months defined")
	}

	out := make(map[string]engine.MonthlyIndicators, len(raw))
	for month, entry := range raw {
		cities := make(map[string]bool, len(entry.ProductionByCity))
		for city, passed := range entry.ProductionByCity {
			cities[engine.Normalize(city)] = passed
		}
		out[engine.Normalize(month)] = engine.MonthlyIndicators{
			ProductionByCity: cities,
			Quality:          entry.Quality,
			Profitability:    entry.Profitability,
		}
	}
	return out, nil
}

// ParseSupervisors decodes the YAML supervisor table. Empty input yields an
// empty table.
func ParseSupervisors(data []byte) (engine.SupervisorCities, error) {
	out := engine.SupervisorCities{}
	if len(data) == 0 {
		return out, nil
	}

	var raw supervisorsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for name, cities := range raw.Supervisors {
		key := engine.Normalize(name)
		table := make(map[string]decimal.Decimal, len(cities))
		for city, weight := range cities {
			if weight.IsNegative() {
				return nil, fmt.Errorf("supervisor %s: negative weight for %s", key, city)
			}
			table[engine.Normalize(city)] = weight
		}
		out[key] = table
	}
	return out, nil
}

// Evaluator returns an engine evaluator bound to this ruleset.
func (r *Ruleset) Evaluator(opts ...engine.Option) *engine.Evaluator {
	return engine.NewEvaluator(r.weights, r.supervisors, opts...)
}

// Indicators returns the flags published for a month.
func (r *Ruleset) Indicators(month string) (engine.MonthlyIndicators, bool) {
	ind, ok := r.indicators[engine.Normalize(month)]
	return ind, ok
}

// Roles lists the configured roles in name order.
func (r *Ruleset) Roles() []string {
	roles := make([]string, 0, len(r.weights))
	for role := range r.weights {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// HasRole reports whether a role has a weighting entry.
func (r *Ruleset) HasRole(role string) bool {
	_, ok := r.weights[engine.Normalize(role)]
	return ok
}

// Months lists the months with published indicators in name order.
func (r *Ruleset) Months() []string {
	months := make([]string, 0, len(r.indicators))
	for m := range r.indicators {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// Fingerprint identifies the loaded rule files; it changes whenever any file
// content changes.
func (r *Ruleset) Fingerprint() string {
	return r.fingerprint
}
