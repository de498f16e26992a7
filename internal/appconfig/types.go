// Package appconfig defines the live dashboard configuration: risk rules,
// priority scoring, field mappings, and role/scope defaults. Configuration is
// read-mostly; updates go through the Store, which validates and publishes a
// new immutable snapshot.
package appconfig

// Dashboard roles.
const (
	RoleAccountExecutive = "account_executive"
	RoleAccountManager   = "account_manager"
	RoleCustomerSuccess  = "customer_success_manager"
	RoleSalesLeader      = "sales_leader"
	RoleExecutive        = "executive"
)

// Ownership scopes.
const (
	ScopeMine = "mine"
	ScopeTeam = "team"
	ScopeAll  = "all"
)

// Risk flags, in ascending severity.
const (
	FlagWarning  = "warning"
	FlagAtRisk   = "at-risk"
	FlagCritical = "critical"
)

// Rule object types.
const (
	ObjectAccount     = "Account"
	ObjectOpportunity = "Opportunity"
)

// Condition operators.
const (
	OpEquals       = "="
	OpNotEquals    = "!="
	OpLessThan     = "<"
	OpGreaterThan  = ">"
	OpLessOrEqual  = "<="
	OpGreaterOrEq  = ">="
	OpIn           = "IN"
	OpNotIn        = "NOT IN"
	OpContains     = "contains"
)

// Condition is a single field comparison inside a risk rule.
type Condition struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value" yaml:"value"`
}

// RiskRule is a configured boolean rule that flags matching records.
type RiskRule struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	ObjectType string      `json:"object_type" yaml:"object_type"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Logic      string      `json:"logic" yaml:"logic"` // "AND" or "OR"
	Flag       string      `json:"flag" yaml:"flag"`
	Active     bool        `json:"active" yaml:"active"`
}

// ScoreRange maps a half-open value range [Min, Max) to a raw score.
// Ranges are scanned in declaration order; the first match wins, and the
// upper bound of the final range is inclusive so overflow buckets work.
type ScoreRange struct {
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Score float64 `json:"score" yaml:"score"`
}

// PriorityComponent is one weighted factor in the priority score. Exactly one
// of Field or ScoreRanges drives its raw 0-100 contribution: Field reads the
// record value directly, ScoreRanges buckets a field value into a score.
type PriorityComponent struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Weight      float64      `json:"weight" yaml:"weight"`
	Field       string       `json:"field,omitempty" yaml:"field,omitempty"`
	ScoreRanges []ScoreRange `json:"score_ranges,omitempty" yaml:"score_ranges,omitempty"`
}

// Band is an inclusive score band [Min, Max].
type Band struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// TierThresholds are the four priority bands covering 0-100.
type TierThresholds struct {
	Hot  Band `json:"hot" yaml:"hot"`
	Warm Band `json:"warm" yaml:"warm"`
	Cool Band `json:"cool" yaml:"cool"`
	Cold Band `json:"cold" yaml:"cold"`
}

// Tier names.
const (
	TierHot  = "hot"
	TierWarm = "warm"
	TierCool = "cool"
	TierCold = "cold"
)

// NamedBand pairs a tier name with its band.
type NamedBand struct {
	Name string
	Band Band
}

// Bands returns the tier bands ordered lowest Min first, so ambiguous
// thresholds resolve deterministically to the lowest-min matching band.
func (t TierThresholds) Bands() []NamedBand {
	bands := []NamedBand{
		{TierHot, t.Hot},
		{TierWarm, t.Warm},
		{TierCool, t.Cool},
		{TierCold, t.Cold},
	}
	// Insertion sort; four elements.
	for i := 1; i < len(bands); i++ {
		for j := i; j > 0 && bands[j].Band.Min < bands[j-1].Band.Min; j-- {
			bands[j], bands[j-1] = bands[j-1], bands[j]
		}
	}
	return bands
}

// RoleConfig overrides component weights and/or tier thresholds for one role.
type RoleConfig struct {
	ComponentWeights map[string]float64 `json:"component_weights,omitempty" yaml:"component_weights,omitempty"`
	Thresholds       *TierThresholds    `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// PriorityConfig is the full priority scoring configuration.
type PriorityConfig struct {
	Components  []PriorityComponent   `json:"components" yaml:"components"`
	Thresholds  TierThresholds        `json:"thresholds" yaml:"thresholds"`
	RoleConfigs map[string]RoleConfig `json:"role_configs,omitempty" yaml:"role_configs,omitempty"`
}

// FieldMapping maps an internal field key to a CRM field.
type FieldMapping struct {
	Key        string `json:"key" yaml:"key"`
	CRMField   string `json:"crm_field" yaml:"crm_field"`
	ObjectType string `json:"object_type" yaml:"object_type"`
	DataType   string `json:"data_type" yaml:"data_type"`
}

// DealHealthConfig tunes the MEDDPICC-style fallback deal-health score used
// when an opportunity has no native probability.
type DealHealthConfig struct {
	MinDescriptionLength int      `json:"min_description_length" yaml:"min_description_length"`
	LateStages           []string `json:"late_stages" yaml:"late_stages"`
}

// AppConfig is the complete dashboard configuration snapshot consumed by the
// engine. Treated as read-only per aggregation call.
type AppConfig struct {
	RiskRules         []RiskRule        `json:"risk_rules" yaml:"risk_rules"`
	PriorityScoring   PriorityConfig    `json:"priority_scoring" yaml:"priority_scoring"`
	FieldMappings     []FieldMapping    `json:"field_mappings,omitempty" yaml:"field_mappings,omitempty"`
	RoleMapping       map[string]string `json:"role_mapping,omitempty" yaml:"role_mapping,omitempty"`
	UserRoleOverrides map[string]string `json:"user_role_overrides,omitempty" yaml:"user_role_overrides,omitempty"`
	ScopeDefaults     map[string]string `json:"scope_defaults,omitempty" yaml:"scope_defaults,omitempty"`
	DealHealth        DealHealthConfig  `json:"deal_health" yaml:"deal_health"`
}

// RoleFor resolves the dashboard role for a user: explicit per-user override
// first, then the CRM role/profile mapping, else account executive.
func (c *AppConfig) RoleFor(userID, crmRole string) string {
	if r, ok := c.UserRoleOverrides[userID]; ok {
		return r
	}
	if r, ok := c.RoleMapping[crmRole]; ok {
		return r
	}
	return RoleAccountExecutive
}

// DefaultScopeFor returns the configured default ownership scope for a role,
// falling back to "mine".
func (c *AppConfig) DefaultScopeFor(role string) string {
	if s, ok := c.ScopeDefaults[role]; ok {
		return s
	}
	return ScopeMine
}
