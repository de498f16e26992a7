package appconfig

// Default returns the shipped configuration used when no persisted snapshot
// or seed file exists. It passes Validate.
func Default() AppConfig {
	return AppConfig{
		PriorityScoring: PriorityConfig{
			Components: []PriorityComponent{
				{
					ID:     "intent",
					Name:   "Buyer Intent",
					Weight: 40,
					Field:  "IntentScore__c",
				},
				{
					ID:     "size",
					Name:   "Company Size",
					Weight: 35,
					Field:  "NumberOfEmployees",
					ScoreRanges: []ScoreRange{
						{Min: 0, Max: 100, Score: 20},
						{Min: 100, Max: 2000, Score: 100},
						{Min: 2000, Max: 99999, Score: 60},
					},
				},
				{
					ID:     "recency",
					Name:   "Engagement Recency",
					Weight: 25,
					Field:  "EngagementScore__c",
				},
			},
			Thresholds: TierThresholds{
				Hot:  Band{Min: 80, Max: 100},
				Warm: Band{Min: 60, Max: 79},
				Cool: Band{Min: 40, Max: 59},
				Cold: Band{Min: 0, Max: 39},
			},
			RoleConfigs: map[string]RoleConfig{
				RoleSalesLeader: {
					ComponentWeights: map[string]float64{
						"intent": 30,
						"size":   45,
					},
				},
			},
		},
		RiskRules: []RiskRule{
			{
				ID:         "stale-account",
				Name:       "No activity in 30 days",
				ObjectType: ObjectAccount,
				Logic:      "AND",
				Flag:       FlagWarning,
				Active:     true,
				Conditions: []Condition{
					{Field: "LastActivityDate", Operator: OpGreaterThan, Value: 30},
				},
			},
			{
				ID:         "stalled-late-stage",
				Name:       "Late-stage deal untouched for 14 days",
				ObjectType: ObjectOpportunity,
				Logic:      "AND",
				Flag:       FlagAtRisk,
				Active:     true,
				Conditions: []Condition{
					{Field: "LastModifiedDate", Operator: OpGreaterThan, Value: 14},
					{Field: "StageName", Operator: OpIn, Value: []string{"Negotiation", "Proposal"}},
				},
			},
			{
				ID:         "no-next-step",
				Name:       "Open deal without a next step",
				ObjectType: ObjectOpportunity,
				Logic:      "AND",
				Flag:       FlagCritical,
				Active:     true,
				Conditions: []Condition{
					{Field: "IsClosed", Operator: OpEquals, Value: "false"},
					{Field: "NextStep", Operator: OpEquals, Value: ""},
				},
			},
		},
		RoleMapping: map[string]string{
			"Account Executive":        RoleAccountExecutive,
			"Account Manager":          RoleAccountManager,
			"Customer Success Manager": RoleCustomerSuccess,
			"Sales Leader":             RoleSalesLeader,
			"Executive":                RoleExecutive,
		},
		ScopeDefaults: map[string]string{
			RoleAccountExecutive: ScopeMine,
			RoleAccountManager:   ScopeMine,
			RoleCustomerSuccess:  ScopeMine,
			RoleSalesLeader:      ScopeTeam,
			RoleExecutive:        ScopeAll,
		},
		DealHealth: DealHealthConfig{
			MinDescriptionLength: 40,
			LateStages:           []string{"Negotiation", "Proposal", "Contract"},
		},
	}
}
