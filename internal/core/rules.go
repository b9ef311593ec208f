package core

import "makerdesk/pkg/domain"

type (
	// Rule defines an evaluation executed within a transaction boundary.
	Rule = domain.Rule
	// RulesEngine orchestrates rule evaluation.
	RulesEngine = domain.RulesEngine
	// RuleView exposes read access during rule evaluation.
	RuleView = domain.RuleView
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewReviewGateRule())
	engine.Register(NewStatusTransitionRule())
	engine.Register(NewRevisionLimitRule())
	return engine
}
