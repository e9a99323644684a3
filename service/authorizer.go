package service

import (
	"context"
	"fmt"
)

// Actions requiring operator authorization
const (
	ActionManageDefinitions = "manage_definitions"
	ActionLockRun           = "lock_run"
	ActionTriggerDraw       = "trigger_draw"
	ActionSettleRun         = "settle_run"
	ActionDecideWithdrawal  = "decide_withdrawal"
)

// operatorAuthorizer allows a fixed set of operator ids to perform any
// state-changing action. Role resolution happens upstream; this is the
// boundary check the engine trusts.
type operatorAuthorizer struct {
	operators map[string]bool
}

// NewOperatorAuthorizer creates an authorizer allowing the given operator ids
func NewOperatorAuthorizer(operatorIDs []string) Authorizer {
	operators := make(map[string]bool, len(operatorIDs))
	for _, id := range operatorIDs {
		operators[id] = true
	}
	return &operatorAuthorizer{operators: operators}
}

func (a *operatorAuthorizer) Authorize(ctx context.Context, actor Actor, action string) error {
	if actor.Type == "system" {
		return nil
	}
	if !a.operators[actor.ID] {
		return fmt.Errorf("actor %s may not %s: %w", actor.ID, action, ErrUnauthorized)
	}
	return nil
}

// SystemActor is the identity used by scheduled jobs
var SystemActor = Actor{ID: "scheduler", Type: "system"}
