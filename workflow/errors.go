package workflow

import (
	"fmt"
	"strings"

	"github.com/WRENCH-CLOUD/machnix-sub003/models"
)

// InvalidTransitionError rejects a status change the lifecycle does not
// allow. Allowed carries the legal targets from the current status so the
// client can render its options without a second call.
type InvalidTransitionError struct {
	From    models.TaskStatus
	To      models.TaskStatus
	Allowed []models.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("cannot transition task from %s to %s (allowed: %s)",
		e.From, e.To, strings.Join(allowed, ", "))
}
