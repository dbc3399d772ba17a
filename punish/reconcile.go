package punish

import (
	"context"
	"modbot/model"

	"github.com/rs/zerolog/log"
)

// ReconcileResult summarizes one kind's startup reconciliation.
type ReconcileResult struct {
	Kind model.Kind
	// Restored counts entries put back on the expiration queue.
	Restored int
	// Expired counts punishments reversed because they ended while offline.
	Expired int
	// Failed counts reversals that failed; their rows stay active.
	Failed int
}

// Reconcilable is a service whose in-memory state is rebuilt from the store at startup.
type Reconcilable interface {
	Kind() model.Kind
	Reconcile(ctx context.Context) (ReconcileResult, error)
}

// Reconciler rebuilds every expiration queue before commands are accepted.
type Reconciler struct {
	gate     *Gate
	services []Reconcilable
}

// NewReconciler runs services in the given order and opens gate when done.
func NewReconciler(gate *Gate, services ...Reconcilable) *Reconciler {
	return &Reconciler{gate: gate, services: services}
}

// Run reconciles each service in turn. A failing kind is logged and does not
// stop the others. The gate is opened even on failure so commands do not hang;
// rows left active are retried on the next startup.
func (r *Reconciler) Run(ctx context.Context) []ReconcileResult {
	defer r.gate.Open()

	results := make([]ReconcileResult, 0, len(r.services))
	for _, svc := range r.services {
		res, err := svc.Reconcile(ctx)
		if err != nil {
			log.Error().Err(err).Str("kind", string(svc.Kind())).Msg("startup reconciliation failed")
		} else {
			log.Info().
				Str("kind", string(res.Kind)).
				Int("restored", res.Restored).
				Int("expired", res.Expired).
				Int("failed", res.Failed).
				Msg("startup reconciliation finished")
		}
		results = append(results, res)
	}
	return results
}
