package replay

// Step is one transition of a chain with its continuation policy.
type Step struct {
	Transition string
	// Past and Future are the probabilities of applying the transition to
	// documents dated before and after the reference date.
	Past   float64
	Future float64
	// CancelPast and CancelFuture are the probabilities of cancelling a
	// document whose chain halts before this step.
	CancelPast   float64
	CancelFuture float64
}

func (s Step) continuation(past bool) float64 {
	if past {
		return s.Past
	}
	return s.Future
}

func (s Step) cancellation(past bool) float64 {
	if past {
		return s.CancelPast
	}
	return s.CancelFuture
}

// Chain is the ordered transition list of a document type.
type Chain struct {
	Model string
	// Cancel is the transition applied to cancelled documents, if any.
	Cancel string
	Steps  []Step
}

// Plan is the outcome of drawing a chain for one document.
type Plan struct {
	// Transitions is a prefix of the chain's steps.
	Transitions []string
	// Cancelled is set when the document is cancelled after Transitions.
	Cancelled bool
}

// Depth is the number of transitions applied.
func (p Plan) Depth() int {
	return len(p.Transitions)
}

// Plan draws how far a document advances. Each step is applied with its
// continuation probability; the first step that is not applied halts the
// chain and may cancel the document.
func (c Chain) Plan(r *Rand, past bool) Plan {
	var plan Plan
	for _, s := range c.Steps {
		if r.Chance(s.continuation(past)) {
			plan.Transitions = append(plan.Transitions, s.Transition)
			continue
		}
		if c.Cancel != "" && r.Chance(s.cancellation(past)) {
			plan.Cancelled = true
		}
		break
	}
	return plan
}

// Sales go quote, confirm, process. Past sales continue with probability
// 2/3 at each step and future ones with 1/3; a sale halted before
// confirmation is cancelled with the complementary probability.
var SaleChain = Chain{
	Model:  "sale.sale",
	Cancel: "cancel",
	Steps: []Step{
		{Transition: "quote", Past: 2.0 / 3, Future: 1.0 / 3, CancelPast: 1.0 / 3, CancelFuture: 2.0 / 3},
		{Transition: "confirm", Past: 2.0 / 3, Future: 1.0 / 3, CancelPast: 1.0 / 3, CancelFuture: 2.0 / 3},
		{Transition: "process", Past: 2.0 / 3, Future: 1.0 / 3},
	},
}

// Purchases are quoted and confirmed with probability 2/3 each and always
// processed once confirmed. Unquoted purchases are cancelled half of the
// time.
var PurchaseChain = Chain{
	Model:  "purchase.purchase",
	Cancel: "cancel",
	Steps: []Step{
		{Transition: "quote", Past: 2.0 / 3, Future: 2.0 / 3, CancelPast: 0.5, CancelFuture: 0.5},
		{Transition: "confirm", Past: 2.0 / 3, Future: 2.0 / 3},
		{Transition: "process", Past: 1, Future: 1},
	},
}

// Past productions always wait, are forced assigned and run, and finish
// two times out of three. Future productions only wait, one time in three.
var ProductionChain = Chain{
	Model: "production",
	Steps: []Step{
		{Transition: "wait", Past: 1, Future: 1.0 / 3},
		{Transition: "assign_force", Past: 1},
		{Transition: "run", Past: 1},
		{Transition: "done", Past: 2.0 / 3},
	},
}

// IncomingShipmentChain receives supplier shipments and closes them.
var IncomingShipmentChain = Chain{
	Model: "stock.shipment.in",
	Steps: []Step{
		{Transition: "receive", Past: 1, Future: 1},
		{Transition: "done", Past: 1, Future: 1},
	},
}

// OutgoingShipmentChain packs and closes assigned customer shipments.
var OutgoingShipmentChain = Chain{
	Model: "stock.shipment.out",
	Steps: []Step{
		{Transition: "pack", Past: 1, Future: 1},
		{Transition: "done", Past: 1, Future: 1},
	},
}

// WorkCycleChain runs and completes a production work cycle.
var WorkCycleChain = Chain{
	Model: "production.work.cycle",
	Steps: []Step{
		{Transition: "run", Past: 1, Future: 1},
		{Transition: "do", Past: 1, Future: 1},
	},
}
