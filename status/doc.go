// Package status provides agent-scoped progress reporting for pipeline runs.
//
// An agent reports what it is doing through a Line: a short free-text message
// that is logged and stored in a shared Handler, keyed by agent name. The
// Handler can be read at any time, e.g. by a CLI printing live progress.
//
// The orchestrator creates one Line per agent run and places it in the
// context passed to the agent's handler:
//
//	func (p *Parser) Execute(ctx context.Context, pc *workflow.Context) (*workflow.Result, error) {
//	    line := status.FromContext(ctx)
//	    line.Set("parsing 3 files")
//	    ...
//	}
//
// FromContext never returns nil, so agents run outside an orchestrator can
// still call Set.
//
// CaptureError records a failing step as the agent's status:
//
//	err := status.CaptureError(line, func() error {
//	    return p.client.Analyze(ctx, files)
//	})
package status
