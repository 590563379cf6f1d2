// Package metrics emits the application's standard StatsD metrics.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/sponsorlink/sponsorlink-web/internal/observability/errors"
	"github.com/sponsorlink/sponsorlink-web/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultRefused = "refused"
)

// GateDecision describes one redirect guard decision.
type GateDecision struct {
	Route  string // route pattern being guarded
	State  string // profile state kind
	Action string // render, wait or navigate
	Reason string
}

// EmitGateDecision counts a guard decision.
func EmitGateDecision(sink statsd.Sink, in GateDecision) {
	if sink == nil {
		return
	}
	sink.Count("gate.decision", 1, map[string]string{
		"route":  in.Route,
		"state":  in.State,
		"action": in.Action,
		"reason": in.Reason,
	})
}

// OracleFetch describes one identity snapshot fetch.
type OracleFetch struct {
	Result   string
	Duration time.Duration
	Err      error
}

// EmitOracleFetch records snapshot fetch latency and outcome.
func EmitOracleFetch(sink statsd.Sink, in OracleFetch) {
	if sink == nil {
		return
	}
	tags := withErrorClass(map[string]string{"result": in.Result}, in.Result, in.Err)
	sink.Count("oracle.fetch", 1, tags)
	if in.Duration > 0 {
		sink.Timing("oracle.fetch.duration", in.Duration, CloneTags(tags))
	}
}

// AccountOp describes one account operation (sign-up, sign-in, ...).
type AccountOp struct {
	Op       string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitAccountOp counts an account operation, tagging refusals with their code.
func EmitAccountOp(sink statsd.Sink, in AccountOp) {
	if sink == nil {
		return
	}
	tags := withErrorClass(map[string]string{"op": in.Op, "result": in.Result}, in.Result, in.Err)
	sink.Count("account.op", 1, tags)
	if in.Duration > 0 {
		sink.Timing("account.op.duration", in.Duration, CloneTags(tags))
	}
}

// ProfileSubmit describes one profile editor submission.
type ProfileSubmit struct {
	Role   string
	Result string
	State  string // state after the submission
	Err    error
}

// EmitProfileSubmit counts a profile submission.
func EmitProfileSubmit(sink statsd.Sink, in ProfileSubmit) {
	if sink == nil {
		return
	}
	tags := map[string]string{"role": in.Role, "result": in.Result}
	if in.State != "" {
		tags["state"] = in.State
	}
	sink.Count("profile.submit", 1, withErrorClass(tags, in.Result, in.Err))
}

// EmitCorruptAccount counts an account found in the Corrupt state.
func EmitCorruptAccount(sink statsd.Sink, notified bool) {
	if sink == nil {
		return
	}
	n := "false"
	if notified {
		n = "true"
	}
	sink.Count("account.corrupt", 1, map[string]string{"notified": n})
}

func withErrorClass(tags map[string]string, result string, err error) map[string]string {
	if err != nil && result != ResultSuccess {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	return tags
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
