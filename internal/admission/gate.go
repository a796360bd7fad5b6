// Package admission decides, per inbound request, whether it may proceed
// and which caller identity it carries.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tendawaks/dialogate/internal/auth"
)

const (
	MsgMissingHeader = "Missing or invalid Authorization header"
	MsgInvalidToken  = "JWT Token expired or invalid"
)

// Outcome is the kind of Decision a stage returns.
type Outcome int

const (
	// OutcomeContinue hands the request, possibly with a new context, to the next stage.
	OutcomeContinue Outcome = iota
	// OutcomeAllow forwards the request to the handler without running later stages.
	OutcomeAllow
	// OutcomeReject ends the request with Status and a plaintext Body.
	OutcomeReject
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeAllow:
		return "allow"
	case OutcomeReject:
		return "reject"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision is the result of one stage.
type Decision struct {
	Outcome Outcome
	Status  int
	Body    string
	Ctx     context.Context
}

func Allow() Decision { return Decision{Outcome: OutcomeAllow} }

func Reject(status int, body string) Decision {
	return Decision{Outcome: OutcomeReject, Status: status, Body: body}
}

func Continue(ctx context.Context) Decision {
	return Decision{Outcome: OutcomeContinue, Ctx: ctx}
}

// Stage is one step of the admission pipeline.
type Stage struct {
	Name   string
	Decide func(r *http.Request) Decision
}

// RejectHook observes rejected requests. It must not write to the response.
type RejectHook func(r *http.Request, stage string, d Decision)

// Gate applies its stages in order and stops at the first stage that does
// not return Continue. A request that runs off the end of the list is allowed.
type Gate struct {
	stages   []Stage
	logger   *slog.Logger
	onReject RejectHook
}

// Option configures a Gate.
type Option func(*Gate)

// WithRejectHook registers fn to be called for every rejection.
func WithRejectHook(fn RejectHook) Option {
	return func(g *Gate) { g.onReject = fn }
}

// New builds a Gate running stages in the given order.
func New(logger *slog.Logger, stages []Stage, opts ...Option) *Gate {
	g := &Gate{
		stages: stages,
		logger: logger.With("component", "admission"),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// NewDefault builds the standard gate: public paths first, then bearer
// verification.
func NewDefault(logger *slog.Logger, public PathSet, verifier auth.Verifier, opts ...Option) *Gate {
	return New(logger, []Stage{
		PublicPathStage(public),
		BearerStage(verifier),
	}, opts...)
}

// Evaluate runs the stages for r and returns the final decision together
// with the request carrying every context produced along the way.
func (g *Gate) Evaluate(r *http.Request) (Decision, string, *http.Request) {
	for _, st := range g.stages {
		d := st.Decide(r)
		switch d.Outcome {
		case OutcomeContinue:
			if d.Ctx != nil {
				r = r.WithContext(d.Ctx)
			}
		default:
			return d, st.Name, r
		}
	}
	return Allow(), "", r
}

// Middleware wraps next with the gate.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, stage, r := g.Evaluate(r)
		if d.Outcome == OutcomeReject {
			g.logger.Debug("request rejected",
				"stage", stage, "path", r.URL.Path, "status", d.Status)
			if g.onReject != nil {
				g.onReject(r, stage, d)
			}
			writePlain(w, d.Status, d.Body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// PublicPathStage allows requests whose path is in ps, regardless of any
// credential they carry.
func PublicPathStage(ps PathSet) Stage {
	return Stage{
		Name: "public_path",
		Decide: func(r *http.Request) Decision {
			if ps.Match(r.URL.Path) {
				return Allow()
			}
			return Continue(nil)
		},
	}
}

// BearerStage requires an "Authorization: Bearer <token>" header, verifies
// the token and attaches the resulting identity to the context. An identity
// already attached by an earlier stage is left in place.
func BearerStage(v auth.Verifier) Stage {
	return Stage{
		Name: "bearer",
		Decide: func(r *http.Request) Decision {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				return Reject(http.StatusUnauthorized, MsgMissingHeader)
			}

			id, err := safeVerify(r.Context(), v, token)
			if err != nil || id == nil {
				return Reject(http.StatusUnauthorized, MsgInvalidToken)
			}

			if auth.IdentityFrom(r.Context()) != nil {
				return Continue(nil)
			}
			return Continue(auth.WithIdentity(r.Context(), id))
		},
	}
}

func bearerToken(header string) (string, bool) {
	rest, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token := strings.TrimSpace(rest)
	return token, token != ""
}

// safeVerify converts a verifier panic into an error.
func safeVerify(ctx context.Context, v auth.Verifier, token string) (id *auth.Identity, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			id, err = nil, fmt.Errorf("verifier %s panicked: %v", v.Name(), rec)
		}
	}()
	return v.Verify(ctx, token)
}
