package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"admission-gateway/middleware/ratelimit/application"
	"admission-gateway/middleware/ratelimit/domain"
	"admission-gateway/middleware/ratelimit/infra"
	"admission-gateway/middleware/ratelimit/policy"
)

type Options struct {
	// Policies padrão: policy.DefaultTable().
	Policies domain.PolicySource
	// Classifier padrão: policy.NewClassifier().
	Classifier *policy.Classifier

	// Windows/Violations padrão: stores em memória novos. Passe instâncias
	// próprias para compartilhar estado ou exportar métricas.
	Windows    domain.WindowStore
	Violations domain.ViolationTracker

	Stats    domain.StatsStore
	Observer domain.Observer
	Logger   *zerolog.Logger

	RejectStatus int
	Now          func() time.Time
}

// Middleware aplica a decisão de admissão antes do handler. Erros internos
// nunca viram 5xx: a request segue (fail-open) e o evento é logado.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.Policies == nil {
		opts.Policies = policy.DefaultTable()
	}
	if opts.Classifier == nil {
		opts.Classifier = policy.NewClassifier()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Windows == nil {
		opts.Windows = infra.NewWindowStore(infra.WithClock(opts.Now))
	}
	if opts.Violations == nil {
		opts.Violations = infra.NewViolationTracker(infra.WithClock(opts.Now))
	}

	svc := application.Service{
		Policies:    opts.Policies,
		Windows:     opts.Windows,
		Violations:  opts.Violations,
		Classify:    opts.Classifier.Classify,
		Observer:    opts.Observer,
		Logger:      opts.Logger,
		DegradedLog: &rate.Sometimes{First: 5, Interval: 10 * time.Second},
		Now:         opts.Now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec := svc.Decide(domain.Request{
				Path:   r.URL.Path,
				Origin: OriginFromRequest(r),
			})

			if opts.Stats != nil && dec.Gated() {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:      dec.Client,
					Category: dec.Category,
					Allowed:  dec.Allowed,
					Code:     dec.Code,
					Method:   r.Method,
					Path:     r.URL.Path,
					At:       opts.Now(),
				})
			}

			if !dec.Gated() {
				next.ServeHTTP(w, r)
				return
			}
			if !dec.Allowed {
				WriteDenied(w, dec, opts.RejectStatus)
				return
			}

			SetHeaders(w.Header(), dec)
			next.ServeHTTP(w, r.WithContext(WithDecision(r.Context(), dec)))
		})
	}
}

type decisionKey struct{}

// WithDecision guarda a decisão no contexto para handlers posteriores.
func WithDecision(ctx context.Context, d domain.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFromContext retorna a decisão do middleware, se houver.
func DecisionFromContext(ctx context.Context) (domain.Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(domain.Decision)
	return d, ok
}
