// Package feeoracle estimates inbound/outbound/refund fees per chain.
//
// Estimators are registered per chain in a closed capability table built at
// startup, so an unsupported chain is a configuration-time error rather than
// a runtime surprise.
package feeoracle

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/internal/domain"
)

// ErrUnsupportedChain is returned when no estimator is registered for a
// chain. This indicates a configuration error and must abort the operation
// loudly.
var ErrUnsupportedChain = errors.New("no fee estimator registered for chain")

// FeeParams describes the operation fees are estimated for. A provisional
// memo is enough; estimators only use it to size the transaction.
type FeeParams struct {
	Asset     domain.Asset
	Recipient string
	Memo      string
	Amount    domain.Amount
}

// Estimator produces the fee triple for one chain family. Implementations
// are stateless per call; last-known-good caching is the caller's
// responsibility.
type Estimator interface {
	EstimateFees(ctx context.Context, params FeeParams) (domain.Fees, error)
}

// Registry is the closed chain -> estimator capability table.
type Registry struct {
	estimators map[domain.Chain]Estimator
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{estimators: make(map[domain.Chain]Estimator)}
}

// Register adds an estimator for a chain. Registering twice is a wiring bug.
func (r *Registry) Register(chain domain.Chain, est Estimator) error {
	if _, ok := r.estimators[chain]; ok {
		return errors.Errorf("fee estimator for chain %s already registered", chain)
	}
	r.estimators[chain] = est
	return nil
}

// Estimator returns the estimator for a chain.
func (r *Registry) Estimator(chain domain.Chain) (Estimator, error) {
	est, ok := r.estimators[chain]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedChain, "chain %s", chain)
	}
	return est, nil
}

// Chains lists every registered chain.
func (r *Registry) Chains() []domain.Chain {
	chains := make([]domain.Chain, 0, len(r.estimators))
	for c := range r.estimators {
		chains = append(chains, c)
	}
	return chains
}

// Service runs estimations with latest-wins coalescing: a reload issued
// while another is in flight supersedes it, and the superseded result is
// dropped on arrival instead of being applied.
type Service struct {
	registry *Registry
	logger   *zap.Logger

	mu  sync.Mutex
	gen uint64
}

// NewService creates a fee estimation service over a registry.
func NewService(registry *Registry, logger *zap.Logger) *Service {
	return &Service{registry: registry, logger: logger}
}

// Reload estimates fees for params and delivers the result through apply.
// Only the most recent reload's result is ever applied; earlier in-flight
// results are discarded, not merged. apply always runs on the calling
// service's lock, so callers can treat it as serialized.
func (s *Service) Reload(ctx context.Context, params FeeParams, apply func(domain.RemoteData[domain.Fees])) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	apply(domain.RemotePendingOf[domain.Fees]())

	go func() {
		est, err := s.registry.Estimator(params.Asset.Chain)
		var result domain.RemoteData[domain.Fees]
		if err != nil {
			result = domain.RemoteFailureOf[domain.Fees](err)
		} else if fees, ferr := est.EstimateFees(ctx, params); ferr != nil {
			result = domain.RemoteFailureOf[domain.Fees](errors.Wrapf(ferr, "estimate fees for %s", params.Asset))
		} else {
			result = domain.RemoteSuccessOf(fees)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			s.logger.Debug("dropping superseded fee estimate",
				zap.String("asset", params.Asset.String()))
			return
		}
		apply(result)
	}()
}
