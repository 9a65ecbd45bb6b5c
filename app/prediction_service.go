package app

import (
	"context"
	"fmt"

	"survivaldash/domain/prediction"
	"survivaldash/internal"
	"survivaldash/internal/errors"
	"survivaldash/ports"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// PredictionService scores one passenger record with the warehouse's
// survival function. Labels are cached by normalized input; concurrent
// identical requests share a single scoring call.
type PredictionService struct {
	scorer   ports.Scorer
	function string
	cache    *lru.Cache[prediction.Request, float64]
	group    singleflight.Group
	logger   *internal.Logger
}

// NewPredictionService creates a prediction service. cacheSize must be
// positive.
func NewPredictionService(scorer ports.Scorer, function string, cacheSize int, logger *internal.Logger) (*PredictionService, error) {
	if function == "" {
		return nil, errors.ConfigInvalid("scoring function name is required")
	}
	cache, err := lru.New[prediction.Request, float64](cacheSize)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("prediction cache: %v", err))
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &PredictionService{
		scorer:   scorer,
		function: function,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Predict validates req, scores it (or reuses the cached label) and
// interprets the label.
func (s *PredictionService) Predict(ctx context.Context, req prediction.Request) (prediction.Outcome, error) {
	if err := req.Validate(); err != nil {
		return prediction.Outcome{}, err
	}
	key := req.Normalize()

	if label, ok := s.cache.Get(key); ok {
		out := prediction.Interpret(key, label)
		out.Cached = true
		return out, nil
	}

	// Callers share one scoring call; a caller leaving early does not cancel it.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightKey(key), func() (any, error) {
		if label, ok := s.cache.Peek(key); ok {
			return label, nil
		}
		label, err := s.scorer.Score(flightCtx, s.function, key.Record())
		if err != nil {
			return 0.0, err
		}
		s.cache.Add(key, label)
		return label, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return prediction.Outcome{}, errors.Wrap(ctx.Err(), "prediction cancelled")
	case res = <-ch:
	}
	if res.Err != nil {
		s.logger.Warn("scoring %+v failed: %v", key, res.Err)
		return prediction.Outcome{}, errors.Wrap(res.Err, "prediction failed")
	}

	label := res.Val.(float64)
	s.logger.Debug("scored %+v -> %v (shared=%t)", key, label, res.Shared)
	return prediction.Interpret(key, label), nil
}

// CacheLen reports how many labels are cached.
func (s *PredictionService) CacheLen() int {
	return s.cache.Len()
}

func flightKey(r prediction.Request) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d", r.Embarked, r.Sex, r.Pclass, r.Age, r.Fare)
}
