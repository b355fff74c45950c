package generator

import (
	"github.com/go-playground/validator/v10"

	"github.com/layiku/data-simulator/pkg/config"
)

var validate = validator.New()

// validateObject applies the structural rules declared on ObjectConfig.
func validateObject(name string, cfg *config.ObjectConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return &ConfigurationError{Object: name, Reason: err.Error()}
	}
	return nil
}

// New builds the generator for one configured object. Unknown data types and
// invalid configurations come back as typed errors so the caller can skip
// the object and keep going.
func New(name string, cfg *config.ObjectConfig, d Deps) (Generator, error) {
	switch cfg.DataType {
	case config.TypeRandom:
		return NewRandomWalk(name, cfg, d)
	case config.TypeStep:
		return NewStepSequence(name, cfg, d)
	case config.TypeOrder:
		return NewOrderEvent(name, cfg, d)
	case config.TypeSum:
		return NewSumAggregate(name, cfg, d)
	default:
		return nil, &UnsupportedTypeError{Object: name, DataType: cfg.DataType}
	}
}
