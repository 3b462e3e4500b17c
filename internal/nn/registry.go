package nn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// DefaultActivation is used whenever an unknown activation name is requested.
const DefaultActivation = "selu"

// Constants of the self-normalizing exponential-linear unit.
const (
	seluAlpha = 1.6732632423543772
	seluScale = 1.0507009873554805
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
)

// Activation bundles an elementwise nonlinearity with its derivative, both
// taken at the pre-activation value.
type Activation struct {
	Name       string
	Func       func(x float64) float64
	Derivative func(x float64) float64
}

var activationRegistry = struct {
	mu sync.RWMutex
	m  map[string]Activation
}{
	m: make(map[string]Activation),
}

func init() {
	initializeBuiltInActivations()
}

func initializeBuiltInActivations() {
	MustRegisterActivation(Activation{
		Name: "selu",
		Func: func(x float64) float64 {
			if x > 0 {
				return seluScale * x
			}
			return seluScale * seluAlpha * (math.Exp(x) - 1)
		},
		Derivative: func(x float64) float64 {
			if x > 0 {
				return seluScale
			}
			return seluScale * seluAlpha * math.Exp(x)
		},
	})
	MustRegisterActivation(Activation{
		Name: "relu",
		Func: func(x float64) float64 {
			if x < 0 {
				return 0
			}
			return x
		},
		Derivative: func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		},
	})
	MustRegisterActivation(Activation{
		Name: "tanh",
		Func: math.Tanh,
		Derivative: func(x float64) float64 {
			y := math.Tanh(x)
			return 1 - y*y
		},
	})
	MustRegisterActivation(Activation{
		Name:       "identity",
		Func:       func(x float64) float64 { return x },
		Derivative: func(x float64) float64 { return 1 },
	})
}

func RegisterActivation(act Activation) error {
	if act.Name == "" {
		return errors.New("activation name is required")
	}
	if act.Func == nil {
		return errors.New("activation function is required")
	}
	if act.Derivative == nil {
		return errors.New("activation derivative is required")
	}

	activationRegistry.mu.Lock()
	defer activationRegistry.mu.Unlock()

	if _, exists := activationRegistry.m[act.Name]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, act.Name)
	}
	activationRegistry.m[act.Name] = act
	return nil
}

func MustRegisterActivation(act Activation) {
	if err := RegisterActivation(act); err != nil {
		panic(err)
	}
}

func GetActivation(name string) (Activation, error) {
	activationRegistry.mu.RLock()
	act, ok := activationRegistry.m[name]
	activationRegistry.mu.RUnlock()
	if !ok {
		return Activation{}, fmt.Errorf("%w: %s", ErrActivationNotFound, name)
	}
	return act, nil
}

// ResolveActivation returns the named activation, falling back to the
// default when the name is unknown. The second return reports whether the
// fallback was taken; an invalid choice is never an error.
func ResolveActivation(name string) (Activation, bool) {
	act, err := GetActivation(name)
	if err != nil {
		fallback, fallbackErr := GetActivation(DefaultActivation)
		if fallbackErr != nil {
			panic(fallbackErr)
		}
		return fallback, true
	}
	return act, false
}

func ListActivations() []string {
	activationRegistry.mu.RLock()
	defer activationRegistry.mu.RUnlock()

	names := make([]string, 0, len(activationRegistry.m))
	for name := range activationRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetActivationRegistryForTests() {
	activationRegistry.mu.Lock()
	activationRegistry.m = make(map[string]Activation)
	activationRegistry.mu.Unlock()
	initializeBuiltInActivations()
}
