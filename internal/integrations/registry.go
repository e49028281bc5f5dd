package integrations

import (
	"fmt"
	"sync"
)

// RegistryInterface - набор генераторов и указатель на текущий.
type RegistryInterface interface {
	Register(provider TextGenerator) error
	Get(name string) (TextGenerator, error)
	SetActive(name string) error
	GetActive() (TextGenerator, error)
}

type Registry struct {
	providers map[string]TextGenerator
	active    string
	mu        sync.RWMutex
}

func NewRegistry() RegistryInterface {
	return &Registry{
		providers: make(map[string]TextGenerator),
	}
}

// Register - первый зарегистрированный генератор сразу становится активным.
func (r *Registry) Register(provider TextGenerator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("генератор с именем '%s' уже зарегистрирован", name)
	}

	r.providers[name] = provider
	if r.active == "" {
		r.active = name
	}
	return nil
}

func (r *Registry) Get(name string) (TextGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("генератор с именем '%s' не найден", name)
	}
	return provider, nil
}

func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("невозможно установить активным генератор '%s': он не зарегистрирован", name)
	}

	r.active = name
	return nil
}

func (r *Registry) GetActive() (TextGenerator, error) {
	r.mu.RLock()
	activeName := r.active
	r.mu.RUnlock()

	if activeName == "" {
		return nil, fmt.Errorf("активный генератор не установлен")
	}

	return r.Get(activeName)
}
