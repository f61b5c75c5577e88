package aggregation

import (
	"fmt"
	"sort"

	coreagg "github.com/aevon-lab/resampler/internal/core/aggregation"
)

// InMemorySetupRepository is a SetupRepository over a fixed list of setups.
type InMemorySetupRepository struct {
	setups map[string]coreagg.Setup
}

// NewInMemorySetupRepository creates a repository holding setups keyed by name.
func NewInMemorySetupRepository(setups ...coreagg.Setup) *InMemorySetupRepository {
	repo := &InMemorySetupRepository{
		setups: make(map[string]coreagg.Setup),
	}
	for _, setup := range setups {
		repo.setups[setup.Name] = setup
	}
	return repo
}

func (r *InMemorySetupRepository) Get(name string) (coreagg.Setup, error) {
	if setup, ok := r.setups[name]; ok {
		return setup, nil
	}
	return coreagg.Setup{}, fmt.Errorf("aggregation setup %q not found", name)
}

func (r *InMemorySetupRepository) GetSetups() []coreagg.Setup {
	result := make([]coreagg.Setup, 0, len(r.setups))
	for _, setup := range r.setups {
		result = append(result, setup)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
