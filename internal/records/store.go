// Package records holds the clinical reference corpus the reasoning tools
// cross-reference: patient records and known drug interactions, loaded
// once at startup from a JSON file.
package records

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Patient is one patient record.
type Patient struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Age         int      `json:"age"`
	Medications []string `json:"medications"`
	Conditions  []string `json:"conditions"`
}

// Interaction is one known drug interaction.
type Interaction struct {
	Drugs    []string `json:"drugs"`
	Severity string   `json:"severity"`
	Effect   string   `json:"effect"`
}

// file is the on-disk layout.
type file struct {
	Patients     []Patient     `json:"patients"`
	Interactions []Interaction `json:"interactions"`
}

// Store provides read access to the clinical corpus.
type Store struct {
	mu           sync.RWMutex
	patients     []Patient
	interactions []Interaction
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// LoadFile replaces the store contents from a JSON file.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read records file: %w", err)
	}
	return s.Load(data)
}

// Load replaces the store contents from JSON bytes.
func (s *Store) Load(data []byte) error {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse records: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = f.Patients
	s.interactions = f.Interactions
	return nil
}

// Counts returns the number of patients and interactions loaded.
func (s *Store) Counts() (patients, interactions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patients), len(s.interactions)
}

// InteractionsFor returns known interactions involving the given drug.
// Matching is case-insensitive.
func (s *Store) InteractionsFor(drug string) []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Interaction
	for _, ix := range s.interactions {
		for _, d := range ix.Drugs {
			if strings.EqualFold(d, drug) {
				result = append(result, ix)
				break
			}
		}
	}
	return result
}

// PatientsOn returns patients whose medication list contains the drug.
// Matching is case-insensitive.
func (s *Store) PatientsOn(drug string) []Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Patient
	for _, p := range s.patients {
		for _, med := range p.Medications {
			if strings.EqualFold(med, drug) {
				result = append(result, p)
				break
			}
		}
	}
	return result
}

// EntitiesReferencing returns the IDs of patients and the partner drugs of
// interactions that reference the given entity.
func (s *Store) EntitiesReferencing(entity string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var result []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}

	for _, p := range s.patients {
		for _, med := range p.Medications {
			if strings.EqualFold(med, entity) {
				add(p.ID)
			}
		}
		for _, cond := range p.Conditions {
			if strings.EqualFold(cond, entity) {
				add(p.ID)
			}
		}
	}

	for _, ix := range s.interactions {
		matched := false
		for _, d := range ix.Drugs {
			if strings.EqualFold(d, entity) {
				matched = true
				break
			}
		}
		if matched {
			for _, d := range ix.Drugs {
				if !strings.EqualFold(d, entity) {
					add(d)
				}
			}
		}
	}

	return result
}
