package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/helical-labs/medwatch/internal/records"
)

// stringArg extracts a string argument, tolerating absent optional args.
func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// NewCheckInteractions builds the check_interactions tool: given a drug
// name, it reports known interactions and the patients currently on the
// drug.
func NewCheckInteractions(store *records.Store) *Tool {
	return &Tool{
		Name:        "check_interactions",
		Description: "Look up known drug interactions and affected patients for a drug name.",
		Schema: Schema{
			Properties: map[string]map[string]any{
				"drug": {
					"type":        "string",
					"description": "The drug name to check.",
				},
			},
			Required: []string{"drug"},
		},
		Execute: func(_ context.Context, args map[string]any) (*Result, error) {
			drug := stringArg(args, "drug")
			if drug == "" {
				return nil, fmt.Errorf("%w: drug", ErrMissingRequiredArg)
			}

			interactions := store.InteractionsFor(drug)
			patients := store.PatientsOn(drug)

			var b strings.Builder
			var entities []string

			if len(interactions) == 0 {
				fmt.Fprintf(&b, "No known interactions for %s.\n", drug)
			}
			for _, ix := range interactions {
				fmt.Fprintf(&b, "Interaction (%s): %s: %s\n",
					ix.Severity, strings.Join(ix.Drugs, " + "), ix.Effect)
				entities = append(entities, ix.Drugs...)
			}

			if len(patients) == 0 {
				fmt.Fprintf(&b, "No patients currently on %s.", drug)
			} else {
				fmt.Fprintf(&b, "Patients on %s:", drug)
				for _, p := range patients {
					fmt.Fprintf(&b, " %s (age %d, conditions: %s);",
						p.ID, p.Age, strings.Join(p.Conditions, ", "))
					entities = append(entities, p.ID)
				}
			}

			entities = append(entities, drug)
			return &Result{
				Output:   strings.TrimSpace(b.String()),
				Entities: entities,
			}, nil
		},
	}
}

// NewListEntityReferences builds the list_entity_references tool: given an
// entity (drug, condition, patient), it lists every record entity that
// references it.
func NewListEntityReferences(store *records.Store) *Tool {
	return &Tool{
		Name:        "list_entity_references",
		Description: "List patient records and related drugs that reference a given entity.",
		Schema: Schema{
			Properties: map[string]map[string]any{
				"entity": {
					"type":        "string",
					"description": "The entity (drug, condition or patient ID) to cross-reference.",
				},
			},
			Required: []string{"entity"},
		},
		Execute: func(_ context.Context, args map[string]any) (*Result, error) {
			entity := stringArg(args, "entity")
			if entity == "" {
				return nil, fmt.Errorf("%w: entity", ErrMissingRequiredArg)
			}

			refs := store.EntitiesReferencing(entity)
			if len(refs) == 0 {
				return &Result{
					Output:   fmt.Sprintf("No records reference %s.", entity),
					Entities: []string{entity},
				}, nil
			}

			return &Result{
				Output:   fmt.Sprintf("Entities referencing %s: %s", entity, strings.Join(refs, ", ")),
				Entities: append(refs, entity),
			}, nil
		},
	}
}
