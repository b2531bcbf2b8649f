package anonymizer

import (
	"context"
	"fmt"

	"github.com/healthflow/platform/pkg/pseudonym"
)

// Per-resource handlers. Each one knows which fields identify a person and
// which fields cross-reference other resources. Free-text location data has
// no reversible-but-safe transform, so addresses are dropped outright.

func (e *Engine) anonymizePatient(ctx context.Context, resource map[string]interface{}) (map[string]interface{}, error) {
	if id, present := resource["id"]; present {
		idStr, ok := id.(string)
		if !ok {
			return nil, fmt.Errorf("patient id is not a string: %T", id)
		}
		pseudo, err := e.resolver.Resolve(ctx, idStr, pseudonym.TypePatientID)
		if err != nil {
			return nil, err
		}
		resource["id"] = pseudo
	}

	if identifiers, ok := resource["identifier"].([]interface{}); ok {
		for _, raw := range identifiers {
			identifier, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if value, ok := identifier["value"].(string); ok && value != "" {
				pseudo, err := e.resolver.Resolve(ctx, value, pseudonym.TypePatientIdentifier)
				if err != nil {
					return nil, err
				}
				identifier["value"] = pseudo
			}
		}
	}

	if names, ok := resource["name"].([]interface{}); ok {
		for _, raw := range names {
			name, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if family, ok := name["family"].(string); ok && family != "" {
				pseudo, err := e.resolver.Resolve(ctx, family, pseudonym.TypeName)
				if err != nil {
					return nil, err
				}
				name["family"] = pseudo
			}
			if given, ok := name["given"].([]interface{}); ok {
				for i, g := range given {
					if givenStr, ok := g.(string); ok && givenStr != "" {
						pseudo, err := e.resolver.Resolve(ctx, givenStr, pseudonym.TypeName)
						if err != nil {
							return nil, err
						}
						given[i] = pseudo
					}
				}
			}
		}
	}

	if telecoms, ok := resource["telecom"].([]interface{}); ok {
		for _, raw := range telecoms {
			telecom, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			value, ok := telecom["value"].(string)
			if !ok || value == "" {
				continue
			}
			system, _ := telecom["system"].(string)
			switch system {
			case "phone":
				pseudo, err := e.resolver.Resolve(ctx, value, pseudonym.TypePhone)
				if err != nil {
					return nil, err
				}
				telecom["value"] = pseudo
			case "email":
				pseudo, err := e.resolver.Resolve(ctx, value, pseudonym.TypeEmail)
				if err != nil {
					return nil, err
				}
				telecom["value"] = pseudo
			}
		}
	}

	delete(resource, "address")

	return resource, nil
}

func (e *Engine) anonymizeObservation(ctx context.Context, resource map[string]interface{}) (map[string]interface{}, error) {
	if err := e.rewriteSubject(ctx, resource); err != nil {
		return nil, err
	}
	if err := e.rewritePerformers(ctx, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (e *Engine) anonymizeCondition(ctx context.Context, resource map[string]interface{}) (map[string]interface{}, error) {
	if err := e.rewriteSubject(ctx, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (e *Engine) anonymizeMedicationRequest(ctx context.Context, resource map[string]interface{}) (map[string]interface{}, error) {
	if err := e.rewriteSubject(ctx, resource); err != nil {
		return nil, err
	}
	if requester, ok := resource["requester"].(map[string]interface{}); ok {
		if err := e.rewriteReferenceField(ctx, requester); err != nil {
			return nil, err
		}
	}
	return resource, nil
}

func (e *Engine) anonymizeDiagnosticReport(ctx context.Context, resource map[string]interface{}) (map[string]interface{}, error) {
	if err := e.rewriteSubject(ctx, resource); err != nil {
		return nil, err
	}
	if err := e.rewritePerformers(ctx, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (e *Engine) rewriteSubject(ctx context.Context, resource map[string]interface{}) error {
	subject, ok := resource["subject"].(map[string]interface{})
	if !ok {
		return nil
	}
	return e.rewriteReferenceField(ctx, subject)
}

func (e *Engine) rewritePerformers(ctx context.Context, resource map[string]interface{}) error {
	performers, ok := resource["performer"].([]interface{})
	if !ok {
		return nil
	}
	for _, raw := range performers {
		performer, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if err := e.rewriteReferenceField(ctx, performer); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) rewriteReferenceField(ctx context.Context, field map[string]interface{}) error {
	ref, present := field["reference"]
	if !present {
		return nil
	}
	refStr, ok := ref.(string)
	if !ok {
		return fmt.Errorf("reference is not a string: %T", ref)
	}
	rewritten, err := e.rewriteReference(ctx, refStr)
	if err != nil {
		return err
	}
	field["reference"] = rewritten
	return nil
}
