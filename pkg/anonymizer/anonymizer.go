package anonymizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/healthflow/platform/pkg/common/logger"
	"github.com/healthflow/platform/pkg/pseudonym"
)

// Resolver is the slice of the pseudonym store the engine needs.
type Resolver interface {
	Resolve(ctx context.Context, originalID, identifierType string) (string, error)
}

// Outcome classifies what happened to one resource during anonymization.
// The orchestration loop decides continue-vs-report from these, not from
// panics or aborts.
type Outcome int

const (
	// OutcomeAnonymized means the type-specific handler ran successfully.
	OutcomeAnonymized Outcome = iota
	// OutcomePassthrough means no handler exists for the resource type.
	OutcomePassthrough
	// OutcomeFallback means the handler failed and the original resource
	// content was kept. Every fallback is a reportable event: it can leak
	// identifying data into an otherwise anonymized bundle.
	OutcomeFallback
)

// Result is the outcome of anonymizing one bundle.
type Result struct {
	Bundle          map[string]interface{}
	PatientPseudoID string
	Anonymized      int
	PassedThrough   int
	Fallbacks       int
}

type handlerFunc func(ctx context.Context, resource map[string]interface{}) (map[string]interface{}, error)

// Engine walks a clinical bundle and replaces identifying values and
// cross-references through the pseudonym store. Dispatch is a lookup table
// keyed by resource type; the handled set is extensible.
type Engine struct {
	resolver Resolver
	handlers map[string]handlerFunc
}

// referenceTypes maps the reference prefix (`<ResourceType>/<id>`) to the
// identifier type used for resolution. Rewriting a reference goes through the
// same resolution as the referenced resource's own identifier, which is what
// keeps the bundle internally consistent.
var referenceTypes = map[string]string{
	"Patient":      pseudonym.TypePatientID,
	"Practitioner": pseudonym.TypePractitionerID,
	"Organization": pseudonym.TypeOrganizationID,
}

func NewEngine(resolver Resolver) *Engine {
	e := &Engine{resolver: resolver}
	e.handlers = map[string]handlerFunc{
		"Patient":           e.anonymizePatient,
		"Observation":       e.anonymizeObservation,
		"Condition":         e.anonymizeCondition,
		"MedicationRequest": e.anonymizeMedicationRequest,
		"DiagnosticReport":  e.anonymizeDiagnosticReport,
	}
	return e
}

// Anonymize replaces identifying content across the whole bundle and returns
// the top-level patient pseudonym. A failure in one resource does not abort
// the bundle: that resource falls back to its original content and the walk
// continues. Output is byte-identical across replays given an unchanged
// store.
func (e *Engine) Anonymize(ctx context.Context, bundle map[string]interface{}, patientID string) (Result, error) {
	if bundle == nil {
		return Result{}, errors.New("nil bundle")
	}
	if patientID == "" {
		return Result{}, errors.New("patient identifier missing")
	}

	pseudoID, err := e.resolver.Resolve(ctx, patientID, pseudonym.TypePatientID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve patient pseudonym: %w", err)
	}

	result := Result{
		Bundle:          cloneMap(bundle),
		PatientPseudoID: pseudoID,
	}

	entries, ok := result.Bundle["entry"].([]interface{})
	if !ok {
		return result, nil
	}

	for _, raw := range entries {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		resource, ok := entry["resource"].(map[string]interface{})
		if !ok {
			result.PassedThrough++
			continue
		}

		resourceType, _ := resource["resourceType"].(string)
		handler, ok := e.handlers[resourceType]
		if !ok {
			result.PassedThrough++
			continue
		}

		// Handlers mutate their own copy so a mid-resource failure leaves
		// the original content in place for the fallback.
		anonymized, err := handler(ctx, cloneMap(resource))
		if err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"resource_type": resourceType,
			}).Warn("Failed to anonymize resource, keeping original content")
			result.Fallbacks++
			continue
		}
		entry["resource"] = anonymized
		result.Anonymized++
	}

	return result, nil
}

// SupportedTypes reports the resource types with a registered handler.
func (e *Engine) SupportedTypes() []string {
	types := make([]string, 0, len(e.handlers))
	for t := range e.handlers {
		types = append(types, t)
	}
	return types
}

// rewriteReference maps `<ResourceType>/<id>` to `<ResourceType>/<pseudonym>`.
// References to types outside the table are returned unchanged.
func (e *Engine) rewriteReference(ctx context.Context, ref string) (string, error) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return ref, nil
	}
	identifierType, ok := referenceTypes[parts[0]]
	if !ok {
		return ref, nil
	}
	pseudo, err := e.resolver.Resolve(ctx, parts[1], identifierType)
	if err != nil {
		return "", err
	}
	return parts[0] + "/" + pseudo, nil
}

// cloneMap deep-copies a decoded JSON tree so a handler failure can fall back
// to the untouched original resource.
func cloneMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
