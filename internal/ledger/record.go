package ledger

import (
	"errors"
	"time"

	"github.com/microbit-carlos/codalcfg/internal/target"
)

// Outcome classifies a resolve run.
type Outcome string

const (
	OutcomeOK                  Outcome = "ok"
	OutcomeTypeMismatch        Outcome = "type_mismatch"
	OutcomeMissingDefault      Outcome = "missing_default"
	OutcomeInvariantViolation  Outcome = "invariant_violation"
	OutcomeUnresolvedReference Outcome = "unresolved_reference"
	// OutcomeError covers failures before resolution, such as an unreadable
	// layer file.
	OutcomeError Outcome = "error"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeOK, OutcomeTypeMismatch, OutcomeMissingDefault,
		OutcomeInvariantViolation, OutcomeUnresolvedReference, OutcomeError:
		return true
	}
	return false
}

// OutcomeOf maps a Resolve error to its outcome. A nil error is OutcomeOK.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, target.ErrTypeMismatch):
		return OutcomeTypeMismatch
	case errors.Is(err, target.ErrMissingDefault):
		return OutcomeMissingDefault
	case errors.Is(err, target.ErrInvariantViolation):
		return OutcomeInvariantViolation
	case errors.Is(err, target.ErrUnresolvedReference):
		return OutcomeUnresolvedReference
	default:
		return OutcomeError
	}
}

// EntryRecord is one resolved key as stored in the ledger.
type EntryRecord struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Ref   string `json:"ref,omitempty"`
	Layer string `json:"layer"`
}

// Record is one resolve run.
type Record struct {
	ID       string  `json:"id"`
	Target   string  `json:"target"`
	Base     string  `json:"base"`
	Override string  `json:"override"`
	Outcome  Outcome `json:"outcome"`

	// Set on success.
	Fingerprint string        `json:"fingerprint,omitempty"`
	KeyCount    int           `json:"key_count"`
	Entries     []EntryRecord `json:"entries,omitempty"`

	// Set on failure.
	Invariant string   `json:"invariant,omitempty"`
	ErrorKeys []string `json:"error_keys,omitempty"`
	Message   string   `json:"message,omitempty"`

	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// FromResult builds a record from the return values of target.Resolve.
// Base, Override and Duration are left for the caller.
func FromResult(name string, resolved *target.Resolved, err error) *Record {
	rec := &Record{
		Target:  name,
		Outcome: OutcomeOf(err),
	}
	if err != nil {
		rec.Message = err.Error()
		rec.Invariant, rec.ErrorKeys = failureDetail(err)
		return rec
	}
	if resolved == nil {
		return rec
	}

	rec.Fingerprint = resolved.Fingerprint()
	rec.KeyCount = resolved.Len()
	for _, e := range resolved.Entries() {
		rec.Entries = append(rec.Entries, EntryRecord{
			Key:   string(e.Key),
			Type:  e.Value.Type(),
			Value: e.Value.String(),
			Ref:   string(e.Ref),
			Layer: e.Layer.String(),
		})
	}
	return rec
}

func failureDetail(err error) (invariant string, keys []string) {
	var (
		tm  *target.TypeMismatchError
		md  *target.MissingDefaultError
		iv  *target.InvariantViolationError
		ref *target.ReferenceError
	)
	switch {
	case errors.As(err, &iv):
		for _, k := range iv.Keys {
			keys = append(keys, string(k))
		}
		return string(iv.Invariant), keys
	case errors.As(err, &tm):
		return "", []string{string(tm.Key)}
	case errors.As(err, &md):
		return "", []string{string(md.Key)}
	case errors.As(err, &ref):
		return "", []string{string(ref.Key), string(ref.Target)}
	}
	return "", nil
}
