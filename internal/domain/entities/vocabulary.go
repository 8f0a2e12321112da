package entities

import (
	"fmt"
	"sort"
)

// UnseenCode is the code assigned to a value outside a vocabulary.
const UnseenCode = -1

// Categorical fields fed to the classifier
const (
	FieldPhase        = "phase"
	FieldTrialResults = "trial_results"
)

// PhaseValues lists the trial phases in the order the form presents them.
var PhaseValues = []string{"Preclinical", "Phase 1", "Phase 2", "Phase 3"}

// TrialResultValues lists the trial outcomes in the order the form presents them.
var TrialResultValues = []string{"Success", "Failure", "Adverse Effects"}

// DeclaredValues returns the values a record may carry for field, or nil for
// a field that is not categorical.
func DeclaredValues(field string) []string {
	switch field {
	case FieldPhase:
		return PhaseValues
	case FieldTrialResults:
		return TrialResultValues
	}
	return nil
}

// Vocabulary is a closed, ordered set of allowed values for one categorical
// field. Codes are the positions in the declared class list. A Vocabulary is
// immutable after construction and safe for concurrent use.
type Vocabulary struct {
	field   string
	classes []string
	codes   map[string]int
}

// NewVocabulary builds a vocabulary whose codes follow the order of classes.
func NewVocabulary(field string, classes []string) (*Vocabulary, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("vocabulary %q: no classes", field)
	}

	codes := make(map[string]int, len(classes))
	for i, c := range classes {
		if c == "" {
			return nil, fmt.Errorf("vocabulary %q: empty class at index %d", field, i)
		}
		if _, dup := codes[c]; dup {
			return nil, fmt.Errorf("vocabulary %q: duplicate class %q", field, c)
		}
		codes[c] = i
	}

	return &Vocabulary{
		field:   field,
		classes: append([]string(nil), classes...),
		codes:   codes,
	}, nil
}

// FitVocabulary mirrors a label encoder fit: the distinct values are sorted
// and numbered from zero.
func FitVocabulary(field string, values []string) (*Vocabulary, error) {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return NewVocabulary(field, classes)
}

// DefaultPhaseVocabulary returns the phase encoder fitted on PhaseValues.
func DefaultPhaseVocabulary() *Vocabulary {
	v, err := FitVocabulary(FieldPhase, PhaseValues)
	if err != nil {
		panic(err)
	}
	return v
}

// DefaultTrialResultsVocabulary returns the trial results encoder fitted on TrialResultValues.
func DefaultTrialResultsVocabulary() *Vocabulary {
	v, err := FitVocabulary(FieldTrialResults, TrialResultValues)
	if err != nil {
		panic(err)
	}
	return v
}

// Encode returns the code for value. ok is false, and code is UnseenCode,
// when value is not a member. Matching is exact and case-sensitive.
func (v *Vocabulary) Encode(value string) (code int, ok bool) {
	code, ok = v.codes[value]
	if !ok {
		return UnseenCode, false
	}
	return code, true
}

// EncodeOrSentinel is Encode without the membership flag.
func (v *Vocabulary) EncodeOrSentinel(value string) int {
	code, _ := v.Encode(value)
	return code
}

// Decode returns the class for code.
func (v *Vocabulary) Decode(code int) (string, bool) {
	if code < 0 || code >= len(v.classes) {
		return "", false
	}
	return v.classes[code], true
}

// Contains reports whether value is a member.
func (v *Vocabulary) Contains(value string) bool {
	_, ok := v.codes[value]
	return ok
}

// Missing returns the values v cannot encode, in the order given.
func (v *Vocabulary) Missing(values []string) []string {
	var missing []string
	for _, value := range values {
		if !v.Contains(value) {
			missing = append(missing, value)
		}
	}
	return missing
}

// Field returns the name of the field this vocabulary encodes.
func (v *Vocabulary) Field() string {
	return v.field
}

// Classes returns a copy of the declared classes in code order.
func (v *Vocabulary) Classes() []string {
	return append([]string(nil), v.classes...)
}

// Len returns the number of classes.
func (v *Vocabulary) Len() int {
	return len(v.classes)
}
