package schema

import (
	"encoding/json"
)

// MarshalJSON serializes the rule as its Description.
func (r ObjectRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(Describe(r))
}

// MarshalJSON serializes the rule as its Description.
func (r ArrayRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(Describe(r))
}

// MarshalYAML serializes the rule as its Description.
func (r ObjectRule) MarshalYAML() (any, error) {
	return Describe(r), nil
}

// MarshalYAML serializes the rule as its Description.
func (r ArrayRule) MarshalYAML() (any, error) {
	return Describe(r), nil
}
