package operator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Built-in operator identifiers.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpLessThan     = "<"
	OpGreaterThan  = ">"
	OpLessEqual    = "<="
	OpGreaterEqual = ">="
	OpIn           = "in"
	OpNotIn        = "not-in"
	OpContains     = "contains"
	OpStartsWith   = "starts-with"
	OpEndsWith     = "ends-with"
	OpMatches      = "matches"
	OpLike         = "like"
)

// ClassComparable groups the equality and ordering operators whose
// same-path constraints merge into tightest bounds at compile time.
const ClassComparable = "comparable"

// builtins returns the default operator table.
func builtins() []Definition {
	return []Definition{
		{ID: OpEqual, Eval: evalEqual, Negate: OpNotEqual, Converse: OpEqual, Class: ClassComparable, Simplify: simplifyComparable, Subsumes: subsumesComparable},
		{ID: OpNotEqual, Eval: evalNotEqual, Negate: OpEqual, Converse: OpNotEqual, Class: ClassComparable, Simplify: simplifyComparable, Subsumes: subsumesComparable},
		{ID: OpLessThan, Eval: evalLessThan, Negate: OpGreaterEqual, Converse: OpGreaterThan, Class: ClassComparable, Simplify: simplifyComparable, Subsumes: subsumesComparable},
		{ID: OpGreaterThan, Eval: evalGreaterThan, Negate: OpLessEqual, Converse: OpLessThan, Class: ClassComparable, Simplify: simplifyComparable, Subsumes: subsumesComparable},
		{ID: OpLessEqual, Eval: evalLessEqual, Negate: OpGreaterThan, Converse: OpGreaterEqual, Class: ClassComparable, Simplify: simplifyComparable, Subsumes: subsumesComparable},
		{ID: OpGreaterEqual, Eval: evalGreaterEqual, Negate: OpLessThan, Converse: OpLessEqual, Class: ClassComparable, Simplify: simplifyComparable, Subsumes: subsumesComparable},
		{ID: OpIn, Eval: evalIn, Negate: OpNotIn},
		{ID: OpNotIn, Eval: evalNotIn, Negate: OpIn},
		{ID: OpContains, Eval: evalContains},
		{ID: OpStartsWith, Eval: evalStartsWith},
		{ID: OpEndsWith, Eval: evalEndsWith},
		{ID: OpMatches, Eval: evalMatches},
		{ID: OpLike, Eval: evalLike},
	}
}

// evalEqual checks if two values are equal.
func evalEqual(actual, expected interface{}) (bool, error) {
	if actual == nil && expected == nil {
		return true, nil
	}
	if actual == nil || expected == nil {
		return false, nil
	}

	// Numeric comparison first, so int and float64 compare by value.
	actualNum, actualErr := convertToFloat64(actual)
	expectedNum, expectedErr := convertToFloat64(expected)
	if actualErr == nil && expectedErr == nil {
		return actualNum == expectedNum, nil
	}

	return reflect.DeepEqual(actual, expected), nil
}

// evalNotEqual checks if two values differ.
func evalNotEqual(actual, expected interface{}) (bool, error) {
	equal, err := evalEqual(actual, expected)
	return !equal, err
}

// evalLessThan checks actual < expected (numeric comparison).
func evalLessThan(actual, expected interface{}) (bool, error) {
	actualNum, expectedNum, err := toNumeric(actual, expected)
	if err != nil {
		return false, err
	}
	return actualNum < expectedNum, nil
}

// evalGreaterThan checks actual > expected (numeric comparison).
func evalGreaterThan(actual, expected interface{}) (bool, error) {
	actualNum, expectedNum, err := toNumeric(actual, expected)
	if err != nil {
		return false, err
	}
	return actualNum > expectedNum, nil
}

// evalLessEqual checks actual <= expected (numeric comparison).
func evalLessEqual(actual, expected interface{}) (bool, error) {
	actualNum, expectedNum, err := toNumeric(actual, expected)
	if err != nil {
		return false, err
	}
	return actualNum <= expectedNum, nil
}

// evalGreaterEqual checks actual >= expected (numeric comparison).
func evalGreaterEqual(actual, expected interface{}) (bool, error) {
	actualNum, expectedNum, err := toNumeric(actual, expected)
	if err != nil {
		return false, err
	}
	return actualNum >= expectedNum, nil
}

// evalIn checks if actual is an element of the expected list.
func evalIn(actual, expected interface{}) (bool, error) {
	expectedVal := reflect.ValueOf(expected)
	if expectedVal.Kind() != reflect.Slice && expectedVal.Kind() != reflect.Array {
		return false, fmt.Errorf("in operator requires slice or array for expected, got %T", expected)
	}
	for i := 0; i < expectedVal.Len(); i++ {
		equal, err := evalEqual(actual, expectedVal.Index(i).Interface())
		if err != nil {
			return false, err
		}
		if equal {
			return true, nil
		}
	}
	return false, nil
}

// evalNotIn checks if actual is not an element of the expected list.
func evalNotIn(actual, expected interface{}) (bool, error) {
	in, err := evalIn(actual, expected)
	return !in, err
}

// evalContains checks if actual contains expected (substring or element).
func evalContains(actual, expected interface{}) (bool, error) {
	if actualStr, ok := actual.(string); ok {
		expectedStr, ok := toString(expected)
		if !ok {
			return false, fmt.Errorf("contains operator requires string or convertible value for expected")
		}
		return strings.Contains(actualStr, expectedStr), nil
	}

	actualVal := reflect.ValueOf(actual)
	if actualVal.Kind() != reflect.Slice && actualVal.Kind() != reflect.Array {
		return false, fmt.Errorf("contains operator requires string, slice, or array for actual, got %T", actual)
	}
	for i := 0; i < actualVal.Len(); i++ {
		equal, err := evalEqual(actualVal.Index(i).Interface(), expected)
		if err != nil {
			return false, err
		}
		if equal {
			return true, nil
		}
	}
	return false, nil
}

// evalStartsWith checks if actual starts with expected.
func evalStartsWith(actual, expected interface{}) (bool, error) {
	actualStr, expectedStr, err := toStringPair(actual, expected, OpStartsWith)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(actualStr, expectedStr), nil
}

// evalEndsWith checks if actual ends with expected.
func evalEndsWith(actual, expected interface{}) (bool, error) {
	actualStr, expectedStr, err := toStringPair(actual, expected, OpEndsWith)
	if err != nil {
		return false, err
	}
	return strings.HasSuffix(actualStr, expectedStr), nil
}

// evalMatches checks if actual matches the expected regex pattern.
func evalMatches(actual, expected interface{}) (bool, error) {
	actualStr, ok := toString(actual)
	if !ok {
		return false, fmt.Errorf("matches operator requires string or convertible value for actual")
	}
	pattern, ok := expected.(string)
	if !ok {
		return false, fmt.Errorf("matches operator requires string pattern for expected")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return re.MatchString(actualStr), nil
}

// evalLike checks if actual matches the expected glob pattern.
func evalLike(actual, expected interface{}) (bool, error) {
	actualStr, ok := toString(actual)
	if !ok {
		return false, fmt.Errorf("like operator requires string or convertible value for actual")
	}
	pattern, ok := expected.(string)
	if !ok {
		return false, fmt.Errorf("like operator requires string pattern for expected")
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return g.Match(actualStr), nil
}
