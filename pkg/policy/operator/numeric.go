package operator

import "fmt"

// toNumeric converts both operands to float64 for numeric comparison.
func toNumeric(actual, expected interface{}) (float64, float64, error) {
	actualNum, err := convertToFloat64(actual)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert actual value to number: %w", err)
	}
	expectedNum, err := convertToFloat64(expected)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert expected value to number: %w", err)
	}
	return actualNum, expectedNum, nil
}

// convertToFloat64 converts a value to float64.
func convertToFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// toString accepts strings and Stringers. Anything else is rejected so
// the string operators error instead of silently coercing.
func toString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}

// toStringPair converts both operands to strings for a string operator.
func toStringPair(actual, expected interface{}, op string) (string, string, error) {
	actualStr, ok := toString(actual)
	if !ok {
		return "", "", fmt.Errorf("%s operator requires string or convertible value for actual", op)
	}
	expectedStr, ok := toString(expected)
	if !ok {
		return "", "", fmt.Errorf("%s operator requires string or convertible value for expected", op)
	}
	return actualStr, expectedStr, nil
}
