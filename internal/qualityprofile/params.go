package qualityprofile

import (
	"regexp"
	"strings"

	"github.com/spf13/cast"

	pkgerrors "qprofile/pkg/errors"
)

// integerLiteral accepts plain decimal integers. cast truncates "4.2" to 4.
var integerLiteral = regexp.MustCompile(`^[+-]?[0-9]+$`)

// ValidateParamValue checks value against the declared type of p.
func ValidateParamValue(p RuleParam, value string) error {
	var err error
	switch p.Type {
	case ParamTypeInteger:
		v := strings.TrimSpace(value)
		if !integerLiteral.MatchString(v) {
			return pkgerrors.ErrValidation.WithMessage("value %q is not a valid %s for parameter %q", value, p.Type, p.Name)
		}
		_, err = cast.ToInt64E(v)
	case ParamTypeFloat:
		_, err = cast.ToFloat64E(strings.TrimSpace(value))
	case ParamTypeBoolean:
		_, err = cast.ToBoolE(strings.TrimSpace(value))
	case ParamTypeString:
		if strings.ContainsAny(value, "\r\n") {
			return pkgerrors.ErrValidation.WithMessage("parameter %q of type STRING must be a single line", p.Name)
		}
	case ParamTypeText, "":
	default:
		return pkgerrors.ErrValidation.WithMessage("parameter %q has unsupported type %q", p.Name, p.Type)
	}
	if err != nil {
		return pkgerrors.ErrValidation.WithMessage("value %q is not a valid %s for parameter %q", value, p.Type, p.Name)
	}
	return nil
}

// resolveParams computes the parameters of an active rule. It starts from the
// current values (or the rule defaults for a new activation), applies the
// requested overrides, and validates every resulting value. An empty requested
// value resets the parameter to its default.
func resolveParams(rule *Rule, current map[string]string, requested map[string]string) (map[string]string, error) {
	var params map[string]string
	if current != nil {
		params = copyParams(current)
	} else {
		params = make(map[string]string, len(rule.Params))
		for _, p := range rule.Params {
			if def, ok := p.DefaultValue.Get(); ok {
				params[p.Name] = def
			}
		}
	}

	for _, name := range sortedParamNames(requested) {
		p, ok := rule.Param(name)
		if !ok {
			return nil, pkgerrors.ErrValidation.WithMessage("rule %s has no parameter %q", rule.Key, name)
		}
		value := requested[name]
		if value == "" {
			if def, ok := p.DefaultValue.Get(); ok {
				params[name] = def
			} else {
				delete(params, name)
			}
			continue
		}
		params[name] = value
	}

	for _, name := range sortedParamNames(params) {
		p, ok := rule.Param(name)
		if !ok {
			// Parameter was dropped from the rule definition.
			delete(params, name)
			continue
		}
		if err := ValidateParamValue(p, params[name]); err != nil {
			return nil, err
		}
	}

	return params, nil
}
