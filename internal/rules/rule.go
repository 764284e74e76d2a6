package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/pkg/errors"
)

const (
	TransformLower = "lower"
	TransformUpper = "upper"
)

var (
	errTemplate = errors.New("slug_format template error")
)

// Rule derives a value from a candidate string when Pattern matches.
//
// The result is Slug (or its alias Value) when set, else SlugFormat filled from the
// pattern capture groups. Named groups are referenced as {name}, positional groups
// as {0}, {1} or in order with {}.
type Rule struct {
	Pattern    string `yaml:"pattern"`
	Slug       string `yaml:"slug"`
	Value      string `yaml:"value"`
	SlugFormat string `yaml:"slug_format"`
	Transform  string `yaml:"transform"`

	re *regexp.Regexp
}

func (r *Rule) compile() error {
	if r.Pattern == "" {
		return errors.New("rule pattern is empty")
	}

	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return errors.Wrap(err, "rule pattern "+strconv.Quote(r.Pattern))
	}

	if r.value() == "" && r.SlugFormat == "" {
		return errors.New("rule " + strconv.Quote(r.Pattern) + " has neither slug, value nor slug_format")
	}

	switch r.Transform {
	case "", TransformLower, TransformUpper:
	default:
		return errors.New("rule " + strconv.Quote(r.Pattern) + " has unknown transform: " + r.Transform)
	}

	r.re = re

	return nil
}

func (r *Rule) value() string {
	if r.Slug != "" {
		return r.Slug
	}

	return r.Value
}

// Apply returns the derived value, an empty string is returned when the pattern does not match.
func (r *Rule) Apply(candidate string) (string, error) {
	if r.re == nil {
		if err := r.compile(); err != nil {
			return "", errors.Wrap(model.ErrConfiguration, err.Error())
		}
	}

	match := r.re.FindStringSubmatch(candidate)
	if match == nil {
		return "", nil
	}

	result := r.value()
	if result == "" {
		var err error

		result, err = r.format(match)
		if err != nil {
			return "", errors.Wrap(model.ErrClassification, err.Error())
		}
	}

	switch r.Transform {
	case TransformLower:
		result = strings.ToLower(result)
	case TransformUpper:
		result = strings.ToUpper(result)
	}

	return result, nil
}

func (r *Rule) format(match []string) (string, error) {
	named := map[string]string{}

	for idx, name := range r.re.SubexpNames() {
		if idx == 0 || name == "" {
			continue
		}

		named[name] = match[idx]
	}

	positional := match[1:]

	lookup := func(key string, auto *int) (string, error) {
		if len(named) > 0 {
			v, ok := named[key]
			if !ok {
				return "", errors.Wrap(errTemplate, "unknown group: "+key)
			}

			return v, nil
		}

		idx := *auto
		if key != "" {
			var err error

			idx, err = strconv.Atoi(key)
			if err != nil {
				return "", errors.Wrap(errTemplate, "unknown group: "+key)
			}
		} else {
			*auto++
		}

		if idx < 0 || idx >= len(positional) {
			return "", errors.Wrap(errTemplate, "group index out of range: "+strconv.Itoa(idx))
		}

		return positional[idx], nil
	}

	var (
		out  strings.Builder
		auto int
		tmpl = r.SlugFormat
	)

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]

		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			out.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			out.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return "", errors.Wrap(errTemplate, "unterminated placeholder in "+strconv.Quote(tmpl))
			}

			v, err := lookup(tmpl[i+1:i+end], &auto)
			if err != nil {
				return "", err
			}

			out.WriteString(v)
			i += end
		default:
			out.WriteByte(c)
		}
	}

	return out.String(), nil
}
