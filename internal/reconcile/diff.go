package reconcile

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/metal-toolbox/netsync/internal/model"
)

// isEmpty returns true for nil, empty strings, empty lists and empty maps.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// equal compares a desired value with the current one.
//
// Empty values are equal to each other, maps are compared on the desired keys only and
// everything else is compared by its JSON encoding.
func equal(desired, current any) bool {
	if isEmpty(desired) && isEmpty(current) {
		return true
	}

	if dm, ok := desired.(map[string]any); ok {
		cm, ok := current.(map[string]any)
		if !ok && current != nil {
			return false
		}

		for k, v := range dm {
			if !equal(v, cm[k]) {
				return false
			}
		}

		return true
	}

	db, errD := json.Marshal(desired)
	cb, errC := json.Marshal(current)

	if errD != nil || errC != nil {
		return reflect.DeepEqual(desired, current)
	}

	return bytes.Equal(db, cb)
}

// nonNil returns the fields of desired that are set.
func nonNil(desired map[string]any) map[string]any {
	out := map[string]any{}

	for k, v := range desired {
		if v != nil {
			out[k] = v
		}
	}

	return out
}

// diff returns the desired value of every field that differs from current.
//
// Fields only present in current are never part of the diff.
func diff(desired, current map[string]any) map[string]any {
	if current == nil {
		return nonNil(desired)
	}

	out := map[string]any{}

	for k, v := range desired {
		if !equal(v, current[k]) {
			out[k] = v
		}
	}

	return out
}

// actionAndDiff classifies a proposal, an object that does not exist is created from
// its set desired fields.
func actionAndDiff(desired, current map[string]any, exists bool) (model.Action, map[string]any) {
	if !exists {
		d := nonNil(desired)
		if len(d) == 0 {
			d = desired
		}

		return model.ActionCreate, d
	}

	if current == nil {
		current = map[string]any{}
	}

	d := diff(desired, current)
	if len(d) > 0 {
		return model.ActionUpdate, d
	}

	return model.ActionNoop, nil
}
