package forms

import (
	"fmt"
	"strings"
)

// CycleError reports fields whose conditions depend on each other.
type CycleError struct {
	Fields []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("conditional logic cycle between fields: %s", strings.Join(e.Fields, ", "))
}

// Evaluate computes the visibility and required state of every field for
// the submitted values.
//
// Fields are resolved in dependency order. A hidden field contributes no
// value, so conditions that reference it see it as empty and hiding
// cascades down a chain of dependent fields. Conditions that reference
// unknown fields also see an empty value. Values are read in their stored
// form, so a preview, a submission and a re-read of the stored answers
// all resolve the same way.
func Evaluate(fields []Field, values map[string]any) (map[string]FieldState, error) {
	order, err := resolutionOrder(fields)
	if err != nil {
		return nil, err
	}

	states := make(map[string]FieldState, len(fields))
	effective := make(map[string]any, len(fields))
	for _, i := range order {
		f := &fields[i]
		st := FieldState{Visible: true, Required: f.Required}

		if f.Logic != nil && f.Logic.Enabled {
			matched := f.Logic.matches(effective)
			switch f.Logic.Action {
			case ActionShow:
				st.Visible = matched
			case ActionHide:
				st.Visible = !matched
			case ActionRequire:
				st.Required = f.Required || matched
			}
		}
		if !st.Visible {
			st.Required = false
		} else if v, ok := conditionValue(*f, values[f.ID]); ok {
			effective[f.ID] = v
		}
		states[f.ID] = st
	}
	return states, nil
}

// conditionValue converts v to the form it is stored in. Values that do
// not fit the field type read as empty. Range limits are not applied.
func conditionValue(f Field, v any) (any, bool) {
	if isEmpty(v) {
		return nil, false
	}
	f.Min, f.Max = nil, nil
	clean, msg := normalize(f, v)
	if msg != "" || isEmpty(clean) {
		return nil, false
	}
	return clean, true
}

// matches reduces the groups with the top-level operator. No groups, or
// a group with no conditions, is true.
func (l *Logic) matches(values map[string]any) bool {
	if len(l.Groups) == 0 {
		return true
	}
	if l.Operator == Or {
		for i := range l.Groups {
			if l.Groups[i].matches(values) {
				return true
			}
		}
		return false
	}
	for i := range l.Groups {
		if !l.Groups[i].matches(values) {
			return false
		}
	}
	return true
}

func (g *Group) matches(values map[string]any) bool {
	if len(g.Conditions) == 0 {
		return true
	}
	if g.Operator == Or {
		for _, c := range g.Conditions {
			if compare(c.Operator, values[c.FieldID], c.Value) {
				return true
			}
		}
		return false
	}
	for _, c := range g.Conditions {
		if !compare(c.Operator, values[c.FieldID], c.Value) {
			return false
		}
	}
	return true
}

// dependencies returns the ids of other fields f's enabled logic reads.
func (f *Field) dependencies() []string {
	if f.Logic == nil || !f.Logic.Enabled {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, g := range f.Logic.Groups {
		for _, c := range g.Conditions {
			if c.FieldID != f.ID && !seen[c.FieldID] {
				seen[c.FieldID] = true
				out = append(out, c.FieldID)
			}
		}
	}
	return out
}

// resolutionOrder sorts field indexes so every field follows the fields
// its conditions read. Independent fields keep their form order.
func resolutionOrder(fields []Field) ([]int, error) {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.ID] = i
	}

	indegree := make([]int, len(fields))
	dependents := make([][]int, len(fields))
	for i := range fields {
		for _, dep := range fields[i].dependencies() {
			j, ok := index[dep]
			if !ok {
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	order := make([]int, 0, len(fields))
	done := make([]bool, len(fields))
	for len(order) < len(fields) {
		next := -1
		for i := range fields {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, f := range fields {
				if !done[i] {
					stuck = append(stuck, f.ID)
				}
			}
			return nil, &CycleError{Fields: stuck}
		}
		done[next] = true
		order = append(order, next)
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}
	return order, nil
}
