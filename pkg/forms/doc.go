// Package forms implements custom forms: field definitions with
// conditional logic, immutable published versions and submissions pinned
// to a version.
//
// # Conditional logic
//
// A field may carry conditional logic made of groups of conditions. Each
// condition compares the value of another field using one of fourteen
// operators. A group reduces its conditions with its own and/or operator
// and the groups are reduced with the top-level operator. The result
// drives the field's action:
//
//	show     the field is visible only when the logic matches
//	hide     the field is hidden when the logic matches
//	require  the field is always visible and required when the logic matches
//
// Fields are evaluated in dependency order. A hidden field has no value,
// so anything that depends on it sees it as empty.
//
// # Versioning
//
// A form's fields are an editable draft with a revision counter. Publish
// copies the draft into a new numbered Version with a checksum; versions
// are never changed afterwards. Submissions record the version they were
// answered against and are always read back with that version's fields.
package forms
