// Package jsonpath implements the jsonPath(obj, expression) helper exposed
// to handler scripts.
//
// Supported syntax:
//   - $ for the root, optional
//   - .name and ['name'] / ["name"] for members
//   - [n] for array indexes
//   - [*] and .* for every element
//
// Expressions are evaluated step by step with gjson against the JSON
// form of the input. Recursive descent (..), filters and slices are not
// supported and return ErrUnsupported.
package jsonpath
