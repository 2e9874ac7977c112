// Package output renders command results as aligned tables, JSON or YAML.
//
// Results that know their own tabular layout implement Tabular. Other
// structs are shown as FIELD/VALUE rows, with nested structs flattened
// into dotted field names.
package output
