// Package core provides the fundamental types shared by the parser, the
// execution engine and the storage layer.
//
// # Values
//
// Value is a closed tagged union over the literal types the SQL subset
// knows: null, booleans, 64-bit integers, 64-bit floats and strings. A
// literal token becomes a Value exactly once, through ParseValue:
//
//	core.ParseValue("42")      // IntValue
//	core.ParseValue("'Alice'") // StringValue (quotes stripped)
//	core.ParseValue("null")    // NullValue
//
// Equality is type-aware: numbers compare within core.Epsilon, strings
// case-insensitively, booleans by identity.
//
// # Rows and tables
//
// A Row maps field names to Values. A Table carries its rows plus the
// accumulated set of column names ever seen for it; the schema only grows.
package core
