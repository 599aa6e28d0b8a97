/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package data contains classes and functions to handle graph data.

Values

Property values are a closed set of scalar kinds: String, Double, Boolean and
Null. All numbers are stored as doubles. A Value is rendered for display with a
fixed precision of six fractional digits while the stored double keeps its full
precision.

Nodes

Nodes are items stored in the graph. A node has an identifier, an ordered set
of labels and a map of properties. Setting a Null value keeps the property key
present on the node.

Edges

Edges connect a source node with a destination node. Every edge has exactly
one kind and its own map of properties.
*/
package data

import (
	"fmt"
	"math"
	"strings"
)

/*
Kind is the type tag of a property value.
*/
type Kind byte

/*
Known value kinds. The numeric tag values are part of the snapshot format.
*/
const (
	KindNull    Kind = 0x00
	KindBoolean Kind = 0x01
	KindDouble  Kind = 0x02
	KindString  Kind = 0x03
)

/*
String returns the name of a value kind.
*/
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindDouble:
		return "Double"
	case KindString:
		return "String"
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

/*
IsValid returns true if this is a known value kind.
*/
func (k Kind) IsValid() bool {
	return k <= KindString
}

/*
Value is a single property value.
*/
type Value struct {
	kind Kind    // Type tag
	str  string  // String payload
	num  float64 // Double payload
	flag bool    // Boolean payload
}

/*
NullValue returns the Null value.
*/
func NullValue() Value {
	return Value{kind: KindNull}
}

/*
BoolValue returns a Boolean value.
*/
func BoolValue(b bool) Value {
	return Value{kind: KindBoolean, flag: b}
}

/*
DoubleValue returns a Double value.
*/
func DoubleValue(f float64) Value {
	return Value{kind: KindDouble, num: f}
}

/*
IntValue returns a Double value for a given integer.
*/
func IntValue(i int64) Value {
	return Value{kind: KindDouble, num: float64(i)}
}

/*
StringValue returns a String value.
*/
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

/*
ValueOf converts a Go scalar into a Value. Returns false if the given object
has no representation as a property value.
*/
func ValueOf(obj interface{}) (Value, bool) {
	switch v := obj.(type) {
	case nil:
		return NullValue(), true
	case Value:
		return v, true
	case string:
		return StringValue(v), true
	case bool:
		return BoolValue(v), true
	case float64:
		return DoubleValue(v), true
	case float32:
		return DoubleValue(float64(v)), true
	case int:
		return IntValue(int64(v)), true
	case int8:
		return IntValue(int64(v)), true
	case int16:
		return IntValue(int64(v)), true
	case int32:
		return IntValue(int64(v)), true
	case int64:
		return IntValue(v), true
	case uint:
		return DoubleValue(float64(v)), true
	case uint8:
		return DoubleValue(float64(v)), true
	case uint16:
		return DoubleValue(float64(v)), true
	case uint32:
		return DoubleValue(float64(v)), true
	case uint64:
		return DoubleValue(float64(v)), true
	}

	return Value{}, false
}

/*
Kind returns the type tag of this value.
*/
func (v Value) Kind() Kind {
	return v.kind
}

/*
IsNull returns true if this is the Null value.
*/
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

/*
Str returns the string payload. Only meaningful for String values.
*/
func (v Value) Str() string {
	return v.str
}

/*
Double returns the numeric payload. Only meaningful for Double values.
*/
func (v Value) Double() float64 {
	return v.num
}

/*
Bool returns the boolean payload. Only meaningful for Boolean values.
*/
func (v Value) Bool() bool {
	return v.flag
}

/*
Interface returns the payload as a plain Go value (nil for Null).
*/
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBoolean:
		return v.flag
	case KindDouble:
		return v.num
	case KindString:
		return v.str
	}
	return nil
}

/*
Render returns the display text of this value. Doubles are rendered with six
fractional digits.
*/
func (v Value) Render() string {
	switch v.kind {
	case KindBoolean:
		if v.flag {
			return "true"
		}
		return "false"
	case KindDouble:
		return fmt.Sprintf("%.6f", v.num)
	case KindString:
		return v.str
	}
	return "NULL"
}

/*
String returns a debug representation of this value.
*/
func (v Value) String() string {
	if v.kind == KindString {
		return fmt.Sprintf("%q", v.str)
	}
	return v.Render()
}

/*
Equal returns true if both values have the same kind and payload. Doubles are
compared by their bit pattern so NaN equals NaN.
*/
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindBoolean:
		return v.flag == other.flag
	case KindDouble:
		return math.Float64bits(v.num) == math.Float64bits(other.num)
	case KindString:
		return v.str == other.str
	}

	return true
}

/*
Comparable returns true if two values can be ordered against each other for an
index. Only non-null values of the same kind are comparable.
*/
func Comparable(a, b Value) bool {
	return a.kind == b.kind && a.kind != KindNull
}

/*
Compare orders two values. Values of different kinds are ordered by kind
(Null < Boolean < Double < String). Returns -1, 0 or 1.
*/
func (v Value) Compare(other Value) int {
	if v.kind != other.kind {
		if v.kind < other.kind {
			return -1
		}
		return 1
	}

	switch v.kind {
	case KindBoolean:
		if v.flag == other.flag {
			return 0
		} else if !v.flag {
			return -1
		}
		return 1

	case KindDouble:
		return compareDouble(v.num, other.num)

	case KindString:
		return strings.Compare(v.str, other.str)
	}

	return 0
}

/*
compareDouble orders doubles with NaN sorted before all other numbers.
*/
func compareDouble(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)

	if aNaN || bNaN {
		if aNaN && bNaN {
			return 0
		} else if aNaN {
			return -1
		}
		return 1
	}

	if a < b {
		return -1
	} else if a > b {
		return 1
	}

	return 0
}
