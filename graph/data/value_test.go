/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import (
	"math"
	"sort"
	"testing"
)

func TestValueRender(t *testing.T) {
	if res := StringValue("Bob").Render(); res != "Bob" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := DoubleValue(5.5).Render(); res != "5.500000" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := IntValue(5).Render(); res != "5.000000" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := BoolValue(true).Render(); res != "true" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := BoolValue(false).Render(); res != "false" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := NullValue().Render(); res != "NULL" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := StringValue("Bob").String(); res != `"Bob"` {
		t.Error("Unexpected result:", res)
		return
	}

	// Storage keeps the full precision

	v := DoubleValue(1.0 / 3.0)

	if v.Render() != "0.333333" || v.Double() != 1.0/3.0 {
		t.Error("Unexpected result:", v.Render(), v.Double())
		return
	}
}

func TestValueOf(t *testing.T) {
	for _, obj := range []interface{}{1, int8(1), int16(1), int32(1), int64(1),
		uint(1), uint8(1), uint16(1), uint32(1), uint64(1), float32(1), 1.0} {

		v, ok := ValueOf(obj)
		if !ok || v.Kind() != KindDouble || v.Double() != 1 {
			t.Errorf("Unexpected result for %T: %v", obj, v)
			return
		}
	}

	if v, ok := ValueOf(nil); !ok || !v.IsNull() || v.Interface() != nil {
		t.Error("Unexpected result:", v)
		return
	}

	if v, ok := ValueOf("x"); !ok || v.Interface() != "x" {
		t.Error("Unexpected result:", v)
		return
	}

	if v, ok := ValueOf(true); !ok || v.Interface() != true {
		t.Error("Unexpected result:", v)
		return
	}

	if v, ok := ValueOf(StringValue("y")); !ok || v.Str() != "y" {
		t.Error("Unexpected result:", v)
		return
	}

	if _, ok := ValueOf([]string{"a"}); ok {
		t.Error("Lists should not be valid values")
		return
	}
}

func TestValueCompare(t *testing.T) {
	if !StringValue("a").Equal(StringValue("a")) || StringValue("a").Equal(DoubleValue(1)) {
		t.Error("Unexpected equal result")
		return
	}

	if !DoubleValue(math.NaN()).Equal(DoubleValue(math.NaN())) {
		t.Error("NaN should equal NaN")
		return
	}

	if !NullValue().Equal(NullValue()) || BoolValue(true).Equal(BoolValue(false)) {
		t.Error("Unexpected equal result")
		return
	}

	if !Comparable(DoubleValue(1), DoubleValue(2)) || Comparable(NullValue(), NullValue()) ||
		Comparable(StringValue("1"), DoubleValue(1)) {
		t.Error("Unexpected comparable result")
		return
	}

	vals := []Value{
		StringValue("b"), DoubleValue(2), BoolValue(true), NullValue(),
		StringValue("a"), DoubleValue(math.NaN()), BoolValue(false), DoubleValue(-1),
	}

	sort.Slice(vals, func(i, j int) bool {
		return vals[i].Compare(vals[j]) < 0
	})

	var res string
	for _, v := range vals {
		res += v.String() + " "
	}

	if res != `NULL false true NaN -1.000000 2.000000 "a" "b" ` {
		t.Error("Unexpected order:", res)
		return
	}

	if Kind(9).IsValid() || !KindString.IsValid() || Kind(9).String() != "Kind(9)" ||
		KindDouble.String() != "Double" {
		t.Error("Unexpected kind result")
		return
	}
}
