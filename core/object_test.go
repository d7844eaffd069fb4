package core

import "testing"

func TestObjectStrings(t *testing.T) {
	tests := []struct {
		obj  Object
		want string
	}{
		{Null{}, "null"},
		{Bool(true), "true"},
		{Int(-4), "-4"},
		{Real(0.5), "0.5"},
		{Name("View"), "/View"},
		{Array{Name("ON"), Int(1), nil}, "[/ON 1 null]"},
		{Dict{"B": Int(2), "A": Name("X")}, "<</A /X /B 2>>"},
		{IndirectRef{Number: 9, Generation: 1}, "9 1 R"},
	}
	for _, tt := range tests {
		if got := tt.obj.String(); got != tt.want {
			t.Errorf("%T: got %q, want %q", tt.obj, got, tt.want)
		}
	}
}

func TestObjectTypeString(t *testing.T) {
	if ObjDict.String() != "Dict" || ObjIndirect.String() != "IndirectRef" || ObjectType(42).String() != "Unknown" {
		t.Error("unexpected ObjectType names")
	}
}

func TestDictAccessors(t *testing.T) {
	d := Dict{"N": Int(3), "S": String("x"), "R": IndirectRef{Number: 2}}
	if _, ok := d.GetName("N"); ok {
		t.Error("GetName should fail on Int")
	}
	if n, ok := d.GetInt("N"); !ok || n != 3 {
		t.Errorf("GetInt = %v %v", n, ok)
	}
	if r, ok := d.GetIndirectRef("R"); !ok || r.Number != 2 {
		t.Errorf("GetIndirectRef = %v %v", r, ok)
	}
	c := d.Clone()
	c["N"] = Int(4)
	if d["N"] != Int(3) {
		t.Error("Clone should not share the map")
	}
	if !IsNull(nil) || !IsNull(Null{}) || IsNull(Int(0)) {
		t.Error("IsNull mismatch")
	}
}
