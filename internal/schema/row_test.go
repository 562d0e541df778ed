package schema

import "testing"

func TestValidate(t *testing.T) {
	good := Row{"id": int64(1), "name": "a", "ratio": 0.5, "ok": true, "blob": []byte{1}, "gone": nil}
	if err := good.Validate(); err != nil {
		t.Errorf("valid row rejected: %v", err)
	}

	// Untyped integer literals land as int; the union treats int as an
	// alias for int64.
	literal := Row{"id": 7, "count": 3}
	if err := literal.Validate(); err != nil {
		t.Errorf("row with int values rejected: %v", err)
	}

	bad := Row{"id": int64(1), "nested": map[string]string{"no": "way"}}
	if err := bad.Validate(); err == nil {
		t.Error("row with nested map accepted")
	}
}

func TestID(t *testing.T) {
	cases := []struct {
		name string
		row  Row
		want int64
	}{
		{"int64 id", Row{"id": int64(42)}, 42},
		{"int id", Row{"id": 7}, 7},
		{"float id", Row{"id": 3.0}, 3},
		{"missing id", Row{"name": "x"}, 0},
		{"string id", Row{"id": "abc"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.row.ID(); got != tc.want {
				t.Errorf("ID() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Row{"id": int64(1), "name": "a"}
	c := orig.Clone()
	c["name"] = "b"
	if orig["name"] != "a" {
		t.Errorf("clone mutation leaked into original: %v", orig["name"])
	}
}
