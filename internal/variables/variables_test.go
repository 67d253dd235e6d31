package variables

import "testing"

func TestGetSetHas(t *testing.T) {
	d := New()
	if d.Has("FOO") {
		t.Fatal("expected empty dictionary")
	}
	d.Set("FOO", "bar")
	if !d.Has("FOO") || d.Get("FOO") != "bar" {
		t.Fatalf("expected FOO=bar, got %q", d.Get("FOO"))
	}
	d.Delete("FOO")
	if d.Has("FOO") {
		t.Fatal("expected FOO removed")
	}
}

func TestGetBool(t *testing.T) {
	d := New()
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"True", "True", true},
		{"yes", "yes", true},
		{"On", "On", true},
		{"1", "1", true},
		{"False", "False", false},
		{"no", "no", false},
		{"off", "off", false},
		{"0", "0", false},
		{"empty", "", false},
		{"garbage", "maybe", false},
		{"mixed case", "tRuE", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.Set("V", tt.value)
			if got := d.GetBool("V"); got != tt.expected {
				t.Errorf("GetBool(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
	if d.GetBool("MISSING") {
		t.Error("expected false for missing variable")
	}
}

func TestSubstituteIdempotent(t *testing.T) {
	d := New()
	d.Set("ProgramFiles64Folder", `C:\Program Files`)
	d.Set("AppDataFolder", `C:\Users\me\AppData\Roaming`)

	in := `[ProgramFiles64Folder]\MyApp\[AppDataFolder]`
	once := d.Substitute(in, "[", "]")
	twice := d.Substitute(once, "[", "]")

	if once != twice {
		t.Fatalf("substitution not idempotent: once=%q twice=%q", once, twice)
	}
	want := `C:\Program Files\MyApp\C:\Users\me\AppData\Roaming`
	if once != want {
		t.Fatalf("got %q want %q", once, want)
	}
}

func TestSubstituteNoTokens(t *testing.T) {
	d := New()
	d.Set("X", "1")
	if got := d.Substitute("plain string", "[", "]"); got != "plain string" {
		t.Fatalf("expected unchanged string, got %q", got)
	}
}

func TestClone(t *testing.T) {
	d := New()
	d.Set("A", "1")
	c := d.Clone()
	c.Set("A", "2")
	if d.Get("A") != "1" {
		t.Fatal("clone should not alias the original map")
	}
}
