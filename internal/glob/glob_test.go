package glob

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"SENSOR/*/TEMP", "SENSOR/ROOM_A/TEMP", true},
		{"SENSOR/*/TEMP", "SENSOR/ROOM_B/TEMP", true},
		{"SENSOR/*/TEMP", "DETECTOR/HALL_1/STATUS", false},
		{"SENSOR/*", "SENSOR/ROOM_A/TEMP", true}, // '*' spans the '/' boundary
		{"SENSOR/*", "SENSOR/ROOM_A", true},
		{"*", "SENSOR", true},
		{"*", "SENSOR/ROOM_A", true}, // '*' matches everything, any segment count
		{"TEST/SERVICE", "TEST/SERVICE", true},
		{"TEST/SERVICE", "TEST/OTHER", false},
		{"SENSOR/ROOM_?/TEMP", "SENSOR/ROOM_A/TEMP", true},
		{"SENSOR/ROOM_[AB]/TEMP", "SENSOR/ROOM_A/TEMP", true},
		{"SENSOR/ROOM_[AB]/TEMP", "SENSOR/ROOM_C/TEMP", false},
	}
	for _, c := range cases {
		p, err := Compile(c.pattern)
		if err != nil {
			t.Fatalf("Compile(%q): %v", c.pattern, err)
		}
		if got := p.Match(c.name); got != c.want {
			t.Errorf("Pattern(%q).Match(%q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestCompileInvalid(t *testing.T) {
	if _, err := Compile("["); err == nil {
		t.Error("expected error for unterminated character class")
	}
}
