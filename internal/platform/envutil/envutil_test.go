package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("ONI_TEST_INT", "42")
	if got := Int("ONI_TEST_INT", 1); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	t.Setenv("ONI_TEST_INT", "nope")
	if got := Int("ONI_TEST_INT", 7); got != 7 {
		t.Fatalf("Int fallback: want=7 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "YES": true, "0": false, "off": false} {
		t.Setenv("ONI_TEST_BOOL", raw)
		if got := Bool("ONI_TEST_BOOL", !want); got != want {
			t.Fatalf("Bool(%q): want=%v got=%v", raw, want, got)
		}
	}
	t.Setenv("ONI_TEST_BOOL", "maybe")
	if got := Bool("ONI_TEST_BOOL", true); !got {
		t.Fatalf("Bool fallback: want=true")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("ONI_TEST_SECONDS", "0")
	if got := Seconds("ONI_TEST_SECONDS", time.Minute); got != time.Minute {
		t.Fatalf("Seconds: want=1m got=%s", got)
	}
	t.Setenv("ONI_TEST_SECONDS", "5")
	if got := Seconds("ONI_TEST_SECONDS", time.Minute); got != 5*time.Second {
		t.Fatalf("Seconds: want=5s got=%s", got)
	}
}

func TestLocation(t *testing.T) {
	t.Setenv("ONI_TEST_TZ", "Asia/Tokyo")
	if got := Location("ONI_TEST_TZ"); got.String() != "Asia/Tokyo" {
		t.Fatalf("Location: want=Asia/Tokyo got=%s", got)
	}
	t.Setenv("ONI_TEST_TZ", "Not/AZone")
	if got := Location("ONI_TEST_TZ"); got != time.Local {
		t.Fatalf("Location fallback: want Local got=%s", got)
	}
}
