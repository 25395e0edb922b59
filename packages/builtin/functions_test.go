package builtin

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCallUnknownName(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		expr string
	}{
		{"empty expression", ""},
		{"whitespace only", "   "},
		{"unknown generator", "$nope"},
		{"missing sigil", "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := r.Call(tt.expr); ok {
				t.Errorf("Call(%q) = %q, true; want decline", tt.expr, got)
			}
		})
	}
}

func TestDatetimeDefault(t *testing.T) {
	r := NewRegistry()

	got, ok := r.Call("$datetime")
	if !ok {
		t.Fatal("Call($datetime) declined")
	}
	if _, err := time.Parse(time.RFC3339, got); err != nil {
		t.Errorf("Call($datetime) = %q, not RFC 3339: %v", got, err)
	}
}

func TestDatetimeRFC1123(t *testing.T) {
	r := NewRegistry()

	got, ok := r.Call("$datetime rfc1123")
	if !ok {
		t.Fatal("Call($datetime rfc1123) declined")
	}
	if !strings.HasSuffix(got, "GMT") {
		t.Errorf("Call($datetime rfc1123) = %q, want GMT suffix", got)
	}
	if _, err := time.Parse(http.TimeFormat, got); err != nil {
		t.Errorf("Call($datetime rfc1123) = %q, not an HTTP date: %v", got, err)
	}
}

func TestDatetimeCustomLayout(t *testing.T) {
	r := NewRegistry()

	// The date can roll over between the calls, so accept either side.
	before := time.Now().UTC().Format("2006-01-02")
	got, ok := r.Call("$datetime 2006-01-02")
	after := time.Now().UTC().Format("2006-01-02")
	if !ok {
		t.Fatal("Call($datetime 2006-01-02) declined")
	}
	if got != before && got != after {
		t.Errorf("Call($datetime 2006-01-02) = %q, want %q", got, before)
	}
}

func TestLocalDatetime(t *testing.T) {
	r := NewRegistry()

	before := time.Now().Format("2006-01-02")
	got, ok := r.Call("$localDatetime 2006-01-02")
	after := time.Now().Format("2006-01-02")
	if !ok {
		t.Fatal("Call($localDatetime 2006-01-02) declined")
	}
	if got != before && got != after {
		t.Errorf("Call($localDatetime 2006-01-02) = %q, want %q", got, before)
	}
}

func TestDatetimeDeclines(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		expr string
	}{
		{"offset missing unit", "$datetime rfc1123 5"},
		{"offset not a number", "$datetime rfc1123 x h"},
		{"unknown offset unit", "$datetime 2006-01-02 1 q"},
		{"too many arguments", "$datetime 2006-01-02 1 h extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := r.Call(tt.expr); ok {
				t.Errorf("Call(%q) = %q, true; want decline", tt.expr, got)
			}
		})
	}
}

func TestGUID(t *testing.T) {
	r := NewRegistry()

	first, ok := r.Call("$guid")
	if !ok {
		t.Fatal("Call($guid) declined")
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("Call($guid) = %q, not a UUID: %v", first, err)
	}

	second, _ := r.Call("$guid")
	if first == second {
		t.Errorf("Call($guid) returned %q twice", first)
	}

	if got, ok := r.Call("$guid extra"); ok {
		t.Errorf("Call($guid extra) = %q, true; want decline", got)
	}
}

func TestRandomInt(t *testing.T) {
	r := NewRegistry()

	t.Run("no arguments", func(t *testing.T) {
		got, ok := r.Call("$randomInt")
		if !ok {
			t.Fatal("Call($randomInt) declined")
		}
		n, err := strconv.Atoi(got)
		if err != nil {
			t.Fatalf("Call($randomInt) = %q, not an integer: %v", got, err)
		}
		if n < 0 {
			t.Errorf("Call($randomInt) = %d, want >= 0", n)
		}
	})

	t.Run("upper bound only", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			got, ok := r.Call("$randomInt 5")
			if !ok {
				t.Fatal("Call($randomInt 5) declined")
			}
			n, err := strconv.Atoi(got)
			if err != nil {
				t.Fatalf("Call($randomInt 5) = %q, not an integer: %v", got, err)
			}
			if n < 0 || n >= 5 {
				t.Fatalf("Call($randomInt 5) = %d, want in [0,5)", n)
			}
		}
	})

	t.Run("min and max", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			got, ok := r.Call("$randomInt 10 20")
			if !ok {
				t.Fatal("Call($randomInt 10 20) declined")
			}
			n, err := strconv.Atoi(got)
			if err != nil {
				t.Fatalf("Call($randomInt 10 20) = %q, not an integer: %v", got, err)
			}
			if n < 10 || n >= 20 {
				t.Fatalf("Call($randomInt 10 20) = %d, want in [10,20)", n)
			}
		}
	})

	t.Run("negative range", func(t *testing.T) {
		got, ok := r.Call("$randomInt -20 -10")
		if !ok {
			t.Fatal("Call($randomInt -20 -10) declined")
		}
		n, err := strconv.Atoi(got)
		if err != nil {
			t.Fatalf("Call($randomInt -20 -10) = %q, not an integer: %v", got, err)
		}
		if n < -20 || n >= -10 {
			t.Errorf("Call($randomInt -20 -10) = %d, want in [-20,-10)", n)
		}
	})

	declines := []struct {
		name string
		expr string
	}{
		{"empty range", "$randomInt 5 5"},
		{"inverted range", "$randomInt 20 10"},
		{"min not a number", "$randomInt x 10"},
		{"max not a number", "$randomInt 10 x"},
		{"too many arguments", "$randomInt 1 2 3"},
	}

	for _, tt := range declines {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := r.Call(tt.expr); ok {
				t.Errorf("Call(%q) = %q, true; want decline", tt.expr, got)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	r := NewRegistry()

	t.Run("now", func(t *testing.T) {
		got, ok := r.Call("$timestamp")
		if !ok {
			t.Fatal("Call($timestamp) declined")
		}
		n, err := strconv.ParseInt(got, 10, 64)
		if err != nil {
			t.Fatalf("Call($timestamp) = %q, not an integer: %v", got, err)
		}
		if d := n - time.Now().Unix(); d < -2 || d > 2 {
			t.Errorf("Call($timestamp) = %d, want within 2s of now", n)
		}
	})

	t.Run("offset an hour back", func(t *testing.T) {
		got, ok := r.Call("$timestamp -1 h")
		if !ok {
			t.Fatal("Call($timestamp -1 h) declined")
		}
		n, err := strconv.ParseInt(got, 10, 64)
		if err != nil {
			t.Fatalf("Call($timestamp -1 h) = %q, not an integer: %v", got, err)
		}
		want := time.Now().Add(-time.Hour).Unix()
		if d := n - want; d < -2 || d > 2 {
			t.Errorf("Call($timestamp -1 h) = %d, want within 2s of %d", n, want)
		}
	})

	declines := []struct {
		name string
		expr string
	}{
		{"offset missing unit", "$timestamp 5"},
		{"offset not a number", "$timestamp x h"},
		{"too many arguments", "$timestamp 1 h extra"},
	}

	for _, tt := range declines {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := r.Call(tt.expr); ok {
				t.Errorf("Call(%q) = %q, true; want decline", tt.expr, got)
			}
		})
	}
}

func TestProcessEnv(t *testing.T) {
	r := NewRegistry()

	t.Setenv("RESTFILE_TEST_TOKEN", "hunter2")

	got, ok := r.Call("$processEnv RESTFILE_TEST_TOKEN")
	if !ok {
		t.Fatal("Call($processEnv RESTFILE_TEST_TOKEN) declined")
	}
	if got != "hunter2" {
		t.Errorf("Call($processEnv RESTFILE_TEST_TOKEN) = %q, want %q", got, "hunter2")
	}

	got, ok = r.Call("$processEnv RESTFILE_TEST_UNSET_TOKEN")
	if !ok {
		t.Fatal("Call($processEnv RESTFILE_TEST_UNSET_TOKEN) declined")
	}
	if got != "" {
		t.Errorf("Call($processEnv) for unset variable = %q, want empty", got)
	}

	if got, ok := r.Call("$processEnv"); ok {
		t.Errorf("Call($processEnv) without a name = %q, true; want decline", got)
	}
}

func TestDotenvIsReserved(t *testing.T) {
	r := NewRegistry()

	got, ok := r.Call("$dotenv API_KEY")
	if !ok {
		t.Fatal("Call($dotenv API_KEY) declined")
	}
	if got != "" {
		t.Errorf("Call($dotenv API_KEY) = %q, want empty", got)
	}

	if got, ok := r.Call("$dotenv"); ok {
		t.Errorf("Call($dotenv) without a name = %q, true; want decline", got)
	}
}

func TestRegisterCustomGenerator(t *testing.T) {
	r := NewRegistry()
	r.Register("$echo", func(args []string) (string, bool) {
		return strings.Join(args, ","), true
	})

	got, ok := r.Call("$echo a b c")
	if !ok {
		t.Fatal("Call($echo a b c) declined")
	}
	if got != "a,b,c" {
		t.Errorf("Call($echo a b c) = %q, want %q", got, "a,b,c")
	}
}
