package builtin

import (
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func evaluates one generator call. It reports false when the arguments
// don't fit the generator's shape; the caller then leaves the placeholder
// text untouched.
type Func func(args []string) (string, bool)

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["$datetime"] = funcDatetime
	r.funcs["$localDatetime"] = funcLocalDatetime
	r.funcs["$guid"] = funcGUID
	r.funcs["$randomInt"] = funcRandomInt
	r.funcs["$timestamp"] = funcTimestamp
	r.funcs["$processEnv"] = funcProcessEnv
	r.funcs["$dotenv"] = funcDotenv
}

// Register adds or replaces a generator. The name must carry the "$" sigil.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Call evaluates a generator expression: the sigiled name followed by
// space-separated arguments, e.g. "$randomInt 1 10". It reports false when
// the name is unknown or the generator declines its arguments.
func (r *Registry) Call(expr string) (string, bool) {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return "", false
	}
	fn, ok := r.funcs[fields[0]]
	if !ok {
		return "", false
	}
	return fn(fields[1:])
}

func funcDatetime(args []string) (string, bool) {
	return formatTime(time.Now().UTC(), http.TimeFormat, args)
}

func funcLocalDatetime(args []string) (string, bool) {
	return formatTime(time.Now(), time.RFC1123, args)
}

// formatTime handles the shared [format] [offset unit] argument shape.
// rfc1123 names the layout used for the "rfc1123" keyword: the GMT form for
// UTC times, the zone-abbreviated form for local times.
func formatTime(now time.Time, rfc1123 string, args []string) (string, bool) {
	layout := time.RFC3339
	if len(args) > 0 {
		switch args[0] {
		case "rfc1123":
			layout = rfc1123
		case "iso8601":
			layout = time.RFC3339
		default:
			layout = args[0]
		}
		args = args[1:]
	}
	switch len(args) {
	case 0:
	case 2:
		shifted, ok := applyOffset(now, args[0], args[1])
		if !ok {
			return "", false
		}
		now = shifted
	default:
		return "", false
	}
	return now.Format(layout), true
}

func funcGUID(args []string) (string, bool) {
	if len(args) != 0 {
		return "", false
	}
	return uuid.New().String(), true
}

func funcRandomInt(args []string) (string, bool) {
	min, max := 0, math.MaxInt
	var err error
	switch len(args) {
	case 0:
	case 1:
		max, err = strconv.Atoi(args[0])
	case 2:
		min, err = strconv.Atoi(args[0])
		if err == nil {
			max, err = strconv.Atoi(args[1])
		}
	default:
		return "", false
	}
	if err != nil || max <= min {
		return "", false
	}
	return strconv.Itoa(rand.Intn(max-min) + min), true
}

func funcTimestamp(args []string) (string, bool) {
	now := time.Now().UTC()
	switch len(args) {
	case 0:
	case 2:
		shifted, ok := applyOffset(now, args[0], args[1])
		if !ok {
			return "", false
		}
		now = shifted
	default:
		return "", false
	}
	return strconv.FormatInt(now.Unix(), 10), true
}

func funcProcessEnv(args []string) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	return os.Getenv(args[0]), true
}

// funcDotenv is reserved for project .env lookup. The reference shape is
// accepted so documents using it still resolve, but the value stays empty
// until the lookup is wired to a project .env file.
func funcDotenv(args []string) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	return "", true
}

func applyOffset(t time.Time, amount, unit string) (time.Time, bool) {
	n, err := strconv.Atoi(amount)
	if err != nil {
		return t, false
	}
	switch unit {
	case "y":
		return t.AddDate(n, 0, 0), true
	case "M":
		return t.AddDate(0, n, 0), true
	case "w":
		return t.AddDate(0, 0, 7*n), true
	case "d":
		return t.AddDate(0, 0, n), true
	case "h":
		return t.Add(time.Duration(n) * time.Hour), true
	case "m":
		return t.Add(time.Duration(n) * time.Minute), true
	case "s":
		return t.Add(time.Duration(n) * time.Second), true
	case "ms":
		return t.Add(time.Duration(n) * time.Millisecond), true
	}
	return t, false
}
