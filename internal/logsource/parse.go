package logsource

import (
	"math"
	"strconv"
	"time"

	"github.com/valyala/fastjson"

	"github.com/lokiship/lokiship/pkg/types"
)

// Line is one parsed input line.
type Line struct {
	Module string
	Event  *types.Event
}

// Parser converts raw lines into events. It is safe for concurrent use.
type Parser struct {
	moduleKey string
	pool      fastjson.ParserPool
	now       func() time.Time
}

// NewParser returns a Parser reading the module from moduleKey.
func NewParser(moduleKey string) *Parser {
	return &Parser{moduleKey: moduleKey, now: time.Now}
}

// Parse converts one line. It never fails: anything that is not a JSON
// object becomes an info event carrying the line as its message.
func (p *Parser) Parse(line string) Line {
	fp := p.pool.Get()
	defer p.pool.Put(fp)

	v, err := fp.Parse(line)
	if err != nil || v.Type() != fastjson.TypeObject {
		return Line{Event: types.NewEventAt(p.now(), types.LevelInfo, line, nil)}
	}
	obj, _ := v.Object()

	var (
		out   Line
		level = types.LevelInfo
		msg   string
		ts    time.Time
		meta  = make(map[string]string, obj.Len())

		haveLevel, haveMsg, haveTS, haveModule bool
	)

	obj.Visit(func(k []byte, fv *fastjson.Value) {
		key := string(k)
		switch {
		case !haveLevel && (key == "level" || key == "lvl" || key == "severity"):
			if lvl, err := types.ParseLevel(scalar(fv)); err == nil {
				level, haveLevel = lvl, true
				return
			}
		case !haveMsg && (key == "msg" || key == "message"):
			msg, haveMsg = scalar(fv), true
			return
		case !haveTS && (key == "time" || key == "ts" || key == "timestamp"):
			if t, ok := parseTime(fv); ok {
				ts, haveTS = t, true
				return
			}
		case !haveModule && key == p.moduleKey:
			out.Module, haveModule = scalar(fv), true
		case out.Module == "" && key == "logger":
			out.Module = scalar(fv)
		}
		if fv.Type() == fastjson.TypeNull {
			return
		}
		meta[key] = scalar(fv)
	})

	if !haveTS {
		ts = p.now()
	}
	out.Event = types.NewEventAt(ts, level, msg, meta)
	return out
}

// scalar renders a JSON value as metadata text: strings unquoted, anything
// else as compact JSON.
func scalar(v *fastjson.Value) string {
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return v.String()
}

// parseTime accepts RFC 3339 strings and epoch numbers. The epoch unit is
// inferred from magnitude.
func parseTime(v *fastjson.Value) (time.Time, bool) {
	switch v.Type() {
	case fastjson.TypeString:
		s := string(v.GetStringBytes())
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(f), true
		}
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return fromEpochInt(n), true
		}
		if f, err := v.Float64(); err == nil {
			return fromEpoch(f), true
		}
	}
	return time.Time{}, false
}

// epochUnit returns the nanoseconds per unit of an epoch value of the
// given magnitude: ns above 1e17, us above 1e14, ms above 1e11, else s.
func epochUnit(abs float64) int64 {
	switch {
	case abs > 1e17:
		return 1
	case abs > 1e14:
		return int64(time.Microsecond)
	case abs > 1e11:
		return int64(time.Millisecond)
	default:
		return int64(time.Second)
	}
}

func fromEpochInt(n int64) time.Time {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	return time.Unix(0, n*epochUnit(float64(abs)))
}

// fromEpoch handles fractional epochs. The whole and fractional parts are
// scaled separately so large values keep nanosecond precision.
func fromEpoch(f float64) time.Time {
	unit := epochUnit(math.Abs(f))
	whole, frac := math.Modf(f)
	return time.Unix(0, int64(whole)*unit+int64(math.Round(frac*float64(unit))))
}
