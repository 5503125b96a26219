package builtins

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/variables"
)

func registerSystem() {
	register("ADDRESS", 0, 0, fnAddress)
	register("ARG", 0, 2, fnArg)
	register("CONDITION", 0, 1, fnCondition)
	register("DATE", 0, 1, fnDate)
	register("ERRORTEXT", 1, 1, fnErrorText)
	register("QUEUED", 0, 0, fnQueued)
	register("SOURCELINE", 0, 1, fnSourceLine)
	register("SYMBOL", 1, 1, fnSymbol)
	register("TIME", 0, 1, fnTime)
	register("TRACE", 0, 1, fnTrace)
	register("VALUE", 1, 3, fnValue)
}

func fnAddress(c Caller, _ calc.Args) (string, error) {
	return c.Address(), nil
}

func fnArg(c Caller, args calc.Args) (string, error) {
	if !args.Exists(0) {
		if args.Exists(1) {
			return "", badArg("ARG", 0, "is required when an option is given")
		}
		return strconv.Itoa(c.ArgCount()), nil
	}
	n, err := whole(c, "ARG", args, 0, 1, 1)
	if err != nil {
		return "", err
	}
	o, err := option("ARG", args, 1, 'V', "EO")
	if err != nil {
		return "", err
	}
	v, exists := c.Arg(n)
	switch o {
	case 'E':
		return boolString(exists), nil
	case 'O':
		return boolString(!exists), nil
	}
	return v, nil
}

func fnCondition(c Caller, args calc.Args) (string, error) {
	o, err := option("CONDITION", args, 0, 'I', "CDIS")
	if err != nil {
		return "", err
	}
	info := c.Condition()
	if info == nil {
		return "", nil
	}
	switch o {
	case 'C':
		return info.Kind.String(), nil
	case 'D':
		return info.Description, nil
	case 'S':
		return info.Status, nil
	}
	return info.Mode.String(), nil
}

func fnErrorText(c Caller, args calc.Args) (string, error) {
	n, err := whole(c, "ERRORTEXT", args, 0, 0, 0)
	if err != nil {
		return "", err
	}
	if n > 99 {
		return "", badArg("ERRORTEXT", 0, "must be in the range 0-99; found %d", n)
	}
	return condition.Message(n), nil
}

func fnQueued(c Caller, _ calc.Args) (string, error) {
	return strconv.Itoa(c.Queued()), nil
}

func fnSourceLine(c Caller, args calc.Args) (string, error) {
	_, count := c.SourceLine(0)
	if !args.Exists(0) {
		return strconv.Itoa(count), nil
	}
	n, err := whole(c, "SOURCELINE", args, 0, 1, 1)
	if err != nil {
		return "", err
	}
	if n > count {
		return "", badArg("SOURCELINE", 0, "must not exceed the %d lines of the program; found %d", count, n)
	}
	line, _ := c.SourceLine(n)
	return line, nil
}

func fnSymbol(c Caller, args calc.Args) (string, error) {
	name := strings.ToUpper(arg(args, 0))
	switch {
	case !isSymbol(name):
		return "BAD", nil
	case constantSymbol(name):
		return "LIT", nil
	}
	if _, ok := c.Var(name); ok {
		return "VAR", nil
	}
	return "LIT", nil
}

func fnTrace(c Caller, args calc.Args) (string, error) {
	old := c.Trace().String()
	if v, ok := args.Get(0); ok {
		if err := c.SetTrace(v); err != nil {
			return "", badArg("TRACE", 0, "invalid setting \"%s\"", v)
		}
	}
	return old, nil
}

func constantSymbol(name string) bool {
	return name[0] == '.' || variables.IsConstantSymbol(name)
}

// Environment is the VALUE selector for process environment variables.
const Environment = "ENVIRONMENT"

func fnValue(c Caller, args calc.Args) (string, error) {
	name := arg(args, 0)
	newValue, set := args.Get(1)
	if sel, ok := args.Get(2); ok {
		switch strings.ToUpper(sel) {
		case Environment, "SYSTEM":
		default:
			return "", badArg("VALUE", 2, "unknown selector \"%s\"", sel)
		}
		old := os.Getenv(name)
		if set {
			if err := os.Setenv(name, newValue); err != nil {
				return "", condition.Errorf(40, "VALUE: %v", err)
			}
		}
		return old, nil
	}
	name = strings.ToUpper(name)
	if !isSymbol(name) {
		return "", badArg("VALUE", 0, "must be a valid symbol; found \"%s\"", name)
	}
	old, _ := c.Var(name)
	if set {
		if constantSymbol(name) {
			return "", badArg("VALUE", 0, "must be a variable symbol; found \"%s\"", name)
		}
		if err := c.SetVar(name, newValue); err != nil {
			return "", err
		}
	}
	return old, nil
}

var months = [...]string{"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December"}

// baseDays is the number of days from 1 January 0001 to the Unix epoch.
const baseDays = 719162

func fnDate(c Caller, args calc.Args) (string, error) {
	o, err := option("DATE", args, 0, 'N', "BDEMNOSUW")
	if err != nil {
		return "", err
	}
	t := c.Now()
	y, m, d := t.Date()
	switch o {
	case 'B':
		midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return strconv.FormatInt(midnight.Unix()/86400+baseDays, 10), nil
	case 'D':
		return strconv.Itoa(t.YearDay()), nil
	case 'E':
		return fmt.Sprintf("%02d/%02d/%02d", d, int(m), y%100), nil
	case 'M':
		return months[m-1], nil
	case 'O':
		return fmt.Sprintf("%02d/%02d/%02d", y%100, int(m), d), nil
	case 'S':
		return fmt.Sprintf("%04d%02d%02d", y, int(m), d), nil
	case 'U':
		return fmt.Sprintf("%02d/%02d/%02d", int(m), d, y%100), nil
	case 'W':
		return t.Weekday().String(), nil
	}
	return fmt.Sprintf("%d %s %d", d, months[m-1][:3], y), nil
}

func fnTime(c Caller, args calc.Args) (string, error) {
	o, err := option("TIME", args, 0, 'N', "CEHLMNRS")
	if err != nil {
		return "", err
	}
	switch o {
	case 'E', 'R':
		return strconv.FormatFloat(c.Elapsed(o == 'R'), 'f', 6, 64), nil
	}
	t := c.Now()
	h, m, s := t.Clock()
	switch o {
	case 'C':
		suffix := "am"
		if h >= 12 {
			suffix = "pm"
		}
		hour := h % 12
		if hour == 0 {
			hour = 12
		}
		return fmt.Sprintf("%d:%02d%s", hour, m, suffix), nil
	case 'H':
		return strconv.Itoa(h), nil
	case 'L':
		return fmt.Sprintf("%02d:%02d:%02d.%06d", h, m, s, t.Nanosecond()/1000), nil
	case 'M':
		return strconv.Itoa(h*60 + m), nil
	case 'S':
		return strconv.Itoa(h*3600 + m*60 + s), nil
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}
