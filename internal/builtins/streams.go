package builtins

import (
	"errors"
	"strconv"
	"strings"

	"rexx/internal/calc"
	"rexx/internal/condition"
	"rexx/internal/streams"
)

func registerStreams() {
	register("CHARIN", 0, 3, fnCharIn)
	register("CHAROUT", 0, 3, fnCharOut)
	register("CHARS", 0, 1, fnChars)
	register("LINEIN", 0, 3, fnLineIn)
	register("LINEOUT", 0, 3, fnLineOut)
	register("LINES", 0, 2, fnLines)
	register("STREAM", 1, 3, fnStream)
}

// streamError raises NOTREADY for a failed transfer, or turns a bad
// position into a syntax error.
func streamError(c Caller, name, stream string, err error) error {
	if errors.Is(err, streams.ErrNotReady) {
		c.NotReady(stream)
		return nil
	}
	return condition.Errorf(40, "%s: %v", name, err)
}

func position(c Caller, name string, args calc.Args, i int) (int64, error) {
	n, err := whole(c, name, args, i, 0, 1)
	return int64(n), err
}

func fnLineIn(c Caller, args calc.Args) (string, error) {
	stream := arg(args, 0)
	line, err := position(c, "LINEIN", args, 1)
	if err != nil {
		return "", err
	}
	count, err := whole(c, "LINEIN", args, 2, 1, 0)
	if err != nil {
		return "", err
	}
	if count > 1 {
		return "", badArg("LINEIN", 2, "must be 0 or 1; found %d", count)
	}
	v, err := c.Streams().LineIn(stream, line, count)
	if err != nil {
		return "", streamError(c, "LINEIN", stream, err)
	}
	return v, nil
}

func fnLineOut(c Caller, args calc.Args) (string, error) {
	stream := arg(args, 0)
	var data *string
	if v, ok := args.Get(1); ok {
		data = &v
	}
	line, err := position(c, "LINEOUT", args, 2)
	if err != nil {
		return "", err
	}
	n, err := c.Streams().LineOut(stream, data, line)
	if err != nil {
		if err := streamError(c, "LINEOUT", stream, err); err != nil {
			return "", err
		}
	}
	return strconv.Itoa(n), nil
}

func fnLines(c Caller, args calc.Args) (string, error) {
	o, err := option("LINES", args, 1, 'N', "CN")
	if err != nil {
		return "", err
	}
	return strconv.Itoa(c.Streams().Lines(arg(args, 0), o == 'C')), nil
}

func fnCharIn(c Caller, args calc.Args) (string, error) {
	stream := arg(args, 0)
	start, err := position(c, "CHARIN", args, 1)
	if err != nil {
		return "", err
	}
	count, err := whole(c, "CHARIN", args, 2, 1, 0)
	if err != nil {
		return "", err
	}
	v, err := c.Streams().CharIn(stream, start, count)
	if err != nil {
		return v, streamError(c, "CHARIN", stream, err)
	}
	return v, nil
}

func fnCharOut(c Caller, args calc.Args) (string, error) {
	stream := arg(args, 0)
	var data *string
	if v, ok := args.Get(1); ok {
		data = &v
	}
	start, err := position(c, "CHAROUT", args, 2)
	if err != nil {
		return "", err
	}
	n, err := c.Streams().CharOut(stream, data, start)
	if err != nil {
		if err := streamError(c, "CHAROUT", stream, err); err != nil {
			return "", err
		}
	}
	return strconv.Itoa(n), nil
}

func fnChars(c Caller, args calc.Args) (string, error) {
	return strconv.Itoa(c.Streams().Chars(arg(args, 0))), nil
}

func fnStream(c Caller, args calc.Args) (string, error) {
	stream := arg(args, 0)
	o, err := option("STREAM", args, 1, 'S', "CDS")
	if err != nil {
		return "", err
	}
	switch o {
	case 'C':
		command, ok := args.Get(2)
		if !ok {
			return "", badArg("STREAM", 2, "is required for the C option")
		}
		r, err := c.Streams().Command(stream, command)
		if err != nil {
			return "", condition.Errorf(40, "STREAM: %v", err)
		}
		return r, nil
	case 'D':
		return c.Streams().Description(stream), nil
	}
	if args.Exists(2) {
		return "", badArg("STREAM", 2, "is only allowed with the C option")
	}
	return strings.TrimSuffix(c.Streams().State(stream).String(), ":"), nil
}
