package geometry

import (
	"strconv"
	"strings"

	"sketchbook/internal/domain"
)

// pathToken is either a single-letter command or a numeric argument.
type pathToken struct {
	cmd byte
	num float64
}

// ParsePath expands an SVG-style mini-path (M, L, H, V, Q, C, Z, upper
// and lower case) into a point sequence. Bezier commands are sampled in
// 16 steps and Z closes back to the last M. Unrecognized commands fall
// back to pairing numeric arguments as raw points; malformed or
// incomplete arguments are silently skipped.
func ParsePath(d string) []domain.Point {
	tokens := tokenizePath(d)
	if len(tokens) == 0 {
		return nil
	}

	var pts []domain.Point
	var cur, start domain.Point
	started := false

	i := 0
	// takeNums pulls n consecutive numeric tokens. On an incomplete run
	// it consumes and drops the stray numbers, leaving the next command
	// in place.
	takeNums := func(n int) ([]float64, bool) {
		out := make([]float64, 0, n)
		for len(out) < n && i < len(tokens) && tokens[i].cmd == 0 {
			out = append(out, tokens[i].num)
			i++
		}
		if len(out) < n {
			return nil, false
		}
		return out, true
	}

	cmd := byte(0)
	for i < len(tokens) {
		if tokens[i].cmd != 0 {
			cmd = tokens[i].cmd
			i++
			if cmd == 'Z' || cmd == 'z' {
				if started {
					pts = append(pts, start)
					cur = start
				}
				continue
			}
		}
		if cmd == 0 {
			// Leading numbers with no command: skip them.
			i++
			continue
		}

		rel := cmd >= 'a' && cmd <= 'z'
		switch upper(cmd) {
		case 'M':
			args, ok := takeNums(2)
			if !ok {
				continue
			}
			cur = resolve(cur, args[0], args[1], rel)
			start = cur
			started = true
			pts = append(pts, cur)
			// Subsequent coordinate pairs after a moveto are implicit
			// linetos in the same coordinate mode.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			args, ok := takeNums(2)
			if !ok {
				continue
			}
			cur = resolve(cur, args[0], args[1], rel)
			pts = append(pts, cur)
		case 'H':
			args, ok := takeNums(1)
			if !ok {
				continue
			}
			if rel {
				cur.X += args[0]
			} else {
				cur.X = args[0]
			}
			pts = append(pts, cur)
		case 'V':
			args, ok := takeNums(1)
			if !ok {
				continue
			}
			if rel {
				cur.Y += args[0]
			} else {
				cur.Y = args[0]
			}
			pts = append(pts, cur)
		case 'Q':
			args, ok := takeNums(4)
			if !ok {
				continue
			}
			c := resolve(cur, args[0], args[1], rel)
			end := resolve(cur, args[2], args[3], rel)
			pts = appendQuadratic(pts, cur, c, end)
			cur = end
		case 'C':
			args, ok := takeNums(6)
			if !ok {
				continue
			}
			c1 := resolve(cur, args[0], args[1], rel)
			c2 := resolve(cur, args[2], args[3], rel)
			end := resolve(cur, args[4], args[5], rel)
			pts = appendCubic(pts, cur, c1, c2, end)
			cur = end
		default:
			// Unknown command: treat its arguments as raw point pairs.
			args, ok := takeNums(2)
			if !ok {
				continue
			}
			cur = domain.Point{X: args[0], Y: args[1]}
			pts = append(pts, cur)
		}
	}
	return pts
}

func resolve(cur domain.Point, x, y float64, rel bool) domain.Point {
	if rel {
		return domain.Point{X: cur.X + x, Y: cur.Y + y}
	}
	return domain.Point{X: x, Y: y}
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// tokenizePath splits a path string into command letters and numbers.
// Unparseable numeric runs are dropped.
func tokenizePath(d string) []pathToken {
	var tokens []pathToken
	var num strings.Builder

	flush := func() {
		if num.Len() == 0 {
			return
		}
		if f, err := strconv.ParseFloat(num.String(), 64); err == nil {
			tokens = append(tokens, pathToken{num: f})
		}
		num.Reset()
	}

	for idx := 0; idx < len(d); idx++ {
		c := d[idx]
		switch {
		case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z':
			// 'e'/'E' inside a number is an exponent, not a command.
			if (c == 'e' || c == 'E') && num.Len() > 0 {
				num.WriteByte(c)
				continue
			}
			flush()
			tokens = append(tokens, pathToken{cmd: c})
		case c >= '0' && c <= '9' || c == '.':
			num.WriteByte(c)
		case c == '-' || c == '+':
			// A sign starts a new number unless it follows an exponent.
			s := num.String()
			if num.Len() > 0 && !strings.HasSuffix(s, "e") && !strings.HasSuffix(s, "E") {
				flush()
			}
			num.WriteByte(c)
		default:
			// Separators: whitespace, commas, anything else.
			flush()
		}
	}
	flush()
	return tokens
}
