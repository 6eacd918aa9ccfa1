// Package parse implements a small parser-combinator engine and the grammar
// for HTML templates with Jinja/Django-style delimiters.
package parse

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/neurodesk/templint/pkg/ast"
)

// ErrInternal marks a defect in the grammar, as opposed to malformed input.
var ErrInternal = errors.New("internal parser error")

// Parser consumes input starting at byte offset pos. On success it returns
// the value and the offset after it.
type Parser[T any] func(s *State, pos int) (T, int, bool)

// State is the input of a single parse along with the farthest failure seen
// so far, which becomes the reported syntax error.
type State struct {
	src   string
	lines *ast.LineIndex

	failPos  int
	expected []string
	quiet    int

	// A pinned failure is reported instead of the farthest one.
	pinPos int
	pinned []string

	memo map[memoKey]memoEntry
}

func newState(src string) *State {
	return &State{
		src:     src,
		lines:   ast.NewLineIndex(src),
		failPos: -1,
		pinPos:  -1,
		memo:    make(map[memoKey]memoEntry),
	}
}

// Fail records that desc was expected at pos.
func (s *State) Fail(pos int, desc string) {
	if s.quiet > 0 || pos < s.failPos {
		return
	}
	if pos > s.failPos {
		s.failPos = pos
		s.expected = s.expected[:0]
	}
	if !slices.Contains(s.expected, desc) {
		s.expected = append(s.expected, desc)
	}
}

// Pin records a failure that is reported even when other alternatives got
// further. It is meant for input that matched a construct's syntax but broke
// one of its rules.
func (s *State) Pin(pos int, desc string) {
	if s.quiet > 0 || pos < s.pinPos {
		return
	}
	if pos > s.pinPos {
		s.pinPos = pos
		s.pinned = nil
	}
	if !slices.Contains(s.pinned, desc) {
		s.pinned = append(s.pinned, desc)
	}
}

type failure struct {
	pos      int
	expected []string
}

// takeFailures clears the recorded failures and returns them.
func (s *State) takeFailures() (fail, pin failure) {
	fail = failure{s.failPos, s.expected}
	pin = failure{s.pinPos, s.pinned}
	s.failPos, s.expected = -1, nil
	s.pinPos, s.pinned = -1, nil
	return fail, pin
}

// restoreFailures puts back failures saved by takeFailures, merges the ones
// recorded since, and returns the latter.
func (s *State) restoreFailures(fail, pin failure) (innerFail, innerPin failure) {
	innerFail = failure{s.failPos, slices.Clone(s.expected)}
	innerPin = failure{s.pinPos, slices.Clone(s.pinned)}
	s.failPos, s.expected = fail.pos, fail.expected
	s.pinPos, s.pinned = pin.pos, pin.expected
	s.replay(innerFail, innerPin)
	return innerFail, innerPin
}

func (s *State) replay(fail, pin failure) {
	for _, desc := range fail.expected {
		s.Fail(fail.pos, desc)
	}
	for _, desc := range pin.expected {
		s.Pin(pin.pos, desc)
	}
}

// Span converts two offsets into a located span.
func (s *State) Span(from, to int) ast.Span {
	return s.lines.Span(from, to)
}

// SyntaxError is returned when the input does not match the grammar.
type SyntaxError struct {
	Location ast.Location
	Expected []string
}

func (e *SyntaxError) Error() string {
	quoted := make([]string, len(e.Expected))
	for i, x := range e.Expected {
		quoted[i] = "'" + x + "'"
	}
	if len(quoted) == 1 {
		return fmt.Sprintf("expected %s at %s", quoted[0], e.Location)
	}
	return fmt.Sprintf("expected one of %s at %s", strings.Join(quoted, ", "), e.Location)
}

type internalError struct{ err error }

// Run applies p to the whole of src.
func Run[T any](p Parser[T], src string) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(internalError)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("%w: %w", ErrInternal, ie.err)
		}
	}()
	s := newState(src)
	v, pos, ok := p(s, 0)
	if ok && pos == len(src) {
		return v, nil
	}
	var zero T
	if s.pinPos >= 0 {
		expected := slices.Clone(s.pinned)
		slices.Sort(expected)
		return zero, &SyntaxError{Location: s.lines.Location(s.pinPos), Expected: expected}
	}
	if ok {
		s.Fail(pos, "EOF")
	}
	if s.failPos < 0 {
		s.failPos = 0
	}
	expected := slices.Clone(s.expected)
	slices.Sort(expected)
	return zero, &SyntaxError{Location: s.lines.Location(s.failPos), Expected: expected}
}

// must aborts the parse with an internal error when err is set.
func must[T any](v T, err error) T {
	if err != nil {
		panic(internalError{err})
	}
	return v
}

// Literal matches s exactly.
func Literal(lit string) Parser[string] {
	return func(s *State, pos int) (string, int, bool) {
		if strings.HasPrefix(s.src[pos:], lit) {
			return lit, pos + len(lit), true
		}
		s.Fail(pos, lit)
		return "", pos, false
	}
}

// Word matches lit when it is not directly followed by a character for which
// cont is true.
func Word(lit string, cont func(rune) bool) Parser[string] {
	return func(s *State, pos int) (string, int, bool) {
		if strings.HasPrefix(s.src[pos:], lit) {
			end := pos + len(lit)
			if r, _ := utf8.DecodeRuneInString(s.src[end:]); end == len(s.src) || !cont(r) {
				return lit, end, true
			}
		}
		s.Fail(pos, lit)
		return "", pos, false
	}
}

// Keyword matches an identifier-like word.
func Keyword(lit string) Parser[string] {
	return Word(lit, isIdentChar)
}

// Regexp matches pattern anchored at the current position.
func Regexp(pattern string) Parser[string] {
	re := regexp.MustCompile(`\A(?:` + pattern + `)`)
	return func(s *State, pos int) (string, int, bool) {
		loc := re.FindStringIndex(s.src[pos:])
		if loc == nil {
			s.Fail(pos, pattern)
			return "", pos, false
		}
		return s.src[pos : pos+loc[1]], pos + loc[1], true
	}
}

// Chars matches a run of characters accepted by ok. Fewer than min
// characters is a failure described by desc.
func Chars(desc string, min int, ok func(rune) bool) Parser[string] {
	return func(s *State, pos int) (string, int, bool) {
		end, n := pos, 0
		for end < len(s.src) {
			r, size := utf8.DecodeRuneInString(s.src[end:])
			if !ok(r) {
				break
			}
			end += size
			n++
		}
		if n < min {
			s.Fail(end, desc)
			return "", pos, false
		}
		return s.src[pos:end], end, true
	}
}

// Name matches a character accepted by first followed by any number of
// characters accepted by rest.
func Name(desc string, first, rest func(rune) bool) Parser[string] {
	return func(s *State, pos int) (string, int, bool) {
		r, size := utf8.DecodeRuneInString(s.src[pos:])
		if pos == len(s.src) || !first(r) {
			s.Fail(pos, desc)
			return "", pos, false
		}
		end := pos + size
		for end < len(s.src) {
			r, size := utf8.DecodeRuneInString(s.src[end:])
			if !rest(r) {
				break
			}
			end += size
		}
		return s.src[pos:end], end, true
	}
}

// AnyChar matches a single character.
var AnyChar Parser[string] = func(s *State, pos int) (string, int, bool) {
	if pos >= len(s.src) {
		s.Fail(pos, "any character")
		return "", pos, false
	}
	_, size := utf8.DecodeRuneInString(s.src[pos:])
	return s.src[pos : pos+size], pos + size, true
}

// Succeed matches nothing and returns v.
func Succeed[T any](v T) Parser[T] {
	return func(s *State, pos int) (T, int, bool) {
		return v, pos, true
	}
}

// Fail never matches and records desc as expected.
func Fail[T any](desc string) Parser[T] {
	return func(s *State, pos int) (T, int, bool) {
		var zero T
		s.Fail(pos, desc)
		return zero, pos, false
	}
}

func Map[A, B any](p Parser[A], f func(A) B) Parser[B] {
	return func(s *State, pos int) (B, int, bool) {
		a, next, ok := p(s, pos)
		if !ok {
			var zero B
			return zero, pos, false
		}
		return f(a), next, true
	}
}

// Located passes the span of the match to f.
func Located[A, B any](p Parser[A], f func(ast.Span, A) B) Parser[B] {
	return func(s *State, pos int) (B, int, bool) {
		a, next, ok := p(s, pos)
		if !ok {
			var zero B
			return zero, pos, false
		}
		return f(s.Span(pos, next), a), next, true
	}
}

// Then matches a then b and keeps b.
func Then[A, B any](a Parser[A], b Parser[B]) Parser[B] {
	return func(s *State, pos int) (B, int, bool) {
		var zero B
		_, next, ok := a(s, pos)
		if !ok {
			return zero, pos, false
		}
		v, next, ok := b(s, next)
		if !ok {
			return zero, pos, false
		}
		return v, next, true
	}
}

// Skip matches a then b and keeps a.
func Skip[A, B any](a Parser[A], b Parser[B]) Parser[A] {
	return func(s *State, pos int) (A, int, bool) {
		var zero A
		v, next, ok := a(s, pos)
		if !ok {
			return zero, pos, false
		}
		if _, next, ok = b(s, next); !ok {
			return zero, pos, false
		}
		return v, next, true
	}
}

// Or tries each parser in order and returns the first match.
func Or[T any](ps ...Parser[T]) Parser[T] {
	return func(s *State, pos int) (T, int, bool) {
		for _, p := range ps {
			if v, next, ok := p(s, pos); ok {
				return v, next, true
			}
		}
		var zero T
		return zero, pos, false
	}
}

// Many matches p zero or more times. A match that consumes nothing ends the
// repetition and is not collected.
func Many[T any](p Parser[T]) Parser[[]T] {
	return AtLeast(p, 0)
}

// AtLeast matches p at least n times.
func AtLeast[T any](p Parser[T], n int) Parser[[]T] {
	return func(s *State, pos int) ([]T, int, bool) {
		out := []T{}
		cur := pos
		for {
			v, next, ok := p(s, cur)
			if !ok || next == cur {
				break
			}
			out = append(out, v)
			cur = next
		}
		if len(out) < n {
			return nil, pos, false
		}
		return out, cur, true
	}
}

// SepBy matches zero or more p separated by sep.
func SepBy[T, S any](p Parser[T], sep Parser[S]) Parser[[]T] {
	pair := Then(sep, p)
	return func(s *State, pos int) ([]T, int, bool) {
		out := []T{}
		first, cur, ok := p(s, pos)
		if !ok {
			return out, pos, true
		}
		out = append(out, first)
		for {
			v, next, ok := pair(s, cur)
			if !ok || next == cur {
				break
			}
			out = append(out, v)
			cur = next
		}
		return out, cur, true
	}
}

// Optional matches p or nothing. ok reports which.
func Optional[T any](p Parser[T]) Parser[Opt[T]] {
	return func(s *State, pos int) (Opt[T], int, bool) {
		if v, next, ok := p(s, pos); ok {
			return Opt[T]{Value: v, OK: true}, next, true
		}
		return Opt[T]{}, pos, true
	}
}

// Opt is the result of Optional.
type Opt[T any] struct {
	Value T
	OK    bool
}

// Present matches p or nothing and reports whether p matched.
func Present[T any](p Parser[T]) Parser[bool] {
	return Map(Optional(p), func(o Opt[T]) bool { return o.OK })
}

// Not succeeds without consuming input when p does not match at pos.
func Not[T any](p Parser[T], desc string) Parser[struct{}] {
	return func(s *State, pos int) (struct{}, int, bool) {
		s.quiet++
		_, _, ok := p(s, pos)
		s.quiet--
		if ok {
			s.Fail(pos, desc)
			return struct{}{}, pos, false
		}
		return struct{}{}, pos, true
	}
}

// Until consumes characters up to the first position where end matches, or
// to the end of input. end itself is not consumed.
func Until[T any](end Parser[T]) Parser[string] {
	return func(s *State, pos int) (string, int, bool) {
		cur := pos
		s.quiet++
		for cur < len(s.src) {
			if _, _, ok := end(s, cur); ok {
				break
			}
			_, size := utf8.DecodeRuneInString(s.src[cur:])
			cur += size
		}
		s.quiet--
		return s.src[pos:cur], cur, true
	}
}

// Desc replaces whatever p expected with desc when p fails.
func Desc[T any](p Parser[T], desc string) Parser[T] {
	return func(s *State, pos int) (T, int, bool) {
		failPos, expected := s.failPos, slices.Clone(s.expected)
		v, next, ok := p(s, pos)
		if ok {
			return v, next, true
		}
		s.failPos, s.expected = failPos, expected
		s.Fail(pos, desc)
		return v, pos, false
	}
}

type memoID struct{ _ byte }

type memoKey struct {
	id  *memoID
	pos int
}

type memoEntry struct {
	v         any
	next      int
	ok        bool
	fail, pin failure
}

// Memo caches the outcome of p per input offset, so that alternatives
// sharing a prefix do not parse the same span again. The failures p records
// are cached with it and replayed on every hit.
func Memo[T any](p Parser[T]) Parser[T] {
	id := new(memoID)
	return func(s *State, pos int) (T, int, bool) {
		key := memoKey{id, pos}
		if e, ok := s.memo[key]; ok {
			s.replay(e.fail, e.pin)
			v, _ := e.v.(T)
			return v, e.next, e.ok
		}
		if s.quiet > 0 {
			return p(s, pos)
		}
		fail, pin := s.takeFailures()
		v, next, ok := p(s, pos)
		innerFail, innerPin := s.restoreFailures(fail, pin)
		s.memo[key] = memoEntry{v: v, next: next, ok: ok, fail: innerFail, pin: innerPin}
		return v, next, ok
	}
}

// Ref is a forward-declared parser used to build recursive grammars.
// Consumers take Parser() before the definition is known; Set seals it.
type Ref[T any] struct {
	p Parser[T]
}

func (r *Ref[T]) Set(p Parser[T]) {
	if r.p != nil {
		panic("parse: Ref set twice")
	}
	r.p = p
}

func (r *Ref[T]) Parser() Parser[T] {
	return func(s *State, pos int) (T, int, bool) {
		if r.p == nil {
			panic(internalError{errors.New("parse: Ref used before Set")})
		}
		return r.p(s, pos)
	}
}

func isIdentChar(r rune) bool {
	return r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
