package util

import (
	"fmt"
	"sort"
	"strings"
)

// KeySet is a map[E comparable]bool with methods added to act as a set.
type KeySet[E comparable] map[E]bool

// StringSet is the KeySet used for derived literals.
type StringSet = KeySet[string]

func NewKeySet[E comparable](of ...map[E]bool) KeySet[E] {
	s := KeySet[E]{}
	for _, m := range of {
		for k := range m {
			s.Add(k)
		}
	}
	return s
}

// KeySetOf returns a set containing every item of sl. A nil slice gives an
// empty, non-nil set.
func KeySetOf[E comparable](sl []E) KeySet[E] {
	s := NewKeySet[E]()

	for i := range sl {
		s.Add(sl[i])
	}

	return s
}

func (s KeySet[E]) Has(value E) bool {
	_, has := s[value]
	return has
}

func (s KeySet[E]) Add(value E) {
	s[value] = true
}

func (s KeySet[E]) Len() int {
	return len(s)
}

func (s KeySet[E]) Empty() bool {
	return s.Len() == 0
}

// Equal returns whether two sets have the same items. If anything other than a
// KeySet[E] or a non-nil *KeySet[E] is passed in, they will not be considered
// equal.
func (s KeySet[E]) Equal(o any) bool {
	other, ok := o.(KeySet[E])
	if !ok {
		otherPtr, ok := o.(*KeySet[E])
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if s.Len() != other.Len() {
		return false
	}

	for k := range s {
		if !other.Has(k) {
			return false
		}
	}

	return true
}

// StringOrdered shows the contents of the set. Items are guaranteed to be
// sorted by their formatted representation.
func (s KeySet[E]) StringOrdered() string {
	convs := []string{}

	for k := range s {
		convs = append(convs, fmt.Sprintf("%v", k))
	}

	sort.Strings(convs)

	var sb strings.Builder

	sb.WriteRune('{')
	for i := range convs {
		sb.WriteString(convs[i])
		if i+1 < len(convs) {
			sb.WriteRune(',')
			sb.WriteRune(' ')
		}
	}
	sb.WriteRune('}')
	return sb.String()
}

func (s KeySet[E]) String() string {
	return s.StringOrdered()
}
