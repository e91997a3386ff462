package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// Field identifies the form field a validation message belongs to.
type Field string

const (
	FieldUsername Field = "username"
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
	FieldCaptcha  Field = "captcha"
	FieldGeneral  Field = "general"
)

var allFields = []Field{FieldUsername, FieldEmail, FieldPassword, FieldCaptcha, FieldGeneral}

func (f Field) Valid() bool {
	for _, k := range allFields {
		if f == k {
			return true
		}
	}
	return false
}

// FieldErrors maps fields to a single human-readable message.
// The zero value is an empty, valid set. Values are immutable once built.
type FieldErrors struct {
	m map[Field]string
}

// FieldErrorsBuilder accumulates messages. The first message recorded for a
// field is kept; later ones for the same field are dropped.
type FieldErrorsBuilder struct {
	m map[Field]string
}

func NewFieldErrorsBuilder() *FieldErrorsBuilder {
	return &FieldErrorsBuilder{m: make(map[Field]string)}
}

// Add records msg for f unless f already has a message or msg is empty.
// Unknown fields are filed under FieldGeneral.
func (b *FieldErrorsBuilder) Add(f Field, msg string) *FieldErrorsBuilder {
	if msg == "" {
		return b
	}
	if !f.Valid() {
		f = FieldGeneral
	}
	if _, exists := b.m[f]; !exists {
		b.m[f] = msg
	}
	return b
}

// Merge adds every entry of other, respecting first-write-wins.
func (b *FieldErrorsBuilder) Merge(other FieldErrors) *FieldErrorsBuilder {
	for _, f := range allFields {
		if msg, ok := other.m[f]; ok {
			b.Add(f, msg)
		}
	}
	return b
}

func (b *FieldErrorsBuilder) Build() FieldErrors {
	if len(b.m) == 0 {
		return FieldErrors{}
	}
	cp := make(map[Field]string, len(b.m))
	for k, v := range b.m {
		cp[k] = v
	}
	return FieldErrors{m: cp}
}

// SingleFieldError is shorthand for a set with one entry.
func SingleFieldError(f Field, msg string) FieldErrors {
	return NewFieldErrorsBuilder().Add(f, msg).Build()
}

func (fe FieldErrors) Len() int    { return len(fe.m) }
func (fe FieldErrors) Empty() bool { return len(fe.m) == 0 }

func (fe FieldErrors) Get(f Field) (string, bool) {
	msg, ok := fe.m[f]
	return msg, ok
}

func (fe FieldErrors) Has(f Field) bool {
	_, ok := fe.m[f]
	return ok
}

// Fields returns the populated fields in a stable order.
func (fe FieldErrors) Fields() []Field {
	out := make([]Field, 0, len(fe.m))
	for _, f := range allFields {
		if _, ok := fe.m[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ToMap returns a copy keyed by field name, ready for JSON responses.
func (fe FieldErrors) ToMap() map[string]string {
	out := make(map[string]string, len(fe.m))
	for k, v := range fe.m {
		out[string(k)] = v
	}
	return out
}

func (fe FieldErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(fe.ToMap())
}

func (fe FieldErrors) String() string {
	parts := make([]string, 0, len(fe.m))
	for k, v := range fe.m {
		parts = append(parts, string(k)+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
