// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package address provides the canonical representation of virtual actor
// addresses.
//
// An address identifies exactly one logical actor and is made of two parts:
//
//   - Type: the registered actor type, e.g. "counter"
//   - ID: the identity of the actor within its type, e.g. "user-42"
//
// The canonical textual representation of an Address is:
//
//	<type>:<id>
//
// An address exists whether or not an instance is currently active. Address
// values are immutable and safe to share between goroutines.
package address

import (
	"errors"
	"regexp"
	"strings"

	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/internal/validation"
)

// separator delimits the type and the id in the canonical representation
const separator = ":"

// MaxPartLength is the maximum length of the type or the id
const MaxPartLength = 255

var (
	typePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	idPattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
)

// Address identifies a virtual actor.
//
// The zero value is not a valid address; use New or Parse.
type Address struct {
	kind string
	id   string
}

// New creates an Address. It does not validate its input; call Validate or use
// Parse when the parts come from an untrusted source.
func New(actorType, id string) Address {
	return Address{kind: actorType, id: id}
}

// Parse parses the canonical "<type>:<id>" representation and validates it.
//
// The id may itself contain no ':' since only the first separator delimits
// the type.
//
// Examples:
//
//	addr, _ := Parse("counter:a1")
//	// addr.Type() == "counter", addr.ID() == "a1"
//
//	_, err := Parse("counter")
//	// errors.Is(err, errors.ErrInvalidAddress)
func Parse(addr string) (Address, error) {
	if strings.TrimSpace(addr) == "" {
		return Address{}, gerrors.NewErrInvalidAddress(errors.New("address is required"))
	}

	kind, id, ok := strings.Cut(addr, separator)
	if !ok {
		return Address{}, gerrors.NewErrInvalidAddress(errors.New("address format is invalid"))
	}

	address := New(kind, id)
	if err := address.Validate(); err != nil {
		return Address{}, err
	}
	return address, nil
}

// MustParse is like Parse but panics when the address is invalid.
func MustParse(addr string) Address {
	address, err := Parse(addr)
	if err != nil {
		panic(err)
	}
	return address
}

// Type returns the actor type
func (x Address) Type() string {
	return x.kind
}

// ID returns the actor id
func (x Address) ID() string {
	return x.id
}

// String returns the canonical representation "<type>:<id>"
func (x Address) String() string {
	return x.kind + separator + x.id
}

// IsZero reports whether the address has neither a type nor an id
func (x Address) IsZero() bool {
	return x.kind == "" && x.id == ""
}

// Equals reports whether both addresses designate the same actor
func (x Address) Equals(y Address) bool {
	return x.kind == y.kind && x.id == y.id
}

// Validate checks whether the Address is well-formed.
//
// Validation rules:
//   - Type must be non-empty, <= 255 characters and match ^[a-zA-Z0-9][a-zA-Z0-9_-]*$
//   - ID must be non-empty, <= 255 characters and match ^[a-zA-Z0-9][a-zA-Z0-9_.-]*$
//
// The returned error wraps errors.ErrInvalidAddress.
func (x Address) Validate() error {
	err := validation.
		New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("type", x.kind)).
		AddValidator(validation.NewEmptyStringValidator("id", x.id)).
		AddValidator(validation.NewMaxLengthValidator("type", x.kind, MaxPartLength)).
		AddValidator(validation.NewMaxLengthValidator("id", x.id, MaxPartLength)).
		AddValidator(ValidateType(x.kind)).
		AddValidator(validation.NewPatternValidator("id", idPattern, x.id, nil)).
		Validate()
	if err != nil {
		return gerrors.NewErrInvalidAddress(err)
	}
	return nil
}

// ValidateType returns a validator for an actor type name. Descriptors are
// checked with it at registration.
func ValidateType(actorType string) validation.Validator {
	return validation.NewPatternValidator("type", typePattern, actorType, nil)
}

// MarshalText implements encoding.TextMarshaler
func (x Address) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (x *Address) UnmarshalText(text []byte) error {
	address, err := Parse(string(text))
	if err != nil {
		return err
	}
	*x = address
	return nil
}
