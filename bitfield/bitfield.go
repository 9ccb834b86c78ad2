// Package bitfield implements a bitmask value type shared by every flag family
// of the protocol (intents, permissions, message flags).
package bitfield

import (
	"fmt"
	"strconv"
	"strings"
)

// Flag is a bit position of one flag family. String must return a stable
// name for every defined position.
type Flag interface {
	~uint8
	String() string
}

// Bits is a set of flags of the family F, encoded as the protocol's integer bitmask.
type Bits[F Flag] uint64

const maxBits = 64

func mask[F Flag](flag F) uint64 {
	if uint(flag) >= maxBits {
		return 0
	}
	return 1 << uint(flag)
}

func New[F Flag](flags ...F) Bits[F] {
	var b Bits[F]
	return b.Add(flags...)
}

// Has reports whether every given flag is set.
func (b Bits[F]) Has(flags ...F) bool {
	for _, flag := range flags {
		if uint64(b)&mask(flag) == 0 {
			return false
		}
	}
	return true
}

// Any reports whether at least one of the given flags is set.
func (b Bits[F]) Any(flags ...F) bool {
	for _, flag := range flags {
		if uint64(b)&mask(flag) != 0 {
			return true
		}
	}
	return false
}

func (b Bits[F]) Add(flags ...F) Bits[F] {
	for _, flag := range flags {
		b |= Bits[F](mask(flag))
	}
	return b
}

func (b Bits[F]) Remove(flags ...F) Bits[F] {
	for _, flag := range flags {
		b &^= Bits[F](mask(flag))
	}
	return b
}

// ToArray lists the set flags in ascending bit order.
func (b Bits[F]) ToArray() []F {
	var flags []F
	for i := 0; i < maxBits; i++ {
		if uint64(b)&(1<<uint(i)) != 0 {
			flags = append(flags, F(i))
		}
	}
	return flags
}

func (b Bits[F]) Names() []string {
	flags := b.ToArray()
	names := make([]string, 0, len(flags))
	for _, flag := range flags {
		names = append(names, flag.String())
	}
	return names
}

func (b Bits[F]) String() string {
	return strings.Join(b.Names(), "|")
}

// Parse builds a bitmask from flag names (case-insensitive) or decimal
// bitmask literals.
func Parse[F Flag](names ...string) (Bits[F], error) {
	var b Bits[F]

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if raw, err := strconv.ParseUint(name, 10, 64); err == nil {
			b |= Bits[F](raw)
			continue
		}

		flag, ok := lookup[F](name)
		if !ok {
			return 0, fmt.Errorf("bitfield: unknown flag %q", name)
		}
		b = b.Add(flag)
	}

	return b, nil
}

func lookup[F Flag](name string) (F, bool) {
	for i := 0; i < maxBits; i++ {
		if strings.EqualFold(F(i).String(), name) {
			return F(i), true
		}
	}
	return 0, false
}
