// Package discord holds the entities the gateway and REST API exchange: the
// canonical cached structs, the payloads they are built from, and the flag
// families carried as bitmasks.
package discord

import (
	"strconv"
	"time"
)

// Epoch is the first millisecond of 2015, the origin of snowflake timestamps.
const Epoch = 1420070400000

// Snowflake is a unique id. The wire format is a decimal string.
type Snowflake string

func (s Snowflake) Uint64() (uint64, error) {
	return strconv.ParseUint(string(s), 10, 64)
}

func (s Snowflake) Valid() bool {
	_, err := s.Uint64()
	return err == nil
}

// CreatedAt decodes the creation time embedded in the id. Invalid ids
// yield the zero time.
func (s Snowflake) CreatedAt() time.Time {
	id, err := s.Uint64()
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(int64(id>>22) + Epoch).UTC()
}

func (s Snowflake) String() string {
	return string(s)
}
