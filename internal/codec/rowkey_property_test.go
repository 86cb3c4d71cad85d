package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Timestamps between 2001 and 2033 keep the bucket seconds inside the
// 4-byte window the key encoding truncates to.
const (
	minTestSeconds = 1_000_000_000
	maxTestSeconds = 2_000_000_000
)

func TestProperty_EventKeyOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	assn := AssignmentKey(42, 17)

	properties.Property("earlier events in different buckets have greater row keys", prop.ForAll(
		func(s1, s2 int64) bool {
			if s1 > s2 {
				s1, s2 = s2, s1
			}
			t1 := time.Unix(s1, 0)
			t2 := time.Unix(s2, 0)
			b1, _ := bucketAndOffset(t1)
			b2, _ := bucketAndOffset(t2)
			k1 := EventRowKey(assn, t1)
			k2 := EventRowKey(assn, t2)
			if b1 == b2 {
				return bytes.Equal(k1, k2)
			}
			return bytes.Compare(k1, k2) > 0
		},
		gen.Int64Range(minTestSeconds, maxTestSeconds),
		gen.Int64Range(minTestSeconds, maxTestSeconds),
	))

	properties.Property("earlier events in the same bucket have greater qualifiers", prop.ForAll(
		func(base int64, o1, o2 int64) bool {
			if o1 == o2 {
				o2 = (o2 + 1) % bucketIntervalSeconds
			}
			if o1 > o2 {
				o1, o2 = o2, o1
			}
			bucket := base - base%bucketIntervalSeconds
			q1 := EventQualifier(EventMeasurement, time.Unix(bucket+o1, 0))
			q2 := EventQualifier(EventMeasurement, time.Unix(bucket+o2, 0))
			return bytes.Compare(q1, q2) > 0
		},
		gen.Int64Range(minTestSeconds, maxTestSeconds),
		gen.Int64Range(0, bucketIntervalSeconds-1),
		gen.Int64Range(0, bucketIntervalSeconds-1),
	))

	properties.Property("event time survives encode/decode at second granularity", prop.ForAll(
		func(secs int64) bool {
			at := time.Unix(secs, 0).UTC()
			key := EventRowKey(assn, at)
			qual := EventQualifier(EventAlert, at)
			decoded, err := DecodeEventTime(key, qual)
			return err == nil && decoded.Equal(at)
		},
		gen.Int64Range(minTestSeconds, maxTestSeconds),
	))

	properties.TestingRun(t)
}

func TestProperty_IdentifierTruncation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("identifiers of equal low bytes collide, others order by low bytes", prop.ForAll(
		func(v1, v2 uint64) bool {
			i1 := Identifier(v1, 4)
			i2 := Identifier(v2, 4)
			low1 := uint32(v1)
			low2 := uint32(v2)
			switch {
			case low1 == low2:
				return bytes.Equal(i1, i2)
			case low1 < low2:
				return bytes.Compare(i1, i2) < 0
			default:
				return bytes.Compare(i1, i2) > 0
			}
		},
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
