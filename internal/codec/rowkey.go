// Package codec builds the deterministic byte keys of the persisted layout.
// Everything here is pure: physical identifiers in, key bytes out.
//
// Sites, zones, and assignments share one table. A site row key is the
// 2-byte truncated site id; zone and assignment rows append a record-type
// byte and a 4-byte child id, so each record type occupies a disjoint,
// contiguous sub-range of the site's key space and can be enumerated with a
// half-open prefix scan.
//
// Event keys invert the bucket timestamp bytes so that ascending
// lexicographic order is descending chronological order: a forward scan
// returns the newest bucket first. Bucketing is second-granularity
// end-to-end; both the row key and the qualifier derive from the same
// seconds value to keep the two encodings in one unit.
package codec

import (
	"encoding/binary"
	"errors"
	"time"
)

// Truncated identifier widths within row keys.
const (
	SiteIdentifierLength       = 2
	DeviceIdentifierLength     = 4
	ZoneIdentifierLength       = 4
	AssignmentIdentifierLength = 4
)

// BucketInterval is the fixed time window grouping events of one assignment
// into a shared row.
const BucketInterval = time.Hour

const bucketIntervalSeconds = int64(BucketInterval / time.Second)

// SiteRecordType partitions a site's key space in the sites table.
type SiteRecordType byte

const (
	SiteRecordPrimary    SiteRecordType = 0x00
	SiteRecordZone       SiteRecordType = 0x01
	SiteRecordAssignment SiteRecordType = 0x02
	// SiteRecordEnd is a sentinel bounding scans over the last record type.
	SiteRecordEnd SiteRecordType = 0x03
)

// EventType discriminates the event kinds sharing one bucket row. The type
// byte is the last byte of the event qualifier.
type EventType byte

const (
	EventMeasurement EventType = 0x01
	EventLocation    EventType = 0x02
	EventAlert       EventType = 0x03
)

// AssignmentHistoryIndicator is the first byte of device-row qualifiers
// recording the assignment history.
const AssignmentHistoryIndicator byte = 0x01

var ErrShortEventKey = errors.New("event key or qualifier too short to decode")

// Identifier truncates a counter value to the low `length` bytes of its
// big-endian encoding.
func Identifier(value uint64, length int) []byte {
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], value)
	out := make([]byte, length)
	copy(out, full[8-length:])
	return out
}

// SiteKey is the primary row key for a site.
func SiteKey(siteID uint64) []byte {
	return Identifier(siteID, SiteIdentifierLength)
}

// DeviceKey is the primary row key for a device.
func DeviceKey(deviceID uint64) []byte {
	return Identifier(deviceID, DeviceIdentifierLength)
}

// SiteRecordPrefix is the key prefix of one record type under a site.
func SiteRecordPrefix(siteID uint64, recordType SiteRecordType) []byte {
	sid := SiteKey(siteID)
	out := make([]byte, 0, len(sid)+1)
	out = append(out, sid...)
	out = append(out, byte(recordType))
	return out
}

// ZonePrefix bounds the zone sub-range of a site.
func ZonePrefix(siteID uint64) []byte {
	return SiteRecordPrefix(siteID, SiteRecordZone)
}

// AssignmentPrefix bounds the assignment sub-range of a site.
func AssignmentPrefix(siteID uint64) []byte {
	return SiteRecordPrefix(siteID, SiteRecordAssignment)
}

// AfterAssignmentPrefix is the exclusive stop key for the assignment
// sub-range of a site.
func AfterAssignmentPrefix(siteID uint64) []byte {
	return SiteRecordPrefix(siteID, SiteRecordEnd)
}

// ZoneKey is the row key of a zone under its site.
func ZoneKey(siteID, zoneID uint64) []byte {
	return append(ZonePrefix(siteID), Identifier(zoneID, ZoneIdentifierLength)...)
}

// AssignmentKey is the row key of an assignment under its site.
func AssignmentKey(siteID, assignmentID uint64) []byte {
	return append(AssignmentPrefix(siteID), Identifier(assignmentID, AssignmentIdentifierLength)...)
}

// bucketAndOffset splits an event time into its bucket base and in-bucket
// offset, both in seconds. Every event encoding derives from this single
// split so the key and qualifier can never disagree on units.
func bucketAndOffset(eventTime time.Time) (bucket, offset int64) {
	secs := eventTime.Unix()
	offset = secs % bucketIntervalSeconds
	return secs - offset, offset
}

// EventRowKey builds the bucketed row key for an event: the assignment row
// key followed by the four low bytes of the big-endian bucket seconds,
// bit-inverted so newer buckets sort first.
func EventRowKey(assignmentKey []byte, eventTime time.Time) []byte {
	bucket, _ := bucketAndOffset(eventTime)
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], uint64(bucket))
	out := make([]byte, 0, len(assignmentKey)+4)
	out = append(out, assignmentKey...)
	out = append(out, ^full[4], ^full[5], ^full[6], ^full[7])
	return out
}

// EventQualifier builds the in-bucket column qualifier: three bit-inverted
// bytes of the big-endian offset seconds, then the event-type byte. Within
// one bucket row, later events therefore sort before earlier ones, matching
// the row-key ordering.
func EventQualifier(eventType EventType, eventTime time.Time) []byte {
	_, offset := bucketAndOffset(eventTime)
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], uint64(offset))
	return []byte{^full[5], ^full[6], ^full[7], byte(eventType)}
}

// EventAbsoluteStartKey bounds a scan when no upper time bound is given.
// Because bucket bytes are inverted, all-zero suffix bytes sort before any
// real bucket.
func EventAbsoluteStartKey(assignmentKey []byte) []byte {
	out := make([]byte, 0, len(assignmentKey)+4)
	out = append(out, assignmentKey...)
	return append(out, 0x00, 0x00, 0x00, 0x00)
}

// EventAbsoluteEndKey bounds a scan when no lower time bound is given.
func EventAbsoluteEndKey(assignmentKey []byte) []byte {
	out := make([]byte, 0, len(assignmentKey)+4)
	out = append(out, assignmentKey...)
	return append(out, 0xff, 0xff, 0xff, 0xff)
}

// EventTypeOf extracts the event-type byte from a qualifier. The second
// return is false for qualifiers that are not event cells.
func EventTypeOf(qualifier []byte) (EventType, bool) {
	if len(qualifier) != 4 {
		return 0, false
	}
	t := EventType(qualifier[3])
	switch t {
	case EventMeasurement, EventLocation, EventAlert:
		return t, true
	}
	return 0, false
}

// DecodeEventTime recovers the exact event time from the inverted bucket
// bytes of the row key and the inverted offset bytes of the qualifier.
// Needed because key bounds are bucket-granular: listings re-check the
// decoded time against the requested range.
func DecodeEventTime(rowKey, qualifier []byte) (time.Time, error) {
	if len(rowKey) < 4 || len(qualifier) < 3 {
		return time.Time{}, ErrShortEventKey
	}
	var work [8]byte
	inv := rowKey[len(rowKey)-4:]
	work[4] = ^inv[0]
	work[5] = ^inv[1]
	work[6] = ^inv[2]
	work[7] = ^inv[3]
	bucket := int64(binary.BigEndian.Uint64(work[:]))

	work = [8]byte{}
	work[5] = ^qualifier[0]
	work[6] = ^qualifier[1]
	work[7] = ^qualifier[2]
	offset := int64(binary.BigEndian.Uint64(work[:]))

	return time.Unix(bucket+offset, 0).UTC(), nil
}

// AssignmentHistoryQualifier builds a device-row qualifier recording one
// assignment: the history indicator byte followed by four bit-inverted
// bytes of the big-endian event seconds, so the most recent assignment
// sorts first.
func AssignmentHistoryQualifier(at time.Time) []byte {
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], uint64(at.Unix()))
	return []byte{AssignmentHistoryIndicator, ^full[4], ^full[5], ^full[6], ^full[7]}
}

// IsAssignmentHistoryQualifier reports whether a device-row qualifier is an
// assignment history cell.
func IsAssignmentHistoryQualifier(qualifier []byte) bool {
	return len(qualifier) == 5 && qualifier[0] == AssignmentHistoryIndicator
}
