package codec

import (
	"bytes"
	"testing"
	"time"
)

func TestIdentifier_TruncatesBigEndian(t *testing.T) {
	got := Identifier(0x0102030405060708, 4)
	want := []byte{0x05, 0x06, 0x07, 0x08}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}

	got = Identifier(0xABCD, 2)
	want = []byte{0xAB, 0xCD}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestSiteRecordPrefixes_AreDisjointAndOrdered(t *testing.T) {
	site := SiteKey(7)
	zone := ZonePrefix(7)
	assn := AssignmentPrefix(7)
	end := AfterAssignmentPrefix(7)

	if len(site) != SiteIdentifierLength {
		t.Fatalf("site key length %d", len(site))
	}
	if bytes.Compare(site, zone) >= 0 || bytes.Compare(zone, assn) >= 0 || bytes.Compare(assn, end) >= 0 {
		t.Error("record-type prefixes must sort primary < zone < assignment < end")
	}
}

func TestZoneKey_Layout(t *testing.T) {
	key := ZoneKey(0x0102, 0x0A0B0C0D)
	want := []byte{0x01, 0x02, byte(SiteRecordZone), 0x0A, 0x0B, 0x0C, 0x0D}
	if !bytes.Equal(key, want) {
		t.Errorf("got % x, want % x", key, want)
	}
}

func TestAssignmentKey_Layout(t *testing.T) {
	key := AssignmentKey(0x0102, 0x0A0B0C0D)
	want := []byte{0x01, 0x02, byte(SiteRecordAssignment), 0x0A, 0x0B, 0x0C, 0x0D}
	if !bytes.Equal(key, want) {
		t.Errorf("got % x, want % x", key, want)
	}
}

func TestEventRowKey_NewerBucketSortsFirst(t *testing.T) {
	assn := AssignmentKey(1, 1)
	t1 := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour) // different bucket

	k1 := EventRowKey(assn, t1)
	k2 := EventRowKey(assn, t2)
	if bytes.Compare(k1, k2) <= 0 {
		t.Error("older event must have the lexicographically greater row key")
	}
}

func TestEventRowKey_SameBucketSameKey(t *testing.T) {
	assn := AssignmentKey(1, 1)
	t1 := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	t2 := t1.Add(30 * time.Minute) // same hour bucket

	if !bytes.Equal(EventRowKey(assn, t1), EventRowKey(assn, t2)) {
		t.Error("events in the same bucket must share a row key")
	}
}

func TestEventQualifier_NewerOffsetSortsFirst(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	t2 := t1.Add(10 * time.Second)

	q1 := EventQualifier(EventMeasurement, t1)
	q2 := EventQualifier(EventMeasurement, t2)
	if bytes.Compare(q1, q2) <= 0 {
		t.Error("older event must have the lexicographically greater qualifier")
	}
}

func TestEventQualifier_TypeByteIsLast(t *testing.T) {
	q := EventQualifier(EventAlert, time.Now())
	if len(q) != 4 {
		t.Fatalf("qualifier length %d", len(q))
	}
	if q[3] != byte(EventAlert) {
		t.Errorf("type byte %#x", q[3])
	}

	typ, ok := EventTypeOf(q)
	if !ok || typ != EventAlert {
		t.Errorf("EventTypeOf = %v, %v", typ, ok)
	}
}

func TestEventTypeOf_RejectsNonEventQualifiers(t *testing.T) {
	if _, ok := EventTypeOf([]byte("json")); ok {
		t.Error("a 4-byte non-event qualifier with an unknown type byte should be rejected")
	}
	if _, ok := EventTypeOf([]byte{0x01}); ok {
		t.Error("short qualifiers are not event cells")
	}
}

func TestDecodeEventTime_RoundTrip(t *testing.T) {
	assn := AssignmentKey(3, 9)
	at := time.Date(2026, 3, 1, 10, 42, 17, 0, time.UTC)

	key := EventRowKey(assn, at)
	qual := EventQualifier(EventLocation, at)

	decoded, err := DecodeEventTime(key, qual)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.Equal(at) {
		t.Errorf("decoded %v, want %v", decoded, at)
	}
}

func TestDecodeEventTime_ShortInput(t *testing.T) {
	if _, err := DecodeEventTime([]byte{0x01}, []byte{0x02, 0x03, 0x04}); err == nil {
		t.Error("expected error for short row key")
	}
}

func TestAbsoluteKeys_BoundAllEventKeys(t *testing.T) {
	assn := AssignmentKey(1, 1)
	start := EventAbsoluteStartKey(assn)
	end := EventAbsoluteEndKey(assn)

	for _, at := range []time.Time{
		time.Unix(0, 0),
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		key := EventRowKey(assn, at)
		if bytes.Compare(key, start) < 0 || bytes.Compare(key, end) > 0 {
			t.Errorf("event key for %v falls outside the absolute bounds", at)
		}
	}
}

func TestAssignmentHistoryQualifier_DetectedAndOrdered(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	q1 := AssignmentHistoryQualifier(t1)
	q2 := AssignmentHistoryQualifier(t2)

	if !IsAssignmentHistoryQualifier(q1) {
		t.Error("history qualifier not detected")
	}
	if IsAssignmentHistoryQualifier([]byte("assignment")) {
		t.Error("back-reference qualifier misdetected as history")
	}
	if bytes.Compare(q2, q1) >= 0 {
		t.Error("newer history entries must sort before older ones")
	}
}
