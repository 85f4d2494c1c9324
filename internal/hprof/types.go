// Package hprof provides a read-only reader for binary JVM HPROF heap dump
// files. It exposes objects, their outgoing references, and GC roots; it
// does not itself decide what is a leak or compute retention paths.
package hprof

import "time"

// RecordTag identifies a top-level record in an HPROF stream.
type RecordTag uint8

const (
	TagString          RecordTag = 0x01
	TagLoadClass        RecordTag = 0x02
	TagUnloadClass      RecordTag = 0x03
	TagStackFrame       RecordTag = 0x04
	TagStackTrace       RecordTag = 0x05
	TagAllocSites       RecordTag = 0x06
	TagHeapSummary      RecordTag = 0x07
	TagStartThread      RecordTag = 0x0A
	TagEndThread        RecordTag = 0x0B
	TagHeapDump         RecordTag = 0x0C
	TagHeapDumpSegment  RecordTag = 0x1C
	TagHeapDumpEnd      RecordTag = 0x2C
	TagCPUSamples       RecordTag = 0x0D
	TagControlSettings  RecordTag = 0x0E
)

// HeapDumpTag identifies a sub-record within a HEAP_DUMP / HEAP_DUMP_SEGMENT
// record.
type HeapDumpTag uint8

const (
	HeapTagRootUnknown        HeapDumpTag = 0xFF
	HeapTagRootJNIGlobal      HeapDumpTag = 0x01
	HeapTagRootJNILocal       HeapDumpTag = 0x02
	HeapTagRootJavaFrame      HeapDumpTag = 0x03
	HeapTagRootNativeStack    HeapDumpTag = 0x04
	HeapTagRootStickyClass    HeapDumpTag = 0x05
	HeapTagRootThreadBlock    HeapDumpTag = 0x06
	HeapTagRootMonitorUsed    HeapDumpTag = 0x07
	HeapTagRootThreadObject   HeapDumpTag = 0x08
	HeapTagRootInternedString HeapDumpTag = 0x89
	HeapTagRootFinalizing     HeapDumpTag = 0x8A
	HeapTagRootDebugger       HeapDumpTag = 0x8B
	HeapTagRootReferenceClean HeapDumpTag = 0x8C
	HeapTagRootVMInternal     HeapDumpTag = 0x8D
	HeapTagRootJNIMonitor     HeapDumpTag = 0x8E
	HeapTagClassDump          HeapDumpTag = 0x20
	HeapTagInstanceDump       HeapDumpTag = 0x21
	HeapTagObjectArrayDump    HeapDumpTag = 0x22
	HeapTagPrimitiveArrayDump HeapDumpTag = 0x23
	HeapTagRootUnreachable    HeapDumpTag = 0xFE
	HeapTagHeapDumpInfo       HeapDumpTag = 0xC3
)

// BasicType represents a Java primitive or object field type as encoded in
// class dumps, instance fields, and constant pool entries.
type BasicType uint8

const (
	TypeObject  BasicType = 2
	TypeBoolean BasicType = 4
	TypeChar    BasicType = 5
	TypeFloat   BasicType = 6
	TypeDouble  BasicType = 7
	TypeByte    BasicType = 8
	TypeShort   BasicType = 9
	TypeInt     BasicType = 10
	TypeLong    BasicType = 11
)

// BasicTypeSize returns the on-disk size in bytes of a value of type t.
// idSize is the snapshot's object-id width (4 or 8).
func BasicTypeSize(t BasicType, idSize int) int {
	switch t {
	case TypeObject:
		return idSize
	case TypeBoolean, TypeByte:
		return 1
	case TypeChar, TypeShort:
		return 2
	case TypeFloat, TypeInt:
		return 4
	case TypeDouble, TypeLong:
		return 8
	default:
		return 0
	}
}

// Header is the fixed preamble of an HPROF stream.
type Header struct {
	Format    string
	IDSize    int
	Timestamp time.Time
}
